package server

import (
	"context"
	"time"

	"github.com/bgash22/voicebridge-ai-website/internal/assistant"
	"github.com/bgash22/voicebridge-ai-website/internal/metrics"
	"github.com/bgash22/voicebridge-ai-website/internal/speech"
)

// Upstream call kinds used as metric labels.
const (
	kindTranscription = "transcription"
	kindCompletion    = "completion"
	kindSynthesis     = "synthesis"
)

// meteredModel records every completion request, including the follow-up
// that carries a tool result.
type meteredModel struct {
	assistant.Model
	provider string
	metrics  *metrics.Metrics
}

func (m meteredModel) Complete(ctx context.Context, ex assistant.Exchange) (assistant.Completion, error) {
	start := time.Now()
	c, err := m.Model.Complete(ctx, ex)
	m.metrics.RecordUpstream(m.provider, kindCompletion, err, time.Since(start).Seconds())
	return c, err
}

func (h *HTTPServer) transcribe(ctx context.Context, data []byte, opts speech.Options) (speech.Transcript, error) {
	start := time.Now()
	t, err := h.transcriber.Transcribe(ctx, data, opts)
	h.metrics.RecordUpstream(h.transcriber.Name(), kindTranscription, err, time.Since(start).Seconds())
	return t, err
}

func (h *HTTPServer) synthesize(ctx context.Context, text, language string) (speech.Audio, error) {
	start := time.Now()
	a, err := h.synthesizer.Synthesize(ctx, text, language)
	h.metrics.RecordUpstream(h.synthesizer.Name(), kindSynthesis, err, time.Since(start).Seconds())
	return a, err
}

// credentialMessage is the client-facing text for a missing provider key.
func credentialMessage(provider string) string {
	switch provider {
	case speech.ProviderDeepgram:
		return "Deepgram API key not configured"
	case speech.ProviderGoogle:
		return "Google Cloud credentials not configured"
	default:
		return "OpenAI API key not configured"
	}
}
