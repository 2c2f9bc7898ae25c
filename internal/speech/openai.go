package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/bgash22/voicebridge-ai-website/internal/config"
	"github.com/bgash22/voicebridge-ai-website/internal/upstream"
)

func newOpenAIClient(apiKey, endpoint string, cfgTimeout int) *openai.Client {
	clientConfig := openai.DefaultConfig(apiKey)
	if endpoint != "" {
		clientConfig.BaseURL = endpoint
	}
	clientConfig.HTTPClient = newHTTPClient(secondsToDuration(cfgTimeout))
	return openai.NewClientWithConfig(clientConfig)
}

// OpenAITranscriber transcribes audio with Whisper.
type OpenAITranscriber struct {
	client *openai.Client
	model  string
	hasKey bool
	logger *slog.Logger
}

// NewOpenAITranscriber creates a Whisper transcriber.
func NewOpenAITranscriber(cfg config.TranscriptionConfig, logger *slog.Logger) *OpenAITranscriber {
	if logger == nil {
		logger = slog.Default()
	}
	model := cfg.Model
	if model == "" || model == defaultDeepgramListenModel {
		model = openai.Whisper1
	}
	return &OpenAITranscriber{
		client: newOpenAIClient(cfg.APIKey, cfg.Endpoint, cfg.Timeout),
		model:  model,
		hasKey: cfg.APIKey != "",
		logger: logger.With("component", "transcriber", "provider", ProviderOpenAI),
	}
}

// Name implements Transcriber.
func (o *OpenAITranscriber) Name() string { return ProviderOpenAI }

// Transcribe implements Transcriber. Whisper reports no confidence, so
// Confidence is always zero.
func (o *OpenAITranscriber) Transcribe(ctx context.Context, audio []byte, opts Options) (Transcript, error) {
	if len(audio) == 0 {
		return Transcript{}, ErrEmptyAudio
	}
	if !o.hasKey {
		return Transcript{}, upstream.MissingCredential(ProviderOpenAI, config.EnvOpenAIAPIKey)
	}

	resp, err := o.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    o.model,
		FilePath: uploadName(opts.ContentType),
		Reader:   bytes.NewReader(audio),
		Language: languageOrDefault(opts.Language),
	})
	if err != nil {
		return Transcript{}, wrapOpenAIError(err, o.logger)
	}
	return Transcript{Text: resp.Text}, nil
}

// uploadName picks a file name whose extension tells Whisper the container.
func uploadName(contentType string) string {
	switch {
	case strings.Contains(contentType, "webm"):
		return "audio.webm"
	case strings.Contains(contentType, "mpeg"), strings.Contains(contentType, "mp3"):
		return "audio.mp3"
	case strings.Contains(contentType, "ogg"):
		return "audio.ogg"
	default:
		return "audio.wav"
	}
}

// OpenAISynthesizer speaks text with the OpenAI speech API.
type OpenAISynthesizer struct {
	client *openai.Client
	model  openai.SpeechModel
	voice  openai.SpeechVoice
	hasKey bool
	logger *slog.Logger
}

// NewOpenAISynthesizer creates an OpenAI synthesizer.
func NewOpenAISynthesizer(cfg config.SynthesisConfig, logger *slog.Logger) *OpenAISynthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	model := openai.SpeechModel(cfg.Model)
	if cfg.Model == "" || cfg.Model == defaultDeepgramSpeakModel {
		model = openai.TTSModel1
	}
	voice := openai.SpeechVoice(cfg.Voice)
	if cfg.Voice == "" {
		voice = openai.VoiceAlloy
	}
	return &OpenAISynthesizer{
		client: newOpenAIClient(cfg.APIKey, cfg.Endpoint, cfg.Timeout),
		model:  model,
		voice:  voice,
		hasKey: cfg.APIKey != "",
		logger: logger.With("component", "synthesizer", "provider", ProviderOpenAI),
	}
}

// Name implements Synthesizer.
func (o *OpenAISynthesizer) Name() string { return ProviderOpenAI }

// Synthesize implements Synthesizer. The voice is multilingual and follows
// the input text, so language is not sent.
func (o *OpenAISynthesizer) Synthesize(ctx context.Context, text, _ string) (Audio, error) {
	if strings.TrimSpace(text) == "" {
		return Audio{}, ErrEmptyText
	}
	if !o.hasKey {
		return Audio{}, upstream.MissingCredential(ProviderOpenAI, config.EnvOpenAIAPIKey)
	}

	resp, err := o.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          o.model,
		Input:          text,
		Voice:          o.voice,
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return Audio{}, wrapOpenAIError(err, o.logger)
	}
	defer resp.Close()

	data, err := io.ReadAll(resp)
	if err != nil {
		return Audio{}, &upstream.Error{Provider: ProviderOpenAI, Cause: fmt.Errorf("failed to read speech: %w", err)}
	}
	return Audio{Data: data, ContentType: contentTypeMPEG}, nil
}

func wrapOpenAIError(err error, logger *slog.Logger) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		logger.Error("OpenAI error", "status", apiErr.HTTPStatusCode, "type", apiErr.Type, "message", apiErr.Message)
		return &upstream.Error{Provider: ProviderOpenAI, StatusCode: apiErr.HTTPStatusCode, Body: apiErr.Message, Cause: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		logger.Error("OpenAI request error", "status", reqErr.HTTPStatusCode, "error", reqErr.Err)
		return &upstream.Error{Provider: ProviderOpenAI, StatusCode: reqErr.HTTPStatusCode, Cause: err}
	}
	logger.Error("OpenAI request failed", "error", err)
	return &upstream.Error{Provider: ProviderOpenAI, Cause: err}
}
