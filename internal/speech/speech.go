package speech

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/bgash22/voicebridge-ai-website/internal/config"
)

// Provider names.
const (
	ProviderDeepgram = "deepgram"
	ProviderOpenAI   = "openai"
	ProviderGoogle   = "google"
)

const (
	contentTypeWAV  = "audio/wav"
	contentTypeMPEG = "audio/mpeg"
	defaultTimeout  = 30 * time.Second
)

var (
	// ErrEmptyAudio is returned when Transcribe receives no audio bytes.
	ErrEmptyAudio = errors.New("no audio provided")

	// ErrEmptyText is returned when Synthesize receives blank text.
	ErrEmptyText = errors.New("no text provided")

	// ErrUnsupportedFormat is returned when a provider cannot accept the
	// uploaded container.
	ErrUnsupportedFormat = errors.New("unsupported audio format")
)

// Options describe one transcription request.
type Options struct {
	// Language is a short language code such as "en" or "es". Empty means "en".
	Language string

	// ContentType is the MIME type of the audio, "audio/wav" when empty.
	ContentType string
}

// Transcript is the text recognized in a clip. Text may be empty when the
// provider heard no speech.
type Transcript struct {
	Text       string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
}

// Audio is synthesized speech.
type Audio struct {
	Data        []byte
	ContentType string
}

// Transcriber converts recorded audio to text.
type Transcriber interface {
	// Name returns the provider identifier.
	Name() string

	Transcribe(ctx context.Context, audio []byte, opts Options) (Transcript, error)
}

// Synthesizer converts text to spoken audio.
type Synthesizer interface {
	// Name returns the provider identifier.
	Name() string

	Synthesize(ctx context.Context, text, language string) (Audio, error)
}

// NewTranscriber creates the transcriber selected by cfg.Provider.
func NewTranscriber(cfg config.TranscriptionConfig, logger *slog.Logger) (Transcriber, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Provider {
	case ProviderDeepgram, "":
		return NewDeepgramTranscriber(cfg, logger), nil
	case ProviderOpenAI:
		return NewOpenAITranscriber(cfg, logger), nil
	case ProviderGoogle:
		return NewGoogleTranscriber(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown transcription provider %q", cfg.Provider)
	}
}

// NewSynthesizer creates the synthesizer selected by cfg.Provider.
func NewSynthesizer(cfg config.SynthesisConfig, logger *slog.Logger) (Synthesizer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Provider {
	case ProviderDeepgram, "":
		return NewDeepgramSynthesizer(cfg, logger), nil
	case ProviderOpenAI:
		return NewOpenAISynthesizer(cfg, logger), nil
	case ProviderGoogle:
		return NewGoogleSynthesizer(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown synthesis provider %q", cfg.Provider)
	}
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

func secondsToDuration(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}

func languageOrDefault(lang string) string {
	if lang == "" {
		return "en"
	}
	return lang
}
