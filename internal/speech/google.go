package speech

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	gspeech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"google.golang.org/api/option"

	"github.com/bgash22/voicebridge-ai-website/internal/assistant"
	"github.com/bgash22/voicebridge-ai-website/internal/audio"
	"github.com/bgash22/voicebridge-ai-website/internal/config"
	"github.com/bgash22/voicebridge-ai-website/internal/upstream"
)

// googleOptions builds client options from a credentials file path and an
// optional endpoint override. An empty path uses application default
// credentials.
func googleOptions(credentialsFile, endpoint string) []option.ClientOption {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	return opts
}

// GoogleTranscriber transcribes WAV audio with Google Cloud Speech-to-Text.
// The client is created on first use.
type GoogleTranscriber struct {
	opts    []option.ClientOption
	model   string
	timeout time.Duration
	logger  *slog.Logger

	once    sync.Once
	client  *gspeech.Client
	initErr error
}

// NewGoogleTranscriber creates a Google transcriber. cfg.APIKey holds the
// service-account credentials file path.
func NewGoogleTranscriber(cfg config.TranscriptionConfig, logger *slog.Logger) *GoogleTranscriber {
	if logger == nil {
		logger = slog.Default()
	}
	model := cfg.Model
	if model == defaultDeepgramListenModel {
		model = ""
	}
	return &GoogleTranscriber{
		opts:    googleOptions(cfg.APIKey, cfg.Endpoint),
		model:   model,
		timeout: cfg.GetTimeoutDuration(),
		logger:  logger.With("component", "transcriber", "provider", ProviderGoogle),
	}
}

// Name implements Transcriber.
func (g *GoogleTranscriber) Name() string { return ProviderGoogle }

func (g *GoogleTranscriber) init(ctx context.Context) error {
	g.once.Do(func() {
		g.client, g.initErr = gspeech.NewClient(context.WithoutCancel(ctx), g.opts...)
		if g.initErr != nil {
			g.logger.Error("Failed to create speech client", "error", g.initErr)
		}
	})
	if g.initErr != nil {
		return fmt.Errorf("%w: %v", upstream.MissingCredential(ProviderGoogle, config.EnvGoogleCreds), g.initErr)
	}
	return nil
}

// Transcribe implements Transcriber. Only 16-bit PCM WAV is accepted.
func (g *GoogleTranscriber) Transcribe(ctx context.Context, data []byte, opts Options) (Transcript, error) {
	if len(data) == 0 {
		return Transcript{}, ErrEmptyAudio
	}
	info, err := audio.GetWAVInfo(data)
	if err != nil {
		return Transcript{}, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	if err := g.init(ctx); err != nil {
		return Transcript{}, err
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	resp, err := g.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   speechpb.RecognitionConfig_LINEAR16,
			SampleRateHertz:            int32(info.SampleRate),
			AudioChannelCount:          int32(info.Channels),
			LanguageCode:               assistant.Locale(languageOrDefault(opts.Language)),
			EnableAutomaticPunctuation: true,
			Model:                      g.model,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: data},
		},
	})
	if err != nil {
		g.logger.Error("Recognize failed", "error", err)
		return Transcript{}, &upstream.Error{Provider: ProviderGoogle, Cause: err}
	}

	var (
		parts      []string
		confidence float64
	)
	for i, result := range resp.GetResults() {
		alts := result.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		parts = append(parts, strings.TrimSpace(alts[0].GetTranscript()))
		if i == 0 {
			confidence = float64(alts[0].GetConfidence())
		}
	}
	return Transcript{Text: strings.Join(parts, " "), Confidence: confidence}, nil
}

// Close releases the underlying client, if one was created.
func (g *GoogleTranscriber) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

// GoogleSynthesizer speaks text with Google Cloud Text-to-Speech. The
// client is created on first use.
type GoogleSynthesizer struct {
	opts    []option.ClientOption
	voice   string
	timeout time.Duration
	logger  *slog.Logger

	once    sync.Once
	client  *texttospeech.Client
	initErr error
}

// NewGoogleSynthesizer creates a Google synthesizer. cfg.APIKey holds the
// service-account credentials file path; cfg.Voice optionally names a voice.
func NewGoogleSynthesizer(cfg config.SynthesisConfig, logger *slog.Logger) *GoogleSynthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &GoogleSynthesizer{
		opts:    googleOptions(cfg.APIKey, cfg.Endpoint),
		voice:   cfg.Voice,
		timeout: cfg.GetTimeoutDuration(),
		logger:  logger.With("component", "synthesizer", "provider", ProviderGoogle),
	}
}

// Name implements Synthesizer.
func (g *GoogleSynthesizer) Name() string { return ProviderGoogle }

func (g *GoogleSynthesizer) init(ctx context.Context) error {
	g.once.Do(func() {
		g.client, g.initErr = texttospeech.NewClient(context.WithoutCancel(ctx), g.opts...)
		if g.initErr != nil {
			g.logger.Error("Failed to create text-to-speech client", "error", g.initErr)
		}
	})
	if g.initErr != nil {
		return fmt.Errorf("%w: %v", upstream.MissingCredential(ProviderGoogle, config.EnvGoogleCreds), g.initErr)
	}
	return nil
}

// Synthesize implements Synthesizer. The voice locale follows language.
func (g *GoogleSynthesizer) Synthesize(ctx context.Context, text, language string) (Audio, error) {
	if strings.TrimSpace(text) == "" {
		return Audio{}, ErrEmptyText
	}
	if err := g.init(ctx); err != nil {
		return Audio{}, err
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	resp, err := g.client.SynthesizeSpeech(ctx, &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: assistant.Locale(languageOrDefault(language)),
			Name:         g.voice,
			SsmlGender:   texttospeechpb.SsmlVoiceGender_NEUTRAL,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: texttospeechpb.AudioEncoding_MP3,
		},
	})
	if err != nil {
		g.logger.Error("SynthesizeSpeech failed", "error", err)
		return Audio{}, &upstream.Error{Provider: ProviderGoogle, Cause: err}
	}
	return Audio{Data: resp.GetAudioContent(), ContentType: contentTypeMPEG}, nil
}

// Close releases the underlying client, if one was created.
func (g *GoogleSynthesizer) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}
