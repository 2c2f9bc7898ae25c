package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/bgash22/voicebridge-ai-website/internal/config"
	"github.com/bgash22/voicebridge-ai-website/internal/upstream"
)

// DefaultDeepgramEndpoint is the Deepgram REST base URL.
const DefaultDeepgramEndpoint = "https://api.deepgram.com"

const (
	defaultDeepgramListenModel = "nova-2"
	defaultDeepgramSpeakModel  = "aura-asteria-en"
	maxErrorBody               = 4096
)

// deepgramListenResponse is the subset of the /v1/listen reply we read.
type deepgramListenResponse struct {
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string  `json:"transcript"`
				Confidence float64 `json:"confidence"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

// DeepgramTranscriber transcribes prerecorded audio with Deepgram.
type DeepgramTranscriber struct {
	endpoint   string
	apiKey     string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewDeepgramTranscriber creates a Deepgram transcriber.
func NewDeepgramTranscriber(cfg config.TranscriptionConfig, logger *slog.Logger) *DeepgramTranscriber {
	if logger == nil {
		logger = slog.Default()
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultDeepgramEndpoint
	}
	model := cfg.Model
	if model == "" {
		model = defaultDeepgramListenModel
	}
	return &DeepgramTranscriber{
		endpoint:   strings.TrimRight(endpoint, "/"),
		apiKey:     cfg.APIKey,
		model:      model,
		httpClient: newHTTPClient(cfg.GetTimeoutDuration()),
		logger:     logger.With("component", "transcriber", "provider", ProviderDeepgram),
	}
}

// Name implements Transcriber.
func (d *DeepgramTranscriber) Name() string { return ProviderDeepgram }

// Transcribe implements Transcriber.
func (d *DeepgramTranscriber) Transcribe(ctx context.Context, audio []byte, opts Options) (Transcript, error) {
	if len(audio) == 0 {
		return Transcript{}, ErrEmptyAudio
	}
	if d.apiKey == "" {
		return Transcript{}, upstream.MissingCredential(ProviderDeepgram, config.EnvDeepgramAPIKey)
	}

	q := url.Values{}
	q.Set("model", d.model)
	q.Set("smart_format", "true")
	q.Set("language", languageOrDefault(opts.Language))
	q.Set("punctuate", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint+"/v1/listen?"+q.Encode(), bytes.NewReader(audio))
	if err != nil {
		return Transcript{}, fmt.Errorf("failed to create request: %w", err)
	}
	contentType := opts.ContentType
	if contentType == "" {
		contentType = contentTypeWAV
	}
	req.Header.Set("Authorization", "Token "+d.apiKey)
	req.Header.Set("Content-Type", contentType)

	d.logger.Debug("Sending audio to Deepgram", "bytes", len(audio), "language", q.Get("language"))

	body, err := doRequest(d.httpClient, req, ProviderDeepgram, d.logger)
	if err != nil {
		return Transcript{}, err
	}

	var resp deepgramListenResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Transcript{}, &upstream.Error{Provider: ProviderDeepgram, StatusCode: http.StatusOK, Body: string(body), Cause: err}
	}

	var t Transcript
	if len(resp.Results.Channels) > 0 && len(resp.Results.Channels[0].Alternatives) > 0 {
		alt := resp.Results.Channels[0].Alternatives[0]
		t = Transcript{Text: alt.Transcript, Confidence: alt.Confidence}
	}
	d.logger.Debug("Deepgram transcript received", "chars", len(t.Text), "confidence", t.Confidence)
	return t, nil
}

// DeepgramSynthesizer speaks text with Deepgram Aura voices.
type DeepgramSynthesizer struct {
	endpoint   string
	apiKey     string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewDeepgramSynthesizer creates a Deepgram synthesizer.
func NewDeepgramSynthesizer(cfg config.SynthesisConfig, logger *slog.Logger) *DeepgramSynthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultDeepgramEndpoint
	}
	model := cfg.Model
	if model == "" {
		model = defaultDeepgramSpeakModel
	}
	return &DeepgramSynthesizer{
		endpoint:   strings.TrimRight(endpoint, "/"),
		apiKey:     cfg.APIKey,
		model:      model,
		httpClient: newHTTPClient(cfg.GetTimeoutDuration()),
		logger:     logger.With("component", "synthesizer", "provider", ProviderDeepgram),
	}
}

// Name implements Synthesizer.
func (d *DeepgramSynthesizer) Name() string { return ProviderDeepgram }

// Synthesize implements Synthesizer. The Aura model fixes the voice, so
// language is not sent.
func (d *DeepgramSynthesizer) Synthesize(ctx context.Context, text, _ string) (Audio, error) {
	if strings.TrimSpace(text) == "" {
		return Audio{}, ErrEmptyText
	}
	if d.apiKey == "" {
		return Audio{}, upstream.MissingCredential(ProviderDeepgram, config.EnvDeepgramAPIKey)
	}

	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return Audio{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	u := d.endpoint + "/v1/speak?" + url.Values{"model": {d.model}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return Audio{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+d.apiKey)
	req.Header.Set("Content-Type", "application/json")

	var contentType string
	data, err := doRequestWith(d.httpClient, req, ProviderDeepgram, d.logger, func(resp *http.Response) {
		contentType = resp.Header.Get("Content-Type")
	})
	if err != nil {
		return Audio{}, err
	}
	if contentType == "" || strings.HasPrefix(contentType, "application/octet-stream") {
		contentType = contentTypeMPEG
	}
	return Audio{Data: data, ContentType: contentType}, nil
}

func doRequest(client *http.Client, req *http.Request, provider string, logger *slog.Logger) ([]byte, error) {
	return doRequestWith(client, req, provider, logger, nil)
}

// doRequestWith performs req and returns the body of a 2xx reply. Other
// replies become *upstream.Error with the raw body logged.
func doRequestWith(client *http.Client, req *http.Request, provider string, logger *slog.Logger, inspect func(*http.Response)) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		logger.Error("Provider request failed", "error", err)
		return nil, &upstream.Error{Provider: provider, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		logger.Error("Provider returned error", "status", resp.StatusCode, "body", string(raw))
		return nil, &upstream.Error{Provider: provider, StatusCode: resp.StatusCode, Body: string(raw)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &upstream.Error{Provider: provider, StatusCode: resp.StatusCode, Cause: fmt.Errorf("failed to read response: %w", err)}
	}
	if inspect != nil {
		inspect(resp)
	}
	return body, nil
}
