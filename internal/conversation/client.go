package conversation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bgash22/voicebridge-ai-website/internal/assistant"
	"github.com/bgash22/voicebridge-ai-website/internal/speech"
	"github.com/bgash22/voicebridge-ai-website/internal/tools"
	"github.com/bgash22/voicebridge-ai-website/internal/upstream"
)

const providerService = "voicebridge"

// Client calls the VoiceBridge HTTP service. It is a speech.Transcriber,
// an assistant.Model, an assistant.ToolInvoker and a speech.Synthesizer.
// The service resolves tool calls itself, so Complete always returns text.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Name implements speech.Transcriber and speech.Synthesizer.
func (c *Client) Name() string { return providerService }

// errorReply is the service's error body.
type errorReply struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details string `json:"details"`
}

// Transcribe uploads the clip as multipart form data.
func (c *Client) Transcribe(ctx context.Context, data []byte, opts speech.Options) (speech.Transcript, error) {
	contentType := opts.ContentType
	if contentType == "" {
		contentType = "audio/wav"
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="audio"; filename="recording.wav"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return speech.Transcript{}, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return speech.Transcript{}, fmt.Errorf("failed to write audio: %w", err)
	}
	if err := mw.WriteField("language", opts.Language); err != nil {
		return speech.Transcript{}, fmt.Errorf("failed to write language: %w", err)
	}
	if err := mw.Close(); err != nil {
		return speech.Transcript{}, fmt.Errorf("failed to close form: %w", err)
	}

	var out speech.Transcript
	status, raw, err := c.do(ctx, http.MethodPost, "/transcribe", mw.FormDataContentType(), &body, &out)
	if err != nil {
		return speech.Transcript{}, err
	}
	if status == http.StatusOK {
		return out, nil
	}

	var e errorReply
	_ = json.Unmarshal(raw, &e)
	switch {
	case status == http.StatusBadRequest && e.Error == "Audio too short or silent":
		return speech.Transcript{}, ErrUploadTooSmall
	case status == http.StatusBadRequest && e.Error == "No speech detected":
		return speech.Transcript{}, ErrNoSpeechDetected
	}
	return speech.Transcript{}, c.statusError(status, raw)
}

type chatRequest struct {
	Message             string           `json:"message"`
	ServiceType         assistant.Mode   `json:"serviceType"`
	ConversationHistory []assistant.Turn `json:"conversationHistory"`
	Language            string           `json:"language"`
}

// Complete sends the user message with its history to /chat.
func (c *Client) Complete(ctx context.Context, ex assistant.Exchange) (assistant.Completion, error) {
	payload, err := json.Marshal(chatRequest{
		Message:             ex.Message,
		ServiceType:         ex.Mode,
		ConversationHistory: ex.History,
		Language:            ex.Language,
	})
	if err != nil {
		return assistant.Completion{}, fmt.Errorf("failed to marshal chat request: %w", err)
	}

	var out struct {
		Message string `json:"message"`
	}
	status, raw, err := c.do(ctx, http.MethodPost, "/chat", "application/json", bytes.NewReader(payload), &out)
	if err != nil {
		return assistant.Completion{}, err
	}
	if status != http.StatusOK {
		return assistant.Completion{}, c.statusError(status, raw)
	}
	return assistant.Completion{Text: out.Message}, nil
}

// Dispatch invokes a tool through /functions.
func (c *Client) Dispatch(ctx context.Context, name string, args json.RawMessage) (json.RawMessage, error) {
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}
	payload, err := json.Marshal(map[string]any{
		"function_name": name,
		"arguments":     args,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal function request: %w", err)
	}

	var out struct {
		Result json.RawMessage `json:"result"`
	}
	status, raw, err := c.do(ctx, http.MethodPost, "/functions", "application/json", bytes.NewReader(payload), &out)
	if err != nil {
		return nil, err
	}
	if status == http.StatusOK {
		return out.Result, nil
	}

	var e errorReply
	_ = json.Unmarshal(raw, &e)
	if status == http.StatusBadRequest {
		if strings.HasPrefix(e.Error, "Unknown function") {
			return nil, fmt.Errorf("%w: %s", tools.ErrUnknownFunction, name)
		}
		return nil, fmt.Errorf("%w: %s", tools.ErrInvalidArguments, e.Error)
	}
	return nil, c.statusError(status, raw)
}

// Synthesize fetches spoken audio for text from /synthesize.
func (c *Client) Synthesize(ctx context.Context, text, language string) (speech.Audio, error) {
	payload, err := json.Marshal(map[string]string{"text": text, "language": language})
	if err != nil {
		return speech.Audio{}, fmt.Errorf("failed to marshal synthesis request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/synthesize", "application/json", bytes.NewReader(payload))
	if err != nil {
		return speech.Audio{}, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return speech.Audio{}, &upstream.Error{Provider: providerService, Cause: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return speech.Audio{}, &upstream.Error{Provider: providerService, StatusCode: resp.StatusCode, Cause: err}
	}
	if resp.StatusCode != http.StatusOK {
		return speech.Audio{}, c.statusError(resp.StatusCode, data)
	}
	return speech.Audio{Data: data, ContentType: resp.Header.Get("Content-Type")}, nil
}

// AgentConfig fetches the voice-agent settings document.
func (c *Client) AgentConfig(ctx context.Context) (json.RawMessage, error) {
	var out json.RawMessage
	status, raw, err := c.do(ctx, http.MethodGet, "/agent-config", "", nil, &out)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, c.statusError(status, raw)
	}
	return out, nil
}

func (c *Client) newRequest(ctx context.Context, method, path, contentType string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("X-Request-ID", uuid.NewString())
	return req, nil
}

// do sends a request and decodes a 200 reply into out. Other statuses are
// returned with the raw body for the caller to classify.
func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) (int, []byte, error) {
	req, err := c.newRequest(ctx, method, path, contentType, body)
	if err != nil {
		return 0, nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, &upstream.Error{Provider: providerService, Cause: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, &upstream.Error{Provider: providerService, StatusCode: resp.StatusCode, Cause: err}
	}
	if resp.StatusCode == http.StatusOK && out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp.StatusCode, raw, &upstream.Error{Provider: providerService, StatusCode: resp.StatusCode, Body: string(raw), Cause: err}
		}
	}
	return resp.StatusCode, raw, nil
}

func (c *Client) statusError(status int, raw []byte) error {
	var e errorReply
	if err := json.Unmarshal(raw, &e); err == nil && e.Error != "" {
		msg := e.Error
		if e.Details != "" {
			msg += ": " + e.Details
		}
		return &upstream.Error{Provider: providerService, StatusCode: status, Body: msg}
	}
	return &upstream.Error{Provider: providerService, StatusCode: status, Body: string(raw)}
}
