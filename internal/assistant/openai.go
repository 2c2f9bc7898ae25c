package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/bgash22/voicebridge-ai-website/internal/config"
	"github.com/bgash22/voicebridge-ai-website/internal/upstream"
)

const providerOpenAI = "openai"

// OpenAIModel is a Model backed by the OpenAI chat completions API.
type OpenAIModel struct {
	client      *openai.Client
	model       string
	temperature float32
	hasKey      bool
	logger      *slog.Logger
}

// NewOpenAIModel creates a model from configuration. A missing API key is
// reported by Complete, not here, so the server can start without it.
func NewOpenAIModel(cfg config.ChatConfig, logger *slog.Logger) *OpenAIModel {
	if logger == nil {
		logger = slog.Default()
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.Endpoint != "" {
		clientConfig.BaseURL = cfg.Endpoint
	}
	timeout := cfg.GetTimeoutDuration()
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	clientConfig.HTTPClient = &http.Client{Timeout: timeout}

	return &OpenAIModel{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		hasKey:      cfg.APIKey != "",
		logger:      logger.With("component", "chat", "provider", providerOpenAI),
	}
}

// Complete implements Model.
func (m *OpenAIModel) Complete(ctx context.Context, ex Exchange) (Completion, error) {
	if !m.hasKey {
		return Completion{}, upstream.MissingCredential(providerOpenAI, config.EnvOpenAIAPIKey)
	}

	req := openai.ChatCompletionRequest{
		Model:       m.model,
		Messages:    buildMessages(ex),
		Temperature: m.temperature,
	}
	if ex.Call == nil {
		req.Tools = buildTools(ex.Mode)
	}

	resp, err := m.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return Completion{}, m.wrapError(err)
	}
	if len(resp.Choices) == 0 {
		return Completion{}, &upstream.Error{Provider: providerOpenAI, StatusCode: http.StatusOK, Body: "no choices returned"}
	}

	msg := resp.Choices[0].Message
	if len(msg.ToolCalls) > 0 {
		tc := msg.ToolCalls[0]
		return Completion{ToolCall: &ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: []byte(tc.Function.Arguments),
		}}, nil
	}
	return Completion{Text: msg.Content}, nil
}

func (m *OpenAIModel) wrapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		m.logger.Error("OpenAI error", "status", apiErr.HTTPStatusCode, "type", apiErr.Type, "message", apiErr.Message)
		return &upstream.Error{Provider: providerOpenAI, StatusCode: apiErr.HTTPStatusCode, Body: apiErr.Message, Cause: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		m.logger.Error("OpenAI request error", "status", reqErr.HTTPStatusCode, "error", reqErr.Err)
		return &upstream.Error{Provider: providerOpenAI, StatusCode: reqErr.HTTPStatusCode, Cause: err}
	}
	m.logger.Error("OpenAI request failed", "error", err)
	return &upstream.Error{Provider: providerOpenAI, Cause: fmt.Errorf("chat completion: %w", err)}
}

func buildMessages(ex Exchange) []openai.ChatCompletionMessage {
	msgs := make([]openai.ChatCompletionMessage, 0, len(ex.History)+4)
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: SystemPrompt(ex.Mode, ex.Language),
	})
	for _, t := range ex.History {
		role := openai.ChatMessageRoleAssistant
		if t.Role == RoleUser {
			role = openai.ChatMessageRoleUser
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: t.Text})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: ex.Message,
	})

	if ex.Call != nil {
		msgs = append(msgs,
			openai.ChatCompletionMessage{
				Role: openai.ChatMessageRoleAssistant,
				ToolCalls: []openai.ToolCall{{
					ID:   ex.Call.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      ex.Call.Name,
						Arguments: string(ex.Call.Arguments),
					},
				}},
			},
			openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Name:       ex.Call.Name,
				ToolCallID: ex.Call.ID,
				Content:    string(ex.Result),
			},
		)
	}
	return msgs
}

func buildTools(mode Mode) []openai.Tool {
	defs := mode.Tools()
	if len(defs) == 0 {
		return nil
	}
	out := make([]openai.Tool, 0, len(defs))
	for _, d := range defs {
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  d.Parameters,
			},
		})
	}
	return out
}
