package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bgash22/voicebridge-ai-website/internal/tools"
)

// Role is the author of a turn.
type Role string

// Turn roles. "ai" is accepted on the wire as an alias of assistant.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// UnmarshalText normalizes wire roles. Anything that is not the user is
// treated as the assistant.
func (r *Role) UnmarshalText(b []byte) error {
	if strings.EqualFold(string(b), string(RoleUser)) {
		*r = RoleUser
	} else {
		*r = RoleAssistant
	}
	return nil
}

// Turn is one utterance in a conversation.
type Turn struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp,omitzero"`
}

// ToolCall is a model's request to run one tool.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// Exchange is the input to one completion request. Call and Result are set
// only on the follow-up request that carries a tool result.
type Exchange struct {
	Mode     Mode
	Language string
	History  []Turn
	Message  string

	Call   *ToolCall
	Result json.RawMessage
}

// Completion is a model reply: either final text or a tool call.
type Completion struct {
	Text     string
	ToolCall *ToolCall
}

// Model produces completions. Tools for the exchange's mode are offered
// only when Call is nil.
type Model interface {
	Complete(ctx context.Context, ex Exchange) (Completion, error)
}

// ToolInvoker runs a tool by name.
type ToolInvoker interface {
	Dispatch(ctx context.Context, name string, args json.RawMessage) (json.RawMessage, error)
}

// Phase is reported to the round observer as the round progresses.
type Phase int

const (
	// PhaseCompletion: a completion request is in flight.
	PhaseCompletion Phase = iota
	// PhaseToolResult: a tool is running.
	PhaseToolResult
)

func (p Phase) String() string {
	switch p {
	case PhaseCompletion:
		return "completion"
	case PhaseToolResult:
		return "tool_result"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// ErrEmptyCompletion is returned when the model yields no text.
var ErrEmptyCompletion = errors.New("model returned an empty completion")

// RoundOptions tune RunRound.
type RoundOptions struct {
	Observe func(Phase)
	Logger  *slog.Logger
}

// RunRound resolves one user message to final assistant text with at most
// one tool round-trip. Tool failures are folded into the tool result as an
// {"error": ...} object so the model can still answer; a second tool call
// from the follow-up completion is ignored.
func RunRound(ctx context.Context, model Model, invoker ToolInvoker, ex Exchange, opts RoundOptions) (string, error) {
	observe := opts.Observe
	if observe == nil {
		observe = func(Phase) {}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ex.Call, ex.Result = nil, nil

	observe(PhaseCompletion)
	first, err := model.Complete(ctx, ex)
	if err != nil {
		return "", err
	}
	if first.ToolCall == nil {
		return finalText(first)
	}

	call := *first.ToolCall
	logger.Info("Function call requested", "tool", call.Name, "mode", ex.Mode)

	observe(PhaseToolResult)
	result := invoke(ctx, invoker, ex.Mode, call, logger)

	ex.Call = &call
	ex.Result = result

	observe(PhaseCompletion)
	second, err := model.Complete(ctx, ex)
	if err != nil {
		return "", err
	}
	if second.ToolCall != nil {
		logger.Warn("Ignoring second tool call in one turn", "tool", second.ToolCall.Name)
	}
	return finalText(second)
}

func invoke(ctx context.Context, invoker ToolInvoker, mode Mode, call ToolCall, logger *slog.Logger) json.RawMessage {
	if !mode.Allows(call.Name) {
		logger.Warn("Model requested a tool outside its mode", "tool", call.Name, "mode", mode)
		return errorResult(fmt.Sprintf("Unknown function: %s", call.Name))
	}

	result, err := invoker.Dispatch(ctx, call.Name, call.Arguments)
	if err != nil {
		logger.Error("Function execution failed", "tool", call.Name, "error", err)
		switch {
		case errors.Is(err, tools.ErrUnknownFunction):
			return errorResult(fmt.Sprintf("Unknown function: %s", call.Name))
		case errors.Is(err, tools.ErrInvalidArguments):
			return errorResult(err.Error())
		default:
			return errorResult("Function execution failed")
		}
	}
	return result
}

func errorResult(msg string) json.RawMessage {
	b, _ := json.Marshal(tools.ErrorResult{Error: msg})
	return b
}

func finalText(c Completion) (string, error) {
	text := strings.TrimSpace(c.Text)
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}
