package assistant

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/bgash22/voicebridge-ai-website/internal/config"
	"github.com/bgash22/voicebridge-ai-website/internal/tools"
)

const agentInstructions = `You are a professional assistant helping customers with pharmacy services and DHL package tracking.

Your role is to:
1) Answer questions about medications (prices, availability, descriptions)
2) Help customers place orders for medications
3) Look up existing order status
4) Track DHL shipments and packages
5) Provide clear, helpful, and professional service

You have access to tools to:
- get_drug_info: Look up medication details
- place_order: Create new medication orders
- lookup_order: Check order status by ID
- track_shipment: Track DHL packages using tracking numbers

IMPORTANT:
- ALWAYS ask users to spell out their full name clearly when placing orders
- For tracking, ask customers to provide their DHL tracking number clearly - it's usually 10-14 digit numbers only
- Confirm all order details and tracking numbers before processing
- Be thorough and professional
- Always confirm the complete details before finalizing any transaction`

// AgentSettings is the settings message for an external voice agent.
type AgentSettings struct {
	Type  string     `json:"type"`
	Audio AgentAudio `json:"audio"`
	Agent AgentSpec  `json:"agent"`
}

// AgentAudio holds the agent's input and output formats.
type AgentAudio struct {
	Input  AgentAudioFormat `json:"input"`
	Output AgentAudioFormat `json:"output"`
}

// AgentAudioFormat is one direction's audio format.
type AgentAudioFormat struct {
	Encoding   string `json:"encoding"`
	SampleRate int    `json:"sample_rate"`
	Container  string `json:"container,omitempty"`
	BufferSize int    `json:"buffer_size,omitempty"`
}

// AgentSpec holds the listen, think and speak stages.
type AgentSpec struct {
	Listen AgentModel `json:"listen"`
	Think  AgentThink `json:"think"`
	Speak  AgentModel `json:"speak"`
}

// AgentModel names a provider model.
type AgentModel struct {
	Model string `json:"model"`
}

// AgentThink configures the agent's language model.
type AgentThink struct {
	Provider     AgentProvider   `json:"provider"`
	Model        string          `json:"model"`
	Instructions string          `json:"instructions"`
	Functions    []AgentFunction `json:"functions"`
}

// AgentProvider names the language model provider.
type AgentProvider struct {
	Type string `json:"type"`
}

// AgentFunction is a tool exposed to the agent through a webhook.
type AgentFunction struct {
	Name        string          `json:"name"`
	URL         string          `json:"url"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// BuildAgentSettings describes every tool, all reachable at webhookURL,
// together with the combined pharmacy and shipment instructions.
func BuildAgentSettings(cfg config.AgentConfig, webhookURL string) AgentSettings {
	defs := tools.Definitions()
	functions := make([]AgentFunction, 0, len(defs))
	for _, d := range defs {
		functions = append(functions, AgentFunction{
			Name:        d.Name,
			URL:         webhookURL,
			Description: d.AgentDescription,
			Parameters:  d.Parameters,
		})
	}

	return AgentSettings{
		Type: "SettingsConfiguration",
		Audio: AgentAudio{
			Input: AgentAudioFormat{Encoding: "linear16", SampleRate: cfg.InputRate},
			Output: AgentAudioFormat{
				Encoding:   "linear16",
				SampleRate: cfg.OutputRate,
				Container:  "none",
				BufferSize: cfg.OutputBuffer,
			},
		},
		Agent: AgentSpec{
			Listen: AgentModel{Model: cfg.ListenModel},
			Think: AgentThink{
				Provider:     AgentProvider{Type: "open_ai"},
				Model:        cfg.ThinkModel,
				Instructions: agentInstructions,
				Functions:    functions,
			},
			Speak: AgentModel{Model: cfg.SpeakModel},
		},
	}
}

// WebhookURL derives the tool webhook from the request host. Local hosts
// get plain http.
func WebhookURL(host, path string) string {
	if host == "" {
		host = "localhost:3000"
	}
	scheme := "https"
	if strings.Contains(host, "localhost") || strings.HasPrefix(host, "127.0.0.1") {
		scheme = "http"
	}
	return scheme + "://" + host + path
}

// AgentSession tells a client where to reach a voice agent.
type AgentSession struct {
	WebSocketURL string `json:"wsUrl"`
	ServiceType  Mode   `json:"serviceType"`
}

// AgentConnector hands out voice-agent sessions.
type AgentConnector interface {
	Connect(ctx context.Context, mode Mode) (AgentSession, error)
}

// StaticConnector always points at one configured agent endpoint.
type StaticConnector struct {
	URL         string
	DefaultMode Mode
}

// Connect implements AgentConnector. An empty mode falls back to DefaultMode.
func (c StaticConnector) Connect(_ context.Context, mode Mode) (AgentSession, error) {
	if mode == "" {
		mode = c.DefaultMode
	}
	if mode == "" {
		mode = ModePharmacy
	}
	return AgentSession{WebSocketURL: c.URL, ServiceType: mode}, nil
}
