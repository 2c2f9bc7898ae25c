package assistant

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bgash22/voicebridge-ai-website/internal/config"
	"github.com/bgash22/voicebridge-ai-website/internal/tools"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"pharmacy", ModePharmacy, false},
		{"Shipment", ModeShipment, false},
		{"dhl", ModeShipment, false},
		{"banking", ModeBanking, false},
		{" clinic ", ModeClinic, false},
		{"casino", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestModeTools(t *testing.T) {
	assert.Equal(t, []string{tools.GetDrugInfo, tools.PlaceOrder, tools.LookupOrder}, ModePharmacy.ToolNames())
	assert.Equal(t, []string{tools.TrackShipment}, ModeShipment.ToolNames())
	assert.Empty(t, ModeBanking.Tools())
	assert.Empty(t, ModeClinic.Tools())

	assert.True(t, ModeShipment.Allows(tools.TrackShipment))
	assert.False(t, ModePharmacy.Allows(tools.TrackShipment))
	assert.Equal(t, "DHL Tracking", ModeShipment.Label())
}

func TestSystemPrompt(t *testing.T) {
	en := SystemPrompt(ModePharmacy, "en")
	assert.True(t, strings.HasPrefix(en, "You are a professional pharmacy assistant"))
	assert.NotContains(t, en, "IMPORTANT: Respond in")

	fr := SystemPrompt(ModeShipment, "FR")
	assert.True(t, strings.HasSuffix(fr, " IMPORTANT: Respond in French language only. All your responses must be in French."))
	assert.Contains(t, fr, "track_shipment")

	assert.Equal(t, SystemPrompt(ModeClinic, ""), SystemPrompt(ModeClinic, "xx"))
	assert.Contains(t, SystemPrompt(ModeBanking, "de"), "German")
}

func TestLocale(t *testing.T) {
	assert.Equal(t, "hi-IN", Locale("hi"))
	assert.Equal(t, "es-ES", Locale("es-MX"))
	assert.Equal(t, "en-US", Locale("klingon"))
}

func TestBuildAgentSettings(t *testing.T) {
	settings := BuildAgentSettings(config.Default().Agent, "https://demo.example.com/functions")

	raw, err := json.Marshal(settings)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "SettingsConfiguration", doc["type"])

	fns := settings.Agent.Think.Functions
	require.Len(t, fns, 4)
	for _, fn := range fns {
		assert.Equal(t, "https://demo.example.com/functions", fn.URL)
	}
	assert.Equal(t, "nova-2", settings.Agent.Listen.Model)
	assert.Equal(t, "aura-asteria-en", settings.Agent.Speak.Model)
	assert.Equal(t, 24000, settings.Audio.Output.SampleRate)
	assert.Contains(t, settings.Agent.Think.Instructions, "track_shipment")
}

func TestWebhookURL(t *testing.T) {
	assert.Equal(t, "http://localhost:3000/functions", WebhookURL("localhost:3000", "/functions"))
	assert.Equal(t, "https://voice.example.com/functions", WebhookURL("voice.example.com", "/functions"))
	assert.Equal(t, "http://localhost:3000/functions", WebhookURL("", "/functions"))
}

func TestStaticConnector(t *testing.T) {
	c := StaticConnector{URL: "ws://localhost:7070/twiml/stream"}

	s, err := c.Connect(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, ModePharmacy, s.ServiceType)
	assert.Equal(t, "ws://localhost:7070/twiml/stream", s.WebSocketURL)

	s, err = c.Connect(context.Background(), ModeShipment)
	require.NoError(t, err)
	assert.Equal(t, ModeShipment, s.ServiceType)
}
