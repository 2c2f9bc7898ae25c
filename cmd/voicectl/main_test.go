package main

import (
	"bytes"
	"math"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bgash22/voicebridge-ai-website/internal/assistant"
	"github.com/bgash22/voicebridge-ai-website/internal/audio"
	"github.com/bgash22/voicebridge-ai-website/internal/config"
	"github.com/bgash22/voicebridge-ai-website/internal/fakeupstream"
	"github.com/bgash22/voicebridge-ai-website/internal/server"
	"github.com/bgash22/voicebridge-ai-website/internal/speech"
)

// startService runs the full HTTP service against simulated providers and
// points the CLI at it.
func startService(t *testing.T) {
	t.Helper()

	fake := httptest.NewServer(fakeupstream.New(fakeupstream.Options{}, nil))
	t.Cleanup(fake.Close)

	h := server.NewHTTPServer(config.Default(), nil, server.Deps{
		Transcriber: speech.NewDeepgramTranscriber(config.TranscriptionConfig{Endpoint: fake.URL, APIKey: "dg", Timeout: 5}, nil),
		Synthesizer: speech.NewDeepgramSynthesizer(config.SynthesisConfig{Endpoint: fake.URL, APIKey: "dg", Timeout: 5}, nil),
		Model:       assistant.NewOpenAIModel(config.ChatConfig{Endpoint: fake.URL + "/v1", APIKey: "sk", Model: "gpt-4o-mini", Timeout: 5}, nil),
	})
	svc := httptest.NewServer(h.Handler())
	t.Cleanup(svc.Close)

	serverURL = svc.URL
}

// resetFlags restores flag variables, which outlive a single Execute.
func resetFlags() {
	configPath = ""
	talkMode = string(assistant.ModePharmacy)
	talkLang = assistant.DefaultLanguage
	talkText = nil
	talkReplyDir = ""
	talkTranscript = ""
	talkSummary = false
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(append(args, "--server", serverURL))
	err := rootCmd.Execute()
	return out.String(), err
}

func writeRecording(t *testing.T, dir string) string {
	t.Helper()
	samples := make([]float32, audio.DefaultSampleRate)
	for i := range samples {
		samples[i] = float32(0.5 * math.Sin(2*math.Pi*220*float64(i)/audio.DefaultSampleRate))
	}
	wav, err := audio.EncodeFloat32WAV(samples, audio.DefaultSampleRate)
	require.NoError(t, err)

	path := filepath.Join(dir, "turn.wav")
	require.NoError(t, os.WriteFile(path, wav, 0o644))
	return path
}

func TestTalk(t *testing.T) {
	startService(t)
	dir := t.TempDir()
	recording := writeRecording(t, dir)
	replies := filepath.Join(dir, "replies")
	transcript := filepath.Join(dir, "transcript.txt")

	out, err := execute(t, "talk", recording,
		"--mode", "shipment",
		"--text", "Thanks a lot",
		"--reply-dir", replies,
		"--transcript", transcript,
		"--summary",
	)
	require.NoError(t, err, out)

	assert.Contains(t, out, "You: "+fakeupstream.DefaultTranscript)
	assert.Contains(t, out, "AI: Package in transit. Expected delivery in 2-3 business days.")
	assert.Contains(t, out, "You: Thanks a lot")
	assert.Contains(t, out, "Sentiment: positive")

	files, err := os.ReadDir(replies)
	require.NoError(t, err)
	assert.Len(t, files, 2)

	data, err := os.ReadFile(transcript)
	require.NoError(t, err)
	assert.Contains(t, string(data), "USER: "+fakeupstream.DefaultTranscript)
}

func TestTool(t *testing.T) {
	startService(t)

	out, err := execute(t, "tool", "get_drug_info", `{"drug_name":"Aspirin"}`)
	require.NoError(t, err)
	assert.Contains(t, out, `"price": 4.5`)

	_, err = execute(t, "tool", "get_drug_info", `{not json`)
	assert.Error(t, err)
}

func TestAgentConfig(t *testing.T) {
	startService(t)

	out, err := execute(t, "agent-config")
	require.NoError(t, err)
	assert.Contains(t, out, `"type": "SettingsConfiguration"`)
	assert.Contains(t, out, "/functions")
}

func TestRecorderConfigFollowsAudioSection(t *testing.T) {
	a := config.Default().Audio
	a.SampleRate = 8000
	a.BlockSize = 1024
	a.MinDuration = 1.5
	a.NoSignalPeak = 2
	a.FaintPeak = 8

	rc := recorderConfig(a)
	assert.Equal(t, 8000, rc.Constraints.SampleRate)
	assert.Equal(t, 1, rc.Constraints.Channels)
	assert.Equal(t, 1024, rc.BlockSize)
	assert.Equal(t, 1500*time.Millisecond, rc.MinDuration)
	assert.Equal(t, 2.0, rc.NoSignalPeak)
	assert.Equal(t, 8.0, rc.FaintPeak)
}

func TestTalkAppliesAudioConfig(t *testing.T) {
	startService(t)
	dir := t.TempDir()
	recording := writeRecording(t, dir)

	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("audio:\n  min_duration: 3\n"), 0o644))

	out, err := execute(t, "talk", recording, "--config", cfgPath)
	require.Error(t, err)
	assert.Contains(t, out, "! Recording too short. Please hold the button longer while speaking.")

	out, err = execute(t, "talk", recording)
	require.NoError(t, err, out)
	assert.Contains(t, out, "You: "+fakeupstream.DefaultTranscript)
}
