package conversation

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bgash22/voicebridge-ai-website/internal/audio"
	"github.com/bgash22/voicebridge-ai-website/internal/speech"
)

type stubSynth struct {
	out speech.Audio
	err error
}

func (s stubSynth) Name() string { return "stub" }

func (s stubSynth) Synthesize(context.Context, string, string) (speech.Audio, error) {
	return s.out, s.err
}

func TestFallbackSpeaker(t *testing.T) {
	var buf bytes.Buffer
	failing := SynthSpeaker{Synth: stubSynth{err: errors.New("503")}, Player: &WAVPlayer{Dir: t.TempDir()}}

	fb := FallbackSpeaker{Speakers: []Speaker{failing, TextSpeaker{W: &buf}}}
	require.NoError(t, fb.Speak(context.Background(), "Your order is pending.", "en"))
	assert.Equal(t, "AI: Your order is pending.\n", buf.String())

	fb = FallbackSpeaker{Speakers: []Speaker{failing}}
	assert.ErrorContains(t, fb.Speak(context.Background(), "x", "en"), "503")

	assert.Error(t, FallbackSpeaker{}.Speak(context.Background(), "x", "en"))
}

func TestWAVPlayer(t *testing.T) {
	wav, err := audio.EncodeFloat32WAV(voice(0.1, 0.5), 16000)
	require.NoError(t, err)

	p := &WAVPlayer{Dir: t.TempDir()}
	require.NoError(t, SynthSpeaker{Synth: stubSynth{out: speech.Audio{Data: wav, ContentType: "audio/wav"}}, Player: p}.
		Speak(context.Background(), "hi", "en"))

	written, err := os.ReadFile(p.LastPath())
	require.NoError(t, err)
	assert.Equal(t, wav, written)

	err = p.Play(context.Background(), speech.Audio{Data: []byte("<html>"), ContentType: "text/html"})
	assert.ErrorContains(t, err, "unsupported reply audio")

	err = SynthSpeaker{Synth: stubSynth{}, Player: p}.Speak(context.Background(), "hi", "en")
	assert.ErrorContains(t, err, "no audio")
}
