package conversation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/bgash22/voicebridge-ai-website/internal/audio"
	"github.com/bgash22/voicebridge-ai-website/internal/speech"
)

// Speaker voices an assistant reply. Playback is best-effort: the
// orchestrator logs and ignores Speak errors.
type Speaker interface {
	Speak(ctx context.Context, text, language string) error
}

// Player plays synthesized audio.
type Player interface {
	Play(ctx context.Context, a speech.Audio) error
}

// SynthSpeaker synthesizes text remotely and hands the audio to a Player.
type SynthSpeaker struct {
	Synth  speech.Synthesizer
	Player Player
}

// Speak implements Speaker.
func (s SynthSpeaker) Speak(ctx context.Context, text, language string) error {
	a, err := s.Synth.Synthesize(ctx, text, language)
	if err != nil {
		return fmt.Errorf("synthesis failed: %w", err)
	}
	if len(a.Data) == 0 {
		return errors.New("synthesis returned no audio")
	}
	return s.Player.Play(ctx, a)
}

// TextSpeaker is the local fallback voice: it prints the reply.
type TextSpeaker struct {
	W io.Writer
}

// Speak implements Speaker.
func (t TextSpeaker) Speak(_ context.Context, text, _ string) error {
	w := t.W
	if w == nil {
		w = os.Stdout
	}
	_, err := fmt.Fprintf(w, "AI: %s\n", text)
	return err
}

// FallbackSpeaker tries each speaker in order until one succeeds.
type FallbackSpeaker struct {
	Speakers []Speaker
	Logger   *slog.Logger
}

// Speak implements Speaker. It returns the last error when all fail.
func (f FallbackSpeaker) Speak(ctx context.Context, text, language string) error {
	var lastErr error
	for i, s := range f.Speakers {
		err := s.Speak(ctx, text, language)
		if err == nil {
			return nil
		}
		lastErr = err
		if f.Logger != nil {
			f.Logger.Warn("Speaker failed, trying next", "index", i, "error", err)
		}
	}
	if lastErr == nil {
		return errors.New("no speakers configured")
	}
	return lastErr
}

// WAVPlayer "plays" audio by writing each reply to Dir as a WAV file.
// MP3 replies are decoded first.
type WAVPlayer struct {
	Dir string

	mu   sync.Mutex
	last string
}

// Play implements Player.
func (p *WAVPlayer) Play(_ context.Context, a speech.Audio) error {
	var wav []byte
	switch {
	case audio.LooksLikeWAV(a.Data):
		wav = a.Data
	case audio.LooksLikeMP3(a.Data):
		converted, err := audio.MP3ToWAV(bytes.NewReader(a.Data))
		if err != nil {
			return err
		}
		wav = converted
	default:
		return fmt.Errorf("unsupported reply audio %q", a.ContentType)
	}

	dir := p.Dir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(dir, "reply-"+uuid.NewString()+".wav")
	if err := os.WriteFile(path, wav, 0o644); err != nil {
		return fmt.Errorf("failed to write reply audio: %w", err)
	}

	p.mu.Lock()
	p.last = path
	p.mu.Unlock()
	return nil
}

// LastPath returns the file written by the most recent Play.
func (p *WAVPlayer) LastPath() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}
