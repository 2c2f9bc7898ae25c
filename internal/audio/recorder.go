package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Capture errors. ErrNoSignal and ErrTooFaint both wrap ErrTooQuiet.
var (
	ErrAlreadyCapturing = errors.New("capture already in progress")
	ErrEmptyCapture     = errors.New("no audio recorded")
	ErrTooShort         = errors.New("recording too short")
	ErrTooQuiet         = errors.New("recording too quiet")
	ErrNoSignal         = fmt.Errorf("%w: no audio signal detected", ErrTooQuiet)
	ErrTooFaint         = fmt.Errorf("%w: audio level too low", ErrTooQuiet)
	ErrNoClip           = errors.New("no clip recorded yet")
)

// RecorderConfig holds capture acceptance thresholds.
type RecorderConfig struct {
	Constraints  Constraints
	BlockSize    int
	MinDuration  time.Duration
	NoSignalPeak float64 // peak level below which nothing was heard
	FaintPeak    float64 // peak level below which speech is too faint
}

// DefaultRecorderConfig returns the thresholds used by the voice client.
func DefaultRecorderConfig() RecorderConfig {
	return RecorderConfig{
		Constraints:  DefaultConstraints(),
		BlockSize:    DefaultBlockSize,
		MinDuration:  500 * time.Millisecond,
		NoSignalPeak: 1.0,
		FaintPeak:    5.0,
	}
}

// Clip is an accepted, encoded capture.
type Clip struct {
	WAV        []byte
	SampleRate int
	Samples    int
	Peak       float64
}

// Duration returns the clip length.
func (c *Clip) Duration() time.Duration {
	if c.SampleRate == 0 {
		return 0
	}
	return time.Duration(c.Samples) * time.Second / time.Duration(c.SampleRate)
}

// Recorder buffers microphone blocks between Start and Stop and meters their level.
type Recorder struct {
	config RecorderConfig
	logger *slog.Logger

	mu        sync.Mutex
	capturing bool
	stream    Stream
	rate      int
	blocks    [][]float32
	samples   int
	level     float64
	peak      float64
	done      chan struct{}
	readErr   error
	lastClip  *Clip
}

// NewRecorder creates an idle recorder.
func NewRecorder(config RecorderConfig, logger *slog.Logger) *Recorder {
	if config.BlockSize <= 0 {
		config.BlockSize = DefaultBlockSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		config: config,
		logger: logger.With("component", "recorder"),
	}
}

// Start opens the source and begins buffering blocks in the background.
func (r *Recorder) Start(ctx context.Context, src Source) error {
	r.mu.Lock()
	if r.capturing {
		r.mu.Unlock()
		return ErrAlreadyCapturing
	}
	r.mu.Unlock()

	stream, err := src.Open(ctx, r.config.Constraints)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.capturing {
		stream.Close()
		return ErrAlreadyCapturing
	}
	r.capturing = true
	r.stream = stream
	r.rate = stream.SampleRate()
	if r.rate <= 0 {
		r.rate = DefaultSampleRate
	}
	r.blocks = nil
	r.samples = 0
	r.level = 0
	r.peak = 0
	r.readErr = nil
	r.done = make(chan struct{})

	go r.pump(ctx, stream, r.done)

	r.logger.Debug("Capture started", "sample_rate", r.rate, "block_size", r.config.BlockSize)
	return nil
}

func (r *Recorder) pump(ctx context.Context, stream Stream, done chan struct{}) {
	defer close(done)

	for {
		if ctx.Err() != nil {
			return
		}

		block := make([]float32, r.config.BlockSize)
		n, err := stream.Read(block)
		if n > 0 {
			r.append(block[:n])
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				r.mu.Lock()
				r.readErr = err
				r.mu.Unlock()
				r.logger.Warn("Capture stream read failed", "error", err)
			}
			return
		}
	}
}

func (r *Recorder) append(block []float32) {
	level := NormalizedLevel(block)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.blocks = append(r.blocks, block)
	r.samples += len(block)
	r.level = level
	if level > r.peak {
		r.peak = level
	}
}

// Wait blocks until the current stream is drained or ctx is done.
// It returns immediately when no capture is running.
func (r *Recorder) Wait(ctx context.Context) error {
	r.mu.Lock()
	done := r.done
	capturing := r.capturing
	r.mu.Unlock()

	if !capturing || done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Capturing reports whether a capture session is open.
func (r *Recorder) Capturing() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.capturing
}

// Level returns the normalized RMS of the most recent block.
func (r *Recorder) Level() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.level
}

// Peak returns the highest block level seen in the current session.
func (r *Recorder) Peak() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.peak
}

// Meter calls fn with the current level and peak every interval until ctx is done.
func (r *Recorder) Meter(ctx context.Context, interval time.Duration, fn func(level, peak float64)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.mu.Lock()
			level, peak := r.level, r.peak
			r.mu.Unlock()
			fn(level, peak)
		}
	}
}

// Stop closes the stream and validates the buffered audio. Calling Stop when
// no capture is running, or while another Stop is closing the stream,
// returns a nil clip and a nil error.
func (r *Recorder) Stop() (*Clip, error) {
	r.mu.Lock()
	if !r.capturing || r.stream == nil {
		r.mu.Unlock()
		return nil, nil
	}
	stream := r.stream
	done := r.done
	r.stream = nil
	r.mu.Unlock()

	if err := stream.Close(); err != nil {
		r.logger.Warn("Failed to close capture stream", "error", err)
	}
	<-done

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.capturing {
		return nil, nil
	}
	r.capturing = false

	blocks, samples, rate, peak := r.blocks, r.samples, r.rate, r.peak
	r.blocks = nil
	r.samples = 0

	if r.readErr != nil && samples == 0 {
		return nil, fmt.Errorf("capture failed: %w", r.readErr)
	}

	clip, err := r.accept(blocks, samples, rate, peak)
	if err != nil {
		r.logger.Info("Capture rejected",
			"error", err,
			"samples", samples,
			"peak", peak)
		return nil, err
	}

	r.lastClip = clip
	r.logger.Debug("Capture accepted",
		"duration", clip.Duration(),
		"bytes", len(clip.WAV),
		"peak", peak)
	return clip, nil
}

func (r *Recorder) accept(blocks [][]float32, samples, rate int, peak float64) (*Clip, error) {
	if len(blocks) == 0 || samples == 0 {
		return nil, ErrEmptyCapture
	}
	duration := time.Duration(samples) * time.Second / time.Duration(rate)
	if duration < r.config.MinDuration {
		return nil, fmt.Errorf("%w: %s", ErrTooShort, duration)
	}
	if peak < r.config.NoSignalPeak {
		return nil, ErrNoSignal
	}
	if peak < r.config.FaintPeak {
		return nil, ErrTooFaint
	}

	merged := make([]float32, 0, samples)
	for _, b := range blocks {
		merged = append(merged, b...)
	}
	data, err := EncodeFloat32WAV(merged, rate)
	if err != nil {
		return nil, fmt.Errorf("failed to encode capture: %w", err)
	}
	return &Clip{WAV: data, SampleRate: rate, Samples: samples, Peak: peak}, nil
}

// LastClip returns the most recently accepted clip, or nil.
func (r *Recorder) LastClip() *Clip {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastClip
}

// SaveLastClip writes the last accepted clip to path.
func (r *Recorder) SaveLastClip(path string) error {
	clip := r.LastClip()
	if clip == nil {
		return ErrNoClip
	}
	if err := os.WriteFile(path, clip.WAV, 0o644); err != nil {
		return fmt.Errorf("failed to save clip: %w", err)
	}
	return nil
}
