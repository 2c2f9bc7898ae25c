package audio

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// liveStream blocks on Read until a block is pushed or the stream is closed.
type liveStream struct {
	blocks chan []float32
	once   sync.Once
	closed chan struct{}
}

func newLiveStream() *liveStream {
	return &liveStream{blocks: make(chan []float32, 16), closed: make(chan struct{})}
}

func (s *liveStream) Open(context.Context, Constraints) (Stream, error) { return s, nil }
func (s *liveStream) SampleRate() int                                   { return DefaultSampleRate }

func (s *liveStream) Read(block []float32) (int, error) {
	select {
	case b := <-s.blocks:
		return copy(block, b), nil
	default:
	}
	select {
	case b := <-s.blocks:
		return copy(block, b), nil
	case <-s.closed:
		return 0, io.EOF
	}
}

func (s *liveStream) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

func record(t *testing.T, samples []float32) (*Clip, error) {
	t.Helper()
	rec := NewRecorder(DefaultRecorderConfig(), nil)
	ctx := context.Background()
	require.NoError(t, rec.Start(ctx, &SliceSource{Samples: samples, Rate: DefaultSampleRate}))
	require.NoError(t, rec.Wait(ctx))
	return rec.Stop()
}

func TestRecorderRejections(t *testing.T) {
	tests := []struct {
		name    string
		samples []float32
		wantErr error
	}{
		{"empty", nil, ErrEmptyCapture},
		{"too short", sine(DefaultSampleRate*3/10, DefaultSampleRate, 440, 0.5), ErrTooShort},
		{"silence", make([]float32, DefaultSampleRate), ErrNoSignal},
		{"faint", sine(DefaultSampleRate, DefaultSampleRate, 440, 0.03), ErrTooFaint},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clip, err := record(t, tt.samples)
			assert.Nil(t, clip)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRecorderQuietErrorsShareKind(t *testing.T) {
	_, err := record(t, make([]float32, 2*DefaultSampleRate))
	assert.ErrorIs(t, err, ErrTooQuiet)

	_, err = record(t, sine(DefaultSampleRate, DefaultSampleRate, 440, 0.03))
	assert.ErrorIs(t, err, ErrTooQuiet)
	assert.NotEqual(t, ErrNoSignal.Error(), ErrTooFaint.Error())
}

func TestRecorderAcceptsSpeech(t *testing.T) {
	samples := sine(2*DefaultSampleRate, DefaultSampleRate, 300, 0.5)
	rec := NewRecorder(DefaultRecorderConfig(), nil)
	ctx := context.Background()

	require.NoError(t, rec.Start(ctx, &SliceSource{Samples: samples}))
	require.NoError(t, rec.Wait(ctx))
	clip, err := rec.Stop()
	require.NoError(t, err)
	require.NotNil(t, clip)

	assert.Equal(t, DefaultSampleRate, clip.SampleRate)
	assert.Equal(t, len(samples), clip.Samples)
	assert.Equal(t, 2*time.Second, clip.Duration())
	assert.Greater(t, clip.Peak, 5.0)
	assert.InDelta(t, 35.3, rec.Peak(), 1.0)

	want, err := EncodeFloat32WAV(samples, DefaultSampleRate)
	require.NoError(t, err)
	assert.Equal(t, want, clip.WAV)
	assert.Same(t, clip, rec.LastClip())

	path := filepath.Join(t.TempDir(), "last.wav")
	require.NoError(t, rec.SaveLastClip(path))
	saved, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, clip.WAV, saved)
}

func TestRecorderRejectedClipKeepsPrevious(t *testing.T) {
	rec := NewRecorder(DefaultRecorderConfig(), nil)
	ctx := context.Background()

	require.NoError(t, rec.Start(ctx, &SliceSource{Samples: sine(DefaultSampleRate, DefaultSampleRate, 300, 0.5)}))
	require.NoError(t, rec.Wait(ctx))
	first, err := rec.Stop()
	require.NoError(t, err)

	require.NoError(t, rec.Start(ctx, &SliceSource{Samples: make([]float32, 100)}))
	require.NoError(t, rec.Wait(ctx))
	_, err = rec.Stop()
	require.ErrorIs(t, err, ErrTooShort)

	assert.Same(t, first, rec.LastClip())
}

func TestRecorderStopIdempotent(t *testing.T) {
	rec := NewRecorder(DefaultRecorderConfig(), nil)

	clip, err := rec.Stop()
	assert.NoError(t, err)
	assert.Nil(t, clip)

	assert.ErrorIs(t, rec.SaveLastClip(filepath.Join(t.TempDir(), "x.wav")), ErrNoClip)
}

// slowClose delays Close so concurrent stops overlap.
type slowClose struct {
	*liveStream
	delay time.Duration
}

func (s slowClose) Open(context.Context, Constraints) (Stream, error) { return s, nil }

func (s slowClose) Close() error {
	time.Sleep(s.delay)
	return s.liveStream.Close()
}

func TestRecorderConcurrentStop(t *testing.T) {
	stream := slowClose{liveStream: newLiveStream(), delay: 50 * time.Millisecond}
	rec := NewRecorder(DefaultRecorderConfig(), nil)
	require.NoError(t, rec.Start(context.Background(), stream))

	for i := 0; i < 4; i++ {
		stream.blocks <- sine(DefaultBlockSize, DefaultSampleRate, 440, 0.5)
	}
	require.Eventually(t, func() bool { return rec.Level() > 30 }, time.Second, 5*time.Millisecond)

	type result struct {
		clip *Clip
		err  error
	}
	results := make(chan result, 2)
	for i := 0; i < 2; i++ {
		go func() {
			clip, err := rec.Stop()
			results <- result{clip, err}
		}()
	}

	var clips int
	for i := 0; i < 2; i++ {
		r := <-results
		require.NoError(t, r.err)
		if r.clip != nil {
			clips++
		}
	}
	assert.Equal(t, 1, clips)
	assert.False(t, rec.Capturing())

	clip, err := rec.Stop()
	assert.NoError(t, err)
	assert.Nil(t, clip)
}

func TestRecorderPermissionDenied(t *testing.T) {
	rec := NewRecorder(DefaultRecorderConfig(), nil)

	err := rec.Start(context.Background(), &SliceSource{Denied: true})
	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.False(t, rec.Capturing())
}

func TestRecorderLiveStream(t *testing.T) {
	stream := newLiveStream()
	rec := NewRecorder(DefaultRecorderConfig(), nil)
	ctx := context.Background()

	require.NoError(t, rec.Start(ctx, stream))
	assert.True(t, rec.Capturing())
	assert.ErrorIs(t, rec.Start(ctx, stream), ErrAlreadyCapturing)

	for i := 0; i < 4; i++ {
		stream.blocks <- sine(DefaultBlockSize, DefaultSampleRate, 440, 0.5)
	}
	require.Eventually(t, func() bool { return rec.Level() > 30 }, time.Second, 5*time.Millisecond)

	meterCtx, cancel := context.WithCancel(ctx)
	readings := make(chan float64, 1)
	go rec.Meter(meterCtx, 5*time.Millisecond, func(level, peak float64) {
		select {
		case readings <- peak:
		default:
		}
	})
	select {
	case peak := <-readings:
		assert.Greater(t, peak, 30.0)
	case <-time.After(time.Second):
		t.Fatal("meter never reported")
	}
	cancel()

	require.Eventually(t, func() bool {
		return rec.Peak() > 30 && rec.Level() > 30
	}, time.Second, 5*time.Millisecond)

	clip, err := rec.Stop()
	require.NoError(t, err)
	assert.Equal(t, 4*DefaultBlockSize, clip.Samples)
	assert.False(t, rec.Capturing())
}

func TestWAVSource(t *testing.T) {
	pcm := make([]int16, DefaultSampleRate)
	for i, s := range sine(len(pcm), DefaultSampleRate, 200, 0.4) {
		pcm[i] = FloatToPCM16(s)
	}
	data, err := EncodeWAV(pcm, DefaultSampleRate)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "in.wav")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	rec := NewRecorder(DefaultRecorderConfig(), nil)
	ctx := context.Background()
	require.NoError(t, rec.Start(ctx, &WAVSource{Path: path}))
	require.NoError(t, rec.Wait(ctx))
	clip, err := rec.Stop()
	require.NoError(t, err)
	assert.Equal(t, len(pcm), clip.Samples)

	_, err = (&WAVSource{Path: filepath.Join(t.TempDir(), "missing.wav")}).Open(ctx, DefaultConstraints())
	assert.Error(t, err)
}

func TestRMS(t *testing.T) {
	assert.Equal(t, 0.0, RMS(nil))
	assert.InDelta(t, 0.5, RMS([]float32{0.5, -0.5, 0.5, -0.5}), 1e-9)
	assert.InDelta(t, 50.0, NormalizedLevel([]float32{0.5, -0.5}), 1e-6)
}
