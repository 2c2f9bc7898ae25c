package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"
)

const (
	// DefaultSampleRate is the capture rate requested from the microphone.
	DefaultSampleRate = 16000

	// DefaultBlockSize is the number of samples delivered per block.
	DefaultBlockSize = 4096
)

// ErrPermissionDenied is returned when the microphone cannot be opened.
var ErrPermissionDenied = errors.New("microphone access denied")

// Constraints describe what the capture side asks of the input device.
// Sources apply what they can and ignore the rest.
type Constraints struct {
	Channels         int
	SampleRate       int
	EchoCancellation bool
	NoiseSuppression bool
	AutoGainControl  bool
}

// DefaultConstraints returns mono 16 kHz capture with all voice processing on.
func DefaultConstraints() Constraints {
	return Constraints{
		Channels:         1,
		SampleRate:       DefaultSampleRate,
		EchoCancellation: true,
		NoiseSuppression: true,
		AutoGainControl:  true,
	}
}

// Source opens an input device.
type Source interface {
	Open(ctx context.Context, c Constraints) (Stream, error)
}

// Stream delivers mono float32 blocks. Read fills block and returns the
// number of samples written, or io.EOF once the device has nothing more.
type Stream interface {
	SampleRate() int
	Read(block []float32) (int, error)
	Close() error
}

// SliceSource serves in-memory samples as a microphone.
type SliceSource struct {
	Samples []float32
	Rate    int
	Denied  bool
}

// Open implements Source.
func (s *SliceSource) Open(_ context.Context, c Constraints) (Stream, error) {
	if s.Denied {
		return nil, ErrPermissionDenied
	}
	rate := s.Rate
	if rate <= 0 {
		rate = c.SampleRate
	}
	if rate <= 0 {
		rate = DefaultSampleRate
	}
	return &sliceStream{samples: s.Samples, rate: rate}, nil
}

type sliceStream struct {
	mu      sync.Mutex
	samples []float32
	pos     int
	rate    int
	closed  bool
}

func (s *sliceStream) SampleRate() int { return s.rate }

func (s *sliceStream) Read(block []float32) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.pos >= len(s.samples) {
		return 0, io.EOF
	}
	n := copy(block, s.samples[s.pos:])
	s.pos += n
	return n, nil
}

func (s *sliceStream) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// WAVSource reads a PCM16 mono WAV file as if it were the microphone.
type WAVSource struct {
	Path string
}

// Open implements Source. Unreadable files map to ErrPermissionDenied.
func (s *WAVSource) Open(_ context.Context, _ Constraints) (Stream, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("%w: %v", ErrPermissionDenied, err)
		}
		return nil, fmt.Errorf("failed to open %s: %w", s.Path, err)
	}

	pcm, rate, err := DecodeWAV(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", s.Path, err)
	}

	samples := make([]float32, len(pcm))
	for i, v := range pcm {
		samples[i] = PCM16ToFloat(v)
	}
	return &sliceStream{samples: samples, rate: rate}, nil
}
