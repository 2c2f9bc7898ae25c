package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

const (
	// wavHeaderSize is the size of the canonical PCM RIFF header.
	wavHeaderSize = 44

	pcmFormat     = 1
	monoChannels  = 1
	bitsPerSample = 16
)

// ErrInvalidWAV is returned when data is not a mono PCM16 RIFF/WAVE container.
var ErrInvalidWAV = errors.New("invalid WAV data")

// WAVHeader mirrors the 44-byte header written in front of PCM16 mono audio.
type WAVHeader struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // 36 + payload
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 for PCM
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32 // SampleRate * NumChannels * BitsPerSample / 8
	BlockAlign    uint16 // NumChannels * BitsPerSample / 8
	BitsPerSample uint16
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32  // payload bytes
}

// WAVInfo is the decoded header of a clip.
type WAVInfo struct {
	SampleRate    uint32  `json:"sample_rate"`
	Channels      uint16  `json:"channels"`
	BitsPerSample uint16  `json:"bits_per_sample"`
	Duration      float64 `json:"duration_seconds"`
	DataSize      uint32  `json:"data_size_bytes"`
	NumSamples    uint32  `json:"num_samples"`
}

func newHeader(numSamples, sampleRate int) WAVHeader {
	dataSize := uint32(numSamples * 2)
	return WAVHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   pcmFormat,
		NumChannels:   monoChannels,
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate) * monoChannels * bitsPerSample / 8,
		BlockAlign:    monoChannels * bitsPerSample / 8,
		BitsPerSample: bitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}
}

// FloatToPCM16 converts one normalized sample to a signed 16-bit value.
// The sample is clamped to [-1, 1]; negative values scale by 2^15 and
// non-negative values by 2^15-1 so both ends stay representable. NaN
// encodes as silence.
func FloatToPCM16(sample float32) int16 {
	if math.IsNaN(float64(sample)) {
		return 0
	}
	s := math.Max(-1, math.Min(1, float64(sample)))
	if s < 0 {
		return int16(s * 0x8000)
	}
	return int16(s * 0x7fff)
}

// PCM16ToFloat converts a signed 16-bit sample to the [-1, 1) range.
func PCM16ToFloat(sample int16) float32 {
	return float32(sample) / 0x8000
}

// EncodeFloat32WAV encodes normalized mono samples as a PCM16 WAV container.
// The output depends only on its inputs.
func EncodeFloat32WAV(samples []float32, sampleRate int) ([]byte, error) {
	pcm := make([]int16, len(samples))
	for i, s := range samples {
		pcm[i] = FloatToPCM16(s)
	}
	return EncodeWAV(pcm, sampleRate)
}

// EncodeWAV encodes PCM16 mono samples into a WAV container.
func EncodeWAV(samples []int16, sampleRate int) ([]byte, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("cannot encode empty audio samples")
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}

	buf := bytes.NewBuffer(make([]byte, 0, wavHeaderSize+len(samples)*2))
	if err := binary.Write(buf, binary.LittleEndian, newHeader(len(samples), sampleRate)); err != nil {
		return nil, fmt.Errorf("failed to write WAV header: %w", err)
	}
	if err := binary.Write(buf, binary.LittleEndian, samples); err != nil {
		return nil, fmt.Errorf("failed to write audio data: %w", err)
	}
	return buf.Bytes(), nil
}

func readHeader(data []byte) (WAVHeader, error) {
	var header WAVHeader
	if len(data) < wavHeaderSize {
		return header, fmt.Errorf("%w: need at least %d bytes, got %d", ErrInvalidWAV, wavHeaderSize, len(data))
	}
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &header); err != nil {
		return header, fmt.Errorf("failed to read WAV header: %w", err)
	}

	switch {
	case string(header.ChunkID[:]) != "RIFF":
		return header, fmt.Errorf("%w: missing RIFF header", ErrInvalidWAV)
	case string(header.Format[:]) != "WAVE":
		return header, fmt.Errorf("%w: missing WAVE format", ErrInvalidWAV)
	case string(header.Subchunk1ID[:]) != "fmt ":
		return header, fmt.Errorf("%w: missing fmt chunk", ErrInvalidWAV)
	case string(header.Subchunk2ID[:]) != "data":
		return header, fmt.Errorf("%w: missing data chunk", ErrInvalidWAV)
	}
	return header, nil
}

// DecodeWAV decodes a PCM16 mono WAV container back into samples.
func DecodeWAV(data []byte) ([]int16, int, error) {
	header, err := readHeader(data)
	if err != nil {
		return nil, 0, err
	}
	if header.AudioFormat != pcmFormat {
		return nil, 0, fmt.Errorf("%w: unsupported audio format %d", ErrInvalidWAV, header.AudioFormat)
	}
	if header.BitsPerSample != bitsPerSample {
		return nil, 0, fmt.Errorf("%w: unsupported bit depth %d", ErrInvalidWAV, header.BitsPerSample)
	}
	if header.NumChannels != monoChannels {
		return nil, 0, fmt.Errorf("%w: unsupported channel count %d", ErrInvalidWAV, header.NumChannels)
	}

	numSamples := int(header.Subchunk2Size) / 2
	if numSamples <= 0 {
		return nil, 0, fmt.Errorf("%w: no audio data found", ErrInvalidWAV)
	}
	if len(data)-wavHeaderSize < numSamples*2 {
		return nil, 0, fmt.Errorf("%w: payload truncated", ErrInvalidWAV)
	}

	samples := make([]int16, numSamples)
	payload := bytes.NewReader(data[wavHeaderSize : wavHeaderSize+numSamples*2])
	if err := binary.Read(payload, binary.LittleEndian, samples); err != nil {
		return nil, 0, fmt.Errorf("failed to read audio samples: %w", err)
	}
	return samples, int(header.SampleRate), nil
}

// ValidateWAV checks the container header without decoding the payload.
func ValidateWAV(data []byte) error {
	_, err := readHeader(data)
	return err
}

// GetWAVDuration returns the clip duration in seconds.
func GetWAVDuration(data []byte) (float64, error) {
	info, err := GetWAVInfo(data)
	if err != nil {
		return 0, err
	}
	return info.Duration, nil
}

// GetWAVInfo extracts metadata from a WAV header.
func GetWAVInfo(data []byte) (*WAVInfo, error) {
	header, err := readHeader(data)
	if err != nil {
		return nil, err
	}
	if header.SampleRate == 0 || header.BitsPerSample == 0 || header.NumChannels == 0 {
		return nil, fmt.Errorf("%w: zero sample rate, bit depth or channel count", ErrInvalidWAV)
	}

	frameBytes := uint32(header.BitsPerSample) / 8 * uint32(header.NumChannels)
	numSamples := header.Subchunk2Size / frameBytes
	return &WAVInfo{
		SampleRate:    header.SampleRate,
		Channels:      header.NumChannels,
		BitsPerSample: header.BitsPerSample,
		Duration:      float64(numSamples) / float64(header.SampleRate),
		DataSize:      header.Subchunk2Size,
		NumSamples:    numSamples,
	}, nil
}

// LooksLikeWAV reports whether b starts with a RIFF/WAVE signature.
func LooksLikeWAV(b []byte) bool {
	return len(b) >= 12 && string(b[0:4]) == "RIFF" && string(b[8:12]) == "WAVE"
}

// LooksLikeMP3 reports whether b starts with an ID3 tag or an MPEG frame sync.
func LooksLikeMP3(b []byte) bool {
	return (len(b) >= 3 && string(b[:3]) == "ID3") ||
		(len(b) >= 2 && b[0] == 0xFF && (b[1]&0xE0) == 0xE0)
}
