package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"
)

func sine(n, rate int, freq, amp float64) []float32 {
	out := make([]float32, n)
	for i := range out {
		t := float64(i) / float64(rate)
		out[i] = float32(amp * math.Sin(2*math.Pi*freq*t))
	}
	return out
}

func TestEncodeFloat32WAV(t *testing.T) {
	sampleRate := 16000
	samples := sine(1600, sampleRate, 440, 0.5)

	wavData, err := EncodeFloat32WAV(samples, sampleRate)
	if err != nil {
		t.Fatalf("EncodeFloat32WAV failed: %v", err)
	}

	expectedSize := 44 + len(samples)*2
	if len(wavData) != expectedSize {
		t.Errorf("Expected WAV size %d, got %d", expectedSize, len(wavData))
	}

	info, err := GetWAVInfo(wavData)
	if err != nil {
		t.Fatalf("Failed to get WAV info: %v", err)
	}
	if info.SampleRate != uint32(sampleRate) {
		t.Errorf("Expected sample rate %d, got %d", sampleRate, info.SampleRate)
	}
	if info.Channels != 1 {
		t.Errorf("Expected 1 channel, got %d", info.Channels)
	}
	if info.BitsPerSample != 16 {
		t.Errorf("Expected 16 bits per sample, got %d", info.BitsPerSample)
	}
	if info.DataSize != uint32(len(samples)*2) {
		t.Errorf("Expected data size %d, got %d", len(samples)*2, info.DataSize)
	}
	if math.Abs(info.Duration-0.1) > 0.001 {
		t.Errorf("Expected duration 0.1, got %.3f", info.Duration)
	}

	// RIFF chunk size covers everything after the first 8 bytes.
	chunkSize := binary.LittleEndian.Uint32(wavData[4:8])
	if int(chunkSize) != len(wavData)-8 {
		t.Errorf("Expected chunk size %d, got %d", len(wavData)-8, chunkSize)
	}
}

func TestEncodeFloat32WAVIsPure(t *testing.T) {
	samples := sine(8000, 16000, 220, 0.8)

	first, err := EncodeFloat32WAV(samples, 16000)
	if err != nil {
		t.Fatalf("first encode failed: %v", err)
	}
	second, err := EncodeFloat32WAV(samples, 16000)
	if err != nil {
		t.Fatalf("second encode failed: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("Encoding the same samples twice produced different bytes")
	}
}

func TestFloatToPCM16(t *testing.T) {
	tests := []struct {
		name string
		in   float32
		want int16
	}{
		{"zero", 0, 0},
		{"full positive", 1, 32767},
		{"full negative", -1, -32768},
		{"clamp positive", 1.7, 32767},
		{"clamp negative", -3, -32768},
		{"half negative", -0.5, -16384},
		{"half positive", 0.5, 16383},
		{"nan", float32(math.NaN()), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FloatToPCM16(tt.in); got != tt.want {
				t.Errorf("FloatToPCM16(%v) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestDecodeWAV(t *testing.T) {
	originalSamples := []int16{100, -200, 300, -400, 500}
	sampleRate := 8000

	wavData, err := EncodeWAV(originalSamples, sampleRate)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	decoded, rate, err := DecodeWAV(wavData)
	if err != nil {
		t.Fatalf("DecodeWAV failed: %v", err)
	}
	if rate != sampleRate {
		t.Errorf("Expected sample rate %d, got %d", sampleRate, rate)
	}
	if len(decoded) != len(originalSamples) {
		t.Fatalf("Expected %d samples, got %d", len(originalSamples), len(decoded))
	}
	for i, s := range originalSamples {
		if decoded[i] != s {
			t.Errorf("Sample %d: expected %d, got %d", i, s, decoded[i])
		}
	}
}

func TestDecodeWAVTruncated(t *testing.T) {
	wavData, err := EncodeWAV([]int16{1, 2, 3, 4}, 16000)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	_, _, err = DecodeWAV(wavData[:len(wavData)-3])
	if !errors.Is(err, ErrInvalidWAV) {
		t.Errorf("Expected ErrInvalidWAV, got %v", err)
	}
}

func TestEncodeWAVErrors(t *testing.T) {
	if _, err := EncodeWAV(nil, 16000); err == nil {
		t.Error("Expected error for empty samples")
	}
	if _, err := EncodeWAV([]int16{1}, 0); err == nil {
		t.Error("Expected error for zero sample rate")
	}
}

func TestValidateWAV(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		wantErr bool
	}{
		{"too short", []byte("RIFF"), true},
		{"wrong magic", append([]byte("RIFX"), make([]byte, 40)...), true},
		{"valid", mustEncode(t, []int16{0, 1}), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateWAV(tt.data)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateWAV() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestContainerSniffing(t *testing.T) {
	wav := mustEncode(t, []int16{0, 1, 2})
	if !LooksLikeWAV(wav) {
		t.Error("Expected encoded clip to look like WAV")
	}
	if LooksLikeMP3(wav) {
		t.Error("Encoded clip should not look like MP3")
	}
	if !LooksLikeMP3([]byte("ID3\x04\x00")) {
		t.Error("Expected ID3 tag to look like MP3")
	}
	if !LooksLikeMP3([]byte{0xFF, 0xFB, 0x90}) {
		t.Error("Expected frame sync to look like MP3")
	}
}

func TestDecodeMP3Garbage(t *testing.T) {
	if _, _, err := DecodeMP3(bytes.NewReader([]byte("not an mp3 stream"))); err == nil {
		t.Error("Expected error decoding garbage as MP3")
	}
}

func mustEncode(t *testing.T, samples []int16) []byte {
	t.Helper()
	data, err := EncodeWAV(samples, 16000)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}
	return data
}
