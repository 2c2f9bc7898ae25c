package audio

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/hajimehoshi/go-mp3"
)

// DecodeMP3 decodes an MP3 stream into mono PCM16 samples and returns them
// with the stream's sample rate. Stereo output is downmixed by averaging.
func DecodeMP3(r io.Reader) ([]int16, int, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open MP3 stream: %w", err)
	}

	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to decode MP3 stream: %w", err)
	}
	// go-mp3 always yields interleaved stereo 16-bit little-endian frames.
	if len(raw)%4 != 0 {
		return nil, 0, fmt.Errorf("unexpected decoded MP3 length %d", len(raw))
	}

	mono := make([]int16, len(raw)/4)
	for i := range mono {
		l := int(int16(binary.LittleEndian.Uint16(raw[i*4:])))
		r := int(int16(binary.LittleEndian.Uint16(raw[i*4+2:])))
		mono[i] = int16((l + r) / 2)
	}
	return mono, dec.SampleRate(), nil
}

// MP3ToWAV converts synthesized MP3 speech into a PCM16 mono WAV container.
func MP3ToWAV(r io.Reader) ([]byte, error) {
	samples, rate, err := DecodeMP3(r)
	if err != nil {
		return nil, err
	}
	return EncodeWAV(samples, rate)
}
