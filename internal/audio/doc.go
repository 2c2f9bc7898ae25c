// Package audio captures microphone audio and encodes it for upload.
// A Recorder pumps mono float32 blocks from a Source, meters their RMS level,
// and on Stop rejects clips that are empty, shorter than the minimum duration,
// or too quiet before encoding the rest as 16-bit PCM mono WAV. The package
// also decodes WAV and MP3 for playback of synthesized speech.
package audio
