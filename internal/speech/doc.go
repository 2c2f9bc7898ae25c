// Package speech adapts third-party speech-to-text and text-to-speech
// providers (Deepgram, OpenAI, Google Cloud) to two small interfaces,
// Transcriber and Synthesizer. Provider failures are reported as
// *upstream.Error; a missing credential as upstream.ErrMissingCredential.
package speech
