// Package fakeupstream simulates the Deepgram and OpenAI endpoints the
// service depends on, with deterministic canned replies. It lets the whole
// voice pipeline run locally without paid keys and backs the provider tests.
package fakeupstream
