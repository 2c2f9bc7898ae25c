// Package server implements the VoiceBridge HTTP API: speech-to-text,
// chat completion with tool resolution, the tool dispatcher webhook,
// speech synthesis and the voice-agent endpoints, plus health, metrics and
// an endpoint index. Outbound provider calls pass through an upstream.Guard.
package server
