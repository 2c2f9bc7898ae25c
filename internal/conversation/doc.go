// Package conversation is the client side of a voice turn. An Orchestrator
// captures a clip, has it transcribed, resolves the assistant reply with at
// most one tool round-trip and speaks it, keeping the turn history, the
// service mode and the last user-visible error. Client talks to the HTTP
// service so the same pipeline can run remotely.
package conversation
