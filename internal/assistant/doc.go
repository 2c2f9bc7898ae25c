// Package assistant turns a user message into assistant text. It owns the
// service modes and their prompts and tool sets, the Model abstraction over
// chat-completion providers, and RunRound, which resolves at most one tool
// call per user turn.
package assistant
