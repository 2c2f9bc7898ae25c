package conversation

import (
	"errors"
	"fmt"

	"github.com/bgash22/voicebridge-ai-website/internal/audio"
)

// State is a step of the voice-turn pipeline.
type State int

// Pipeline states.
const (
	StateIdle State = iota
	StateCapturing
	StateTranscribing
	StateAwaitingCompletion
	StateAwaitingToolResult
	StateSynthesizing
)

var stateNames = map[State]string{
	StateIdle:               "idle",
	StateCapturing:          "capturing",
	StateTranscribing:       "transcribing",
	StateAwaitingCompletion: "awaiting_completion",
	StateAwaitingToolResult: "awaiting_tool_result",
	StateSynthesizing:       "synthesizing",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Pipeline errors.
var (
	// ErrBusy is returned for a gesture that arrives while another turn is
	// in flight.
	ErrBusy = errors.New("a turn is already in progress")

	// ErrNoSpeechDetected is returned when the transcript is empty.
	ErrNoSpeechDetected = errors.New("no speech detected")

	// ErrUploadTooSmall is returned when the service rejects a clip as too
	// short or silent.
	ErrUploadTooSmall = errors.New("audio too short or silent")

	// ErrTranscriptionFailed wraps transcription provider failures.
	ErrTranscriptionFailed = errors.New("transcription failed")

	// ErrCompletionFailed wraps chat-completion failures.
	ErrCompletionFailed = errors.New("assistant response failed")
)

// userMessages is ordered: the first matching error wins.
var userMessages = []struct {
	err error
	msg string
}{
	{audio.ErrPermissionDenied, "Microphone access denied. Please allow microphone access."},
	{audio.ErrEmptyCapture, "No audio was recorded. Please check your microphone permissions and try again."},
	{audio.ErrTooShort, "Recording too short. Please hold the button longer while speaking."},
	{audio.ErrNoSignal, "No audio detected. Please check your microphone and speak much louder."},
	{audio.ErrTooFaint, "Audio level is too low. Please speak much louder and move closer to your microphone."},
	{ErrUploadTooSmall, "Audio too short. Please hold the button longer and speak clearly."},
	{ErrNoSpeechDetected, "No speech detected. Please speak louder and closer to the microphone."},
	{ErrTranscriptionFailed, "Failed to transcribe audio. Please check your connection."},
	{ErrCompletionFailed, "Sorry, I encountered an error. Please try again."},
	{ErrBusy, "Please wait for the current reply to finish."},
}

// UserMessage returns the human-readable text for a pipeline error, or ""
// for nil.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	for _, m := range userMessages {
		if errors.Is(err, m.err) {
			return m.msg
		}
	}
	return "Failed to process audio. Please try again."
}
