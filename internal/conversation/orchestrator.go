package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/bgash22/voicebridge-ai-website/internal/assistant"
	"github.com/bgash22/voicebridge-ai-website/internal/audio"
	"github.com/bgash22/voicebridge-ai-website/internal/speech"
)

// Options wire an Orchestrator to its collaborators.
type Options struct {
	Source      audio.Source
	Recorder    *audio.Recorder
	Transcriber speech.Transcriber
	Model       assistant.Model
	Tools       assistant.ToolInvoker
	Speaker     Speaker

	Mode     assistant.Mode
	Language string
	Logger   *slog.Logger

	// Now stamps turns. Defaults to time.Now.
	Now func() time.Time
}

// Orchestrator runs one voice turn at a time. All methods are safe for
// concurrent use; a gesture that arrives mid-turn fails with ErrBusy.
type Orchestrator struct {
	source      audio.Source
	recorder    *audio.Recorder
	transcriber speech.Transcriber
	model       assistant.Model
	tools       assistant.ToolInvoker
	speaker     Speaker
	now         func() time.Time
	logger      *slog.Logger

	mu        sync.Mutex
	state     State
	mode      assistant.Mode
	language  string
	turns     []assistant.Turn
	err       error
	observers []func(from, to State)
}

// New creates an idle orchestrator.
func New(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	recorder := opts.Recorder
	if recorder == nil {
		recorder = audio.NewRecorder(audio.DefaultRecorderConfig(), logger)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	mode := opts.Mode
	if mode == "" {
		mode = assistant.ModePharmacy
	}
	language := opts.Language
	if language == "" {
		language = assistant.DefaultLanguage
	}
	speaker := opts.Speaker
	if speaker == nil {
		speaker = TextSpeaker{}
	}

	return &Orchestrator{
		source:      opts.Source,
		recorder:    recorder,
		transcriber: opts.Transcriber,
		model:       opts.Model,
		tools:       opts.Tools,
		speaker:     speaker,
		now:         now,
		logger:      logger.With("component", "orchestrator"),
		mode:        mode,
		language:    language,
	}
}

// OnStateChange registers fn to be called after every transition.
func (o *Orchestrator) OnStateChange(fn func(from, to State)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.observers = append(o.observers, fn)
}

// State returns the current pipeline state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Mode returns the active service mode.
func (o *Orchestrator) Mode() assistant.Mode {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.mode
}

// Language returns the active language code.
func (o *Orchestrator) Language() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.language
}

// Turns returns a copy of the conversation so far.
func (o *Orchestrator) Turns() []assistant.Turn {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]assistant.Turn(nil), o.turns...)
}

// Err returns the error that ended the last turn, if any.
func (o *Orchestrator) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.err
}

// Message returns the user-visible text for Err, or "".
func (o *Orchestrator) Message() string {
	return UserMessage(o.Err())
}

// Recorder exposes the recorder for level metering and clip download.
func (o *Orchestrator) Recorder() *audio.Recorder {
	return o.recorder
}

// SelectMode switches the service mode, clearing turns and the error.
func (o *Orchestrator) SelectMode(mode assistant.Mode) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateIdle {
		return ErrBusy
	}
	o.mode = mode
	o.turns = nil
	o.err = nil
	o.logger.Info("Service mode selected", "mode", mode)
	return nil
}

// SetLanguage changes the reply language. Turns are kept.
func (o *Orchestrator) SetLanguage(code string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if code == "" {
		code = assistant.DefaultLanguage
	}
	o.language = code
}

// Reset clears turns and the error without changing the mode.
func (o *Orchestrator) Reset() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateIdle {
		return ErrBusy
	}
	o.turns = nil
	o.err = nil
	return nil
}

// StartCapture opens the microphone and starts buffering.
func (o *Orchestrator) StartCapture(ctx context.Context) error {
	if err := o.transition(StateIdle, StateCapturing); err != nil {
		return err
	}
	o.setErr(nil)

	if o.source == nil {
		return o.fail(fmt.Errorf("%w: no audio source configured", audio.ErrPermissionDenied))
	}
	if err := o.recorder.Start(ctx, o.source); err != nil {
		return o.fail(err)
	}
	return nil
}

// WaitCapture blocks until a finite source (a file) has been fully read.
func (o *Orchestrator) WaitCapture(ctx context.Context) error {
	return o.recorder.Wait(ctx)
}

// StopCapture ends the capture and runs the rest of the turn: transcribe,
// complete and speak. It returns the assistant reply. Calling it while idle
// is a no-op.
func (o *Orchestrator) StopCapture(ctx context.Context) (string, error) {
	if err := o.transition(StateCapturing, StateTranscribing); err != nil {
		if o.State() == StateIdle {
			return "", nil
		}
		return "", err
	}

	clip, err := o.recorder.Stop()
	if err != nil {
		return "", o.fail(err)
	}
	if clip == nil {
		o.set(StateIdle)
		return "", nil
	}

	transcript, err := o.transcriber.Transcribe(ctx, clip.WAV, speech.Options{
		Language:    o.Language(),
		ContentType: "audio/wav",
	})
	if err != nil {
		return "", o.fail(wrapPhase(ErrTranscriptionFailed, err))
	}
	text := strings.TrimSpace(transcript.Text)
	if text == "" {
		return "", o.fail(ErrNoSpeechDetected)
	}
	o.logger.Info("Transcript received", "chars", len(text), "confidence", transcript.Confidence)

	return o.respond(ctx, text)
}

// SubmitText runs a turn from typed text, skipping capture and
// transcription.
func (o *Orchestrator) SubmitText(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrNoSpeechDetected
	}
	if err := o.transition(StateIdle, StateAwaitingCompletion); err != nil {
		return "", err
	}
	o.setErr(nil)
	return o.respond(ctx, text)
}

func (o *Orchestrator) respond(ctx context.Context, text string) (string, error) {
	o.mu.Lock()
	history := append([]assistant.Turn(nil), o.turns...)
	o.turns = append(o.turns, assistant.Turn{Role: assistant.RoleUser, Text: text, Timestamp: o.now()})
	mode, language := o.mode, o.language
	o.mu.Unlock()

	o.set(StateAwaitingCompletion)
	reply, err := assistant.RunRound(ctx, o.model, o.tools, assistant.Exchange{
		Mode:     mode,
		Language: language,
		History:  history,
		Message:  text,
	}, assistant.RoundOptions{
		Logger: o.logger,
		Observe: func(p assistant.Phase) {
			if p == assistant.PhaseToolResult {
				o.set(StateAwaitingToolResult)
			} else {
				o.set(StateAwaitingCompletion)
			}
		},
	})
	if err != nil {
		return "", o.fail(wrapPhase(ErrCompletionFailed, err))
	}

	o.mu.Lock()
	o.turns = append(o.turns, assistant.Turn{Role: assistant.RoleAssistant, Text: reply, Timestamp: o.now()})
	o.mu.Unlock()

	o.set(StateSynthesizing)
	if err := o.speaker.Speak(ctx, reply, language); err != nil {
		o.logger.Warn("Speech playback failed", "error", err)
	}
	o.set(StateIdle)
	return reply, nil
}

// fail records err, returns to Idle and hands err back.
func (o *Orchestrator) fail(err error) error {
	o.logger.Info("Turn failed", "error", err, "state", o.State())
	o.setErr(err)
	o.set(StateIdle)
	return err
}

func (o *Orchestrator) setErr(err error) {
	o.mu.Lock()
	o.err = err
	o.mu.Unlock()
}

// transition moves from -> to atomically, or reports ErrBusy.
func (o *Orchestrator) transition(from, to State) error {
	o.mu.Lock()
	if o.state != from {
		o.mu.Unlock()
		return ErrBusy
	}
	o.state = to
	observers := slices.Clone(o.observers)
	o.mu.Unlock()

	o.notify(observers, from, to)
	return nil
}

func (o *Orchestrator) set(to State) {
	o.mu.Lock()
	from := o.state
	o.state = to
	observers := slices.Clone(o.observers)
	o.mu.Unlock()

	if from != to {
		o.notify(observers, from, to)
	}
}

func (o *Orchestrator) notify(observers []func(from, to State), from, to State) {
	o.logger.Debug("State changed", "from", from, "to", to)
	for _, fn := range observers {
		fn(from, to)
	}
}

func wrapPhase(phase, err error) error {
	return fmt.Errorf("%w: %w", phase, err)
}
