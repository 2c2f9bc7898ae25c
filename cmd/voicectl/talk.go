package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/bgash22/voicebridge-ai-website/internal/assistant"
	"github.com/bgash22/voicebridge-ai-website/internal/audio"
	"github.com/bgash22/voicebridge-ai-website/internal/config"
	"github.com/bgash22/voicebridge-ai-website/internal/conversation"
)

var (
	talkMode       string
	talkLang       string
	talkText       []string
	talkReplyDir   string
	talkTranscript string
	talkSummary    bool
)

var talkCmd = &cobra.Command{
	Use:   "talk [recording.wav ...]",
	Short: "Run voice turns through the service",
	Long: `Talk plays each WAV file as a push-to-talk recording, one turn per
file, and prints the assistant replies. Use --text to type turns instead.

Replies are saved as WAV files when --reply-dir is set.`,
	RunE: runTalk,
}

func init() {
	talkCmd.Flags().StringVarP(&talkMode, "mode", "m", string(assistant.ModePharmacy), "Service mode: pharmacy, shipment, banking or clinic")
	talkCmd.Flags().StringVarP(&talkLang, "lang", "l", assistant.DefaultLanguage, "Conversation language code")
	talkCmd.Flags().StringArrayVarP(&talkText, "text", "t", nil, "Typed turn (repeatable), used instead of recordings")
	talkCmd.Flags().StringVar(&talkReplyDir, "reply-dir", "", "Directory for synthesized reply audio")
	talkCmd.Flags().StringVar(&talkTranscript, "transcript", "", "Write the conversation transcript to this file")
	talkCmd.Flags().BoolVar(&talkSummary, "summary", false, "Print a conversation analysis at the end")
	rootCmd.AddCommand(talkCmd)
}

func runTalk(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && len(talkText) == 0 {
		return errors.New("provide at least one recording or --text")
	}

	mode, err := assistant.ParseMode(talkMode)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	logger := newLogger(cmd)
	client := newClient()

	var speaker conversation.Speaker = conversation.TextSpeaker{W: io.Discard}
	if talkReplyDir != "" {
		if err := os.MkdirAll(talkReplyDir, 0o755); err != nil {
			return fmt.Errorf("failed to create reply dir: %w", err)
		}
		speaker = conversation.FallbackSpeaker{
			Speakers: []conversation.Speaker{
				conversation.SynthSpeaker{Synth: client, Player: &conversation.WAVPlayer{Dir: talkReplyDir}},
				conversation.TextSpeaker{W: cmd.ErrOrStderr()},
			},
			Logger: logger,
		}
	}

	source := &audio.WAVSource{}
	orch := conversation.New(conversation.Options{
		Source:      source,
		Recorder:    audio.NewRecorder(recorderConfig(appConfig.Audio), logger),
		Transcriber: client,
		Model:       client,
		Tools:       client,
		Speaker:     speaker,
		Mode:        mode,
		Language:    talkLang,
		Logger:      logger,
	})
	orch.OnStateChange(func(from, to conversation.State) {
		logger.Debug("State change", "from", from.String(), "to", to.String())
	})

	ctx := cmd.Context()
	turn := func(run func() (string, error)) error {
		before := len(orch.Turns())
		reply, err := run()
		if err != nil {
			fmt.Fprintf(out, "! %s\n", conversation.UserMessage(err))
			return err
		}
		if turns := orch.Turns(); len(turns) > before {
			fmt.Fprintf(out, "You: %s\n", turns[before].Text)
		}
		fmt.Fprintf(out, "AI: %s\n", reply)
		return nil
	}

	var failed int
	for _, path := range args {
		source.Path = path
		err := turn(func() (string, error) {
			if err := orch.StartCapture(ctx); err != nil {
				return "", err
			}
			if err := orch.WaitCapture(ctx); err != nil {
				return "", err
			}
			return orch.StopCapture(ctx)
		})
		if err != nil {
			failed++
		}
	}
	for _, text := range talkText {
		if err := turn(func() (string, error) { return orch.SubmitText(ctx, text) }); err != nil {
			failed++
		}
	}

	turns := orch.Turns()
	if talkTranscript != "" {
		f, err := os.Create(talkTranscript)
		if err != nil {
			return fmt.Errorf("failed to create transcript: %w", err)
		}
		defer f.Close()
		if err := conversation.ExportTranscript(f, turns, orch.Mode(), orch.Language(), time.Now()); err != nil {
			return fmt.Errorf("failed to write transcript: %w", err)
		}
	}

	if talkSummary {
		a := conversation.Analyze(turns, orch.Mode(), orch.Language())
		fmt.Fprintf(out, "\nSentiment: %s\nSummary: %s\nTurns: %d (user talk ratio %.0f%%)\n",
			a.Sentiment, a.Summary, a.TotalTurns, a.TalkRatioUser*100)
		for _, item := range a.ActionItems {
			fmt.Fprintf(out, "- %s\n", item)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d turns failed", failed, len(args)+len(talkText))
	}
	return nil
}

// recorderConfig maps the audio section onto capture thresholds.
func recorderConfig(a config.AudioConfig) audio.RecorderConfig {
	rc := audio.DefaultRecorderConfig()
	rc.Constraints.SampleRate = a.SampleRate
	rc.BlockSize = a.BlockSize
	rc.MinDuration = a.GetMinDuration()
	rc.NoSignalPeak = a.NoSignalPeak
	rc.FaintPeak = a.FaintPeak
	return rc
}
