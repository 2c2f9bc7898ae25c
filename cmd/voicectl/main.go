// Command voicectl drives a running VoiceBridge service from the terminal:
// it plays a WAV file as the microphone, types messages, calls tools and
// inspects the voice agent settings.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/bgash22/voicebridge-ai-website/internal/config"
	"github.com/bgash22/voicebridge-ai-website/internal/conversation"
)

var (
	serverURL  string
	configPath string
	timeout    time.Duration
	verbose    bool

	appConfig *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "voicectl",
	Short:         "Command-line client for the VoiceBridge voice service",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadDotEnv(); err != nil {
			return err
		}
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		appConfig = cfg
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", envOr("VOICEBRIDGE_URL", "http://localhost:3000"), "VoiceBridge service URL")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Configuration file for capture thresholds (empty for defaults)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 60*time.Second, "Per-request timeout")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log state changes and requests")
}

func newClient() *conversation.Client {
	return conversation.NewClient(serverURL, timeout)
}

func newLogger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
