package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bgash22/voicebridge-ai-website/internal/fakeupstream"
)

func main() {
	addr := flag.String("addr", ":9000", "Listen address")
	transcript := flag.String("transcript", fakeupstream.DefaultTranscript, "Transcript returned for every clip")
	reply := flag.String("reply", "", "Assistant reply when no tool is called (default echoes the user)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	srv := &http.Server{
		Addr:              *addr,
		Handler:           fakeupstream.New(fakeupstream.Options{Transcript: *transcript, Reply: *reply}, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Fake upstream listening",
			slog.String("address", *addr),
			slog.String("deepgram_endpoint", "http://localhost"+*addr),
			slog.String("openai_endpoint", "http://localhost"+*addr+"/v1"),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("Received shutdown signal", slog.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Error stopping server", slog.String("error", err.Error()))
	}
}
