package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bgash22/voicebridge-ai-website/internal/assistant"
	"github.com/bgash22/voicebridge-ai-website/internal/config"
	"github.com/bgash22/voicebridge-ai-website/internal/metrics"
	"github.com/bgash22/voicebridge-ai-website/internal/server"
	"github.com/bgash22/voicebridge-ai-website/internal/speech"
	"github.com/bgash22/voicebridge-ai-website/internal/tools"
	"github.com/bgash22/voicebridge-ai-website/internal/upstream"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "voicebridge"
	serviceVersion    = "1.0.0"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file (empty for defaults)")
	envFile := flag.String("env", ".env", "Optional dotenv file with provider keys")
	flag.Parse()

	if err := config.LoadDotEnv(*envFile); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load environment: %v\n", err)
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger based on configuration
	logger := initLogger(cfg.Logging)

	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	// Log configuration summary (without sensitive data)
	logger.Info("Configuration loaded",
		slog.Int("http_port", cfg.HTTP.Port),
		slog.String("transcription_provider", cfg.Transcription.Provider),
		slog.String("synthesis_provider", cfg.Synthesis.Provider),
		slog.String("chat_model", cfg.Chat.Model),
		slog.String("store_backend", cfg.Store.Backend),
		slog.String("tracking_provider", cfg.Tracking.Provider),
		slog.Bool("openai_key_set", cfg.Chat.APIKey != ""),
		slog.Bool("transcription_key_set", cfg.Transcription.APIKey != ""),
		slog.String("log_level", cfg.Logging.Level),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize Prometheus metrics
	appMetrics := metrics.NewMetrics()

	orders, closeStore, err := newOrderStore(ctx, cfg.Store, logger)
	if err != nil {
		logger.Error("Failed to create order store", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer closeStore()

	var tracker tools.Tracker = tools.MockTracker{}
	if cfg.Tracking.Provider == "dhl" {
		tracker = tools.NewDHLTracker(cfg.Tracking)
	}

	transcriber, err := speech.NewTranscriber(cfg.Transcription, logger)
	if err != nil {
		logger.Error("Failed to create transcriber", slog.String("error", err.Error()))
		os.Exit(1)
	}
	synthesizer, err := speech.NewSynthesizer(cfg.Synthesis, logger)
	if err != nil {
		logger.Error("Failed to create synthesizer", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer closeIfCloser(transcriber, logger)
	defer closeIfCloser(synthesizer, logger)

	defaultMode, err := assistant.ParseMode(cfg.Agent.DefaultMode)
	if err != nil {
		defaultMode = assistant.ModePharmacy
	}

	httpServer := server.NewHTTPServer(cfg, logger, server.Deps{
		Transcriber: transcriber,
		Synthesizer: synthesizer,
		Model:       assistant.NewOpenAIModel(cfg.Chat, logger),
		Tools: tools.NewDispatcher(tools.Options{
			Orders:  orders,
			Tracker: tracker,
			Logger:  logger,
			Metrics: appMetrics,
		}),
		Orders:  orders,
		Agent:   assistant.StaticConnector{URL: cfg.Agent.WebSocketURL, DefaultMode: defaultMode},
		Guard:   upstream.NewGuard(cfg.Limits.UpstreamRPS, cfg.Limits.UpstreamBurst, cfg.Limits.MaxConcurrentCalls),
		Metrics: appMetrics,
	})

	if err := httpServer.Start(); err != nil {
		logger.Error("Failed to start HTTP server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Service started successfully, waiting for signals...",
		slog.String("http_address", fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port)),
	)

	<-ctx.Done()
	logger.Info("Starting graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownTimeout)*time.Second)
	defer shutdownCancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
	}

	logger.Info("Service stopped")
}

// newOrderStore builds the configured order backend. The returned close
// function is always safe to call.
func newOrderStore(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (tools.OrderStore, func(), error) {
	if cfg.Backend != "redis" {
		logger.Info("Using in-memory order store")
		return tools.NewMemoryStore(), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	store := tools.NewRedisStore(client, cfg.KeyPrefix)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := store.Ping(pingCtx); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("redis at %s unreachable: %w", cfg.RedisAddr, err)
	}

	logger.Info("Using Redis order store", slog.String("addr", cfg.RedisAddr), slog.String("prefix", cfg.KeyPrefix))
	return store, func() { client.Close() }, nil
}

func closeIfCloser(v any, logger *slog.Logger) {
	if c, ok := v.(io.Closer); ok {
		if err := c.Close(); err != nil {
			logger.Warn("Failed to close provider client", slog.String("error", err.Error()))
		}
	}
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	// Parse log level
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug, // Add source info for debug level
	}

	// Determine output destination
	var output *os.File
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
		output = os.Stdout
	default:
		// Assume it's a file path
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stdout\n", cfg.Output, err)
			output = os.Stdout
		} else {
			output = file
		}
	}

	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	default:
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
