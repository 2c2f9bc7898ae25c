package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables holding provider secrets.
const (
	EnvDeepgramAPIKey = "DEEPGRAM_API_KEY"
	EnvOpenAIAPIKey   = "OPENAI_API_KEY"
	EnvDHLAPIKey      = "DHL_API_KEY"
	EnvGoogleCreds    = "GOOGLE_APPLICATION_CREDENTIALS"
	EnvRedisPassword  = "REDIS_PASSWORD"
)

// Config represents the complete service configuration
type Config struct {
	HTTP          HTTPConfig          `yaml:"http"`
	Audio         AudioConfig         `yaml:"audio"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Chat          ChatConfig          `yaml:"chat"`
	Synthesis     SynthesisConfig     `yaml:"synthesis"`
	Store         StoreConfig         `yaml:"store"`
	Tracking      TrackingConfig      `yaml:"tracking"`
	Agent         AgentConfig         `yaml:"agent"`
	Limits        LimitsConfig        `yaml:"limits"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// HTTPConfig contains HTTP API server configuration
type HTTPConfig struct {
	Port            int    `yaml:"port"`
	Address         string `yaml:"address"`
	ReadTimeout     int    `yaml:"read_timeout"`     // seconds
	WriteTimeout    int    `yaml:"write_timeout"`    // seconds
	ShutdownTimeout int    `yaml:"shutdown_timeout"` // seconds
}

// AudioConfig contains capture acceptance and upload limits
type AudioConfig struct {
	SampleRate     int     `yaml:"sample_rate"`
	BlockSize      int     `yaml:"block_size"`       // samples
	MinDuration    float64 `yaml:"min_duration"`     // seconds
	NoSignalPeak   float64 `yaml:"no_signal_peak"`   // normalized RMS x100
	FaintPeak      float64 `yaml:"faint_peak"`       // normalized RMS x100
	MinUploadBytes int     `yaml:"min_upload_bytes"` // smaller uploads are rejected unsent
	MaxUploadBytes int64   `yaml:"max_upload_bytes"`
}

// TranscriptionConfig selects and configures the speech-to-text provider
type TranscriptionConfig struct {
	Provider string `yaml:"provider"` // deepgram | openai | google
	Endpoint string `yaml:"endpoint"` // base URL override, empty for the provider default
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	Timeout  int    `yaml:"timeout"` // seconds
}

// ChatConfig configures the chat-completion provider
type ChatConfig struct {
	Endpoint    string  `yaml:"endpoint"`
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	Timeout     int     `yaml:"timeout"` // seconds
}

// SynthesisConfig selects and configures the text-to-speech provider
type SynthesisConfig struct {
	Provider string `yaml:"provider"` // deepgram | openai | google
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	Voice    string `yaml:"voice"`
	Timeout  int    `yaml:"timeout"` // seconds
}

// StoreConfig selects the order store backend
type StoreConfig struct {
	Backend   string `yaml:"backend"` // memory | redis
	RedisAddr string `yaml:"redis_addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

// TrackingConfig selects the shipment tracking provider
type TrackingConfig struct {
	Provider string `yaml:"provider"` // mock | dhl
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"api_key"`
	Timeout  int    `yaml:"timeout"` // seconds
}

// AgentConfig configures the external voice-agent integration
type AgentConfig struct {
	WebSocketURL string `yaml:"websocket_url"`
	ListenModel  string `yaml:"listen_model"`
	ThinkModel   string `yaml:"think_model"`
	SpeakModel   string `yaml:"speak_model"`
	InputRate    int    `yaml:"input_sample_rate"`
	OutputRate   int    `yaml:"output_sample_rate"`
	OutputBuffer int    `yaml:"output_buffer_size"`
	DefaultMode  string `yaml:"default_mode"`
}

// LimitsConfig bounds outbound provider traffic
type LimitsConfig struct {
	UpstreamRPS        float64 `yaml:"upstream_rps"`
	UpstreamBurst      int     `yaml:"upstream_burst"`
	MaxConcurrentCalls int64   `yaml:"max_concurrent_calls"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Default returns a configuration that runs locally with the mock tracker,
// the in-memory store and Deepgram speech.
func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Port:            3000,
			Address:         "0.0.0.0",
			ReadTimeout:     30,
			WriteTimeout:    60,
			ShutdownTimeout: 30,
		},
		Audio: AudioConfig{
			SampleRate:     16000,
			BlockSize:      4096,
			MinDuration:    0.5,
			NoSignalPeak:   1.0,
			FaintPeak:      5.0,
			MinUploadBytes: 1000,
			MaxUploadBytes: 25 << 20,
		},
		Transcription: TranscriptionConfig{
			Provider: "deepgram",
			Model:    "nova-2",
			Timeout:  30,
		},
		Chat: ChatConfig{
			Model:       "gpt-4o-mini",
			Temperature: 0.7,
			Timeout:     30,
		},
		Synthesis: SynthesisConfig{
			Provider: "deepgram",
			Model:    "aura-asteria-en",
			Timeout:  30,
		},
		Store: StoreConfig{
			Backend:   "memory",
			KeyPrefix: "voicebridge:",
		},
		Tracking: TrackingConfig{
			Provider: "mock",
			Timeout:  10,
		},
		Agent: AgentConfig{
			WebSocketURL: "ws://localhost:7070/twiml/stream",
			ListenModel:  "nova-2",
			ThinkModel:   "gpt-4o-mini",
			SpeakModel:   "aura-asteria-en",
			InputRate:    16000,
			OutputRate:   24000,
			OutputBuffer: 250,
			DefaultMode:  "pharmacy",
		},
		Limits: LimitsConfig{
			UpstreamRPS:        10,
			UpstreamBurst:      20,
			MaxConcurrentCalls: 8,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// Load reads and parses the configuration file on top of Default, then
// fills secrets from the environment. An empty path loads defaults only.
func Load(path string) (*Config, error) {
	config := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	config.ApplyEnv()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment without overriding variables that are already set. Missing
// files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv fills empty secrets from the environment.
func (c *Config) ApplyEnv() {
	fill := func(dst *string, key string) {
		if *dst == "" {
			*dst = os.Getenv(key)
		}
	}

	fill(&c.Transcription.APIKey, keyFor(c.Transcription.Provider))
	fill(&c.Synthesis.APIKey, keyFor(c.Synthesis.Provider))
	fill(&c.Chat.APIKey, EnvOpenAIAPIKey)
	fill(&c.Tracking.APIKey, EnvDHLAPIKey)
	fill(&c.Store.Password, EnvRedisPassword)
}

// keyFor maps a speech provider to the environment variable holding its key.
// Google authenticates through application default credentials instead.
func keyFor(provider string) string {
	switch provider {
	case "openai":
		return EnvOpenAIAPIKey
	case "google":
		return EnvGoogleCreds
	default:
		return EnvDeepgramAPIKey
	}
}

// Validate performs comprehensive validation of the configuration.
// Missing API keys are not an error here: the affected endpoint reports
// them per request.
func (c *Config) Validate() error {
	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}

	if err := c.Transcription.Validate(); err != nil {
		return fmt.Errorf("transcription config: %w", err)
	}

	if err := c.Chat.Validate(); err != nil {
		return fmt.Errorf("chat config: %w", err)
	}

	if err := c.Synthesis.Validate(); err != nil {
		return fmt.Errorf("synthesis config: %w", err)
	}

	if err := c.Store.Validate(); err != nil {
		return fmt.Errorf("store config: %w", err)
	}

	if err := c.Tracking.Validate(); err != nil {
		return fmt.Errorf("tracking config: %w", err)
	}

	if err := c.Limits.Validate(); err != nil {
		return fmt.Errorf("limits config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates HTTP configuration
func (h *HTTPConfig) Validate() error {
	if h.Port < 1 || h.Port > 65535 {
		return fmt.Errorf("http port must be between 1 and 65535, got %d", h.Port)
	}

	if h.Address == "" {
		return fmt.Errorf("http address cannot be empty")
	}

	if h.ReadTimeout < 1 || h.WriteTimeout < 1 {
		return fmt.Errorf("read_timeout and write_timeout must be at least 1 second")
	}

	return nil
}

// Validate validates audio configuration
func (a *AudioConfig) Validate() error {
	if a.SampleRate < 8000 || a.SampleRate > 48000 {
		return fmt.Errorf("sample_rate must be between 8000 and 48000 Hz, got %d", a.SampleRate)
	}

	if a.BlockSize < 256 {
		return fmt.Errorf("block_size must be at least 256 samples, got %d", a.BlockSize)
	}

	if a.MinDuration <= 0 {
		return fmt.Errorf("min_duration must be positive, got %f", a.MinDuration)
	}

	if a.NoSignalPeak < 0 || a.FaintPeak < a.NoSignalPeak {
		return fmt.Errorf("faint_peak (%f) must be at least no_signal_peak (%f)", a.FaintPeak, a.NoSignalPeak)
	}

	if a.MinUploadBytes < 0 {
		return fmt.Errorf("min_upload_bytes cannot be negative, got %d", a.MinUploadBytes)
	}

	if a.MaxUploadBytes <= int64(a.MinUploadBytes) {
		return fmt.Errorf("max_upload_bytes must exceed min_upload_bytes, got %d", a.MaxUploadBytes)
	}

	return nil
}

var speechProviders = map[string]bool{"deepgram": true, "openai": true, "google": true}

// Validate validates transcription configuration
func (t *TranscriptionConfig) Validate() error {
	if !speechProviders[t.Provider] {
		return fmt.Errorf("provider must be one of [deepgram, openai, google], got '%s'", t.Provider)
	}

	if t.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", t.Timeout)
	}

	return nil
}

// Validate validates chat configuration
func (c *ChatConfig) Validate() error {
	if c.Model == "" {
		return fmt.Errorf("model cannot be empty")
	}

	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %f", c.Temperature)
	}

	if c.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", c.Timeout)
	}

	return nil
}

// Validate validates synthesis configuration
func (s *SynthesisConfig) Validate() error {
	if !speechProviders[s.Provider] {
		return fmt.Errorf("provider must be one of [deepgram, openai, google], got '%s'", s.Provider)
	}

	if s.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", s.Timeout)
	}

	return nil
}

// Validate validates store configuration
func (s *StoreConfig) Validate() error {
	switch s.Backend {
	case "memory":
	case "redis":
		if s.RedisAddr == "" {
			return fmt.Errorf("redis_addr cannot be empty for the redis backend")
		}
	default:
		return fmt.Errorf("backend must be 'memory' or 'redis', got '%s'", s.Backend)
	}

	return nil
}

// Validate validates tracking configuration
func (t *TrackingConfig) Validate() error {
	if t.Provider != "mock" && t.Provider != "dhl" {
		return fmt.Errorf("provider must be 'mock' or 'dhl', got '%s'", t.Provider)
	}

	if t.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", t.Timeout)
	}

	return nil
}

// Validate validates upstream limits
func (l *LimitsConfig) Validate() error {
	if l.UpstreamRPS <= 0 {
		return fmt.Errorf("upstream_rps must be positive, got %f", l.UpstreamRPS)
	}

	if l.UpstreamBurst < 1 {
		return fmt.Errorf("upstream_burst must be at least 1, got %d", l.UpstreamBurst)
	}

	if l.MaxConcurrentCalls < 1 {
		return fmt.Errorf("max_concurrent_calls must be at least 1, got %d", l.MaxConcurrentCalls)
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	// Anything other than stdout/stderr is treated as a file path.
	if l.Output == "" {
		return fmt.Errorf("output cannot be empty")
	}

	return nil
}

// GetMinDuration returns the minimum capture duration as a time.Duration
func (a *AudioConfig) GetMinDuration() time.Duration {
	return time.Duration(a.MinDuration * float64(time.Second))
}

// GetTimeoutDuration returns the transcription timeout as a time.Duration
func (t *TranscriptionConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(t.Timeout) * time.Second
}

// GetTimeoutDuration returns the chat timeout as a time.Duration
func (c *ChatConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// GetTimeoutDuration returns the synthesis timeout as a time.Duration
func (s *SynthesisConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(s.Timeout) * time.Second
}

// GetTimeoutDuration returns the tracking timeout as a time.Duration
func (t *TrackingConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(t.Timeout) * time.Second
}

// GetShutdownTimeout returns the graceful shutdown timeout as a time.Duration
func (h *HTTPConfig) GetShutdownTimeout() time.Duration {
	return time.Duration(h.ShutdownTimeout) * time.Second
}
