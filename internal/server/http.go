package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bgash22/voicebridge-ai-website/internal/assistant"
	"github.com/bgash22/voicebridge-ai-website/internal/config"
	"github.com/bgash22/voicebridge-ai-website/internal/metrics"
	"github.com/bgash22/voicebridge-ai-website/internal/speech"
	"github.com/bgash22/voicebridge-ai-website/internal/tools"
	"github.com/bgash22/voicebridge-ai-website/internal/upstream"
)

const (
	serviceName    = "voicebridge"
	serviceVersion = "1.0.0"
	chatProvider   = "openai"
)

// Deps are the collaborators behind the HTTP API.
type Deps struct {
	Transcriber speech.Transcriber
	Synthesizer speech.Synthesizer
	Model       assistant.Model
	Tools       *tools.Dispatcher
	Orders      tools.OrderStore
	Agent       assistant.AgentConnector
	Guard       *upstream.Guard
	Metrics     *metrics.Metrics
}

// HTTPServer serves the voice API
type HTTPServer struct {
	server *http.Server
	logger *slog.Logger
	config *config.Config

	transcriber speech.Transcriber
	synthesizer speech.Synthesizer
	model       assistant.Model
	tools       *tools.Dispatcher
	orders      tools.OrderStore
	agent       assistant.AgentConnector
	guard       *upstream.Guard
	metrics     *metrics.Metrics

	startTime time.Time
}

// NewHTTPServer creates a new HTTP API server
func NewHTTPServer(cfg *config.Config, logger *slog.Logger, deps Deps) *HTTPServer {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewMetrics()
	}
	if deps.Guard == nil {
		deps.Guard = upstream.NewGuard(cfg.Limits.UpstreamRPS, cfg.Limits.UpstreamBurst, cfg.Limits.MaxConcurrentCalls)
	}
	if deps.Tools == nil {
		deps.Tools = tools.NewDispatcher(tools.Options{Orders: deps.Orders, Logger: logger, Metrics: deps.Metrics})
	}
	if deps.Agent == nil {
		mode, _ := assistant.ParseMode(cfg.Agent.DefaultMode)
		deps.Agent = assistant.StaticConnector{URL: cfg.Agent.WebSocketURL, DefaultMode: mode}
	}

	h := &HTTPServer{
		logger:      logger.With("component", "http"),
		config:      cfg,
		transcriber: deps.Transcriber,
		synthesizer: deps.Synthesizer,
		model:       meteredModel{Model: deps.Model, provider: chatProvider, metrics: deps.Metrics},
		tools:       deps.Tools,
		orders:      deps.Orders,
		agent:       deps.Agent,
		guard:       deps.Guard,
		metrics:     deps.Metrics,
		startTime:   time.Now(),
	}

	mux := http.NewServeMux()
	h.setupRoutes(mux)

	h.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port),
		Handler:      withRequestID(mux),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return h
}

// setupRoutes configures HTTP API routes
func (h *HTTPServer) setupRoutes(mux *http.ServeMux) {
	// Voice pipeline
	mux.HandleFunc("/transcribe", h.withMetrics("/transcribe", h.handleTranscribe))
	mux.HandleFunc("/chat", h.withMetrics("/chat", h.handleChat))
	mux.HandleFunc("/functions", h.withMetrics("/functions", h.handleFunctions))
	mux.HandleFunc("/synthesize", h.withMetrics("/synthesize", h.handleSynthesize))

	// Voice agent
	mux.HandleFunc("/agent-config", h.withMetrics("/agent-config", h.handleAgentConfig))
	mux.HandleFunc("/agent-connect", h.withMetrics("/agent-connect", h.handleAgentConnect))

	mux.HandleFunc("/health", h.withMetrics("/health", h.handleHealth))

	// Prometheus metrics endpoint (no metrics needed for metrics endpoint)
	mux.Handle("/metrics", h.metrics.Handler())

	// Root endpoint with API documentation
	mux.HandleFunc("/", h.withMetrics("/", h.handleRoot))
}

// Handler returns the root handler, for tests and embedding.
func (h *HTTPServer) Handler() http.Handler {
	return h.server.Handler
}

// Start starts the HTTP server
func (h *HTTPServer) Start() error {
	h.logger.Info("Starting HTTP API server",
		slog.String("address", h.server.Addr),
	)

	go func() {
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.logger.Error("HTTP server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP server
func (h *HTTPServer) Stop(ctx context.Context) error {
	h.logger.Info("Stopping HTTP API server...")

	return h.server.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// acquire admits one outbound provider call. On refusal it writes the
// response and returns ok=false.
func (h *HTTPServer) acquire(w http.ResponseWriter, r *http.Request, kind string) (func(), bool) {
	release, err := h.guard.Acquire(r.Context())
	if err == nil {
		return release, true
	}
	if errors.Is(err, upstream.ErrRateLimited) {
		h.metrics.RecordThrottled(kind)
		h.requestLogger(r).Warn("Upstream rate limit exceeded", "kind", kind)
		writeError(w, http.StatusTooManyRequests, "Too many requests. Please try again shortly.")
		return nil, false
	}
	writeError(w, http.StatusServiceUnavailable, "Request cancelled")
	return nil, false
}

// handleTranscribe implements POST /transcribe
func (h *HTTPServer) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	logger := h.requestLogger(r)

	r.Body = http.MaxBytesReader(w, r.Body, h.config.Audio.MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		logger.Warn("Failed to parse upload", "error", err)
		writeError(w, http.StatusBadRequest, "No audio file provided")
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No audio file provided")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "No audio file provided")
		return
	}

	language := r.FormValue("language")
	if language == "" {
		language = assistant.DefaultLanguage
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = "audio/wav"
	}

	logger.Info("Audio received", "bytes", len(data), "content_type", contentType, "language", language)

	if len(data) < h.config.Audio.MinUploadBytes {
		h.metrics.RecordUploadTooSmall()
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":      "Audio too short or silent",
			"transcript": "",
		})
		return
	}
	h.metrics.RecordUpload(len(data))

	release, ok := h.acquire(w, r, kindTranscription)
	if !ok {
		return
	}
	defer release()

	result, err := h.transcribe(r.Context(), data, speech.Options{Language: language, ContentType: contentType})
	if err != nil {
		if errors.Is(err, upstream.ErrMissingCredential) {
			logger.Error("Transcription credential missing", "error", err)
			writeError(w, http.StatusInternalServerError, credentialMessage(h.transcriber.Name()))
			return
		}
		details := upstream.Body(err)
		if details == "" {
			details = err.Error()
		}
		logger.Error("Transcription failed", "error", err, "provider_body", upstream.Body(err))
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":   "Transcription failed",
			"details": details,
			"status":  upstream.StatusCode(err),
		})
		return
	}

	if strings.TrimSpace(result.Text) == "" {
		logger.Info("No speech detected", "confidence", result.Confidence)
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":      "No speech detected",
			"transcript": "",
			"message":    "No speech was detected in the audio. Please try speaking louder and longer.",
		})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

type chatRequest struct {
	Message             string           `json:"message"`
	ServiceType         string           `json:"serviceType"`
	ConversationHistory []assistant.Turn `json:"conversationHistory"`
	Language            string           `json:"language"`
}

// handleChat implements POST /chat
func (h *HTTPServer) handleChat(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	logger := h.requestLogger(r)

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "No message provided")
		return
	}

	mode := assistant.ModePharmacy
	if req.ServiceType != "" {
		parsed, err := assistant.ParseMode(req.ServiceType)
		if err != nil {
			logger.Warn("Unknown service type, using pharmacy", "service_type", req.ServiceType)
		} else {
			mode = parsed
		}
	}

	release, ok := h.acquire(w, r, kindCompletion)
	if !ok {
		return
	}
	defer release()

	reply, err := assistant.RunRound(r.Context(), h.model, h.tools, assistant.Exchange{
		Mode:     mode,
		Language: req.Language,
		History:  req.ConversationHistory,
		Message:  req.Message,
	}, assistant.RoundOptions{Logger: logger})
	if err != nil {
		if errors.Is(err, upstream.ErrMissingCredential) {
			logger.Error("Chat credential missing", "error", err)
			writeError(w, http.StatusInternalServerError, credentialMessage(chatProvider))
			return
		}
		logger.Error("AI response failed", "error", err, "status", upstream.StatusCode(err), "provider_body", upstream.Body(err))
		writeError(w, http.StatusInternalServerError, "AI response failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": reply})
}

type functionRequest struct {
	FunctionName string          `json:"function_name"`
	Arguments    json.RawMessage `json:"arguments"`
}

// handleFunctions implements POST /functions, the tool dispatcher webhook
func (h *HTTPServer) handleFunctions(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	logger := h.requestLogger(r)

	var req functionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.tools.Dispatch(r.Context(), req.FunctionName, req.Arguments)
	if err != nil {
		switch {
		case errors.Is(err, tools.ErrUnknownFunction):
			writeError(w, http.StatusBadRequest, "Unknown function: "+req.FunctionName)
		case errors.Is(err, tools.ErrInvalidArguments):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			logger.Error("Function execution failed", "function", req.FunctionName, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error":   "Function execution failed",
				"details": err.Error(),
			})
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]json.RawMessage{"result": result})
}

// handleSynthesize implements POST /synthesize
func (h *HTTPServer) handleSynthesize(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	logger := h.requestLogger(r)

	var req struct {
		Text     string `json:"text"`
		Language string `json:"language"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "No text provided")
		return
	}

	release, ok := h.acquire(w, r, kindSynthesis)
	if !ok {
		return
	}
	defer release()

	audio, err := h.synthesize(r.Context(), req.Text, req.Language)
	if err != nil {
		if errors.Is(err, upstream.ErrMissingCredential) {
			logger.Error("Synthesis credential missing", "error", err)
			writeError(w, http.StatusInternalServerError, credentialMessage(h.synthesizer.Name()))
			return
		}
		logger.Error("Speech synthesis failed", "error", err, "status", upstream.StatusCode(err), "provider_body", upstream.Body(err))
		writeError(w, http.StatusInternalServerError, "Speech synthesis failed")
		return
	}

	w.Header().Set("Content-Type", audio.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(audio.Data)))
	w.WriteHeader(http.StatusOK)
	w.Write(audio.Data)
}

// handleAgentConfig implements GET /agent-config
func (h *HTTPServer) handleAgentConfig(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	webhook := assistant.WebhookURL(r.Host, "/functions")
	writeJSON(w, http.StatusOK, assistant.BuildAgentSettings(h.config.Agent, webhook))
}

// handleAgentConnect implements POST /agent-connect
func (h *HTTPServer) handleAgentConnect(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	logger := h.requestLogger(r)

	var req struct {
		ServiceType string `json:"serviceType"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	var mode assistant.Mode
	if req.ServiceType != "" {
		parsed, err := assistant.ParseMode(req.ServiceType)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		mode = parsed
	}

	session, err := h.agent.Connect(r.Context(), mode)
	if err != nil {
		logger.Error("Agent connect failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to connect to agent. Please try again.")
		return
	}

	writeJSON(w, http.StatusOK, session)
}

// pinger is implemented by order stores with a remote backend.
type pinger interface {
	Ping(ctx context.Context) error
}

// handleHealth implements the /health endpoint
func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	status, code := "healthy", http.StatusOK
	store := map[string]any{"backend": h.config.Store.Backend, "status": "ok"}
	if p, ok := h.orders.(pinger); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			status, code = "degraded", http.StatusServiceUnavailable
			store["status"] = "unreachable"
			store["error"] = err.Error()
		}
	}

	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(h.startTime).String(),
		"service": map[string]any{
			"name":    serviceName,
			"version": serviceVersion,
		},
		"components": map[string]any{
			"transcription": h.transcriber.Name(),
			"synthesis":     h.synthesizer.Name(),
			"chat":          chatProvider,
			"tracking":      h.config.Tracking.Provider,
			"store":         store,
		},
	})
}

// handleRoot implements the / endpoint with API documentation
func (h *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"service": "VoiceBridge AI",
		"version": serviceVersion,
		"endpoints": map[string]string{
			"GET /":               "API documentation",
			"GET /health":         "Service health check",
			"GET /metrics":        "Prometheus metrics",
			"POST /transcribe":    "Speech to text (multipart: audio, language)",
			"POST /chat":          "Assistant reply with tool resolution",
			"POST /functions":     "Run a backend tool by name",
			"POST /synthesize":    "Text to speech",
			"GET /agent-config":   "Voice agent settings",
			"POST /agent-connect": "Voice agent session",
		},
		"timestamp": time.Now().UTC(),
	})
}
