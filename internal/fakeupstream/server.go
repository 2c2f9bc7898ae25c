package fakeupstream

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"regexp"
	"strings"
	"sync"

	"github.com/bgash22/voicebridge-ai-website/internal/audio"
)

// Endpoint paths served by the simulator.
const (
	PathListen          = "/v1/listen"
	PathSpeak           = "/v1/speak"
	PathChatCompletions = "/v1/chat/completions"
	PathTranscriptions  = "/v1/audio/transcriptions"
	PathSpeech          = "/v1/audio/speech"
)

// DefaultTranscript is returned for every clip unless Options override it.
const DefaultTranscript = "Can you track my package 1234567890"

const maxUpload = 25 << 20

var digitRun = regexp.MustCompile(`\d[\d\s-]{5,}\d`)

// Options configure canned replies.
type Options struct {
	// Transcript is the text heard in every clip. Empty means DefaultTranscript.
	Transcript string

	// Confidence is the reported transcript confidence.
	Confidence float64

	// Reply is the assistant text when no tool is involved. Empty echoes the
	// user message.
	Reply string

	// Speech is the audio returned by the speech endpoints. Empty means a
	// short WAV tone.
	Speech []byte

	// SpeechContentType is the MIME type of Speech.
	SpeechContentType string
}

// Server is an http.Handler simulating the providers.
type Server struct {
	opts   Options
	logger *slog.Logger
	mux    *http.ServeMux

	mu       sync.Mutex
	calls    map[string]int
	failures map[string]int
}

// New creates a simulator.
func New(opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Transcript == "" {
		opts.Transcript = DefaultTranscript
	}
	if opts.Confidence == 0 {
		opts.Confidence = 0.98
	}
	if len(opts.Speech) == 0 {
		opts.Speech = tone(0.3, 24000)
		opts.SpeechContentType = "audio/wav"
	}
	if opts.SpeechContentType == "" {
		opts.SpeechContentType = "audio/mpeg"
	}

	s := &Server{
		opts:     opts,
		logger:   logger.With("component", "fakeupstream"),
		mux:      http.NewServeMux(),
		calls:    make(map[string]int),
		failures: make(map[string]int),
	}
	s.mux.HandleFunc("POST "+PathListen, s.deepgramAuth(s.handleListen))
	s.mux.HandleFunc("POST "+PathSpeak, s.deepgramAuth(s.handleSpeech))
	s.mux.HandleFunc("POST "+PathChatCompletions, s.openAIAuth(s.handleChat))
	s.mux.HandleFunc("POST "+PathTranscriptions, s.openAIAuth(s.handleTranscription))
	s.mux.HandleFunc("POST "+PathSpeech, s.openAIAuth(s.handleSpeech))
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.calls[r.URL.Path]++
	status := s.failures[r.URL.Path]
	delete(s.failures, r.URL.Path)
	s.mu.Unlock()

	if status != 0 {
		s.logger.Info("Injected failure", "path", r.URL.Path, "status", status)
		writeJSON(w, status, map[string]any{"error": map[string]string{
			"message": fmt.Sprintf("injected failure with status %d", status),
			"type":    "server_error",
		}})
		return
	}
	s.mux.ServeHTTP(w, r)
}

// FailNext makes the next request to path answer with status.
func (s *Server) FailNext(path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[path] = status
}

// Calls reports how many requests reached path.
func (s *Server) Calls(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[path]
}

func (s *Server) deepgramAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Token ") {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"err_code": "INVALID_AUTH",
				"err_msg":  "Invalid credentials.",
			})
			return
		}
		next(w, r)
	}
}

func (s *Server) openAIAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": map[string]string{
				"message": "You didn't provide an API key.",
				"type":    "invalid_request_error",
			}})
			return
		}
		next(w, r)
	}
}

func (s *Server) handleListen(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxUpload))
	if err != nil || len(data) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"err_code": "Bad Request", "err_msg": "No audio provided."})
		return
	}

	s.logger.Info("Listen request", "bytes", len(data), "language", r.URL.Query().Get("language"), "model", r.URL.Query().Get("model"))

	writeJSON(w, http.StatusOK, map[string]any{
		"results": map[string]any{
			"channels": []any{map[string]any{
				"alternatives": []any{map[string]any{
					"transcript": s.opts.Transcript,
					"confidence": s.opts.Confidence,
				}},
			}},
		},
	})
}

func (s *Server) handleTranscription(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": map[string]string{"message": "Error parsing form"}})
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": map[string]string{"message": "Missing file"}})
		return
	}
	defer file.Close()
	n, _ := io.Copy(io.Discard, file)

	s.logger.Info("Transcription request", "filename", header.Filename, "bytes", n, "model", r.FormValue("model"), "language", r.FormValue("language"))
	writeJSON(w, http.StatusOK, map[string]string{"text": s.opts.Transcript})
}

func (s *Server) handleSpeech(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text  string `json:"text"`
		Input string `json:"input"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || (req.Text == "" && req.Input == "") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"err_msg": "No text provided."})
		return
	}

	s.logger.Info("Speech request", "path", r.URL.Path, "chars", len(req.Text)+len(req.Input))
	w.Header().Set("Content-Type", s.opts.SpeechContentType)
	w.WriteHeader(http.StatusOK)
	w.Write(s.opts.Speech)
}

type chatMessage struct {
	Role       string `json:"role"`
	Content    string `json:"content"`
	ToolCallID string `json:"tool_call_id,omitempty"`
	Name       string `json:"name,omitempty"`
}

type chatTool struct {
	Function struct {
		Name string `json:"name"`
	} `json:"function"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Model    string        `json:"model"`
		Messages []chatMessage `json:"messages"`
		Tools    []chatTool    `json:"tools"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Messages) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": map[string]string{"message": "Invalid request body"}})
		return
	}

	last := req.Messages[len(req.Messages)-1]
	offered := make(map[string]bool, len(req.Tools))
	for _, t := range req.Tools {
		offered[t.Function.Name] = true
	}

	s.logger.Info("Chat request", "model", req.Model, "messages", len(req.Messages), "tools", len(req.Tools), "last_role", last.Role)

	if last.Role == "tool" {
		s.writeText(w, req.Model, summarizeToolResult(last.Content))
		return
	}

	if name, args, ok := pickTool(last.Content, offered); ok {
		s.writeToolCall(w, req.Model, name, args)
		return
	}

	reply := s.opts.Reply
	if reply == "" {
		reply = "You said: " + last.Content
	}
	s.writeText(w, req.Model, reply)
}

// pickTool chooses a tool for a user message: tracking numbers go to
// track_shipment, catalog drug names to get_drug_info.
func pickTool(message string, offered map[string]bool) (string, string, bool) {
	if offered["track_shipment"] {
		if m := digitRun.FindString(message); m != "" {
			args, _ := json.Marshal(map[string]string{"tracking_number": m})
			return "track_shipment", string(args), true
		}
	}
	if offered["get_drug_info"] {
		lower := strings.ToLower(message)
		for _, drug := range []string{"acetaminophen", "aspirin"} {
			if strings.Contains(lower, drug) {
				args, _ := json.Marshal(map[string]string{"drug_name": drug})
				return "get_drug_info", string(args), true
			}
		}
	}
	return "", "", false
}

func summarizeToolResult(content string) string {
	var result map[string]any
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return "Here is what I found: " + content
	}
	if e, ok := result["error"].(string); ok {
		return "Sorry. " + e
	}
	if status, ok := result["status"].(string); ok {
		return status
	}
	if desc, ok := result["description"].(string); ok {
		return fmt.Sprintf("%v costs $%v. %s", result["name"], result["price"], desc)
	}
	return "Here is what I found: " + content
}

func (s *Server) writeText(w http.ResponseWriter, model, text string) {
	writeJSON(w, http.StatusOK, map[string]any{
		"id":      "chatcmpl-fake",
		"object":  "chat.completion",
		"created": 0,
		"model":   model,
		"choices": []any{map[string]any{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": text},
		}},
	})
}

func (s *Server) writeToolCall(w http.ResponseWriter, model, name, args string) {
	writeJSON(w, http.StatusOK, map[string]any{
		"id":      "chatcmpl-fake",
		"object":  "chat.completion",
		"created": 0,
		"model":   model,
		"choices": []any{map[string]any{
			"index":         0,
			"finish_reason": "tool_calls",
			"message": map[string]any{
				"role":    "assistant",
				"content": nil,
				"tool_calls": []any{map[string]any{
					"id":   "call_fake",
					"type": "function",
					"function": map[string]string{
						"name":      name,
						"arguments": args,
					},
				}},
			},
		}},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// tone renders a 440 Hz sine as WAV.
func tone(seconds float64, rate int) []byte {
	n := int(seconds * float64(rate))
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = float32(0.3 * math.Sin(2*math.Pi*440*float64(i)/float64(rate)))
	}
	wav, err := audio.EncodeFloat32WAV(samples, rate)
	if err != nil {
		panic(err)
	}
	return wav
}
