// ABOUTME: Loopback HTTP JSON API exposing store and gateway operations to the desktop UI
// ABOUTME: Owns routing, request logging, and rendering structured errors to strings

package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/yuin/goldmark"

	"github.com/emberchat/emberchat/internal/images"
	"github.com/emberchat/emberchat/internal/ollama"
	"github.com/emberchat/emberchat/internal/store"
)

// timeFormat is the timestamp layout stored with conversations and
// messages. Second granularity; ties are broken by insertion order.
const timeFormat = "2006-01-02 15:04:05"

// Gateway defines what the API layer needs from the inference client.
type Gateway interface {
	CheckConnection(ctx context.Context) bool
	SendPrompt(ctx context.Context, prompt, model string) (string, error)
	SendPromptWithImage(ctx context.Context, prompt, imageBase64, model string) (string, error)
	SendPromptWithHistory(ctx context.Context, messages []ollama.ChatMessage, model string) (string, error)
	ListModels(ctx context.Context) ([]ollama.Model, error)
}

// Server wires the conversation store, the gateway client, and the image
// directory behind a JSON API. Handlers are thin: they parse arguments,
// call exactly one collaborator, and render the result or error. All
// user-facing failure text originates in the collaborators' error values.
type Server struct {
	store   store.ConversationStore
	gateway Gateway
	images  *images.Dir
	logger  *slog.Logger
	md      goldmark.Markdown
}

// NewServer creates the API server.
func NewServer(st store.ConversationStore, gw Gateway, imgs *images.Dir, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		store:   st,
		gateway: gw,
		images:  imgs,
		logger:  logger.With("component", "api"),
		md:      goldmark.New(),
	}
}

// Handler returns the routed HTTP handler with request logging applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/prompt", s.handleSendPrompt)
	mux.HandleFunc("/api/prompt/image", s.handleSendPromptWithImage)
	mux.HandleFunc("/api/prompt/history", s.handleSendPromptWithHistory)
	mux.HandleFunc("/api/models", s.handleListModels)
	mux.HandleFunc("/api/conversations", s.handleConversations)
	mux.HandleFunc("/api/conversations/", s.handleConversationMessages)
	mux.HandleFunc("/api/messages", s.handleSaveMessage)
	mux.HandleFunc("/api/messages/image", s.handleSaveMessageWithImage)
	mux.HandleFunc("/api/images", s.handleImages)
	mux.HandleFunc("/api/cleanup", s.handleCleanup)

	return s.logRequests(mux)
}

// statusWriter captures the response status for request logging.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// logRequests tags every request with a generated ID and logs its outcome.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.New().String()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		start := time.Now()
		next.ServeHTTP(sw, r)

		s.logger.Debug("request",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration", time.Since(start))
	})
}

// errorResponse is the JSON error body. Code is set only for errors the UI
// is expected to branch on.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func (s *Server) sendJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) sendJSONError(w http.ResponseWriter, status int, msg string) {
	s.sendJSON(w, status, errorResponse{Error: msg})
}

// sendGatewayError renders a gateway failure. Sentinel categories keep
// their guidance text; vision failures additionally carry a code so the UI
// can offer a text-only retry.
func (s *Server) sendGatewayError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ollama.ErrVisionUnsupported):
		s.sendJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error: "The selected model cannot process images. Choose a vision-capable model or resend as text.",
			Code:  "vision_unsupported",
		})
	case errors.Is(err, ollama.ErrUnavailable):
		s.sendJSONError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, ollama.ErrTimeout):
		s.sendJSONError(w, http.StatusGatewayTimeout, err.Error())
	default:
		var statusErr *ollama.StatusError
		if errors.As(err, &statusErr) {
			s.sendJSONError(w, http.StatusBadGateway, err.Error())
			return
		}
		s.logger.Error("gateway call failed", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, err.Error())
	}
}

// sendStoreError renders a persistence failure.
func (s *Server) sendStoreError(w http.ResponseWriter, err error) {
	s.logger.Error("store operation failed", "error", err)
	s.sendJSONError(w, http.StatusInternalServerError, "database error: "+err.Error())
}

// now returns the current timestamp in the stored layout.
func now() string {
	return time.Now().UTC().Format(timeFormat)
}
