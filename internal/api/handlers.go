// ABOUTME: HTTP handlers for the UI-facing operation surface
// ABOUTME: One handler per operation: prompts, models, conversations, messages, images

package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/emberchat/emberchat/internal/images"
	"github.com/emberchat/emberchat/internal/ollama"
	"github.com/emberchat/emberchat/internal/store"
)

// HealthResponse is the JSON response for GET /api/health.
type HealthResponse struct {
	Connected bool `json:"connected"`
}

// handleHealth handles GET /api/health. It probes the inference server and
// never fails: unreachable simply reads as connected=false.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	s.sendJSON(w, http.StatusOK, HealthResponse{
		Connected: s.gateway.CheckConnection(r.Context()),
	})
}

// SendPromptRequest is the JSON request body for POST /api/prompt.
type SendPromptRequest struct {
	Prompt string `json:"prompt"`
	Model  string `json:"model"`
}

// PromptResponse is the JSON response for all prompt operations.
type PromptResponse struct {
	Response string `json:"response"`
}

// handleSendPrompt handles POST /api/prompt.
func (s *Server) handleSendPrompt(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req SendPromptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Prompt == "" || req.Model == "" {
		s.sendJSONError(w, http.StatusBadRequest, "prompt and model are required")
		return
	}

	reply, err := s.gateway.SendPrompt(r.Context(), req.Prompt, req.Model)
	if err != nil {
		s.sendGatewayError(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, PromptResponse{Response: reply})
}

// SendPromptWithImageRequest is the JSON request body for POST /api/prompt/image.
type SendPromptWithImageRequest struct {
	Prompt      string `json:"prompt"`
	ImageBase64 string `json:"image_base64"`
	Model       string `json:"model"`
}

// handleSendPromptWithImage handles POST /api/prompt/image.
func (s *Server) handleSendPromptWithImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req SendPromptWithImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Prompt == "" || req.Model == "" || req.ImageBase64 == "" {
		s.sendJSONError(w, http.StatusBadRequest, "prompt, image_base64 and model are required")
		return
	}

	reply, err := s.gateway.SendPromptWithImage(r.Context(), req.Prompt, req.ImageBase64, req.Model)
	if err != nil {
		s.sendGatewayError(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, PromptResponse{Response: reply})
}

// SendPromptWithHistoryRequest is the JSON request body for POST /api/prompt/history.
type SendPromptWithHistoryRequest struct {
	Messages []ollama.ChatMessage `json:"messages"`
	Model    string               `json:"model"`
}

// handleSendPromptWithHistory handles POST /api/prompt/history. The message
// order is passed to the gateway exactly as supplied.
func (s *Server) handleSendPromptWithHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req SendPromptWithHistoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Messages) == 0 || req.Model == "" {
		s.sendJSONError(w, http.StatusBadRequest, "messages and model are required")
		return
	}

	reply, err := s.gateway.SendPromptWithHistory(r.Context(), req.Messages, req.Model)
	if err != nil {
		s.sendGatewayError(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, PromptResponse{Response: reply})
}

// ListModelsResponse is the JSON response for GET /api/models.
type ListModelsResponse struct {
	Models []ollama.Model `json:"models"`
}

// handleListModels handles GET /api/models.
func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	models, err := s.gateway.ListModels(r.Context())
	if err != nil {
		s.sendGatewayError(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, ListModelsResponse{Models: models})
}

// CreateConversationResponse is the JSON response for POST /api/conversations.
type CreateConversationResponse struct {
	ID        int64  `json:"id"`
	CreatedAt string `json:"created_at"`
}

// ListConversationsResponse is the JSON response for GET /api/conversations.
type ListConversationsResponse struct {
	Conversations []*store.Conversation `json:"conversations"`
}

// handleConversations handles POST (create) and GET (list) on
// /api/conversations.
func (s *Server) handleConversations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		createdAt := now()
		id, err := s.store.CreateConversation(r.Context(), createdAt)
		if err != nil {
			s.sendStoreError(w, err)
			return
		}
		s.sendJSON(w, http.StatusOK, CreateConversationResponse{ID: id, CreatedAt: createdAt})

	case http.MethodGet:
		conversations, err := s.store.ListConversations(r.Context())
		if err != nil {
			s.sendStoreError(w, err)
			return
		}
		s.sendJSON(w, http.StatusOK, ListConversationsResponse{Conversations: conversations})

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// MessageResponse is one message in GET /api/conversations/{id}/messages.
// Rendered carries the assistant content converted to HTML so the UI needs
// no Markdown stack of its own.
type MessageResponse struct {
	ID             int64   `json:"id"`
	ConversationID int64   `json:"conversation_id"`
	Role           string  `json:"role"`
	Content        string  `json:"content"`
	Rendered       string  `json:"rendered,omitempty"`
	InputType      string  `json:"input_type"`
	ImagePath      *string `json:"image_path,omitempty"`
	ImageFilename  *string `json:"image_filename,omitempty"`
	ImageSize      *int64  `json:"image_size,omitempty"`
	Timestamp      string  `json:"timestamp"`
}

// ListMessagesResponse is the JSON response for GET /api/conversations/{id}/messages.
type ListMessagesResponse struct {
	ConversationID int64             `json:"conversation_id"`
	Messages       []MessageResponse `json:"messages"`
}

// handleConversationMessages handles GET /api/conversations/{id}/messages.
func (s *Server) handleConversationMessages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/conversations/")
	idStr, ok := strings.CutSuffix(rest, "/messages")
	if !ok {
		http.NotFound(w, r)
		return
	}
	conversationID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		s.sendJSONError(w, http.StatusBadRequest, "invalid conversation id")
		return
	}

	messages, err := s.store.GetMessages(r.Context(), conversationID)
	if err != nil {
		s.sendStoreError(w, err)
		return
	}

	resp := ListMessagesResponse{
		ConversationID: conversationID,
		Messages:       make([]MessageResponse, 0, len(messages)),
	}
	for _, msg := range messages {
		resp.Messages = append(resp.Messages, MessageResponse{
			ID:             msg.ID,
			ConversationID: msg.ConversationID,
			Role:           msg.Role,
			Content:        msg.Content,
			Rendered:       s.renderMarkdown(msg),
			InputType:      msg.InputType,
			ImagePath:      msg.ImagePath,
			ImageFilename:  msg.ImageFilename,
			ImageSize:      msg.ImageSize,
			Timestamp:      msg.Timestamp,
		})
	}
	s.sendJSON(w, http.StatusOK, resp)
}

// renderMarkdown converts assistant content to HTML. User messages are
// returned verbatim by the UI, so only assistant turns are rendered.
func (s *Server) renderMarkdown(msg *store.Message) string {
	if msg.Role != store.RoleAssistant {
		return ""
	}
	var buf bytes.Buffer
	if err := s.md.Convert([]byte(msg.Content), &buf); err != nil {
		s.logger.Error("failed to render markdown", "message_id", msg.ID, "error", err)
		return ""
	}
	return buf.String()
}

// SaveMessageRequest is the JSON request body for POST /api/messages.
type SaveMessageRequest struct {
	ConversationID int64  `json:"conversation_id"`
	Role           string `json:"role"`
	Content        string `json:"content"`
}

// handleSaveMessage handles POST /api/messages. The timestamp is assigned
// here, at insertion time.
func (s *Server) handleSaveMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req SaveMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ConversationID <= 0 || req.Role == "" {
		s.sendJSONError(w, http.StatusBadRequest, "conversation_id and role are required")
		return
	}

	if err := s.store.SaveMessage(r.Context(), req.ConversationID, req.Role, req.Content, now()); err != nil {
		s.sendStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SaveMessageWithImageRequest is the JSON request body for POST /api/messages/image.
// The three image fields should be supplied together.
type SaveMessageWithImageRequest struct {
	ConversationID int64   `json:"conversation_id"`
	Role           string  `json:"role"`
	Content        string  `json:"content"`
	InputType      string  `json:"input_type"`
	ImagePath      *string `json:"image_path"`
	ImageFilename  *string `json:"image_filename"`
	ImageSize      *int64  `json:"image_size"`
}

// handleSaveMessageWithImage handles POST /api/messages/image.
func (s *Server) handleSaveMessageWithImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req SaveMessageWithImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ConversationID <= 0 || req.Role == "" {
		s.sendJSONError(w, http.StatusBadRequest, "conversation_id and role are required")
		return
	}

	msg := &store.Message{
		ConversationID: req.ConversationID,
		Role:           req.Role,
		Content:        req.Content,
		InputType:      req.InputType,
		ImagePath:      req.ImagePath,
		ImageFilename:  req.ImageFilename,
		ImageSize:      req.ImageSize,
		Timestamp:      now(),
	}
	if err := s.store.SaveMessageWithImage(r.Context(), msg); err != nil {
		s.sendStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SaveImageRequest is the JSON request body for POST /api/images.
type SaveImageRequest struct {
	ConversationID int64  `json:"conversation_id"`
	Filename       string `json:"filename"`
	Data           string `json:"data"`
}

// FetchImageResponse is the JSON response for GET /api/images.
type FetchImageResponse struct {
	Data string `json:"data"`
}

// handleImages handles POST (save from base64) and GET (fetch as base64)
// on /api/images.
func (s *Server) handleImages(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req SaveImageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.sendJSONError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.ConversationID <= 0 || req.Data == "" {
			s.sendJSONError(w, http.StatusBadRequest, "conversation_id and data are required")
			return
		}

		saved, err := s.images.Save(req.ConversationID, req.Filename, req.Data)
		if err != nil {
			if errors.Is(err, images.ErrBadPayload) {
				s.sendJSONError(w, http.StatusBadRequest, err.Error())
				return
			}
			s.logger.Error("saving image failed", "error", err)
			s.sendJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.sendJSON(w, http.StatusOK, saved)

	case http.MethodGet:
		path := r.URL.Query().Get("path")
		if path == "" {
			s.sendJSONError(w, http.StatusBadRequest, "path is required")
			return
		}

		data, err := s.images.Load(path)
		if err != nil {
			s.sendJSONError(w, http.StatusNotFound, err.Error())
			return
		}
		s.sendJSON(w, http.StatusOK, FetchImageResponse{Data: data})

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleCleanup handles POST /api/cleanup. Returns the sweep report so the
// UI can surface failed deletions instead of silently ignoring them.
func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	report, err := s.store.CleanupOrphanedImages(r.Context(), s.images.Root())
	if err != nil {
		s.sendStoreError(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, report)
}
