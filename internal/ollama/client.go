// ABOUTME: HTTP client for a local Ollama inference server
// ABOUTME: Wraps /api/chat and /api/tags with non-streaming requests and classified errors

package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	// DefaultBaseURL is the well-known local Ollama endpoint.
	DefaultBaseURL = "http://localhost:11434"

	// DefaultTimeout bounds every request. Long enough for model load and
	// large-context generation, short enough that a hung connection does
	// not block forever.
	DefaultTimeout = 120 * time.Second
)

// ChatMessage is one turn in the chat wire format. Images, when present,
// are base64-encoded attachments.
type ChatMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

// ChatRequest is the body of POST /api/chat. Stream is always false: the
// full answer comes back in a single response payload.
type ChatRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

// ChatResponse is the success body of POST /api/chat.
type ChatResponse struct {
	Message ChatMessage `json:"message"`
	Done    bool        `json:"done"`
}

// Model describes one entry from the server's model registry.
type Model struct {
	Name       string `json:"name"`
	Size       int64  `json:"size"`
	Digest     string `json:"digest"`
	ModifiedAt string `json:"modified_at"`
}

// modelsResponse is the success body of GET /api/tags.
type modelsResponse struct {
	Models []Model `json:"models"`
}

// Client is a stateless wrapper around the local Ollama server. It keeps no
// session; multi-turn context travels in the message history supplied by
// the caller. Safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// New creates a client for the server at baseURL. Zero values select
// DefaultBaseURL and DefaultTimeout.
func New(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		logger:  slog.Default().With("component", "ollama"),
	}
}

// CheckConnection reports whether the server is reachable and answering.
// This is a liveness probe: any failure yields false, never an error.
func (c *Client) CheckConnection(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// SendPrompt dispatches a single user message and returns the assistant's
// reply.
func (c *Client) SendPrompt(ctx context.Context, prompt, model string) (string, error) {
	return c.chat(ctx, ChatRequest{
		Model: model,
		Messages: []ChatMessage{
			{Role: "user", Content: prompt},
		},
		Stream: false,
	})
}

// SendPromptWithImage dispatches a single user message carrying one
// base64-encoded image attachment.
func (c *Client) SendPromptWithImage(ctx context.Context, prompt, imageBase64, model string) (string, error) {
	return c.chat(ctx, ChatRequest{
		Model: model,
		Messages: []ChatMessage{
			{Role: "user", Content: prompt, Images: []string{imageBase64}},
		},
		Stream: false,
	})
}

// SendPromptWithHistory dispatches an already-constructed message sequence,
// preserving the caller-supplied order exactly.
func (c *Client) SendPromptWithHistory(ctx context.Context, messages []ChatMessage, model string) (string, error) {
	return c.chat(ctx, ChatRequest{
		Model:    model,
		Messages: messages,
		Stream:   false,
	})
}

// chat executes one non-streaming chat round trip.
func (c *Client) chat(ctx context.Context, chatReq ChatRequest) (string, error) {
	body, err := json.Marshal(chatReq)
	if err != nil {
		return "", fmt.Errorf("encoding chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return "", classifyTransport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return "", classifyStatus(resp.StatusCode, raw)
	}

	var chatResp ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("decoding chat response: %w", err)
	}

	c.logger.Debug("chat complete",
		"model", chatReq.Model,
		"messages", len(chatReq.Messages),
		"duration", time.Since(start))
	return chatResp.Message.Content, nil
}

// ListModels queries the server's model registry.
func (c *Client) ListModels(ctx context.Context) ([]Model, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("creating tags request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classifyTransport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var tags modelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("decoding models response: %w", err)
	}
	return tags.Models, nil
}
