// ABOUTME: Tests for the Ollama gateway client
// ABOUTME: Verifies wire format, error classification, and the liveness probe

package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unreachableURL points at a server that has already been shut down, so the
// port is closed and connections are refused.
func unreachableURL(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()
	return url
}

func TestCheckConnection_Reachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	assert.True(t, c.CheckConnection(context.Background()))
}

func TestCheckConnection_Unreachable(t *testing.T) {
	c := New(unreachableURL(t), time.Second)
	assert.False(t, c.CheckConnection(context.Background()))
}

func TestCheckConnection_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	assert.False(t, c.CheckConnection(context.Background()))
}

func TestSendPrompt_Success(t *testing.T) {
	var got ChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		json.NewEncoder(w).Encode(ChatResponse{
			Message: ChatMessage{Role: "assistant", Content: "hello there"},
			Done:    true,
		})
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	reply, err := c.SendPrompt(context.Background(), "hi", "gemma3:4b")
	require.NoError(t, err)
	assert.Equal(t, "hello there", reply)

	assert.Equal(t, "gemma3:4b", got.Model)
	assert.False(t, got.Stream)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Equal(t, "hi", got.Messages[0].Content)
	assert.Empty(t, got.Messages[0].Images)
}

func TestSendPromptWithImage_AttachesImage(t *testing.T) {
	var got ChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(ChatResponse{
			Message: ChatMessage{Role: "assistant", Content: "a cat"},
			Done:    true,
		})
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	reply, err := c.SendPromptWithImage(context.Background(), "what is this?", "aW1hZ2U=", "llava")
	require.NoError(t, err)
	assert.Equal(t, "a cat", reply)

	require.Len(t, got.Messages, 1)
	assert.Equal(t, []string{"aW1hZ2U="}, got.Messages[0].Images)
}

func TestSendPromptWithHistory_PreservesOrder(t *testing.T) {
	var got ChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(ChatResponse{
			Message: ChatMessage{Role: "assistant", Content: "ok"},
			Done:    true,
		})
	}))
	defer srv.Close()

	history := []ChatMessage{
		{Role: "user", Content: "first"},
		{Role: "assistant", Content: "second"},
		{Role: "user", Content: "third", Images: []string{"aW1n"}},
	}

	c := New(srv.URL, time.Second)
	_, err := c.SendPromptWithHistory(context.Background(), history, "gemma3:4b")
	require.NoError(t, err)

	assert.Equal(t, history, got.Messages)
}

func TestSendingOps_Unreachable(t *testing.T) {
	c := New(unreachableURL(t), time.Second)
	ctx := context.Background()

	_, err := c.SendPrompt(ctx, "hi", "m")
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = c.SendPromptWithImage(ctx, "hi", "aW1n", "m")
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = c.SendPromptWithHistory(ctx, []ChatMessage{{Role: "user", Content: "hi"}}, "m")
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = c.ListModels(ctx)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestSendPrompt_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer srv.Close()

	c := New(srv.URL, 50*time.Millisecond)
	_, err := c.SendPrompt(context.Background(), "hi", "m")
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestChatError_VisionClassification(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{"vision keyword", `{"error":"this model does not support vision"}`, ErrVisionUnsupported},
		{"image keyword", `{"error":"image input is not supported"}`, ErrVisionUnsupported},
		{"multimodal keyword", `{"error":"not a multimodal model"}`, ErrVisionUnsupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, tt.body, http.StatusBadRequest)
			}))
			defer srv.Close()

			c := New(srv.URL, time.Second)
			_, err := c.SendPromptWithImage(context.Background(), "hi", "aW1n", "m")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestChatError_GenericStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	_, err := c.SendPrompt(context.Background(), "hi", "nope")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrVisionUnsupported)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	assert.Contains(t, statusErr.Body, "model not found")
}

func TestSendPrompt_MalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json at all"))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	_, err := c.SendPrompt(context.Background(), "hi", "m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding chat response")
}

func TestListModels_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/tags", r.URL.Path)
		w.Write([]byte(`{"models":[
			{"name":"gemma3:4b","size":3338801804,"digest":"a2af6cc3eb7f","modified_at":"2025-08-01T12:00:00Z"},
			{"name":"llava:7b","size":4733363377,"digest":"8dd30f6b0cb1","modified_at":"2025-07-15T09:30:00Z"}
		]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	models, err := c.ListModels(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Equal(t, "gemma3:4b", models[0].Name)
	assert.Equal(t, int64(3338801804), models[0].Size)
	assert.Equal(t, "a2af6cc3eb7f", models[0].Digest)
	assert.Equal(t, "2025-08-01T12:00:00Z", models[0].ModifiedAt)
}

func TestDefaults(t *testing.T) {
	c := New("", 0)
	assert.Equal(t, DefaultBaseURL, c.baseURL)
	assert.Equal(t, DefaultTimeout, c.http.Timeout)
}
