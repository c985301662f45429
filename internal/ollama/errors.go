// ABOUTME: Error taxonomy for the Ollama gateway client
// ABOUTME: Sentinels for unreachable/timeout/vision failures plus StatusError for the rest

package ollama

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Sentinel errors callers can branch on with errors.Is. The wrapped message
// carries the operator guidance; the sentinel carries the category.
var (
	// ErrUnavailable means the Ollama server could not be reached at all.
	ErrUnavailable = errors.New("cannot connect to Ollama server")

	// ErrTimeout means the request exceeded the client timeout budget.
	ErrTimeout = errors.New("request to Ollama server timed out")

	// ErrVisionUnsupported means the selected model rejected an image
	// attachment. Callers can fall back to a text-only retry.
	ErrVisionUnsupported = errors.New("model does not support vision input")
)

// StatusError is any other non-success HTTP response, kept whole for
// diagnostics.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("ollama returned HTTP %d: %s", e.StatusCode, e.Body)
}

// classifyTransport maps a transport-level failure to the error taxonomy.
func classifyTransport(err error) error {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%w: the model may still be loading, or the prompt is too large", ErrTimeout)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: the model may still be loading, or the prompt is too large", ErrTimeout)
	}
	return fmt.Errorf("%w: start it with 'ollama serve' (%v)", ErrUnavailable, err)
}

// classifyStatus maps a non-success chat response to the error taxonomy.
// Bodies mentioning vision/image/multimodal capability indicate the model
// cannot accept image attachments.
func classifyStatus(statusCode int, body []byte) error {
	text := string(body)
	lower := strings.ToLower(text)
	if strings.Contains(lower, "vision") || strings.Contains(lower, "image") || strings.Contains(lower, "multimodal") {
		return ErrVisionUnsupported
	}
	return &StatusError{StatusCode: statusCode, Body: text}
}
