// Package ollama is a thin client for a locally running Ollama server.
//
// # Overview
//
// The client wraps two endpoints:
//
//   - POST /api/chat — non-streaming chat completion
//   - GET /api/tags — model registry listing
//
// plus a GET / liveness probe. Streaming is always disabled; every call is
// one synchronous request/response round trip with no retries or backoff.
//
// # Error Classification
//
// Failures map to a closed taxonomy so callers can branch on kind instead
// of matching strings:
//
//   - ErrUnavailable: server unreachable (errors.Is)
//   - ErrTimeout: timeout budget exceeded (errors.Is)
//   - ErrVisionUnsupported: model rejected an image attachment (errors.Is)
//   - *StatusError: any other non-success response (errors.As)
//
// CheckConnection is exempt: a probe failure is false, never an error.
package ollama
