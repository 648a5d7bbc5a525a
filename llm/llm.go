// Package llm talks to the single configured OpenAI-compatible chat
// completions provider.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Error classes callers branch on.
var (
	// ErrRateLimited is returned for HTTP 429.
	ErrRateLimited = errors.New("rate limited")
	// ErrResponseInvalid is returned when the provider answers with
	// something that is not a usable completion.
	ErrResponseInvalid = errors.New("response invalid")
	// ErrInvalidInput is returned for bad requests and non-retriable 4xx.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnavailable is returned while the failure guard is open.
	ErrUnavailable = errors.New("provider temporarily unavailable")
)

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Schema asks the provider for strict JSON matching a JSON schema.
type Schema struct {
	Name   string
	Schema json.RawMessage
}

// ChatRequest is a single completion request.
type ChatRequest struct {
	Model       string
	Messages    []Message
	Temperature *float64
	MaxTokens   int
	// Schema, when set, switches the response format to json_schema.
	Schema *Schema
}

// ChatResponse is the first choice of a completion.
type ChatResponse struct {
	Content      string
	FinishReason string
	Model        string
}

// Client sends chat completions.
type Client interface {
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)
}

// UpstreamError reports a 408 or 5xx answer from the provider.
// Timeout and Temporary follow net.Error so callers can classify it.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("llm upstream %d: %s", e.Status, e.Message)
}

// Timeout reports whether the provider timed out the request.
func (e *UpstreamError) Timeout() bool { return e.Status == http.StatusRequestTimeout }

// Temporary reports whether retrying later may succeed.
func (e *UpstreamError) Temporary() bool { return e.Status/100 == 5 }
