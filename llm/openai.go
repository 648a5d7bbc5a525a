package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/pithecene-io/codestory/iox"
)

// DefaultTimeout is the client-level HTTP timeout when Options.Timeout is unset.
const DefaultTimeout = 60 * time.Second

// Options configures an OpenAIClient.
type Options struct {
	// BaseURL, e.g. https://api.openai.com/v1.
	BaseURL string
	// EndpointPath is appended to BaseURL; a full http(s) URL replaces it.
	EndpointPath string
	// Model is used when a request does not name one.
	Model  string
	APIKey string
	// DisableAuth skips the Authorization: Bearer header, for gateways
	// that authenticate through ExtraHeaders.
	DisableAuth  bool
	ExtraHeaders map[string]string
	Timeout      time.Duration
}

// OpenAIClient calls an OpenAI-compatible /chat/completions endpoint.
type OpenAIClient struct {
	url          string
	model        string
	apiKey       string
	disableAuth  bool
	extraHeaders map[string]string
	do           func(*http.Request) (*http.Response, error)
}

// NewOpenAIClient validates opts and builds a client.
func NewOpenAIClient(opts Options) (*OpenAIClient, error) {
	if opts.APIKey == "" && !opts.DisableAuth {
		return nil, fmt.Errorf("openai: %w: missing api key", ErrInvalidInput)
	}
	if opts.Model == "" {
		return nil, fmt.Errorf("openai: %w: missing model", ErrInvalidInput)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	hc := &http.Client{
		Timeout: opts.Timeout,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}

	return &OpenAIClient{
		url:          joinURL(opts.BaseURL, opts.EndpointPath),
		model:        opts.Model,
		apiKey:       opts.APIKey,
		disableAuth:  opts.DisableAuth,
		extraHeaders: opts.ExtraHeaders,
		do:           hc.Do,
	}, nil
}

// URL returns the resolved endpoint.
func (c *OpenAIClient) URL() string { return c.url }

// joinURL joins base and path with exactly one slash. A path that is
// already a full URL wins.
func joinURL(base, path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

type oaRequest struct {
	Model          string            `json:"model"`
	Messages       []Message         `json:"messages"`
	Temperature    *float64          `json:"temperature,omitempty"`
	MaxTokens      int               `json:"max_tokens,omitempty"`
	ResponseFormat *oaResponseFormat `json:"response_format,omitempty"`
}

type oaResponseFormat struct {
	Type       string        `json:"type"`
	JSONSchema *oaJSONSchema `json:"json_schema,omitempty"`
}

type oaJSONSchema struct {
	Name   string          `json:"name"`
	Schema json.RawMessage `json:"schema"`
	Strict bool            `json:"strict"`
}

type oaResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
}

// Chat sends one completion request and returns the first choice.
func (c *OpenAIClient) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	if len(req.Messages) == 0 {
		return ChatResponse{}, fmt.Errorf("openai: %w: no messages", ErrInvalidInput)
	}

	body := oaRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if body.Model == "" {
		body.Model = c.model
	}
	if req.Schema != nil {
		body.ResponseFormat = &oaResponseFormat{
			Type:       "json_schema",
			JSONSchema: &oaJSONSchema{Name: req.Schema.Name, Schema: req.Schema.Schema, Strict: true},
		}
	}
	payload, err := json.Marshal(&body)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("openai: encode request: %v: %w", err, ErrInvalidInput)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return ChatResponse{}, fmt.Errorf("openai: new request: %v: %w", err, ErrInvalidInput)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if !c.disableAuth {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	for k, v := range c.extraHeaders {
		if k != "" {
			httpReq.Header.Set(k, v)
		}
	}

	resp, err := c.do(httpReq)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ChatResponse{}, ctxErr
			}
		}
		return ChatResponse{}, fmt.Errorf("openai: request failed: %w", err)
	}
	defer iox.DiscardClose(resp.Body)

	if resp.StatusCode == http.StatusTooManyRequests {
		return ChatResponse{}, ErrRateLimited
	}
	if resp.StatusCode/100 != 2 {
		slurp, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		msg := strings.TrimSpace(string(slurp))
		if resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode/100 == 5 {
			return ChatResponse{}, &UpstreamError{Status: resp.StatusCode, Message: msg}
		}
		return ChatResponse{}, fmt.Errorf("openai upstream %d: %s: %w", resp.StatusCode, msg, ErrInvalidInput)
	}

	var decoded oaResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return ChatResponse{}, fmt.Errorf("openai: decode response: %v: %w", err, ErrResponseInvalid)
	}
	if len(decoded.Choices) == 0 || strings.TrimSpace(decoded.Choices[0].Message.Content) == "" {
		return ChatResponse{}, fmt.Errorf("openai: empty completion: %w", ErrResponseInvalid)
	}

	return ChatResponse{
		Content:      decoded.Choices[0].Message.Content,
		FinishReason: strings.TrimSpace(decoded.Choices[0].FinishReason),
		Model:        decoded.Model,
	}, nil
}

// Verify OpenAIClient implements Client.
var _ Client = (*OpenAIClient)(nil)
