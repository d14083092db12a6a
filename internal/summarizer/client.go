// Package summarizer provides the HTTP client for the external AI
// summarization service.
package summarizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// Result is a successful summarization response.
type Result struct {
	Summary string
	Model   string
}

// Client defines the summarization interface. Implementations make a single
// attempt per call; retrying is the caller's decision.
type Client interface {
	Summarize(ctx context.Context, text string, maxLength int) (*Result, error)
}

// Reason classifies a summarization failure.
type Reason string

const (
	// ReasonRejected means the provider answered with a non-success status.
	ReasonRejected Reason = "rejected"
	// ReasonUnreachable means the provider could not be reached or timed out.
	ReasonUnreachable Reason = "unreachable"
	// ReasonInvalidResponse means the provider's response could not be parsed.
	ReasonInvalidResponse Reason = "invalid-response"
)

// Error is a summarization failure. Body carries the provider's raw error
// text when the provider rejected the request.
type Error struct {
	Reason Reason
	Status int
	Body   string
	cause  error
}

func (e *Error) Error() string {
	switch e.Reason {
	case ReasonRejected:
		return fmt.Sprintf("summarizer: provider rejected request (status %d): %s", e.Status, e.Body)
	case ReasonUnreachable:
		return fmt.Sprintf("summarizer: provider unreachable: %v", e.cause)
	default:
		return fmt.Sprintf("summarizer: invalid provider response: %v", e.cause)
	}
}

func (e *Error) Unwrap() error { return e.cause }

// HTTPClient talks to the summarization service over HTTP.
// The base URL may be swapped at runtime via SetBaseURL (config hot reload).
type HTTPClient struct {
	mu      sync.RWMutex
	baseURL string
	client  *http.Client
}

// NewHTTPClient creates a client for the service at baseURL. The timeout
// bounds the whole request; there is no retry or backoff.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// SetBaseURL replaces the service base URL. In-flight calls keep the URL they
// started with.
func (c *HTTPClient) SetBaseURL(u string) {
	c.mu.Lock()
	c.baseURL = u
	c.mu.Unlock()
}

// BaseURL returns the current service base URL.
func (c *HTTPClient) BaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL
}

type summarizeRequest struct {
	Text      string `json:"text"`
	MaxLength int    `json:"max_length"`
}

type summarizeResponse struct {
	Summary string `json:"summary"`
	AIModel string `json:"ai_model"`
}

// Summarize sends text to the provider and blocks until it answers or the
// client timeout fires. A single attempt per call.
func (c *HTTPClient) Summarize(ctx context.Context, text string, maxLength int) (*Result, error) {
	payload, err := json.Marshal(summarizeRequest{Text: text, MaxLength: maxLength})
	if err != nil {
		return nil, fmt.Errorf("summarizer: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL()+"/summarize", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("summarizer: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &Error{Reason: ReasonUnreachable, cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &Error{Reason: ReasonUnreachable, cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &Error{Reason: ReasonRejected, Status: resp.StatusCode, Body: string(body)}
	}

	var parsed summarizeResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &Error{Reason: ReasonInvalidResponse, cause: err}
	}
	if parsed.Summary == "" {
		return nil, &Error{Reason: ReasonInvalidResponse, cause: fmt.Errorf("empty summary in response")}
	}
	return &Result{Summary: parsed.Summary, Model: parsed.AIModel}, nil
}
