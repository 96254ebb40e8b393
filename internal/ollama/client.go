// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the Ollama client.
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeNotRunning
	ErrTypeTimeout
	ErrTypeModelNotFound
	ErrTypeConnection
	ErrTypeInvalidResponse
)

// Sentinel errors for easy checking.
var (
	ErrNotRunning    = &ClientError{Type: ErrTypeNotRunning, Message: "Ollama is not running"}
	ErrTimeout       = &ClientError{Type: ErrTypeTimeout, Message: "request timed out"}
	ErrModelNotFound = &ClientError{Type: ErrTypeModelNotFound, Message: "model not found"}
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration options for the Ollama client.
type ClientConfig struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434)
	BaseURL string

	// Timeout for non-streaming requests (default: 30s). Streaming requests
	// are bounded by their context only.
	Timeout time.Duration

	// DefaultModel is used when a call passes an empty model name.
	DefaultModel string
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:      "http://localhost:11434",
		Timeout:      30 * time.Second,
		DefaultModel: "mistral-7b-sage",
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client handles communication with the Ollama API.
// The Client is safe for concurrent use.
type Client struct {
	config       *ClientConfig
	httpClient   *http.Client
	streamClient *http.Client
}

// NewClient creates a new Ollama client with default configuration.
func NewClient() *Client {
	return NewClientWithConfig(DefaultConfig())
}

// NewClientWithConfig creates a new Ollama client with custom configuration.
// Zero fields fall back to DefaultConfig.
func NewClientWithConfig(config *ClientConfig) *Client {
	d := DefaultConfig()
	if config == nil {
		config = d
	}
	cfg := *config
	if cfg.BaseURL == "" {
		cfg.BaseURL = d.BaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout == 0 {
		cfg.Timeout = d.Timeout
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = d.DefaultModel
	}

	return &Client{
		config:       &cfg,
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		streamClient: &http.Client{},
	}
}

// Config returns a copy of the client configuration.
func (c *Client) Config() ClientConfig {
	return *c.config
}

// DefaultModel returns the model used when none is specified.
func (c *Client) DefaultModel() string {
	return c.config.DefaultModel
}

// =============================================================================
// REQUEST HELPERS
// =============================================================================

func (c *Client) newRequest(ctx context.Context, method, path string, body interface{}) (*http.Request, error) {
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
		}
		rdr = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, rdr)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// transportError maps an http.Client.Do failure to a sentinel.
func transportError(err error) error {
	var netTimeout interface{ Timeout() bool }
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) ||
		(errors.As(err, &netTimeout) && netTimeout.Timeout()) {
		return ErrTimeout
	}
	return ErrNotRunning
}

// statusError converts a non-200 response into a ClientError, preferring
// the API's own error message.
func statusError(resp *http.Response, what string) error {
	if resp.StatusCode == http.StatusNotFound {
		return ErrModelNotFound
	}
	var apiErr OllamaError
	if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
		if strings.Contains(apiErr.Error, "not found") {
			return &ClientError{Type: ErrTypeModelNotFound, Message: apiErr.Error}
		}
		return &ClientError{Type: ErrTypeInvalidResponse, Message: apiErr.Error}
	}
	return &ClientError{Type: ErrTypeInvalidResponse, Message: what + ": " + resp.Status}
}

func (c *Client) doJSON(req *http.Request, what string, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportError(err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return statusError(resp, what)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}
	return nil
}

// =============================================================================
// HEALTH CHECK
// =============================================================================

// CheckRunning verifies that Ollama is reachable and running.
func (c *Client) CheckRunning(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportError(err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return &ClientError{Type: ErrTypeNotRunning, Message: "unexpected status: " + resp.Status}
	}
	return nil
}

// =============================================================================
// MODEL OPERATIONS
// =============================================================================

// ListModels retrieves all locally available models.
func (c *Client) ListModels(ctx context.Context) ([]ModelInfo, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/tags", nil)
	if err != nil {
		return nil, err
	}
	var result ListModelsResponse
	if err := c.doJSON(req, "failed to list models", &result); err != nil {
		return nil, err
	}
	return result.Models, nil
}

// GetModel retrieves information about a specific model.
func (c *Client) GetModel(ctx context.Context, name string) (*ShowModelResponse, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/api/show", ShowModelRequest{Name: name})
	if err != nil {
		return nil, err
	}
	var result ShowModelResponse
	if err := c.doJSON(req, "failed to get model", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ModelExists reports whether the model is available locally.
func (c *Client) ModelExists(ctx context.Context, name string) bool {
	_, err := c.GetModel(ctx, name)
	return err == nil
}

// =============================================================================
// CHAT OPERATIONS
// =============================================================================

// Chat sends a chat request and returns the complete response.
func (c *Client) Chat(ctx context.Context, model string, messages []Message) (*ChatResponse, error) {
	if model == "" {
		model = c.config.DefaultModel
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/api/chat", ChatRequest{
		Model:    model,
		Messages: messages,
		Stream:   false,
	})
	if err != nil {
		return nil, err
	}
	var result ChatResponse
	if err := c.doJSON(req, "chat request failed", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// StreamCallback is called for each chunk received during streaming.
type StreamCallback func(chunk StreamChunk)

// ChatStream sends a streaming chat request and calls the callback for each
// chunk, synchronously and in order. Returns when the stream completes.
func (c *Client) ChatStream(ctx context.Context, model string, messages []Message, callback StreamCallback) error {
	if model == "" {
		model = c.config.DefaultModel
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/api/chat", ChatRequest{
		Model:    model,
		Messages: messages,
		Stream:   true,
	})
	if err != nil {
		return err
	}

	// Local HTTP; no client timeout since generation can run for minutes.
	resp, err := c.streamClient.Do(req)
	if err != nil {
		return transportError(err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return statusError(resp, "stream request failed")
	}
	return NewStreamReader(resp.Body).Process(ctx, callback)
}

// ChatStreamChan is ChatStream delivered over a channel. The channel closes
// when streaming ends; a failure arrives as a final chunk with Error set.
func (c *Client) ChatStreamChan(ctx context.Context, model string, messages []Message) <-chan StreamChunk {
	ch := make(chan StreamChunk)
	go func() {
		defer close(ch)
		err := c.ChatStream(ctx, model, messages, func(chunk StreamChunk) {
			select {
			case ch <- chunk:
			case <-ctx.Done():
			}
		})
		if err != nil {
			select {
			case ch <- StreamChunk{Error: err, Done: true}:
			case <-ctx.Done():
			}
		}
	}()
	return ch
}

// =============================================================================
// ERROR CLASSIFICATION
// =============================================================================

func errorType(err error) (ErrorType, bool) {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type, true
	}
	return ErrTypeUnknown, false
}

// IsModelNotFound checks if an error is a model not found error.
func IsModelNotFound(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrTypeModelNotFound
}

// IsNotRunning checks if an error indicates Ollama is not running.
func IsNotRunning(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrTypeNotRunning
}

// IsTimeout checks if an error is a timeout error.
func IsTimeout(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrTypeTimeout
}

// Hint returns a one-line suggestion for common failures, or "".
func Hint(err error) string {
	switch {
	case IsNotRunning(err):
		return "Start the runtime with 'ollama serve' and try again."
	case IsModelNotFound(err):
		return "Run 'sage setup' to build the model."
	case IsTimeout(err):
		return "The request timed out; the model may still be loading."
	}
	return ""
}

func drainAndClose(r io.ReadCloser) {
	io.Copy(io.Discard, r)
	r.Close()
}
