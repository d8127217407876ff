// Package ollama is a small streaming client for the Ollama HTTP API.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// DefaultURL is used when no base URL is configured.
const DefaultURL = "http://127.0.0.1:11434"

// APIError is returned for non-2xx responses and for error frames inside a stream.
type APIError struct {
	StatusCode int // 0 for an in-stream error frame
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return "ollama: " + e.Message
	}
	if e.Message == "" {
		return fmt.Sprintf("ollama: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("ollama: HTTP %d: %s", e.StatusCode, e.Message)
}

// Client talks to one Ollama server.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client. Streams can run for minutes, so the
// client should not carry a short overall Timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a client for baseURL (DefaultURL when empty).
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the server address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Generate streams /api/generate, calling fn for each response fragment.
func (c *Client) Generate(ctx context.Context, req GenerateRequest, fn TokenFunc) error {
	req.Stream = true
	_, err := c.stream(ctx, "/api/generate", req, fn)
	return err
}

// Chat streams /api/chat, calling fn for each message fragment, and returns
// the full assistant reply.
func (c *Client) Chat(ctx context.Context, req ChatRequest, fn TokenFunc) (string, error) {
	req.Stream = true
	return c.stream(ctx, "/api/chat", req, fn)
}

func (c *Client) stream(ctx context.Context, path string, body any, fn TokenFunc) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	requestID := uuid.NewString()
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Request-ID", requestID)

	logger := c.logger.With("request_id", requestID, "path", path)
	logger.Debug("ollama request started")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("ollama request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", decodeAPIError(resp)
	}

	reader := NewStreamReader(resp.Body, logger)
	if err := reader.Process(ctx, fn); err != nil {
		return reader.Accumulated(), err
	}
	logger.Debug("ollama request finished", "model", reader.Model(), "fragments", reader.Fragments())
	return reader.Accumulated(), nil
}

func decodeAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		apiErr.Message = body.Error
	} else {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	return apiErr
}
