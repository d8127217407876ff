// Package discord posts messages and files to Discord channels over the REST API.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/riverfjs/chatstream-go/internal/util"
)

const (
	// DefaultAPIBase is the Discord REST endpoint.
	DefaultAPIBase = "https://discord.com/api/v10"
	// MaxContentLength is the message content cap enforced by Discord.
	MaxContentLength = 2000

	maxRetries = 3
)

// APIError is a non-2xx response from Discord.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("discord api %s %s: %d %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Config configures a Client.
type Config struct {
	Token   string
	APIBase string
	// RatePerSecond and Burst bound outgoing requests across all channels.
	RatePerSecond float64
	Burst         int
}

// File is an attachment to upload.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Client is safe for concurrent use.
type Client struct {
	apiBase    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewClient creates a Client.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.APIBase == "" {
		cfg.APIBase = DefaultAPIBase
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 5
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 5
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		apiBase:    strings.TrimRight(cfg.APIBase, "/"),
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
		logger:     logger,
	}
}

type messagePayload struct {
	Content         string           `json:"content,omitempty"`
	AllowedMentions *allowedMentions `json:"allowed_mentions,omitempty"`
	Attachments     []attachmentRef  `json:"attachments,omitempty"`
}

type allowedMentions struct {
	Parse []string `json:"parse"`
}

type attachmentRef struct {
	ID       int    `json:"id"`
	Filename string `json:"filename"`
}

// SendMessage posts content to a channel and returns the new message ID.
func (c *Client) SendMessage(ctx context.Context, channelID, content string) (string, error) {
	if n := util.UTF16Len(content); n > MaxContentLength {
		return "", fmt.Errorf("message content is %d characters, over the %d limit", n, MaxContentLength)
	}
	payload := messagePayload{Content: content, AllowedMentions: &allowedMentions{Parse: []string{}}}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return c.postMessage(ctx, channelID, "application/json", func() io.Reader { return bytes.NewReader(body) })
}

// SendFiles posts files with an optional caption.
func (c *Client) SendFiles(ctx context.Context, channelID, content string, files []File) (string, error) {
	payload := messagePayload{Content: content, AllowedMentions: &allowedMentions{Parse: []string{}}}
	for i, f := range files {
		payload.Attachments = append(payload.Attachments, attachmentRef{ID: i, Filename: f.Name})
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	pj, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	if err := w.WriteField("payload_json", string(pj)); err != nil {
		return "", err
	}
	for i, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files[%d]"; filename=%q`, i, f.Name))
		ct := f.ContentType
		if ct == "" {
			ct = http.DetectContentType(f.Data)
		}
		h.Set("Content-Type", ct)
		part, err := w.CreatePart(h)
		if err != nil {
			return "", err
		}
		if _, err := part.Write(f.Data); err != nil {
			return "", err
		}
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	body := buf.Bytes()
	return c.postMessage(ctx, channelID, w.FormDataContentType(), func() io.Reader { return bytes.NewReader(body) })
}

// postMessage retries on 429 after the advertised retry_after.
func (c *Client) postMessage(ctx context.Context, channelID, contentType string, body func() io.Reader) (string, error) {
	path := fmt.Sprintf("/channels/%s/messages", channelID)

	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+path, body())
		if err != nil {
			return "", err
		}
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Authorization", "Bot "+c.token)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return "", fmt.Errorf("discord api POST %s: %w", path, err)
		}
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests && attempt < maxRetries {
			wait := retryAfter(respBody)
			c.logger.Warn("discord rate limited", "path", path, "retry_after", wait)
			select {
			case <-time.After(wait):
				continue
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
		if resp.StatusCode >= 400 {
			return "", &APIError{Method: http.MethodPost, Path: path, StatusCode: resp.StatusCode, Body: string(respBody)}
		}

		var msg struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(respBody, &msg); err != nil {
			return "", fmt.Errorf("decode message: %w", err)
		}
		return msg.ID, nil
	}
}

func retryAfter(body []byte) time.Duration {
	var r struct {
		RetryAfter float64 `json:"retry_after"`
	}
	if json.Unmarshal(body, &r) != nil || r.RetryAfter <= 0 {
		return time.Second
	}
	return time.Duration(r.RetryAfter * float64(time.Second))
}
