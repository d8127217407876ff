// Package generate 调用图片、音乐、放大等生成服务
//
// 三个服务都是 JSON POST，结果以 base64 返回。生成可能持续十几分钟，
// 默认超时 20 分钟。
package generate

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout 单次生成请求的超时
const DefaultTimeout = 20 * time.Minute

// 默认服务地址
const (
	DefaultImageURL   = "http://localhost:5000/generate_and_upscale"
	DefaultMusicURL   = "http://localhost:8000"
	DefaultUpscaleURL = "http://localhost:5000/upscale"
)

// APIError 服务返回非 2xx 状态码
type APIError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: HTTP %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("%s: HTTP %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// Config 生成服务配置
type Config struct {
	ImageURL   string
	MusicURL   string
	UpscaleURL string
	Timeout    time.Duration
}

// Client 生成服务客户端
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient 创建客户端，空字段使用默认值
func NewClient(config Config, logger *slog.Logger) *Client {
	if config.ImageURL == "" {
		config.ImageURL = DefaultImageURL
	}
	if config.MusicURL == "" {
		config.MusicURL = DefaultMusicURL
	}
	if config.UpscaleURL == "" {
		config.UpscaleURL = DefaultUpscaleURL
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     logger,
	}
}

// HTTPClient 返回内部使用的 HTTP 客户端（附件下载复用）
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// ImageResult 生成或放大的图片
type ImageResult struct {
	Data []byte
	// Seed 服务实际使用的种子；服务未返回时为请求中的种子，两者都没有时为 nil
	Seed *int64
	Info ImageInfo
}

// Image 根据提示词生成图片，seed 为 nil 时由服务随机选择
func (c *Client) Image(ctx context.Context, prompt string, seed *int64) (*ImageResult, error) {
	payload := map[string]any{"prompt": prompt}
	if seed != nil {
		payload["seed"] = *seed
	}

	var result struct {
		ImageBase64 string `json:"image_base64"`
		Seed        *int64 `json:"seed"`
	}
	if err := c.post(ctx, c.config.ImageURL, payload, &result); err != nil {
		return nil, err
	}

	img, err := decodeImage(result.ImageBase64)
	if err != nil {
		return nil, err
	}
	img.Seed = seed
	if result.Seed != nil {
		img.Seed = result.Seed
	}
	return img, nil
}

// Music 根据提示词生成音乐，返回 mp3 数据
func (c *Client) Music(ctx context.Context, prompt string) ([]byte, error) {
	var result struct {
		AudioBase64 string `json:"audio_base64"`
	}
	if err := c.post(ctx, c.config.MusicURL, map[string]any{"prompt": prompt}, &result); err != nil {
		return nil, err
	}
	if result.AudioBase64 == "" {
		return nil, fmt.Errorf("response missing %q", "audio_base64")
	}
	data, err := base64.StdEncoding.DecodeString(result.AudioBase64)
	if err != nil {
		return nil, fmt.Errorf("decode audio: %w", err)
	}
	return data, nil
}

// Upscale 放大一张 base64 编码的图片
func (c *Client) Upscale(ctx context.Context, imageBase64 string) (*ImageResult, error) {
	var result struct {
		ImageBase64 string `json:"image_base64"`
	}
	if err := c.post(ctx, c.config.UpscaleURL, map[string]any{"image_base64": imageBase64}, &result); err != nil {
		return nil, err
	}
	return decodeImage(result.ImageBase64)
}

func decodeImage(encoded string) (*ImageResult, error) {
	if encoded == "" {
		return nil, fmt.Errorf("response missing %q", "image_base64")
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	info, err := InspectImage(data)
	if err != nil {
		return nil, err
	}
	return &ImageResult{Data: data, Info: info}, nil
}

func (c *Client) post(ctx context.Context, url string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &APIError{Endpoint: url, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	c.logger.Debug("generation finished", "url", url, "elapsed", time.Since(start))
	return nil
}
