package generate

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/sync/errgroup"
)

// maxParallelFetch 同时下载的附件数
const maxParallelFetch = 4

// Attachment 用户消息附带的文件
type Attachment struct {
	URL         string
	Filename    string
	ContentType string
	Height      int
}

// IsImageAttachment reports whether a looks like an image: an image/* content
// type, or any attachment the platform measured a height for.
func IsImageAttachment(a Attachment) bool {
	return strings.HasPrefix(a.ContentType, "image/") || a.Height > 0
}

// FirstImage returns the first image attachment.
func FirstImage(attachments []Attachment) (Attachment, bool) {
	for _, a := range attachments {
		if IsImageAttachment(a) {
			return a, true
		}
	}
	return Attachment{}, false
}

// FetchImages 并发下载所有图片附件，返回 base64 编码（保持附件顺序）
//
// 下载失败的附件记录警告后跳过，不影响其余附件。
func FetchImages(ctx context.Context, client *http.Client, attachments []Attachment, logger *slog.Logger) []string {
	if logger == nil {
		logger = slog.Default()
	}

	results := make([]string, len(attachments))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelFetch)

	for i, a := range attachments {
		if !IsImageAttachment(a) {
			continue
		}
		g.Go(func() error {
			data, err := DownloadImage(gctx, a.URL, client)
			if err != nil {
				logger.Warn("failed to fetch attachment", "url", a.URL, "error", err)
				return nil
			}
			results[i] = base64.StdEncoding.EncodeToString(data.Bytes())
			return nil
		})
	}
	_ = g.Wait()

	images := make([]string, 0, len(results))
	for _, r := range results {
		if r != "" {
			images = append(images, r)
		}
	}
	return images
}

// FetchImage 下载单个附件并返回 base64 编码；内容无法解码为图片时返回错误
func FetchImage(ctx context.Context, client *http.Client, a Attachment) (string, error) {
	data, err := DownloadImage(ctx, a.URL, client)
	if err != nil {
		return "", err
	}
	if !IsImage(data) {
		return "", fmt.Errorf("attachment %s is not a decodable image", a.URL)
	}
	return base64.StdEncoding.EncodeToString(data.Bytes()), nil
}
