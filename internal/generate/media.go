package generate

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"time"

	// 注册解码器：生成服务可能返回 PNG/JPEG/GIF/WebP/BMP
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// maxDownloadSize 单个附件的最大下载大小
const maxDownloadSize = 25 << 20

// DownloadImage 下载附件数据
func DownloadImage(ctx context.Context, url string, client *http.Client) (*bytes.Buffer, error) {
	if client == nil {
		client = &http.Client{
			Timeout: 30 * time.Second,
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download attachment: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(resp.Body, maxDownloadSize+1)); err != nil {
		return nil, fmt.Errorf("failed to read attachment data: %w", err)
	}
	if buf.Len() > maxDownloadSize {
		return nil, fmt.Errorf("attachment larger than %d bytes", maxDownloadSize)
	}

	return &buf, nil
}

// ImageInfo 图片的格式与尺寸
type ImageInfo struct {
	Format string
	Width  int
	Height int
}

// InspectImage 只解析图片头，返回格式和尺寸
func InspectImage(data []byte) (ImageInfo, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return ImageInfo{}, fmt.Errorf("not a valid image: %w", err)
	}
	return ImageInfo{Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}

// IsImage 检查数据是否为有效图片
func IsImage(data *bytes.Buffer) bool {
	if data == nil || data.Len() == 0 {
		return false
	}
	_, err := InspectImage(data.Bytes())
	return err == nil
}
