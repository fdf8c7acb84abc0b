// Package media 管理食譜結果附帶的靜態成品圖
package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"os"

	_ "image/gif"  // 支援 GIF
	_ "image/jpeg" // 支援 JPEG
	_ "image/png"  // 支援 PNG

	"recipe-agents/internal/pkg/common"

	"go.uber.org/zap"
	_ "golang.org/x/image/webp" // 支援 WebP
)

// Reference 回應中的圖片資訊，探測失敗時只有 URL
type Reference struct {
	URL    string `json:"url"`
	Format string `json:"format,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// StaticImage 啟動時探測一次的靜態圖片
type StaticImage struct {
	ref Reference
}

// Probe 讀取並驗證圖片檔，超過 maxSizeBytes 或無法解碼時返回錯誤
func Probe(path, url string, maxSizeBytes int64) (*StaticImage, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat image: %w", err)
	}

	// 檢查文件大小
	if maxSizeBytes > 0 && info.Size() > maxSizeBytes {
		return nil, common.ErrInvalidImageSize.WithErr(
			fmt.Errorf("image size %d exceeds maximum limit of %d bytes", info.Size(), maxSizeBytes))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, common.ErrInvalidImageFormat.WithErr(fmt.Errorf("failed to decode image: %w", err))
	}
	if !isSupportedFormat(format) {
		return nil, common.ErrInvalidImageFormat.WithErr(fmt.Errorf("unsupported image format: %s", format))
	}

	return &StaticImage{ref: Reference{
		URL:    url,
		Format: format,
		Width:  cfg.Width,
		Height: cfg.Height,
	}}, nil
}

// NewStaticImage 探測圖片，檔案不存在時退化為只有 URL 並記錄警告
func NewStaticImage(path, url string, maxSizeBytes int64) (*StaticImage, error) {
	img, err := Probe(path, url, maxSizeBytes)
	if err == nil {
		common.LogInfo("Static dish image loaded",
			zap.String("path", path),
			zap.String("format", img.ref.Format),
			zap.Int("width", img.ref.Width),
			zap.Int("height", img.ref.Height),
		)
		return img, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		common.LogWarn("Static dish image missing, using URL only",
			zap.String("path", path),
			zap.String("url", url),
		)
		return &StaticImage{ref: Reference{URL: url}}, nil
	}
	return nil, err
}

// Reference 返回圖片資訊副本
func (s *StaticImage) Reference() Reference {
	if s == nil {
		return Reference{}
	}
	return s.ref
}

// isSupportedFormat 檢查圖片格式是否支援
func isSupportedFormat(format string) bool {
	switch format {
	case "jpeg", "png", "gif", "webp":
		return true
	}
	return false
}
