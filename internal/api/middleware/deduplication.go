package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"recipe-agents/internal/pkg/common"
)

// Deduplicator 在時間窗內拒絕相同路徑與內容的重複 POST，
// 避免使用者連點觸發多次完整的管線執行
type Deduplicator struct {
	window time.Duration
	mu     sync.Mutex
	seen   map[string]time.Time
	now    func() time.Time
}

// NewDeduplicator 創建去重器，window <= 0 時使用 1 秒
func NewDeduplicator(window time.Duration) *Deduplicator {
	if window <= 0 {
		window = time.Second
	}
	return &Deduplicator{
		window: window,
		seen:   make(map[string]time.Time),
		now:    time.Now,
	}
}

// Handler 去重中間件
func (d *Deduplicator) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost || c.Request.Body == nil {
			c.Next()
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			common.LogError("Failed to read request body", zap.Error(err))
			c.Next()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		hash := sha256.Sum256(body)
		fingerprint := c.Request.URL.Path + ":" + c.ClientIP() + ":" + hex.EncodeToString(hash[:])

		if d.duplicate(fingerprint) {
			common.LogInfo("Duplicate request rejected",
				zap.String("path", c.Request.URL.Path),
				zap.String("ip", c.ClientIP()),
			)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"status": "error",
				"error": gin.H{
					"code":    common.ErrCodeTooManyRequests,
					"message": "Duplicate request",
				},
			})
			return
		}

		c.Next()
	}
}

// duplicate 記錄指紋並回報是否在時間窗內出現過；順便清掉過期的指紋
func (d *Deduplicator) duplicate(fingerprint string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	for k, t := range d.seen {
		if now.Sub(t) > d.window {
			delete(d.seen, k)
		}
	}

	if _, ok := d.seen[fingerprint]; ok {
		return true
	}
	d.seen[fingerprint] = now
	return false
}
