package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"recipe-agents/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Timeout 為每個請求設定期限；處理器尚未寫入回應就逾時時返回 504
func Timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		if !errors.Is(ctx.Err(), context.DeadlineExceeded) || c.Writer.Written() {
			return
		}

		common.LogError("Request timeout",
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", requestid.Get(c)),
			zap.Duration("timeout", d),
		)
		c.AbortWithStatusJSON(http.StatusGatewayTimeout, gin.H{
			"status": "error",
			"error": gin.H{
				"code":    common.ErrCodeGatewayTimeout,
				"message": common.ErrGatewayTimeout.Message,
				"timeout": d.String(),
			},
		})
	}
}
