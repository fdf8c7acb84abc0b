package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"recipe-agents/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RateLimiter 令牌桶限流器
type RateLimiter struct {
	mu       sync.Mutex
	tokens   float64
	capacity float64
	rate     float64
	lastTime time.Time
	now      func() time.Time
}

// NewRateLimiter 創建新的限流器，window 內最多 requests 次
func NewRateLimiter(requests int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		tokens:   float64(requests),
		capacity: float64(requests),
		rate:     float64(requests) / window.Seconds(),
		lastTime: time.Now(),
		now:      time.Now,
	}
}

// Allow 檢查是否允許請求
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	elapsed := now.Sub(rl.lastTime).Seconds()
	rl.lastTime = now

	// 添加新令牌，保留小數避免頻繁請求時永遠補不到一個令牌
	rl.tokens = min(rl.capacity, rl.tokens+elapsed*rl.rate)

	if rl.tokens >= 1 {
		rl.tokens--
		return true
	}
	return false
}

// clientLimiters 依用戶端 IP 分配令牌桶
type clientLimiters struct {
	mu       sync.Mutex
	requests int
	window   time.Duration
	clients  map[string]*RateLimiter
}

// maxTrackedClients 超過此數量時清掉閒置的令牌桶
const maxTrackedClients = 1024

func (cl *clientLimiters) get(ip string) *RateLimiter {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if rl, ok := cl.clients[ip]; ok {
		return rl
	}
	if len(cl.clients) >= maxTrackedClients {
		now := time.Now()
		for k, rl := range cl.clients {
			rl.mu.Lock()
			idle := now.Sub(rl.lastTime) > cl.window
			rl.mu.Unlock()
			if idle {
				delete(cl.clients, k)
			}
		}
	}
	rl := NewRateLimiter(cl.requests, cl.window)
	cl.clients[ip] = rl
	return rl
}

// RateLimit 限流中間件，每個用戶端 IP 在 window 內最多 requests 次
func RateLimit(requests int, window time.Duration) gin.HandlerFunc {
	limiters := &clientLimiters{
		requests: requests,
		window:   window,
		clients:  make(map[string]*RateLimiter),
	}

	return func(c *gin.Context) {
		if !limiters.get(c.ClientIP()).Allow() {
			common.LogWarn("Rate limit exceeded",
				zap.String("ip", c.ClientIP()),
				zap.String("path", c.Request.URL.Path),
			)

			c.Header("Retry-After", fmt.Sprintf("%d", int(window.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"status": "error",
				"error": gin.H{
					"code":        common.ErrCodeTooManyRequests,
					"message":     common.ErrTooManyRequests.Message,
					"retry_after": window.Seconds(),
				},
			})
			return
		}

		c.Next()
	}
}
