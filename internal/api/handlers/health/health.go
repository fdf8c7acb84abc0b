package health

import (
	"net/http"
	"runtime"
	"time"

	"recipe-agents/internal/core/ai/queue"
	"recipe-agents/internal/core/ai/service"
	"recipe-agents/internal/infrastructure/tablestore"
	"recipe-agents/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HealthResponse 健康檢查響應
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Provider  string                 `json:"provider"`
	Model     string                 `json:"model"`
	Tables    string                 `json:"tables"`
	Pipelines []string               `json:"pipelines,omitempty"`
	Runtime   map[string]interface{} `json:"runtime"`
	Queue     *queue.Status          `json:"queue,omitempty"`
}

// Handler 健康檢查處理器
type Handler struct {
	version   string
	ai        *service.Service
	tables    tablestore.Store
	pipelines []string
}

// NewHandler 創建健康檢查處理器
func NewHandler(version string, ai *service.Service, tables tablestore.Store, pipelines []string) *Handler {
	return &Handler{version: version, ai: ai, tables: tables, pipelines: pipelines}
}

// HealthCheck 健康檢查
func (h *Handler) HealthCheck(c *gin.Context) {
	// 獲取運行時信息
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   h.version,
		Pipelines: h.pipelines,
		Runtime: map[string]interface{}{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]interface{}{
				"alloc":       m.Alloc,
				"total_alloc": m.TotalAlloc,
				"sys":         m.Sys,
				"num_gc":      m.NumGC,
			},
		},
	}
	if h.ai != nil {
		response.Provider = h.ai.ProviderName()
		response.Model = h.ai.Model()
		response.Queue = h.ai.Status()
	}
	if h.tables != nil {
		response.Tables = h.tables.Kind()
	}

	common.LogDebug("Health check request",
		zap.String("client_ip", c.ClientIP()),
		zap.String("path", c.Request.URL.Path),
	)

	c.JSON(http.StatusOK, response)
}

// ReadinessCheck 就緒檢查：生成服務與資料表來源都已建立
func (h *Handler) ReadinessCheck(c *gin.Context) {
	if h.ai == nil || h.tables == nil {
		c.JSON(common.ErrServiceUnavailable.Status, gin.H{
			"status": "not_ready",
			"code":   common.ErrCodeServiceUnavailable,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
	})
}

// LivenessCheck 存活檢查處理器
func LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}
