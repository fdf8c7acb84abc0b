package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"recipe-agents/internal/core/ai/service"
	"recipe-agents/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AIHandler AI 處理器
type AIHandler struct {
	aiService *service.Service
}

// NewAIHandler 創建 AI 處理器
func NewAIHandler(aiService *service.Service) *AIHandler {
	return &AIHandler{
		aiService: aiService,
	}
}

// GenerateRequest 單次提示詞請求
type GenerateRequest struct {
	Prompt string `json:"prompt"`
}

// Generate 直接轉送提示詞並回傳生成文字
func (h *AIHandler) Generate(c *gin.Context) {
	var req GenerateRequest
	// 解析失敗與提示詞為空白同樣視為未提供
	_ = c.ShouldBindJSON(&req)
	if strings.TrimSpace(req.Prompt) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No prompt provided"})
		return
	}

	response, err := h.aiService.Generate(c.Request.Context(), req.Prompt)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		common.LogError("Passthrough generation failed",
			zap.Error(err),
			zap.String("request_id", requestid.Get(c)),
		)
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"response": response,
	})
}
