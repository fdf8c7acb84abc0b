package recipe

import (
	"context"
	"errors"
	"net/http"

	"recipe-agents/internal/core/pipeline"
	recipeService "recipe-agents/internal/core/recipe"
	"recipe-agents/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler 管線處理程序
type Handler struct {
	svc *recipeService.Service
	// debug 模式下錯誤回應附帶生成原文
	debug bool
}

// NewHandler 創建新的管線處理程序
func NewHandler(svc *recipeService.Service, debug bool) *Handler {
	return &Handler{svc: svc, debug: debug}
}

// HandleProfileOptions 產生使用者輪廓與四個料理選項
func (h *Handler) HandleProfileOptions(c *gin.Context) {
	var req recipeService.ProfileRequest
	if !h.bind(c, recipeService.PipelineProfileOptions, &req) {
		return
	}
	h.respond(c, recipeService.PipelineProfileOptions, func(ctx context.Context) (*pipeline.Result, error) {
		return h.svc.ProfileOptions(ctx, req)
	})
}

// HandleDetail 撰寫並評審完整食譜
func (h *Handler) HandleDetail(c *gin.Context) {
	var req recipeService.DetailRequest
	if !h.bind(c, recipeService.PipelineDetailCritique, &req) {
		return
	}
	h.respond(c, recipeService.PipelineDetailCritique, func(ctx context.Context) (*pipeline.Result, error) {
		return h.svc.DetailCritique(ctx, req)
	})
}

// HandleExplainStep 說明單一烹飪步驟
func (h *Handler) HandleExplainStep(c *gin.Context) {
	var req recipeService.ExplainRequest
	if !h.bind(c, recipeService.PipelineStepExplanation, &req) {
		return
	}
	h.respond(c, recipeService.PipelineStepExplanation, func(ctx context.Context) (*pipeline.Result, error) {
		return h.svc.ExplainStep(ctx, req)
	})
}

// HandleChat 回答烹飪過程中的追問
func (h *Handler) HandleChat(c *gin.Context) {
	var req recipeService.ChatRequest
	if !h.bind(c, recipeService.PipelineChatFollowup, &req) {
		return
	}
	h.respond(c, recipeService.PipelineChatFollowup, func(ctx context.Context) (*pipeline.Result, error) {
		return h.svc.Chat(ctx, req)
	})
}

// bind 解析請求體；欄位是否齊全交由管線驗證
func (h *Handler) bind(c *gin.Context, name string, req any) bool {
	c.Set("pipeline", name)
	if err := c.ShouldBindJSON(req); err != nil {
		common.LogWarn("請求格式無效",
			zap.Error(err),
			zap.String("pipeline", name),
			zap.String("request_id", requestid.Get(c)),
		)
		c.JSON(http.StatusBadRequest, gin.H{
			"status": "error",
			"run_id": requestid.Get(c),
			"error": gin.H{
				"kind":     pipeline.KindInvalidRequest,
				"code":     common.ErrCodeInvalidRequest,
				"message":  "Invalid request format",
				"problems": []string{err.Error()},
			},
		})
		return false
	}
	return true
}

func (h *Handler) respond(c *gin.Context, name string, run func(context.Context) (*pipeline.Result, error)) {
	ctx := pipeline.WithRunID(c.Request.Context(), requestid.Get(c))

	result, err := run(ctx)
	if err != nil {
		h.fail(c, name, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"run_id":   result.RunID,
		"pipeline": result.Pipeline,
		"result":   result.Value,
		"audit":    result.Audit,
		"warnings": result.Warnings,
	})
}

func (h *Handler) fail(c *gin.Context, name string, err error) {
	var pe *pipeline.Error
	if !errors.As(err, &pe) {
		pe = &pipeline.Error{Kind: pipeline.KindInternal, Pipeline: name, RunID: requestid.Get(c), Err: err}
	}
	ce := statusFor(c.Request.Context(), pe)

	body := gin.H{
		"kind":    pe.Kind,
		"code":    ce.Code,
		"stage":   pe.Stage,
		"message": common.FirstNonEmpty(pe.Message, ce.Message),
	}
	if len(pe.Problems) > 0 {
		body["problems"] = pe.Problems
	}
	if h.debug && pe.Raw != "" {
		body["raw"] = pe.Raw
	}

	_ = c.Error(err)
	c.JSON(ce.Status, gin.H{
		"status": "error",
		"run_id": pe.RunID,
		"error":  body,
		"audit":  pe.Audit,
	})
}

// statusFor 將管線錯誤分類對應到 HTTP 狀態
func statusFor(ctx context.Context, pe *pipeline.Error) *common.CustomError {
	switch pe.Kind {
	case pipeline.KindInvalidRequest:
		return common.ErrPipelineInvalidRequest
	case pipeline.KindGenerativeCall:
		if pe.Timeout() || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return common.ErrGatewayTimeout
		}
		return common.ErrGenerativeCall
	case pipeline.KindMalformedOutput:
		return common.ErrMalformedOutput
	default:
		return common.ErrInternalError
	}
}
