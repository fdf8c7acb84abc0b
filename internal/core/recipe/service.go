// Package recipe 定義四條食譜管線並提供型別化的呼叫介面
package recipe

import (
	"context"

	"recipe-agents/internal/core/media"
	"recipe-agents/internal/core/pipeline"
	"recipe-agents/internal/core/prompt"
	"recipe-agents/internal/infrastructure/config"
	"recipe-agents/internal/infrastructure/tablestore"
)

// Deps 建立 Service 所需的元件
type Deps struct {
	Generator pipeline.Generator
	Catalogue *prompt.Catalogue
	Tables    tablestore.Store
	Image     *media.StaticImage
	// CriticGuard log 或 revert，空值為 log
	CriticGuard string
	Stages      map[string]config.StageConfig
}

// Service 食譜管線服務
type Service struct {
	orch *pipeline.Orchestrator
}

// ProfileRequest 輪廓與選項請求
type ProfileRequest struct {
	MealType string `json:"meal_type"`
	UserNote string `json:"user_note"`
}

// DetailRequest 完整食譜請求
type DetailRequest struct {
	Profile  string `json:"profile"`
	DishName string `json:"dish_name"`
}

// ExplainRequest 步驟說明請求
type ExplainRequest struct {
	Instruction   string `json:"instruction"`
	RecipeContext string `json:"recipe_context"`
}

// ChatRequest 對話請求，CurrentStep 為 nil 表示未提供
type ChatRequest struct {
	RecipeContext string            `json:"recipe_context"`
	CurrentStep   *int              `json:"current_step"`
	Transcript    []prompt.ChatTurn `json:"transcript"`
}

// NewService 註冊四條管線
func NewService(d Deps) (*Service, error) {
	if d.CriticGuard == "" {
		d.CriticGuard = GuardLog
	}
	facts := factsLoader{store: d.Tables}

	orch, err := pipeline.NewOrchestrator(d.Generator, d.Catalogue, []*pipeline.Pipeline{
		profileOptionsPipeline(facts),
		detailCritiquePipeline(facts, d.Image, d.CriticGuard),
		stepExplanationPipeline(),
		chatFollowupPipeline(),
	}, pipeline.WithStageConfig(d.Stages))
	if err != nil {
		return nil, err
	}
	return &Service{orch: orch}, nil
}

// Run 以名稱執行管線
func (s *Service) Run(ctx context.Context, name string, payload pipeline.Payload) (*pipeline.Result, error) {
	return s.orch.Run(ctx, name, payload)
}

// Pipelines 已註冊的管線名稱
func (s *Service) Pipelines() []string {
	return s.orch.Names()
}

// ProfileOptions 產生使用者輪廓與四個選項，Result.Value 為 *ProfileOptions
func (s *Service) ProfileOptions(ctx context.Context, req ProfileRequest) (*pipeline.Result, error) {
	return s.orch.Run(ctx, PipelineProfileOptions, pipeline.Payload{
		"meal_type": req.MealType,
		"user_note": req.UserNote,
	})
}

// DetailCritique 撰寫並評審完整食譜，Result.Value 為 *Detail
func (s *Service) DetailCritique(ctx context.Context, req DetailRequest) (*pipeline.Result, error) {
	return s.orch.Run(ctx, PipelineDetailCritique, pipeline.Payload{
		"profile":   req.Profile,
		"dish_name": req.DishName,
	})
}

// ExplainStep 說明單一步驟，Result.Value 為 *Explanation
func (s *Service) ExplainStep(ctx context.Context, req ExplainRequest) (*pipeline.Result, error) {
	return s.orch.Run(ctx, PipelineStepExplanation, pipeline.Payload{
		"instruction":    req.Instruction,
		"recipe_context": req.RecipeContext,
	})
}

// Chat 回答烹飪中的追問，Result.Value 為 *ChatReply
func (s *Service) Chat(ctx context.Context, req ChatRequest) (*pipeline.Result, error) {
	payload := pipeline.Payload{"recipe_context": req.RecipeContext}
	if req.CurrentStep != nil {
		payload["current_step"] = *req.CurrentStep
	}
	if req.Transcript != nil {
		payload["transcript"] = req.Transcript
	}
	return s.orch.Run(ctx, PipelineChatFollowup, payload)
}
