package recipe

import (
	"context"
	"fmt"

	"recipe-agents/internal/core/media"
	"recipe-agents/internal/core/pipeline"
	"recipe-agents/internal/core/prompt"
	"recipe-agents/internal/core/sanitize"
	"recipe-agents/internal/pkg/common"

	"go.uber.org/zap"
)

// 管線名稱
const (
	PipelineProfileOptions  = "profile_options"
	PipelineDetailCritique  = "detail_critique"
	PipelineStepExplanation = "step_explanation"
	PipelineChatFollowup    = "chat_followup"
)

// 階段名稱，同時對應提示詞模板與 stages 設定
const (
	StageProfileBriefing = "profile_briefing"
	StageRecipeOptions   = "recipe_options"
	StageRecipeDraft     = "recipe_draft"
	StageRecipeCritic    = "recipe_critic"
	StageStepExplanation = "step_explanation"
	StageChatFollowup    = "chat_followup"
)

const guardViolationKey = "guard_violation"

// ProfileOptions 使用者輪廓與四個推薦選項
type ProfileOptions struct {
	Profile string   `json:"profile"`
	Options []Option `json:"options"`
}

// Detail 評審後的完整食譜
type Detail struct {
	HTML     string          `json:"html"`
	Markdown string          `json:"markdown"`
	Image    media.Reference `json:"image"`
	// Reverted 評審改動食材表且設定為 revert 時，返回初稿
	Reverted bool `json:"reverted"`
}

// Explanation 單一步驟的說明
type Explanation struct {
	Text string `json:"text"`
	HTML string `json:"html"`
}

// ChatReply 對話回覆
type ChatReply struct {
	Answer string `json:"answer"`
	HTML   string `json:"html"`
}

func profileOptionsPipeline(facts factsLoader) *pipeline.Pipeline {
	return &pipeline.Pipeline{
		Name: PipelineProfileOptions,
		Fields: []pipeline.Field{
			{Name: "meal_type", Kind: pipeline.String},
			{Name: "user_note", Kind: pipeline.String, Optional: true},
		},
		Validate: func(rc *pipeline.RunContext) []string {
			meal, ok := ParseMealType(rc.Vars["meal_type"])
			if !ok {
				return []string{fmt.Sprintf("meal_type: must be one of Breakfast, Lunch, Dinner, Custom, got %q", rc.Vars["meal_type"])}
			}
			rc.Vars["meal_type"] = string(meal)
			if meal == Custom && rc.Vars["user_note"] == "" {
				return []string{"user_note: required for a Custom meal"}
			}
			return nil
		},
		Seed: func(ctx context.Context, rc *pipeline.RunContext) {
			facts.load(ctx, rc, TableIngredients, TableCalendar, TableRules)
		},
		Stages: []pipeline.Stage{
			{
				Name: StageProfileBriefing,
				Bind: func(rc *pipeline.RunContext) map[string]string {
					return map[string]string{
						"INGREDIENTS_CSV": rc.Vars[TableIngredients],
						"CALENDAR_CSV":    rc.Vars[TableCalendar],
						"RULESET_CSV":     rc.Vars[TableRules],
						"MEAL_TYPE":       rc.Vars["meal_type"],
						"USER_INPUT":      rc.Vars["user_note"],
					}
				},
			},
			{
				Name:   StageRecipeOptions,
				Output: pipeline.OutputJSON,
				Decode: decodeOptions,
				Bind: func(rc *pipeline.RunContext) map[string]string {
					return map[string]string{
						"USER_PROFILE_BRIEFING": rc.Text(StageProfileBriefing),
						"INGREDIENTS_CSV":       rc.Vars[TableIngredients],
					}
				},
			},
		},
		Finish: func(rc *pipeline.RunContext) any {
			options, _ := rc.Data[StageRecipeOptions].([]Option)
			return &ProfileOptions{
				Profile: rc.Text(StageProfileBriefing),
				Options: options,
			}
		},
	}
}

func detailCritiquePipeline(facts factsLoader, image *media.StaticImage, guard string) *pipeline.Pipeline {
	return &pipeline.Pipeline{
		Name: PipelineDetailCritique,
		Fields: []pipeline.Field{
			{Name: "profile", Kind: pipeline.String},
			{Name: "dish_name", Kind: pipeline.String},
		},
		Seed: func(ctx context.Context, rc *pipeline.RunContext) {
			facts.load(ctx, rc, TableIngredients)
		},
		Stages: []pipeline.Stage{
			{
				Name: StageRecipeDraft,
				Bind: func(rc *pipeline.RunContext) map[string]string {
					return map[string]string{
						"SELECTED_DISH_NAME":    rc.Vars["dish_name"],
						"USER_PROFILE_BRIEFING": rc.Vars["profile"],
						"INGREDIENTS_CSV":       rc.Vars[TableIngredients],
					}
				},
			},
			{
				Name: StageRecipeCritic,
				Bind: func(rc *pipeline.RunContext) map[string]string {
					return map[string]string{"RECIPE_MARKDOWN": rc.Text(StageRecipeDraft)}
				},
				Fold: func(rc *pipeline.RunContext, value any) {
					critique, _ := value.(string)
					rc.Data[StageRecipeCritic] = critique

					check := CheckIngredients(rc.Text(StageRecipeDraft), critique)
					if check.Problem == "" {
						return
					}
					common.LogWarn("Ingredient table check failed",
						zap.String("run_id", rc.RunID),
						zap.String("problem", check.Problem),
						zap.Bool("verified", check.Verified),
						zap.String("guard", guard),
					)
					rc.Warn(pipeline.KindUnverifiedInvariant, StageRecipeCritic, check.Problem)
					// 無法驗證時只警告，不觸發 revert
					if check.Violated() {
						rc.Data[guardViolationKey] = true
					}
				},
			},
		},
		Finish: func(rc *pipeline.RunContext) any {
			final := rc.Text(StageRecipeCritic)
			violated, _ := rc.Data[guardViolationKey].(bool)
			reverted := violated && guard == GuardRevert
			if reverted {
				final = rc.Text(StageRecipeDraft)
			}
			return &Detail{
				HTML:     sanitize.ForDisplay(final),
				Markdown: final,
				Image:    image.Reference(),
				Reverted: reverted,
			}
		},
	}
}

func stepExplanationPipeline() *pipeline.Pipeline {
	return &pipeline.Pipeline{
		Name: PipelineStepExplanation,
		Fields: []pipeline.Field{
			{Name: "instruction", Kind: pipeline.String},
			{Name: "recipe_context", Kind: pipeline.String},
		},
		Stages: []pipeline.Stage{
			{
				Name: StageStepExplanation,
				Bind: func(rc *pipeline.RunContext) map[string]string {
					return map[string]string{
						"INSTRUCTION":    rc.Vars["instruction"],
						"RECIPE_CONTEXT": rc.Vars["recipe_context"],
					}
				},
			},
		},
		Finish: func(rc *pipeline.RunContext) any {
			text := rc.Text(StageStepExplanation)
			return &Explanation{Text: text, HTML: sanitize.ForDisplay(text)}
		},
	}
}

func chatFollowupPipeline() *pipeline.Pipeline {
	return &pipeline.Pipeline{
		Name: PipelineChatFollowup,
		Fields: []pipeline.Field{
			{Name: "recipe_context", Kind: pipeline.String},
			{Name: "current_step", Kind: pipeline.Int},
			{Name: "transcript", Kind: pipeline.Transcript},
		},
		Stages: []pipeline.Stage{
			{
				Name: StageChatFollowup,
				Bind: func(rc *pipeline.RunContext) map[string]string {
					return map[string]string{
						"RECIPE_CONTEXT": rc.Vars["recipe_context"],
						"CURRENT_STEP":   rc.Vars["current_step"],
						"TRANSCRIPT":     prompt.FormatTranscript(rc.Transcript),
					}
				},
			},
		},
		Finish: func(rc *pipeline.RunContext) any {
			answer := rc.Text(StageChatFollowup)
			return &ChatReply{Answer: answer, HTML: sanitize.ForDisplay(answer)}
		},
	}
}
