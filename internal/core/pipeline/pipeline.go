// Package pipeline 依序執行多個生成階段：綁定、渲染、呼叫、清理、折疊並留下稽核紀錄。
// 每次執行都有獨立的 RunContext，執行之間不共享任何狀態。
package pipeline

import (
	"context"
	"time"

	"recipe-agents/internal/core/ai/provider"
	"recipe-agents/internal/core/prompt"
)

// Generator 生成呼叫轉接器
type Generator interface {
	Invoke(ctx context.Context, inv provider.Invocation) (string, error)
}

// Output 階段輸出約定
type Output int

const (
	// OutputText 非空文字
	OutputText Output = iota
	// OutputJSON 經 Decode 解碼並檢查形狀
	OutputJSON
)

func (o Output) String() string {
	if o == OutputJSON {
		return "json"
	}
	return "text"
}

// Stage 單一生成階段
type Stage struct {
	// Name 階段名稱，同時是稽核與設定中使用的鍵
	Name string
	// Template 模板名稱，空值時使用 Name
	Template string
	Bind     func(rc *RunContext) map[string]string
	Output   Output
	// Decode 將 JSON 輸出解碼並驗證形狀，失敗返回 *sanitize.MalformedOutputError
	Decode func(raw string) (any, error)
	// Fold 將清理後的結果寫回執行上下文，nil 時以 Name 為鍵存入 Data
	Fold func(rc *RunContext, value any)
}

func (s Stage) templateName() string {
	if s.Template != "" {
		return s.Template
	}
	return s.Name
}

// FieldKind 請求欄位類型
type FieldKind int

const (
	String FieldKind = iota
	Int
	Transcript
)

// Field 必要欄位，Optional 的字串欄位允許缺少或為空
type Field struct {
	Name     string
	Kind     FieldKind
	Optional bool
}

// Pipeline 管線定義，註冊後不可修改
type Pipeline struct {
	Name   string
	Fields []Field
	// Validate 欄位之間的檢查，返回所有問題
	Validate func(rc *RunContext) []string
	// Seed 在第一個階段前準備資料，例如載入來源資料表
	Seed   func(ctx context.Context, rc *RunContext)
	Stages []Stage
	// Finish 整理最終結果
	Finish func(rc *RunContext) any
}

// Payload 請求內容，鍵為欄位名稱
type Payload map[string]any

// AuditEntry 已完成階段的紀錄，寫入後不再修改
type AuditEntry struct {
	Stage  string `json:"stage"`
	Prompt string `json:"prompt"`
	// Output 清理後的輸出，JSON 階段為去除圍欄後的內容
	Output string `json:"output"`
	// Raw 生成服務返回的原文
	Raw        string `json:"raw"`
	Model      string `json:"model,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// Result 成功執行的結果
type Result struct {
	RunID    string        `json:"run_id"`
	Pipeline string        `json:"pipeline"`
	Value    any           `json:"result"`
	Audit    []AuditEntry  `json:"audit"`
	Warnings []Warning     `json:"warnings"`
	Duration time.Duration `json:"-"`
}

// RunContext 單次執行的可變狀態
type RunContext struct {
	RunID      string
	Pipeline   string
	Vars       map[string]string
	Ints       map[string]int
	Transcript []prompt.ChatTurn
	Data       map[string]any
	warnings   []Warning
}

func newRunContext(runID, name string) *RunContext {
	return &RunContext{
		RunID:    runID,
		Pipeline: name,
		Vars:     make(map[string]string),
		Ints:     make(map[string]int),
		Data:     make(map[string]any),
		warnings: []Warning{},
	}
}

// Warn 記錄警告
func (rc *RunContext) Warn(kind Kind, stage, message string) {
	rc.warnings = append(rc.warnings, Warning{Kind: kind, Stage: stage, Message: message})
}

// Warnings 目前累積的警告
func (rc *RunContext) Warnings() []Warning {
	return append([]Warning(nil), rc.warnings...)
}

// Text 取得字串型態的 Data
func (rc *RunContext) Text(key string) string {
	s, _ := rc.Data[key].(string)
	return s
}
