package provider

import (
	"context"
	"errors"
	"time"
)

// Message 表示與 AI 模型的對話消息
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request 表示發送到 AI 提供者的請求
type Request struct {
	Model       string    `json:"model,omitempty"` // 空字串時使用提供者預設模型
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"`
	Stop        []string  `json:"stop,omitempty"`
}

// Invocation 單次生成呼叫，模型設定為空時使用提供者預設值
type Invocation struct {
	Stage       string
	Prompt      string
	Model       string
	Temperature *float64
	MaxTokens   int
}

// Usage token 用量
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response 表示從 AI 提供者收到的響應
type Response struct {
	Content string `json:"content"`
	Model   string `json:"model"`
	Usage   Usage  `json:"usage"`
}

// Provider 定義 AI 提供者介面
type Provider interface {
	// Name 提供者名稱，例如 gemini、openrouter
	Name() string

	// Generate 生成 AI 響應
	Generate(ctx context.Context, req *Request) (*Response, error)

	// GetModel 獲取當前使用的模型名稱
	GetModel() string

	// GetTimeout 獲取請求超時時間
	GetTimeout() time.Duration

	// Close 關閉提供者連接
	Close() error
}

// Config 定義 AI 提供者配置
type Config struct {
	APIKey    string
	Model     string
	Timeout   time.Duration
	MaxTokens int
	BaseURL   string
}

// ErrEmptyResponse 提供者回傳空內容
var ErrEmptyResponse = errors.New("empty response from provider")

// UserPrompt 以單一使用者訊息建立請求
func UserPrompt(prompt string) *Request {
	return &Request{Messages: []Message{{Role: "user", Content: prompt}}}
}

// PromptText 合併所有訊息內容，供只接受純文字的提供者使用
func (r *Request) PromptText() string {
	if len(r.Messages) == 1 {
		return r.Messages[0].Content
	}
	var out string
	for i, m := range r.Messages {
		if i > 0 {
			out += "\n\n"
		}
		out += m.Content
	}
	return out
}
