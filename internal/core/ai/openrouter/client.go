package openrouter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"recipe-agents/internal/core/ai/provider"
	"recipe-agents/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	defaultBaseURL = "https://openrouter.ai/api/v1"
	defaultTimeout = 60 * time.Second
)

// Client OpenRouter API 客戶端
type Client struct {
	config provider.Config
	client *resty.Client
}

// chatRequest chat completions 請求
type chatRequest struct {
	Model       string             `json:"model"`
	Messages    []provider.Message `json:"messages"`
	MaxTokens   int                `json:"max_tokens,omitempty"`
	Temperature *float64           `json:"temperature,omitempty"`
	Stop        []string           `json:"stop,omitempty"`
}

// chatResponse chat completions 回應
type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage provider.Usage `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Code    any    `json:"code"`
	} `json:"error,omitempty"`
}

// APIError OpenRouter 回傳的非 200 錯誤
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("openrouter: status %d: %s", e.StatusCode, e.Message)
}

// NewClient 創建 OpenRouter 客戶端
func NewClient(cfg provider.Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Authorization", fmt.Sprintf("Bearer %s", cfg.APIKey)).
		SetHeader("Content-Type", "application/json").
		SetHeader("HTTP-Referer", "https://recipe-agents.local").
		SetHeader("X-Title", "Recipe Agents")

	return &Client{
		config: cfg,
		client: client,
	}
}

// Name 提供者名稱
func (c *Client) Name() string { return "openrouter" }

// GetModel 預設模型
func (c *Client) GetModel() string { return c.config.Model }

// GetTimeout 請求超時
func (c *Client) GetTimeout() time.Duration { return c.config.Timeout }

// Close 無需釋放資源
func (c *Client) Close() error { return nil }

// Generate 呼叫 /chat/completions
func (c *Client) Generate(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	model := common.FirstNonEmpty(req.Model, c.config.Model)
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.config.MaxTokens
	}

	body := chatRequest{
		Model:       model,
		Messages:    req.Messages,
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
		Stop:        req.Stop,
	}

	common.LogDebug("Sending OpenRouter request",
		zap.String("model", model),
		zap.Int("messages", len(req.Messages)),
		zap.Int("max_tokens", maxTokens),
	)

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(body).
		Post("/chat/completions")
	if err != nil {
		return nil, fmt.Errorf("failed to send request to OpenRouter: %w", err)
	}

	var result chatResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		if resp.StatusCode() != http.StatusOK {
			return nil, &APIError{StatusCode: resp.StatusCode(), Message: common.Truncate(resp.String(), 200)}
		}
		return nil, fmt.Errorf("failed to parse OpenRouter response: %w", err)
	}

	if resp.StatusCode() != http.StatusOK || result.Error != nil {
		msg := resp.Status()
		if result.Error != nil && result.Error.Message != "" {
			msg = result.Error.Message
		}
		return nil, &APIError{StatusCode: resp.StatusCode(), Message: msg}
	}

	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("no choices in OpenRouter response")
	}

	content := result.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return nil, provider.ErrEmptyResponse
	}

	return &provider.Response{
		Content: content,
		Model:   common.FirstNonEmpty(result.Model, model),
		Usage:   result.Usage,
	}, nil
}
