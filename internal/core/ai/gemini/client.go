package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"recipe-agents/internal/core/ai/provider"
	"recipe-agents/internal/pkg/common"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	defaultModel   = "gemini-2.0-flash-exp"
	defaultTimeout = 60 * time.Second
)

// Client Gemini 提供者
type Client struct {
	config provider.Config
	client *genai.Client
}

// NewClient 創建 Gemini 客戶端
func NewClient(ctx context.Context, cfg provider.Config) (*Client, error) {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	common.LogInfo("Gemini provider initialized",
		zap.String("model", cfg.Model),
		zap.Duration("timeout", cfg.Timeout),
	)

	return &Client{config: cfg, client: client}, nil
}

// Name 提供者名稱
func (c *Client) Name() string { return "gemini" }

// GetModel 預設模型
func (c *Client) GetModel() string { return c.config.Model }

// GetTimeout 請求超時
func (c *Client) GetTimeout() time.Duration { return c.config.Timeout }

// Close genai 客戶端沒有需要釋放的連線
func (c *Client) Close() error { return nil }

// Generate 呼叫 GenerateContent，訊息合併為單一文字內容
func (c *Client) Generate(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	model := common.FirstNonEmpty(req.Model, c.config.Model)

	gc := &genai.GenerateContentConfig{}
	if req.Temperature != nil {
		gc.Temperature = genai.Ptr(float32(*req.Temperature))
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.config.MaxTokens
	}
	if maxTokens > 0 {
		gc.MaxOutputTokens = int32(maxTokens)
	}
	if len(req.Stop) > 0 {
		gc.StopSequences = req.Stop
	}

	resp, err := c.client.Models.GenerateContent(ctx, model, genai.Text(req.PromptText()), gc)
	if err != nil {
		return nil, fmt.Errorf("gemini generate content: %w", err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return nil, provider.ErrEmptyResponse
	}

	out := &provider.Response{
		Content: text,
		Model:   common.FirstNonEmpty(resp.ModelVersion, model),
	}
	if u := resp.UsageMetadata; u != nil {
		out.Usage = provider.Usage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}
	return out, nil
}
