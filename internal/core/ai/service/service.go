package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"recipe-agents/internal/core/ai/gemini"
	"recipe-agents/internal/core/ai/openrouter"
	"recipe-agents/internal/core/ai/provider"
	"recipe-agents/internal/core/ai/queue"
	"recipe-agents/internal/infrastructure/config"
	"recipe-agents/internal/pkg/common"

	"go.uber.org/zap"
)

// ErrEmptyPrompt 提示詞為空
var ErrEmptyPrompt = errors.New("prompt is empty")

// Service 生成呼叫轉接器：逐次呼叫提供者、套用超時，預設不重試也不快取
type Service struct {
	provider     provider.Provider
	queue        *queue.Manager
	maxRetries   int
	retryBackoff time.Duration
	sleep        func(context.Context, time.Duration) error
}

// Option 設定 Service
type Option func(*Service)

// WithMaxRetries 失敗後額外重試次數
func WithMaxRetries(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxRetries = n
		}
	}
}

// WithRetryBackoff 重試間隔，第 n 次重試等待 n 倍
func WithRetryBackoff(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.retryBackoff = d
		}
	}
}

// WithQueue 使用指定的併發管理器
func WithQueue(m *queue.Manager) Option {
	return func(s *Service) {
		if m != nil {
			s.queue = m
		}
	}
}

// WithSleeper 替換等待函式，測試使用
func WithSleeper(fn func(context.Context, time.Duration) error) Option {
	return func(s *Service) {
		if fn != nil {
			s.sleep = fn
		}
	}
}

// NewService 創建轉接器
func NewService(p provider.Provider, opts ...Option) *Service {
	s := &Service{
		provider:     p,
		queue:        queue.NewManager(0),
		retryBackoff: time.Second,
		sleep:        sleepContext,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewFromConfig 依設定選擇提供者並創建轉接器
func NewFromConfig(ctx context.Context, cfg *config.Config) (*Service, error) {
	var (
		p   provider.Provider
		err error
	)

	switch strings.ToLower(cfg.AI.Provider) {
	case "", "gemini":
		p, err = gemini.NewClient(ctx, provider.Config{
			APIKey:    cfg.Gemini.APIKey,
			Model:     cfg.Gemini.Model,
			Timeout:   cfg.Gemini.Timeout,
			MaxTokens: cfg.Gemini.MaxTokens,
			BaseURL:   cfg.Gemini.BaseURL,
		})
	case "openrouter":
		p = openrouter.NewClient(provider.Config{
			APIKey:    cfg.OpenRouter.APIKey,
			Model:     cfg.OpenRouter.Model,
			Timeout:   cfg.OpenRouter.Timeout,
			MaxTokens: cfg.OpenRouter.MaxTokens,
			BaseURL:   cfg.OpenRouter.BaseURL,
		})
	default:
		err = fmt.Errorf("unknown AI provider %q", cfg.AI.Provider)
	}
	if err != nil {
		return nil, err
	}

	common.LogInfo("AI service initialized",
		zap.String("provider", p.Name()),
		zap.String("model", p.GetModel()),
		zap.Int("max_retries", cfg.AI.MaxRetries),
		zap.Int("max_concurrency", cfg.AI.MaxConcurrency),
	)

	return NewService(p,
		WithMaxRetries(cfg.AI.MaxRetries),
		WithRetryBackoff(cfg.AI.RetryBackoff),
		WithQueue(queue.NewManager(cfg.AI.MaxConcurrency)),
	), nil
}

// Invoke 發送提示詞並返回生成文字。失敗時返回包裝後的提供者錯誤。
func (s *Service) Invoke(ctx context.Context, inv provider.Invocation) (string, error) {
	if strings.TrimSpace(inv.Prompt) == "" {
		return "", ErrEmptyPrompt
	}

	if err := s.queue.Acquire(ctx); err != nil {
		return "", fmt.Errorf("waiting for generative call slot: %w", err)
	}

	content, attempts, err := s.call(ctx, inv)
	s.queue.Release(err)
	if err != nil {
		return "", fmt.Errorf("generative call failed after %d attempt(s): %w", attempts, err)
	}
	return content, nil
}

// Generate 以預設模型設定直接呼叫
func (s *Service) Generate(ctx context.Context, prompt string) (string, error) {
	return s.Invoke(ctx, provider.Invocation{Stage: "passthrough", Prompt: prompt})
}

func (s *Service) call(ctx context.Context, inv provider.Invocation) (string, int, error) {
	req := provider.UserPrompt(inv.Prompt)
	req.Model = inv.Model
	req.Temperature = inv.Temperature
	req.MaxTokens = inv.MaxTokens

	var lastErr error
	attempt := 0
	for attempt <= s.maxRetries {
		if attempt > 0 {
			if err := s.sleep(ctx, time.Duration(attempt)*s.retryBackoff); err != nil {
				return "", attempt, lastErr
			}
		}
		attempt++

		start := time.Now()
		resp, err := s.generateOnce(ctx, req)
		common.LogAICall(s.provider.Name(), common.FirstNonEmpty(inv.Model, s.provider.GetModel()), inv.Stage, time.Since(start), err)
		if err == nil {
			return resp.Content, attempt, nil
		}
		lastErr = err

		// 呼叫端已取消就不再重試
		if ctx.Err() != nil {
			break
		}
	}
	return "", attempt, lastErr
}

func (s *Service) generateOnce(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	if timeout := s.provider.GetTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	resp, err := s.provider.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(resp.Content) == "" {
		return nil, provider.ErrEmptyResponse
	}
	return resp, nil
}

// Status 併發狀態
func (s *Service) Status() *queue.Status {
	return s.queue.GetQueueStatus()
}

// ProviderName 目前使用的提供者
func (s *Service) ProviderName() string {
	return s.provider.Name()
}

// Model 預設模型
func (s *Service) Model() string {
	return s.provider.GetModel()
}

// Close 關閉提供者
func (s *Service) Close() error {
	return s.provider.Close()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
