package queue

import (
	"context"
	"sync/atomic"

	"recipe-agents/internal/pkg/common"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Status 生成呼叫的併發狀態
type Status struct {
	InFlight       int64 `json:"in_flight"`
	Waiting        int64 `json:"waiting"`
	ProcessedCount int64 `json:"processed_count"`
	FailedCount    int64 `json:"failed_count"`
	MaxConcurrency int64 `json:"max_concurrency"` // 0 表示不限制
}

// Manager 限制同時進行的生成呼叫數量，maxConcurrency <= 0 時不限制
type Manager struct {
	sem       *semaphore.Weighted
	limit     int64
	inFlight  atomic.Int64
	waiting   atomic.Int64
	processed atomic.Int64
	failed    atomic.Int64
}

// NewManager 創建新的併發管理器
func NewManager(maxConcurrency int) *Manager {
	m := &Manager{}
	if maxConcurrency > 0 {
		m.limit = int64(maxConcurrency)
		m.sem = semaphore.NewWeighted(m.limit)
	}
	return m
}

// Acquire 取得一個呼叫名額，ctx 結束前拿不到名額則返回 ctx.Err()
func (m *Manager) Acquire(ctx context.Context) error {
	if m.sem != nil {
		m.waiting.Add(1)
		err := m.sem.Acquire(ctx, 1)
		m.waiting.Add(-1)
		if err != nil {
			common.LogWarn("Generative call slot not acquired",
				zap.Int64("max_concurrency", m.limit),
				zap.Error(err),
			)
			return err
		}
	}
	m.inFlight.Add(1)
	return nil
}

// Release 歸還名額並記錄結果
func (m *Manager) Release(err error) {
	m.inFlight.Add(-1)
	if err != nil {
		m.failed.Add(1)
	} else {
		m.processed.Add(1)
	}
	if m.sem != nil {
		m.sem.Release(1)
	}
}

// GetQueueStatus 獲取目前狀態
func (m *Manager) GetQueueStatus() *Status {
	return &Status{
		InFlight:       m.inFlight.Load(),
		Waiting:        m.waiting.Load(),
		ProcessedCount: m.processed.Load(),
		FailedCount:    m.failed.Load(),
		MaxConcurrency: m.limit,
	}
}
