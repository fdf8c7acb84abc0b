// Package tablestore 提供來源資料表的原始文字，解析交由 table 套件在每次執行時進行
package tablestore

import (
	"context"
	"errors"
	"fmt"

	"recipe-agents/internal/infrastructure/config"
)

// Store 來源資料表儲存
type Store interface {
	// Load 返回資料表原始文字，不存在時返回 ErrNotFound
	Load(ctx context.Context, name string) (string, error)
	// Kind 儲存類型名稱
	Kind() string
}

// ErrNotFound 資料表不存在
var ErrNotFound = errors.New("table not found")

// NewFromConfig 依設定建立儲存，啟用快取時外包一層 CachedStore
func NewFromConfig(ctx context.Context, cfg *config.Config) (Store, error) {
	var (
		store Store
		err   error
	)

	switch cfg.Tables.Source {
	case "", "file":
		store = NewFileStore(cfg.Tables.Dir, cfg.Tables.Ext)
	case "redis":
		store, err = NewRedisStore(ctx, cfg.Redis)
	default:
		err = fmt.Errorf("unknown tables source %q", cfg.Tables.Source)
	}
	if err != nil {
		return nil, err
	}

	if cfg.Tables.CacheEnabled {
		store = NewCachedStore(store, CacheOptions{
			TTL:             cfg.Tables.CacheTTL,
			MaxSize:         cfg.Tables.CacheMaxSize,
			CleanupInterval: cfg.Tables.CleanupInterval,
		})
	}
	return store, nil
}
