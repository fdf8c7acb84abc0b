package tablestore

import (
	"context"
	"errors"
	"fmt"

	"recipe-agents/internal/infrastructure/config"
	"recipe-agents/internal/pkg/common"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// RedisStore 以 GET <prefix><name> 讀取資料表
type RedisStore struct {
	client redis.Cmdable
	prefix string
}

// NewRedisStore 建立連線並測試
func NewRedisStore(ctx context.Context, cfg config.RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// 測試連接
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	common.LogInfo("Redis table store connected",
		zap.String("addr", cfg.Addr),
		zap.Int("db", cfg.DB),
		zap.String("key_prefix", cfg.KeyPrefix),
	)

	return newRedisStore(client, cfg.KeyPrefix), nil
}

func newRedisStore(client redis.Cmdable, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

// Kind 儲存類型
func (s *RedisStore) Kind() string { return "redis" }

// Load 讀取資料表
func (s *RedisStore) Load(ctx context.Context, name string) (string, error) {
	key := s.key(name)
	value, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return "", fmt.Errorf("failed to get table %s: %w", key, err)
	}
	return value, nil
}

// Put 寫入資料表，供 recipectl 匯入使用
func (s *RedisStore) Put(ctx context.Context, name, raw string) error {
	if err := s.client.Set(ctx, s.key(name), raw, 0).Err(); err != nil {
		return fmt.Errorf("failed to set table %s: %w", s.key(name), err)
	}
	return nil
}

// Close 關閉連線
func (s *RedisStore) Close() error {
	if c, ok := s.client.(*redis.Client); ok {
		return c.Close()
	}
	return nil
}

func (s *RedisStore) key(name string) string {
	return s.prefix + name
}
