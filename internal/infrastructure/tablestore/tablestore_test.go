package tablestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"recipe-agents/internal/infrastructure/config"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func writeTable(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestFileStore(t *testing.T) {
	dir := t.TempDir()
	writeTable(t, dir, "ingredients.md", "|Name|Qty|\n|---|---|\n|egg|2|\n")
	writeTable(t, dir, "rules.txt", "|Rule|\n|---|\n|no nuts|\n")

	ctx := context.Background()

	t.Run("default extension", func(t *testing.T) {
		s := NewFileStore(dir, "")
		raw, err := s.Load(ctx, "ingredients")
		require.NoError(t, err)
		assert.Contains(t, raw, "|egg|2|")
		assert.Equal(t, "file", s.Kind())
	})

	t.Run("extension without dot", func(t *testing.T) {
		raw, err := NewFileStore(dir, "txt").Load(ctx, "rules")
		require.NoError(t, err)
		assert.Contains(t, raw, "no nuts")
	})

	t.Run("missing", func(t *testing.T) {
		_, err := NewFileStore(dir, ".md").Load(ctx, "calendar")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("path traversal", func(t *testing.T) {
		_, err := NewFileStore(dir, ".md").Load(ctx, "../etc/passwd")
		assert.ErrorContains(t, err, "invalid table name")
	})
}

type countingStore struct {
	values map[string]string
	loads  int
}

func (s *countingStore) Kind() string { return "stub" }

func (s *countingStore) Load(_ context.Context, name string) (string, error) {
	s.loads++
	v, ok := s.values[name]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func TestCachedStore(t *testing.T) {
	next := &countingStore{values: map[string]string{"a": "A", "b": "B", "c": "C"}}
	c := NewCachedStore(next, CacheOptions{TTL: time.Minute, MaxSize: 2})
	defer c.Close()

	clock := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return clock }
	ctx := context.Background()

	v, err := c.Load(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "A", v)
	_, _ = c.Load(ctx, "a")
	assert.Equal(t, 1, next.loads)

	// b 未被存取過，容量滿時被淘汰
	_, _ = c.Load(ctx, "b")
	_, _ = c.Load(ctx, "c")
	assert.Equal(t, 3, next.loads)
	_, _ = c.Load(ctx, "a")
	assert.Equal(t, 3, next.loads)
	_, _ = c.Load(ctx, "b")
	assert.Equal(t, 4, next.loads)

	// 過期後重新讀取
	clock = clock.Add(2 * time.Minute)
	_, _ = c.Load(ctx, "a")
	assert.Equal(t, 5, next.loads)

	_, err = c.Load(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	stats := c.Stats()
	assert.Equal(t, 2, stats.MaxSize)
	assert.LessOrEqual(t, stats.Size, 2)
	assert.EqualValues(t, 2, stats.Hits)
	assert.Equal(t, "stub+cache", c.Kind())
}

func TestCachedStoreCleanupStops(t *testing.T) {
	c := NewCachedStore(&countingStore{}, CacheOptions{CleanupInterval: time.Millisecond})
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
}

type fakeRedis struct {
	redis.Cmdable
	data map[string]string
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	f.data[key] = value.(string)
	return redis.NewStatusResult("OK", nil)
}

func TestRedisStoreKeys(t *testing.T) {
	fake := &fakeRedis{data: map[string]string{}}
	s := newRedisStore(fake, "recipe:tables:")
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "calendar", "|Day|\n|---|\n|Mon|"))
	assert.Contains(t, fake.data, "recipe:tables:calendar")

	raw, err := s.Load(ctx, "calendar")
	require.NoError(t, err)
	assert.Equal(t, "|Day|\n|---|\n|Mon|", raw)

	_, err = s.Load(ctx, "rules")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "redis", s.Kind())
	assert.NoError(t, s.Close())
}

func TestNewFromConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.Tables.Source = "file"
	cfg.Tables.Dir = t.TempDir()

	s, err := NewFromConfig(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "file", s.Kind())

	cfg.Tables.CacheEnabled = true
	s, err = NewFromConfig(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "file+cache", s.Kind())
	require.NoError(t, s.(*CachedStore).Close())

	cfg.Tables.Source = "s3"
	_, err = NewFromConfig(context.Background(), cfg)
	assert.ErrorContains(t, err, "unknown tables source")
}
