package tablestore

import (
	"context"
	"sync"
	"time"

	"recipe-agents/internal/pkg/common"

	"go.uber.org/zap"
)

// CacheOptions 快取設定
type CacheOptions struct {
	TTL             time.Duration
	MaxSize         int
	CleanupInterval time.Duration
}

// CachedStore 原始文字的讀穿快取，只快取文字，解析仍在每次執行時進行
type CachedStore struct {
	next  Store
	opts  CacheOptions
	mu    sync.Mutex
	store map[string]cacheEntry
	stats CacheStats
	now   func() time.Time
	stop  chan struct{}
	done  chan struct{}
	once  sync.Once
}

type cacheEntry struct {
	value       string
	expiresAt   time.Time
	lastAccess  time.Time
	accessCount int
}

// CacheStats 快取統計
type CacheStats struct {
	Size      int   `json:"size"`
	MaxSize   int   `json:"max_size"`
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
}

// NewCachedStore 包裝 next，CleanupInterval > 0 時啟動清理協程，需呼叫 Close 停止
func NewCachedStore(next Store, opts CacheOptions) *CachedStore {
	if opts.MaxSize <= 0 {
		opts.MaxSize = 32
	}
	if opts.TTL <= 0 {
		opts.TTL = 5 * time.Minute
	}

	c := &CachedStore{
		next:  next,
		opts:  opts,
		store: make(map[string]cacheEntry),
		now:   time.Now,
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}

	if opts.CleanupInterval > 0 {
		go c.startCleanup()
	} else {
		close(c.done)
	}

	common.LogInfo("快取管理員已初始化",
		zap.String("來源", next.Kind()),
		zap.Int("最大容量", opts.MaxSize),
		zap.Duration("存活時間", opts.TTL),
		zap.Duration("清理間隔", opts.CleanupInterval),
	)
	return c
}

// Kind 底層儲存類型
func (c *CachedStore) Kind() string { return c.next.Kind() + "+cache" }

// Load 命中時返回快取文字，否則讀取底層儲存並寫入
func (c *CachedStore) Load(ctx context.Context, name string) (string, error) {
	if value, ok := c.get(name); ok {
		common.LogCacheHit("table", name)
		return value, nil
	}
	common.LogCacheMiss("table", name)

	value, err := c.next.Load(ctx, name)
	if err != nil {
		return "", err
	}
	c.set(name, value)
	return value, nil
}

func (c *CachedStore) get(name string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.store[name]
	if !ok {
		c.stats.Misses++
		return "", false
	}
	now := c.now()
	if now.After(entry.expiresAt) {
		delete(c.store, name)
		c.stats.Evictions++
		c.stats.Misses++
		return "", false
	}

	entry.lastAccess = now
	entry.accessCount++
	c.store[name] = entry
	c.stats.Hits++
	return entry.value, true
}

func (c *CachedStore) set(name, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.store[name]; !exists && len(c.store) >= c.opts.MaxSize {
		// 先清過期項目，仍然滿了再做 LRU
		if c.cleanupLocked() == 0 {
			c.evictLRU()
		}
	}

	now := c.now()
	c.store[name] = cacheEntry{
		value:      value,
		expiresAt:  now.Add(c.opts.TTL),
		lastAccess: now,
	}
}

// Invalidate 移除單一資料表的快取
func (c *CachedStore) Invalidate(name string) {
	c.mu.Lock()
	delete(c.store, name)
	c.mu.Unlock()
}

func (c *CachedStore) startCleanup() {
	defer close(c.done)
	ticker := time.NewTicker(c.opts.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			c.cleanupLocked()
			c.mu.Unlock()
		case <-c.stop:
			return
		}
	}
}

// cleanupLocked 清理過期項目，呼叫端須持有鎖
func (c *CachedStore) cleanupLocked() int {
	now := c.now()
	count := 0
	for key, entry := range c.store {
		if now.After(entry.expiresAt) {
			delete(c.store, key)
			count++
		}
	}
	c.stats.Evictions += int64(count)
	if count > 0 {
		common.LogDebug("Cleaned up expired table cache entries",
			zap.Int("count", count),
			zap.Int("remaining_size", len(c.store)),
		)
	}
	return count
}

// evictLRU 淘汰存取次數最少、最久未使用的項目
func (c *CachedStore) evictLRU() {
	var (
		oldestKey    string
		oldestAccess time.Time
		lowestCount  int
	)
	for key, entry := range c.store {
		if oldestKey == "" ||
			entry.accessCount < lowestCount ||
			(entry.accessCount == lowestCount && entry.lastAccess.Before(oldestAccess)) {
			oldestKey = key
			oldestAccess = entry.lastAccess
			lowestCount = entry.accessCount
		}
	}
	if oldestKey != "" {
		delete(c.store, oldestKey)
		c.stats.Evictions++
		common.LogDebug("快取已淘汰(LRU)", zap.String("鍵", oldestKey))
	}
}

// Stats 快取統計
func (c *CachedStore) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Size = len(c.store)
	s.MaxSize = c.opts.MaxSize
	return s
}

// Close 停止清理協程並清空快取
func (c *CachedStore) Close() error {
	c.once.Do(func() {
		close(c.stop)
		<-c.done

		c.mu.Lock()
		c.store = make(map[string]cacheEntry)
		c.mu.Unlock()
	})
	if closer, ok := c.next.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
