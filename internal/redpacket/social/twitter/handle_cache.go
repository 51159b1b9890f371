package twitter

import (
	"context"
	"errors"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"redpacket.com/pkg/logger"
)

// HandleCache handle -> user id，带 TTL，可以换成共享存储
type HandleCache interface {
	Get(ctx context.Context, handle string) (string, bool)
	Set(ctx context.Context, handle, userID string)
}

type lruItem struct {
	userID    string
	expiresAt time.Time
}

// LRUCache 进程内缓存，过期在读的时候判断
type LRUCache struct {
	cache *lru.Cache
	ttl   time.Duration
	now   func() time.Time
}

func NewLRUCache(size int, ttl time.Duration) (*LRUCache, error) {
	if size <= 0 {
		size = 1024
	}
	c, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &LRUCache{cache: c, ttl: ttl, now: time.Now}, nil
}

func (c *LRUCache) Get(_ context.Context, handle string) (string, bool) {
	v, ok := c.cache.Get(handle)
	if !ok {
		return "", false
	}
	item := v.(lruItem)
	if c.ttl > 0 && !c.now().Before(item.expiresAt) {
		c.cache.Remove(handle)
		return "", false
	}
	return item.userID, true
}

func (c *LRUCache) Set(_ context.Context, handle, userID string) {
	c.cache.Add(handle, lruItem{userID: userID, expiresAt: c.now().Add(c.ttl)})
}

// RedisCache 多实例共享
type RedisCache struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisCache(rdb *redis.Client, prefix string, ttl time.Duration) *RedisCache {
	if prefix == "" {
		prefix = "redpacket:x:handle:"
	}
	return &RedisCache{rdb: rdb, prefix: prefix, ttl: ttl}
}

// Get redis 出错按未命中处理
func (c *RedisCache) Get(ctx context.Context, handle string) (string, bool) {
	v, err := c.rdb.Get(ctx, c.prefix+handle).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Warn(ctx, "handle cache get failed", zap.String("handle", handle), zap.Error(err))
		}
		return "", false
	}
	return v, v != ""
}

func (c *RedisCache) Set(ctx context.Context, handle, userID string) {
	if err := c.rdb.Set(ctx, c.prefix+handle, userID, c.ttl).Err(); err != nil {
		logger.Warn(ctx, "handle cache set failed", zap.String("handle", handle), zap.Error(err))
	}
}

// MapCache 固定映射，测试和配置了平台账号 id 时用
type MapCache struct {
	mu sync.RWMutex
	m  map[string]string
}

func NewMapCache(seed map[string]string) *MapCache {
	m := make(map[string]string, len(seed))
	for k, v := range seed {
		m[k] = v
	}
	return &MapCache{m: m}
}

func (c *MapCache) Get(_ context.Context, handle string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.m[handle]
	return v, ok
}

func (c *MapCache) Set(_ context.Context, handle, userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[handle] = userID
}
