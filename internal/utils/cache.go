package utils

import (
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CacheItem 包装缓存数据和过期时间
type CacheItem struct {
	Data      any
	ExpiresAt time.Time
}

// QueryCache 查询结果的本地 LRU 缓存，键按 "<query>:<id>" 组织以便按前缀失效
type QueryCache struct {
	lruCache *lru.Cache[string, CacheItem]
	ttl      time.Duration
}

// NewQueryCache 创建缓存，size <= 0 时使用 500
func NewQueryCache(size int, ttl time.Duration) (*QueryCache, error) {
	if size <= 0 {
		size = 500
	}
	l, err := lru.New[string, CacheItem](size)
	if err != nil {
		return nil, err
	}
	return &QueryCache{lruCache: l, ttl: ttl}, nil
}

// Set 使用默认 TTL 写入
func (c *QueryCache) Set(key string, data any) {
	if c == nil {
		return
	}
	c.SetTTL(key, data, c.ttl)
}

func (c *QueryCache) SetTTL(key string, data any, ttl time.Duration) {
	if c == nil || ttl <= 0 {
		return
	}
	c.lruCache.Add(key, CacheItem{
		Data:      data,
		ExpiresAt: time.Now().Add(ttl),
	})
}

// Get 获取缓存，若不存在或已过期则返回 false
func (c *QueryCache) Get(key string) (any, bool) {
	if c == nil {
		return nil, false
	}
	val, ok := c.lruCache.Get(key)
	if !ok {
		return nil, false
	}

	// 检查过期
	if time.Now().After(val.ExpiresAt) {
		c.lruCache.Remove(key)
		return nil, false
	}

	return val.Data, true
}

// Delete 删除指定缓存
func (c *QueryCache) Delete(keys ...string) {
	if c == nil {
		return
	}
	for _, key := range keys {
		c.lruCache.Remove(key)
	}
}

// InvalidatePrefix drops every key equal to prefix or starting with "prefix:".
func (c *QueryCache) InvalidatePrefix(prefixes ...string) {
	if c == nil {
		return
	}
	for _, key := range c.lruCache.Keys() {
		for _, p := range prefixes {
			if key == p || strings.HasPrefix(key, p+":") {
				c.lruCache.Remove(key)
				break
			}
		}
	}
}

func (c *QueryCache) Len() int {
	if c == nil {
		return 0
	}
	return c.lruCache.Len()
}

// Cached is a typed read-through helper.
func Cached[T any](c *QueryCache, key string, load func() (T, error)) (T, error) {
	if v, ok := c.Get(key); ok {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
	}
	v, err := load()
	if err != nil {
		return v, err
	}
	c.Set(key, v)
	return v, nil
}
