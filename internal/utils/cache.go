package utils

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const defaultCacheSize = 500

// TTLCache 进程内本地缓存，条目到期自动淘汰。只作加速，不保证命中
type TTLCache[V any] struct {
	lru *expirable.LRU[string, V]
}

// NewTTLCache 创建容量为 500 的缓存
func NewTTLCache[V any](ttl time.Duration) *TTLCache[V] {
	return &TTLCache[V]{
		lru: expirable.NewLRU[string, V](defaultCacheSize, nil, ttl),
	}
}

// Get 获取缓存，不存在或已过期时 ok 为 false
func (c *TTLCache[V]) Get(key string) (V, bool) {
	return c.lru.Get(key)
}

// Set 设置缓存，覆盖旧值并重置过期时间
func (c *TTLCache[V]) Set(key string, v V) {
	c.lru.Add(key, v)
}

// Delete 删除指定缓存
func (c *TTLCache[V]) Delete(key string) {
	c.lru.Remove(key)
}
