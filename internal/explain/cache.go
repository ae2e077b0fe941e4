package explain

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Key identifies one generated explanation: the query course identity
// paired with the compared course's code. Repeated requests for the same
// pair must not re-generate.
type Key struct {
	QueryName  string
	CourseCode string
}

func (k Key) String() string {
	return "swaakon:explain:" + k.QueryName + "|" + k.CourseCode
}

// Cache stores generated explanations.
type Cache interface {
	Get(ctx context.Context, key Key) (string, bool)
	Set(ctx context.Context, key Key, explanation string)
}

// RedisCache stores explanations in Redis with a TTL, so all server
// replicas share one cache.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisCache creates a Redis-backed explanation cache.
func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisCache{rdb: rdb, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key Key) (string, bool) {
	val, err := c.rdb.Get(ctx, key.String()).Result()
	if err != nil {
		return "", false
	}
	return val, true
}

func (c *RedisCache) Set(ctx context.Context, key Key, explanation string) {
	c.rdb.Set(ctx, key.String(), explanation, c.ttl)
}

// LRUCache is the in-process fallback when Redis is not configured:
// a bounded least-recently-used map, never an unbounded process-lifetime
// one.
type LRUCache struct {
	mu      sync.Mutex
	maxSize int
	order   *list.List
	entries map[Key]*list.Element
}

type lruEntry struct {
	key   Key
	value string
}

// NewLRUCache creates a bounded in-memory cache.
func NewLRUCache(maxSize int) *LRUCache {
	if maxSize <= 0 {
		maxSize = 256
	}
	return &LRUCache{
		maxSize: maxSize,
		order:   list.New(),
		entries: make(map[Key]*list.Element),
	}
}

func (c *LRUCache) Get(_ context.Context, key Key) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[key]
	if !ok {
		return "", false
	}
	c.order.MoveToFront(el)
	return el.Value.(*lruEntry).value, true
}

func (c *LRUCache) Set(_ context.Context, key Key, explanation string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		el.Value.(*lruEntry).value = explanation
		c.order.MoveToFront(el)
		return
	}
	c.entries[key] = c.order.PushFront(&lruEntry{key: key, value: explanation})
	if c.order.Len() > c.maxSize {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*lruEntry).key)
	}
}

// Len reports the number of cached explanations.
func (c *LRUCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
