package external

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"

	"github.com/vigil-scan-server/internal/domain"
)

// ResponseCache is a two-tier cache for model responses: a small
// in-process LRU in front of Redis. Identical prompts against the same
// model are answered from cache, which matters because label scans repeat
// (the same product scanned twice in a row is the common case).
type ResponseCache struct {
	redis      *redis.Client
	memory     *lru.Cache[string, CachedResponse]
	defaultTTL time.Duration
}

// CachedResponse wraps one cached model response with expiry metadata.
type CachedResponse struct {
	Text      string    `json:"text"`
	CachedAt  time.Time `json:"cached_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewResponseCache creates a response cache. The Redis tier is optional:
// pass an empty URL to run memory-only.
func NewResponseCache(config domain.CacheConfig) (*ResponseCache, error) {
	size := config.MemorySize
	if size <= 0 {
		size = 1000
	}
	memory, err := lru.New[string, CachedResponse](size)
	if err != nil {
		return nil, fmt.Errorf("creating memory cache: %w", err)
	}

	cache := &ResponseCache{
		memory:     memory,
		defaultTTL: config.DefaultTTL,
	}

	if config.RedisURL != "" {
		opts, err := redis.ParseURL(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
		}
		opts.PoolSize = config.PoolSize
		opts.PoolTimeout = config.PoolTimeout
		opts.MaxRetries = config.MaxRetries

		client := redis.NewClient(opts)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		cache.redis = client
	}

	return cache, nil
}

// Get retrieves a cached response. The second return value reports a hit.
func (c *ResponseCache) Get(ctx context.Context, key string) (string, bool, error) {
	if cached, ok := c.memory.Get(key); ok {
		if time.Now().Before(cached.ExpiresAt) {
			return cached.Text, true, nil
		}
		c.memory.Remove(key)
	}

	if c.redis == nil {
		return "", false, nil
	}

	val, err := c.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get cached response: %w", err)
	}

	var cached CachedResponse
	if err := json.Unmarshal([]byte(val), &cached); err != nil {
		// Corrupted entry; drop it.
		c.redis.Del(ctx, key)
		return "", false, nil
	}
	if time.Now().After(cached.ExpiresAt) {
		c.redis.Del(ctx, key)
		return "", false, nil
	}

	c.memory.Add(key, cached)
	return cached.Text, true, nil
}

// Set stores a response in both tiers. A zero TTL uses the default.
func (c *ResponseCache) Set(ctx context.Context, key, text string, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.defaultTTL
	}

	cached := CachedResponse{
		Text:      text,
		CachedAt:  time.Now(),
		ExpiresAt: time.Now().Add(ttl),
	}
	c.memory.Add(key, cached)

	if c.redis == nil {
		return nil
	}

	jsonData, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("failed to marshal cached response: %w", err)
	}
	return c.redis.Set(ctx, key, jsonData, ttl).Err()
}

// Ping checks the Redis tier; memory-only caches always report healthy.
func (c *ResponseCache) Ping(ctx context.Context) error {
	if c.redis == nil {
		return nil
	}
	return c.redis.Ping(ctx).Err()
}

// Close closes the Redis connection if one exists.
func (c *ResponseCache) Close() error {
	if c.redis == nil {
		return nil
	}
	return c.redis.Close()
}

// ResponseKey builds a deterministic cache key from the call shape, model
// and full prompt content.
func ResponseKey(shape, model, content string) string {
	hash := sha256.Sum256([]byte(model + "\x00" + content))
	return fmt.Sprintf("model:%s:%x", shape, hash[:8])
}
