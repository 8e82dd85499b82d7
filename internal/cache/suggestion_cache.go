package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"garagesale/internal/domain"
)

// genKey holds the current answer generation. Flush bumps it; answers
// stored under older generations are never read again and age out on TTL.
const genKey = "suggest:gen"

// SuggestionCache keeps autocomplete answers in Redis for a short TTL.
type SuggestionCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSuggestionCache(ctx context.Context, addr string, ttl time.Duration) (*SuggestionCache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return New(client, ttl), nil
}

// New wraps an existing client.
func New(client *redis.Client, ttl time.Duration) *SuggestionCache {
	return &SuggestionCache{client: client, ttl: ttl}
}

func (c *SuggestionCache) key(ctx context.Context, query, category string) (string, error) {
	gen, err := c.client.Get(ctx, genKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", err
	}
	return "suggest:" + strconv.FormatInt(gen, 10) + ":" + category + ":" + query, nil
}

// Get returns (nil, nil) on a miss.
func (c *SuggestionCache) Get(ctx context.Context, query, category string) (*domain.SuggestionResult, error) {
	k, err := c.key(ctx, query, category)
	if err != nil {
		return nil, err
	}
	data, err := c.client.Get(ctx, k).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var res domain.SuggestionResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *SuggestionCache) Set(ctx context.Context, query, category string, res domain.SuggestionResult) error {
	data, err := json.Marshal(res)
	if err != nil {
		return err
	}
	k, err := c.key(ctx, query, category)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, k, data, c.ttl).Err()
}

// Flush retires every cached answer, e.g. after a listing is published.
func (c *SuggestionCache) Flush(ctx context.Context) error {
	return c.client.Incr(ctx, genKey).Err()
}

func (c *SuggestionCache) Close() error { return c.client.Close() }
