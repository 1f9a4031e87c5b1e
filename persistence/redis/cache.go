package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/flarexio/zoningqa"
)

const KeyPrefix = "zoningqa:"

type answerCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewAnswerCache connects to redis and fails fast when the server is
// unreachable.
func NewAnswerCache(ctx context.Context, cfg zoningqa.CacheConfig) (zoningqa.AnswerCache, func() error, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, err
	}

	cache := &answerCache{
		client: client,
		ttl:    cfg.TTL.Duration(),
	}

	return cache, client.Close, nil
}

func (c *answerCache) Get(ctx context.Context, key string) (string, bool, error) {
	answer, err := c.client.Get(ctx, KeyPrefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}

		return "", false, err
	}

	return answer, true, nil
}

func (c *answerCache) Set(ctx context.Context, key string, answer string) error {
	return c.client.Set(ctx, KeyPrefix+key, answer, c.ttl).Err()
}
