package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/skillswap/skillswap/internal/model"
)

const loginTokenPrefix = "login:token:"

// ErrCacheMiss is returned when a key does not exist or has expired.
var ErrCacheMiss = errors.New("cache miss")

// StoreLoginToken saves the hashed half of a login link until ttl elapses.
func (c *Cache) StoreLoginToken(ctx context.Context, token *model.LoginToken, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("store login token: non-positive ttl %s", ttl)
	}
	key := loginTokenPrefix + token.ID

	issuedAt := token.IssuedAt
	if issuedAt == "" {
		issuedAt = strconv.FormatInt(time.Now().Unix(), 10)
	}

	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, key, map[string]any{
		"hash":      token.Hash,
		"email":     token.Email,
		"issued_at": issuedAt,
	})
	pipe.Expire(ctx, key, ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store login token: %w", err)
	}
	return nil
}

// ConsumeLoginToken reads and deletes a login token in one MULTI, so a token
// can be redeemed at most once even under concurrent requests.
// Returns ErrCacheMiss when the token is unknown, expired or already used.
func (c *Cache) ConsumeLoginToken(ctx context.Context, id string) (*model.LoginToken, error) {
	key := loginTokenPrefix + id

	pipe := c.client.TxPipeline()
	get := pipe.HGetAll(ctx, key)
	pipe.Del(ctx, key)

	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to consume login token: %w", err)
	}

	fields, err := get.Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read login token: %w", err)
	}
	if len(fields) == 0 {
		return nil, ErrCacheMiss
	}

	token := &model.LoginToken{ID: id}
	if err := get.Scan(token); err != nil {
		return nil, fmt.Errorf("failed to decode login token: %w", err)
	}
	return token, nil
}
