// Copyright (c) Microsoft. All rights reserved.

package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	af "github.com/microsoft/foundry-agents/go/agentframework"
)

// RedisBackend keeps each history as a list of JSON messages under
// {prefix}:history:{key}.
type RedisBackend struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// RedisOption configures a [RedisBackend].
type RedisOption func(*RedisBackend)

// WithRedisPrefix sets the key prefix. Default "agents".
func WithRedisPrefix(prefix string) RedisOption {
	return func(b *RedisBackend) { b.prefix = prefix }
}

// WithRedisTTL expires a history ttl after its last append. Zero keeps it forever.
func WithRedisTTL(ttl time.Duration) RedisOption {
	return func(b *RedisBackend) { b.ttl = ttl }
}

// NewRedisBackend wraps an existing client.
func NewRedisBackend(client redis.UniversalClient, opts ...RedisOption) *RedisBackend {
	b := &RedisBackend{client: client, prefix: "agents"}
	for _, o := range opts {
		o(b)
	}
	return b
}

func (b *RedisBackend) listKey(key string) string {
	return b.prefix + ":history:" + key
}

func (b *RedisBackend) Append(ctx context.Context, key string, msgs []af.Message) error {
	values := make([]any, 0, len(msgs))
	for _, m := range msgs {
		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("marshal message: %w", err)
		}
		values = append(values, data)
	}

	lk := b.listKey(key)
	pipe := b.client.TxPipeline()
	pipe.RPush(ctx, lk, values...)
	if b.ttl > 0 {
		pipe.Expire(ctx, lk, b.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis rpush: %w", err)
	}
	return nil
}

func (b *RedisBackend) Recent(ctx context.Context, key string, n int) ([]af.Message, error) {
	start := int64(0)
	if n > 0 {
		start = -int64(n)
	}
	raw, err := b.client.LRange(ctx, b.listKey(key), start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lrange: %w", err)
	}
	msgs := make([]af.Message, 0, len(raw))
	for _, r := range raw {
		var m af.Message
		if err := json.Unmarshal([]byte(r), &m); err != nil {
			return nil, fmt.Errorf("decode message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

// Close closes the underlying client.
func (b *RedisBackend) Close() error {
	return b.client.Close()
}
