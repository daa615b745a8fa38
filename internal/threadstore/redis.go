// Copyright (c) Microsoft. All rights reserved.

package threadstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each thread under the key {prefix}:{agentId}:{threadId}.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// RedisOption configures a [RedisStore].
type RedisOption func(*RedisStore)

// WithRedisPrefix sets the key prefix. Default "agents".
func WithRedisPrefix(prefix string) RedisOption {
	return func(s *RedisStore) { s.prefix = prefix }
}

// WithRedisTTL expires thread state ttl after its last save. Zero keeps it forever.
func WithRedisTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) { s.ttl = ttl }
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client redis.UniversalClient, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, prefix: "agents"}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *RedisStore) key(agentID, threadID string) string {
	return s.prefix + ":" + agentID + ":" + threadID
}

// Save implements [Store].
func (s *RedisStore) Save(ctx context.Context, agentID string, state []byte) (string, error) {
	threadID, err := prepareSave(agentID, state)
	if err != nil {
		return "", err
	}
	if err := s.client.Set(ctx, s.key(agentID, threadID), state, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("redis set: %w", err)
	}
	return threadID, nil
}

// Load implements [Store].
func (s *RedisStore) Load(ctx context.Context, agentID, threadID string) ([]byte, bool, error) {
	if err := validateLoad(agentID, threadID); err != nil {
		return nil, false, err
	}
	data, err := s.client.Get(ctx, s.key(agentID, threadID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	data, ok := checkLoaded(ctx, "redis", agentID, threadID, data)
	return data, ok, nil
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
