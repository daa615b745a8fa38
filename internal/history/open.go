// Copyright (c) Microsoft. All rights reserved.

package history

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	af "github.com/microsoft/foundry-agents/go/agentframework"
)

// Backend kinds accepted by [Open]. KindInline keeps the whole history in
// the thread state and opens no backend.
const (
	KindInline = "inline"
	KindMemory = "memory"
	KindRedis  = "redis"
	KindMongo  = "mongo"
)

// Config selects and configures a backend.
type Config struct {
	Kind string

	// redis
	RedisAddr   string
	RedisPrefix string
	RedisTTL    time.Duration

	// mongo
	MongoURI      string
	MongoDatabase string
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

var nopCloser = closerFunc(func() error { return nil })

// Open builds the configured backend. It returns a nil backend for
// KindInline. The returned closer releases its connections.
func Open(ctx context.Context, cfg Config) (Backend, io.Closer, error) {
	switch cfg.Kind {
	case "", KindInline:
		return nil, nopCloser, nil

	case KindMemory:
		slog.InfoContext(ctx, "opening chat history", "kind", cfg.Kind)
		return NewMemoryBackend(), nopCloser, nil

	case KindRedis:
		slog.InfoContext(ctx, "opening chat history", "kind", cfg.Kind, "addr", cfg.RedisAddr)
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("%w: connect to redis at %s: %w", af.ErrConfiguration, cfg.RedisAddr, err)
		}
		opts := []RedisOption{WithRedisTTL(cfg.RedisTTL)}
		if cfg.RedisPrefix != "" {
			opts = append(opts, WithRedisPrefix(cfg.RedisPrefix))
		}
		b := NewRedisBackend(client, opts...)
		return b, b, nil

	case KindMongo:
		slog.InfoContext(ctx, "opening chat history", "kind", cfg.Kind)
		if cfg.MongoURI == "" {
			return nil, nil, fmt.Errorf("%w: Environment variable 'MONGO_URI' is not set.", af.ErrConfiguration)
		}
		client, err := mongo.Connect(options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return nil, nil, fmt.Errorf("%w: connect to mongo: %w", af.ErrConfiguration, err)
		}
		database := cfg.MongoDatabase
		if database == "" {
			database = "agents"
		}
		b := NewMongoBackend(client.Database(database).Collection(DefaultMongoCollection))
		return b, closerFunc(func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return client.Disconnect(ctx)
		}), nil
	}

	return nil, nil, fmt.Errorf("%w: unknown chat history store %q (want inline, memory, redis or mongo)", af.ErrConfiguration, cfg.Kind)
}
