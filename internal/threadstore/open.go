// Copyright (c) Microsoft. All rights reserved.

package threadstore

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	af "github.com/microsoft/foundry-agents/go/agentframework"
)

// Backend kinds accepted by [Open].
const (
	KindFile  = "file"
	KindRedis = "redis"
	KindSQL   = "sql"
	KindMongo = "mongo"
)

// Config selects and configures a backend.
type Config struct {
	Kind string

	// file
	Dir string

	// redis
	RedisAddr   string
	RedisPrefix string
	RedisTTL    time.Duration

	// sql: driver is "sqlite" or "postgres"
	SQLDriver string
	SQLDSN    string

	// mongo
	MongoURI      string
	MongoDatabase string
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

var nopCloser = closerFunc(func() error { return nil })

// Open builds the configured store. The returned closer releases its
// connections.
func Open(ctx context.Context, cfg Config) (Store, io.Closer, error) {
	slog.InfoContext(ctx, "opening thread store", "kind", cfg.Kind)

	switch cfg.Kind {
	case "", KindFile:
		dir := cfg.Dir
		if dir == "" {
			dir = "."
		}
		return NewFileStore(dir), nopCloser, nil

	case KindRedis:
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
		s := NewRedisStore(client, opts...)
		return s, s, nil

	case KindSQL:
		var dialector gorm.Dialector
		switch cfg.SQLDriver {
		case "", "sqlite":
			dialector = sqlite.Open(cfg.SQLDSN)
		case "postgres":
			dialector = postgres.Open(cfg.SQLDSN)
		default:
			return nil, nil, fmt.Errorf("%w: unsupported SQL driver %q", af.ErrConfiguration, cfg.SQLDriver)
		}
		db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
		if err != nil {
			return nil, nil, fmt.Errorf("%w: open %s database: %w", af.ErrConfiguration, cfg.SQLDriver, err)
		}
		s, err := NewSQLStore(db)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil

	case KindMongo:
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
		s := NewMongoStore(client.Database(database).Collection(DefaultMongoCollection))
		return s, closerFunc(func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return client.Disconnect(ctx)
		}), nil
	}

	return nil, nil, fmt.Errorf("%w: unknown thread store %q (want file, redis, sql or mongo)", af.ErrConfiguration, cfg.Kind)
}
