package storage

import (
	"chat-room/contract"
	"chat-room/errors"
	"chat-room/internal"
	"context"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	BackendMemory = "memory"
	BackendBadger = "badger"
	BackendMongo  = "mongo"
	BackendRedis  = "redis"
)

// Open builds the document store selected by STORE_BACKEND.
// The returned function releases the underlying connection or database.
func Open(ctx context.Context, config internal.Config, log *slog.Logger) (contract.DocumentStore, func() error, error) {
	switch config.StoreBackend {
	case BackendMemory, "":
		return NewMemoryStore(log), func() error { return nil }, nil

	case BackendBadger:
		db, err := badger.Open(buildBadgerOpts(ctx, config, log))
		if err != nil {
			return nil, nil, fmt.Errorf("database opening failed: %w", err)
		}
		return NewBadgerStore(db, log), func() error {
			log.Info("Closing BadgerDB...")
			return db.Close()
		}, nil

	case BackendMongo:
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(config.MongoURI))
		if err != nil {
			return nil, nil, fmt.Errorf("mongo connection failed: %w", err)
		}
		store, err := NewMongoStore(ctx, client, config.MongoDatabase, log)
		if err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, err
		}
		return store, func() error {
			log.Info("Disconnecting MongoDB...")
			return client.Disconnect(context.Background())
		}, nil

	case BackendRedis:
		client := redis.NewClient(&redis.Options{Addr: config.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("redis connection failed: %w", err)
		}
		return NewRedisStore(client, log), func() error {
			log.Info("Closing Redis client...")
			return client.Close()
		}, nil
	}
	return nil, nil, fmt.Errorf("%w: %q", errors.ErrUnknownBackend, config.StoreBackend)
}

func buildBadgerOpts(ctx context.Context, config internal.Config, log *slog.Logger) badger.Options {
	opts := badger.DefaultOptions(config.BadgerFilepath)
	if log.Enabled(ctx, slog.LevelDebug) {
		return opts.WithLoggingLevel(badger.DEBUG)
	}
	return opts.WithLoggingLevel(badger.WARNING)
}
