package storage

import (
	"chat-room/contract"
	"chat-room/errors"
	"context"
	"fmt"
	"log/slog"

	"github.com/go-redis/redis/v8"
)

const (
	redisIndexKey       = "messages:by_created_at"
	redisRecordsKey     = "messages:records"
	redisChangesChannel = "messages:changes"
)

// RedisStore keeps records in a hash, ordered by a sorted set scored with createdAt
// in microseconds. Every Add is announced on a pub/sub channel.
type RedisStore struct {
	client *redis.Client
	log    *slog.Logger
}

func NewRedisStore(client *redis.Client, log *slog.Logger) *RedisStore {
	return &RedisStore{client: client, log: log}
}

func (s *RedisStore) Add(ctx context.Context, r contract.Record) error {
	payload, err := encodeRecord(r)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}
	id := idOf(r)
	score := float64(timeOf(r, contract.FieldCreatedAt).UnixMicro())

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, redisRecordsKey, id, payload)
	pipe.ZAdd(ctx, redisIndexKey, &redis.Z{Score: score, Member: id})
	pipe.Publish(ctx, redisChangesChannel, id)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) Query(ctx context.Context, q contract.Query) ([]contract.Record, error) {
	if q.OrderBy != contract.FieldCreatedAt {
		return nil, fmt.Errorf("%w: redis orders by %s only", errors.ErrUnsupportedOrder, contract.FieldCreatedAt)
	}
	stop := int64(-1)
	if q.Limit > 0 {
		stop = int64(q.Limit - 1)
	}
	var ids []string
	var err error
	if q.Descending {
		ids, err = s.client.ZRevRange(ctx, redisIndexKey, 0, stop).Result()
	} else {
		ids, err = s.client.ZRange(ctx, redisIndexKey, 0, stop).Result()
	}
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	values, err := s.client.HMGet(ctx, redisRecordsKey, ids...).Result()
	if err != nil {
		return nil, err
	}
	records := make([]contract.Record, 0, len(values))
	for i, value := range values {
		payload, ok := value.(string)
		if !ok {
			s.log.Debug("Indexed message without record", "id", ids[i])
			continue
		}
		r, err := decodeRecord([]byte(payload))
		if err != nil {
			s.log.Debug("Undecodable record in redis", "id", ids[i], "error", err)
			r = contract.Record{}
		}
		records = append(records, r)
	}
	return records, nil
}

// Listen subscribes to the change channel and reruns the query for each announcement.
func (s *RedisStore) Listen(ctx context.Context, q contract.Query) (contract.Listener, error) {
	pubsub := s.client.Subscribe(ctx, redisChangesChannel)
	// Wait for the subscription to be confirmed so no Add slips in unseen
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribing to %s: %w", redisChangesChannel, err)
	}
	initial, err := s.Query(ctx, q)
	if err != nil {
		_ = pubsub.Close()
		return nil, err
	}
	listenCtx, cancel := context.WithCancel(ctx)
	feed := newChangeFeed(cancel)
	feed.publish(initial)

	go func() {
		defer func() {
			_ = pubsub.Close()
		}()
		announcements := pubsub.Channel()
		for {
			select {
			case <-listenCtx.Done():
				feed.finish(nil)
				return
			case _, ok := <-announcements:
				if !ok {
					feed.finish(nil)
					return
				}
				records, err := s.Query(listenCtx, q)
				if err != nil {
					feed.finish(err)
					return
				}
				feed.publish(records)
			}
		}
	}()
	return feed, nil
}
