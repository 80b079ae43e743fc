package storage

import (
	"bytes"
	"chat-room/contract"
	"chat-room/errors"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/pb"
	"github.com/google/uuid"
)

const (
	messagePrefix = "msg:"

	// listenPrefix keys are written by Listen to learn when its subscription is live.
	listenPrefix   = "listen:"
	listenInterval = 5 * time.Millisecond
)

// BadgerStore keeps the messages collection in BadgerDB.
type BadgerStore struct {
	db  *badger.DB
	log *slog.Logger

	// afterInitialQuery runs between the first query of Listen and its subscription, tests only.
	afterInitialQuery func()
}

func NewBadgerStore(db *badger.DB, log *slog.Logger) *BadgerStore {
	return &BadgerStore{db: db, log: log}
}

// Add persists a record in BadgerDB.
// The key is formatted as "msg:{created_at_padded}:{id}" to:
//  1. Ensure chronological sorting using 19-digit zero padding (lexicographical order).
//  2. Prevent data loss by using the id as a collision disconnector if two messages
//     share the same nanosecond.
func (s *BadgerStore) Add(ctx context.Context, r contract.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	value, err := encodeRecord(r)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}
	key := messageKey(timeOf(r, contract.FieldCreatedAt), idOf(r))
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

// Query scans the message prefix in key order, backwards for a descending query.
// Thanks to the padded timestamp in the key, records come out sorted by createdAt.
func (s *BadgerStore) Query(ctx context.Context, q contract.Query) ([]contract.Record, error) {
	if q.OrderBy != contract.FieldCreatedAt {
		return nil, fmt.Errorf("%w: badger orders by %s only", errors.ErrUnsupportedOrder, contract.FieldCreatedAt)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var values [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte(messagePrefix)
		options := badger.DefaultIteratorOptions
		options.Reverse = q.Descending
		it := txn.NewIterator(options)
		defer it.Close()

		seekKey := prefix
		if q.Descending {
			// Past the last possible key of the prefix, the iterator then walks back
			seekKey = append([]byte(messagePrefix), 0xff)
		}
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if q.Limit > 0 && len(values) == q.Limit {
				break
			}
			value, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			values = append(values, value)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	records := make([]contract.Record, 0, len(values))
	for _, value := range values {
		r, err := decodeRecord(value)
		if err != nil {
			// A broken value is still a message, its fields decode to placeholders
			s.log.Debug("Undecodable record in badger", "error", err)
			r = contract.Record{}
		}
		records = append(records, r)
	}
	return records, nil
}

// Listen reruns the query each time a key under the message prefix is written.
// db.Subscribe gives no signal once it is registered, so Listen keeps touching a marker key
// of its own until the subscription reports it. The query rerun for that marker covers any
// write that landed between the first query and the registration.
func (s *BadgerStore) Listen(ctx context.Context, q contract.Query) (contract.Listener, error) {
	initial, err := s.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	if s.afterInitialQuery != nil {
		s.afterInitialQuery()
	}
	listenCtx, cancel := context.WithCancel(ctx)
	feed := newChangeFeed(cancel)
	feed.publish(initial)

	marker := []byte(listenPrefix + uuid.NewString())
	registered := make(chan struct{})
	var once sync.Once
	go func() {
		err := s.db.Subscribe(listenCtx, func(kvs *badger.KVList) error {
			records, err := s.Query(listenCtx, q)
			if err != nil {
				return err
			}
			feed.publish(records)
			for _, kv := range kvs.GetKv() {
				if bytes.Equal(kv.GetKey(), marker) {
					once.Do(func() { close(registered) })
				}
			}
			return nil
		}, []pb.Match{{Prefix: []byte(messagePrefix)}, {Prefix: marker}})
		feed.finish(err)
	}()
	go s.touchUntilRegistered(listenCtx, marker, registered)
	return feed, nil
}

func (s *BadgerStore) touchUntilRegistered(ctx context.Context, marker []byte, registered <-chan struct{}) {
	defer func() {
		err := s.db.Update(func(txn *badger.Txn) error {
			return txn.Delete(marker)
		})
		if err != nil {
			s.log.Debug("Listen marker not removed", "error", err)
		}
	}()
	ticker := time.NewTicker(listenInterval)
	defer ticker.Stop()
	for {
		err := s.db.Update(func(txn *badger.Txn) error {
			return txn.Set(marker, nil)
		})
		if err != nil {
			s.log.Debug("Listen marker not written", "error", err)
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-registered:
			return
		case <-ticker.C:
		}
	}
}

func messageKey(at time.Time, id string) []byte {
	nanos := int64(0)
	if at.After(time.Unix(0, 0)) {
		nanos = at.UnixNano()
	}
	return []byte(fmt.Sprintf("%s%019d:%s", messagePrefix, nanos, id))
}
