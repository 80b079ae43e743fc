package storage

import (
	"chat-room/contract"
	"context"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/samber/lo"
)

// MemoryStore is an in-process messages collection.
// Listeners receive the current result as soon as they are opened and after every Add.
type MemoryStore struct {
	mu        sync.RWMutex
	log       *slog.Logger
	records   []contract.Record
	listeners map[*changeFeed]contract.Query
}

func NewMemoryStore(log *slog.Logger) *MemoryStore {
	return &MemoryStore{
		log:       log,
		listeners: make(map[*changeFeed]contract.Query),
	}
}

func (s *MemoryStore) Query(ctx context.Context, q contract.Query) ([]contract.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return window(s.records, q), nil
}

func (s *MemoryStore) Add(ctx context.Context, r contract.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, maps.Clone(r))
	for feed, q := range s.listeners {
		feed.publish(window(s.records, q))
	}
	return nil
}

func (s *MemoryStore) Listen(ctx context.Context, q contract.Query) (contract.Listener, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	listenCtx, cancel := context.WithCancel(ctx)
	feed := newChangeFeed(cancel)

	s.mu.Lock()
	s.listeners[feed] = q
	feed.publish(window(s.records, q))
	s.mu.Unlock()

	go func() {
		<-listenCtx.Done()
		s.mu.Lock()
		delete(s.listeners, feed)
		s.mu.Unlock()
		feed.finish(nil)
	}()
	return feed, nil
}

// Listeners is the number of listeners still attached.
func (s *MemoryStore) Listeners() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.listeners)
}

func window(records []contract.Record, q contract.Query) []contract.Record {
	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, func(a, b contract.Record) int {
		c := timeOf(a, q.OrderBy).Compare(timeOf(b, q.OrderBy))
		if q.Descending {
			return -c
		}
		return c
	})
	if q.Limit > 0 && len(sorted) > q.Limit {
		sorted = sorted[:q.Limit]
	}
	return lo.Map(sorted, func(r contract.Record, _ int) contract.Record {
		return maps.Clone(r)
	})
}
