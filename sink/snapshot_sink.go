package sink

import (
	"chat-room/domain"
	"context"
	"sync"
)

// SnapshotSink hands snapshots from a store listener to a single consumer.
// It holds at most one undelivered snapshot: a newer one replaces it, since each snapshot
// is the whole window there is nothing to lose.
type SnapshotSink struct {
	mu     sync.Mutex
	out    chan []domain.Message
	closed bool
}

func NewSnapshotSink() *SnapshotSink {
	return &SnapshotSink{out: make(chan []domain.Message, 1)}
}

// Consume is called by the subscription pump.
// It never blocks on a slow consumer and reports whether an older snapshot was replaced.
func (s *SnapshotSink) Consume(ctx context.Context, snapshot []domain.Message) (replaced bool, err error) {
	if err = ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, nil
	}
	select {
	case s.out <- snapshot:
		return false, nil
	default:
	}
	select {
	case <-s.out:
		replaced = true
	default:
	}
	// The lock makes this the only producer, the slot is free now
	s.out <- snapshot
	return replaced, nil
}

func (s *SnapshotSink) C() <-chan []domain.Message {
	return s.out
}

func (s *SnapshotSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.out)
}
