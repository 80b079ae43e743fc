package repositories

import (
	"chat-room/contract"
	"chat-room/domain"
	"chat-room/projection"
	"chat-room/sink"
	"context"
	"sync"
)

// Subscription pumps listener changes, projected oldest first, into a snapshot sink.
type Subscription struct {
	id       string
	owner    *MessageStore
	listener contract.Listener
	sink     *sink.SnapshotSink
	once     sync.Once
	done     chan struct{}
	stopped  chan struct{}
	closeErr error
}

func newSubscription(id string, owner *MessageStore, listener contract.Listener) *Subscription {
	return &Subscription{
		id:       id,
		owner:    owner,
		listener: listener,
		sink:     sink.NewSnapshotSink(),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

func (s *Subscription) Snapshots() <-chan []domain.Message {
	return s.sink.C()
}

// Close stops the listener and unregisters the subscription. It is safe to call more than once.
func (s *Subscription) Close() error {
	s.once.Do(func() {
		close(s.done)
		s.closeErr = s.listener.Close()
		s.owner.registry.Unsubscribe(s.id)
		s.owner.metrics.SubscriptionClosed()
	})
	return s.closeErr
}

// Stopped is closed once the pump has exited and the snapshot channel is closed.
func (s *Subscription) Stopped() <-chan struct{} {
	return s.stopped
}

func (s *Subscription) pump(ctx context.Context) {
	defer close(s.stopped)
	defer s.sink.Close()
	log := s.owner.log.With("subscription_id", s.id)
	changes := s.listener.Changes()
	for {
		select {
		case <-s.done:
			return
		case <-ctx.Done():
			log.Debug("Context done, closing subscription")
			_ = s.Close()
			return
		case records, ok := <-changes:
			if !ok {
				if err := s.listener.Err(); err != nil {
					log.Warn("Listener stopped", "error", err)
				}
				_ = s.Close()
				return
			}
			messages, substituted := projection.Snapshot(records)
			s.owner.placeholders(substituted)
			replaced, err := s.sink.Consume(ctx, messages)
			if err != nil {
				continue
			}
			s.owner.metrics.SnapshotDelivered(replaced)
		}
	}
}
