package repositories

import (
	"chat-room/contract"
	"chat-room/domain"
	"chat-room/errors"
	"chat-room/observability"
	"chat-room/projection"
	"chat-room/runtime"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RecentWindow is the only query the chat room ever runs: the newest messages first, bounded.
var RecentWindow = contract.Query{
	OrderBy:    contract.FieldCreatedAt,
	Descending: true,
	Limit:      domain.WindowSize,
}

type Options struct {
	SendTimeout  time.Duration
	FetchTimeout time.Duration
}

// MessageStore is the client of the messages collection.
// Fetching and listening are independent: a caller may do either without the other.
type MessageStore struct {
	log      *slog.Logger
	store    contract.DocumentStore
	metrics  *observability.Metrics
	registry *runtime.Registry
	options  Options
	sends    sync.WaitGroup
}

func NewMessageStore(log *slog.Logger, store contract.DocumentStore,
	metrics *observability.Metrics, options Options) *MessageStore {
	return &MessageStore{
		log:      log,
		store:    store,
		metrics:  metrics,
		registry: runtime.NewRegistry(),
		options:  options,
	}
}

// FetchRecent runs one bounded query and returns the window oldest first.
// Failures are returned once, never retried.
func (m *MessageStore) FetchRecent(ctx context.Context) ([]domain.Message, error) {
	if m.options.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.options.FetchTimeout)
		defer cancel()
	}
	records, err := m.store.Query(ctx, RecentWindow)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrFetchFailed, err)
	}
	messages, substituted := projection.Snapshot(records)
	m.placeholders(substituted)
	return messages, nil
}

// Subscribe opens a standing listener on the recent window.
// The stream lives until it is closed, ctx is cancelled, or the store client is closed.
func (m *MessageStore) Subscribe(ctx context.Context) (contract.SnapshotStream, error) {
	listener, err := m.store.Listen(ctx, RecentWindow)
	if err != nil {
		return nil, fmt.Errorf("listening to recent messages: %w", err)
	}
	sub := newSubscription(uuid.NewString(), m, listener)
	m.registry.Subscribe(sub.id, sub)
	m.metrics.SubscriptionOpened()
	go sub.pump(ctx)
	return sub, nil
}

// Send writes one message without waiting for the store.
// A failed write is logged and dropped, the caller never hears about it.
func (m *MessageStore) Send(message domain.Message) {
	record := projection.ToRecord(message)
	m.sends.Add(1)
	go func() {
		defer m.sends.Done()
		ctx := context.Background()
		if m.options.SendTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, m.options.SendTimeout)
			defer cancel()
		}
		if err := m.store.Add(ctx, record); err != nil {
			m.metrics.SendFailed()
			m.log.Debug("Message write dropped", "message_id", message.ID, "error", err)
			return
		}
		m.metrics.MessageSent()
	}()
}

// OpenSubscriptions is the number of streams not closed yet.
func (m *MessageStore) OpenSubscriptions() int {
	return m.registry.Len()
}

// Close releases every open subscription and waits for in-flight writes.
func (m *MessageStore) Close() error {
	err := m.registry.CloseAll()
	m.sends.Wait()
	return err
}

func (m *MessageStore) placeholders(n int) {
	if n == 0 {
		return
	}
	m.metrics.PlaceholdersUsed(n)
	m.log.Debug("Placeholders substituted while decoding messages", "count", n)
}
