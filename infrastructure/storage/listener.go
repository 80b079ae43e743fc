package storage

import (
	"chat-room/contract"
	"chat-room/errors"
	"context"
	"sync"
)

// changeFeed is the Listener shared by every backend.
// A backend goroutine publishes full query results and calls finish when it stops.
// Only the latest undelivered result is kept.
type changeFeed struct {
	mu        sync.Mutex
	changes   chan []contract.Record
	err       error
	closed    bool
	cancelled bool
	cancel    context.CancelFunc
	done      chan struct{}
}

func newChangeFeed(cancel context.CancelFunc) *changeFeed {
	return &changeFeed{
		changes: make(chan []contract.Record, 1),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
}

func (f *changeFeed) publish(records []contract.Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	select {
	case f.changes <- records:
		return
	default:
	}
	select {
	case <-f.changes:
	default:
	}
	f.changes <- records
}

// finish ends the feed. Errors caused by closing the feed are not reported.
func (f *changeFeed) finish(err error) {
	f.mu.Lock()
	if !f.closed {
		if err != nil && !errors.Is(err, context.Canceled) && !f.cancelled {
			f.err = err
		}
		f.closed = true
		close(f.changes)
	}
	f.mu.Unlock()
	close(f.done)
}

func (f *changeFeed) Changes() <-chan []contract.Record {
	return f.changes
}

func (f *changeFeed) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Close cancels the backend goroutine and waits for it to exit.
func (f *changeFeed) Close() error {
	f.mu.Lock()
	f.cancelled = true
	f.mu.Unlock()
	f.cancel()
	<-f.done
	return nil
}
