// Package runtime handles process-level plumbing: open subscriptions and loaded word lists.
// It holds no chat rules.
package runtime

import (
	"chat-room/contract"
	"errors"
	"sync"
)

// Registry keeps every snapshot stream a store client has handed out,
// so that tearing the client down releases all of them.
type Registry struct {
	mu            sync.RWMutex
	subscriptions map[string]contract.SnapshotStream
}

func NewRegistry() *Registry {
	return &Registry{
		subscriptions: make(map[string]contract.SnapshotStream),
	}
}

// Subscribe records an open stream under its id.
func (r *Registry) Subscribe(id string, stream contract.SnapshotStream) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subscriptions[id] = stream
}

// Unsubscribe forgets a stream. It does not close it: streams call this from their own Close.
func (r *Registry) Unsubscribe(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.subscriptions, id)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subscriptions)
}

// CloseAll closes every stream still registered.
// The lock is released before closing since streams unsubscribe themselves.
func (r *Registry) CloseAll() error {
	r.mu.Lock()
	streams := make([]contract.SnapshotStream, 0, len(r.subscriptions))
	for _, stream := range r.subscriptions {
		streams = append(streams, stream)
	}
	r.subscriptions = make(map[string]contract.SnapshotStream)
	r.mu.Unlock()

	var errs []error
	for _, stream := range streams {
		if err := stream.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
