package projection

import (
	"chat-room/domain"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// MergePolicy decides what happens to optimistic messages when a snapshot arrives.
type MergePolicy int

const (
	// MergeReconcile keeps optimistic messages the snapshot does not echo yet, matched by client id.
	MergeReconcile MergePolicy = iota
	// MergeReplace lets the snapshot win outright, a just-sent message may vanish or show twice.
	MergeReplace
)

func ParseMergePolicy(s string) MergePolicy {
	if s == "replace" {
		return MergeReplace
	}
	return MergeReconcile
}

// Timeline holds the local, oldest-first message list of the chat surface.
// Only the surface goroutine writes to it; readers get copies.
type Timeline struct {
	mu       sync.RWMutex
	policy   MergePolicy
	messages []domain.Message
	pending  []domain.Message
}

func NewTimeline(policy MergePolicy) *Timeline {
	return &Timeline{policy: policy}
}

// Append adds an optimistic message at the end of the list.
func (t *Timeline) Append(m domain.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = append(t.messages, m)
	if t.policy == MergeReconcile && m.ID != uuid.Nil {
		t.pending = append(t.pending, m)
	}
}

// Replace swaps the whole list for a snapshot.
// Under MergeReconcile a pending message is forgotten once the store echoes its id,
// or once a full window starts after it.
func (t *Timeline) Replace(snapshot []domain.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	merged := slices.Clone(snapshot)
	if t.policy == MergeReplace || len(t.pending) == 0 {
		t.messages = merged
		return
	}

	echoed := lo.SliceToMap(snapshot, func(m domain.Message) (uuid.UUID, struct{}) {
		return m.ID, struct{}{}
	})
	full := len(snapshot) >= domain.WindowSize
	t.pending = lo.Filter(t.pending, func(m domain.Message, _ int) bool {
		if _, ok := echoed[m.ID]; ok {
			return false
		}
		return !(full && m.CreatedAt.Before(snapshot[0].CreatedAt))
	})
	if len(t.pending) > 0 {
		merged = append(merged, t.pending...)
		slices.SortStableFunc(merged, func(a, b domain.Message) int {
			return a.CreatedAt.Compare(b.CreatedAt)
		})
	}
	t.messages = merged
}

func (t *Timeline) Messages() []domain.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.messages)
}

func (t *Timeline) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}

// Pending is the number of optimistic messages not yet echoed by the store.
func (t *Timeline) Pending() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.pending)
}
