//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-room/domain"
	"context"
)

// Field names of a stored message record.
const (
	FieldID        = "id"
	FieldText      = "text"
	FieldUID       = "uid"
	FieldPhotoURL  = "photoURL"
	FieldCreatedAt = "createdAt"
)

// Record is a raw document as held by the document store.
// Values are whatever the backend decoded, nothing is guaranteed about their types.
type Record map[string]any

// Query describes a bounded, ordered read of the messages collection.
type Query struct {
	OrderBy    string
	Descending bool
	Limit      int
}

// DocumentStore is the hosted document database holding the messages collection.
type DocumentStore interface {
	Query(ctx context.Context, q Query) ([]Record, error)
	Add(ctx context.Context, r Record) error
	Listen(ctx context.Context, q Query) (Listener, error)
}

// Listener delivers the full result of its query every time the collection changes.
// Changes is closed once the listener stops, Err then tells why.
type Listener interface {
	Changes() <-chan []Record
	Err() error
	Close() error
}

// MessageStore is the client side view of the messages collection.
type MessageStore interface {
	FetchRecent(ctx context.Context) ([]domain.Message, error)
	Subscribe(ctx context.Context) (SnapshotStream, error)
	Send(message domain.Message)
}

// SnapshotStream emits the recent window, oldest first, each time it changes.
type SnapshotStream interface {
	Snapshots() <-chan []domain.Message
	Close() error
}

type Renderer interface {
	Render(frame domain.Frame)
}

// IdentityProvider exchanges a third-party identity token for a session.
type IdentityProvider interface {
	SignIn(ctx context.Context, idToken string) (domain.Session, error)
	SignOut(ctx context.Context) error
	Current() (domain.Session, bool)
}
