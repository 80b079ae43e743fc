// Package domain contains core concepts of the chat room.
// This file defines the Message entity and the rules around the recent window.
// Messages are created once by their sender and never mutated afterwards.
package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	// WindowSize is the number of most recent messages the room ever observes.
	WindowSize = 25
	// MinTextLength is the minimum number of characters accepted on send.
	MinTextLength = 3
)

// Placeholders substituted for fields that are absent or mistyped in a stored record.
const (
	PlaceholderText     = "error with text"
	PlaceholderSenderID = "error with uid"
	PlaceholderPhotoURL = "error with photoURL"
)

// Epoch is the timestamp given to records without a usable createdAt.
var Epoch = time.Unix(0, 0).UTC()

// Message represents an immutable chat message.
type Message struct {
	ID             uuid.UUID // client generated, uuid.Nil when the record carries none
	Text           string
	SenderPhotoURL string
	SenderID       string
	CreatedAt      time.Time
}

// IsOwnedBy reports whether the message was sent by the given user.
func (m Message) IsOwnedBy(userID string) bool {
	return m.SenderID == userID
}
