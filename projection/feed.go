// Package projection turns raw stored records into the ordered message list shown to the user.
// It decodes, orders and merges snapshots; it never talks to the store or renders anything.
package projection

import (
	"chat-room/contract"
	"chat-room/domain"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// Decode maps one record to a Message.
// Absent or mistyped fields are replaced by their placeholder and reported in missing.
func Decode(r contract.Record) (message domain.Message, missing []string) {
	text, ok := r[contract.FieldText].(string)
	if !ok {
		text = domain.PlaceholderText
		missing = append(missing, contract.FieldText)
	}
	uid, ok := r[contract.FieldUID].(string)
	if !ok {
		uid = domain.PlaceholderSenderID
		missing = append(missing, contract.FieldUID)
	}
	photoURL, ok := r[contract.FieldPhotoURL].(string)
	if !ok {
		photoURL = domain.PlaceholderPhotoURL
		missing = append(missing, contract.FieldPhotoURL)
	}
	createdAt, ok := decodeTime(r[contract.FieldCreatedAt])
	if !ok {
		createdAt = domain.Epoch
		missing = append(missing, contract.FieldCreatedAt)
	}
	return domain.Message{
		ID:             decodeID(r[contract.FieldID]),
		Text:           text,
		SenderPhotoURL: photoURL,
		SenderID:       uid,
		CreatedAt:      createdAt,
	}, missing
}

func ToMessage(r contract.Record) domain.Message {
	message, _ := Decode(r)
	return message
}

// Snapshot projects a newest-first window into an oldest-first list.
// Nothing is deduplicated: the window is trusted as delivered.
func Snapshot(records []contract.Record) (messages []domain.Message, substituted int) {
	messages = lo.Map(records, func(r contract.Record, _ int) domain.Message {
		message, missing := Decode(r)
		substituted += len(missing)
		return message
	})
	slices.Reverse(messages)
	return messages, substituted
}

// ToRecord is the document written for an outgoing message.
func ToRecord(m domain.Message) contract.Record {
	return contract.Record{
		contract.FieldID:        m.ID.String(),
		contract.FieldText:      m.Text,
		contract.FieldUID:       m.SenderID,
		contract.FieldPhotoURL:  m.SenderPhotoURL,
		contract.FieldCreatedAt: m.CreatedAt,
	}
}

func decodeTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t != nil {
			return *t, true
		}
	case *timestamppb.Timestamp:
		if t.IsValid() {
			return t.AsTime(), true
		}
	case int64:
		return time.Unix(0, t).UTC(), true
	}
	return time.Time{}, false
}

func decodeID(v any) uuid.UUID {
	s, ok := v.(string)
	if !ok {
		return uuid.Nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil
	}
	return id
}
