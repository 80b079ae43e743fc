package storage

import (
	"chat-room/contract"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// encodeRecord serializes a record as a protobuf Struct.
// Timestamps become RFC 3339 strings, decodeRecord turns them back for the known time fields.
func encodeRecord(r contract.Record) ([]byte, error) {
	fields := make(map[string]any, len(r))
	for k, v := range r {
		switch val := v.(type) {
		case time.Time:
			fields[k] = val.UTC().Format(time.RFC3339Nano)
		default:
			fields[k] = v
		}
	}
	st, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	return proto.Marshal(st)
}

func decodeRecord(b []byte) (contract.Record, error) {
	var st structpb.Struct
	if err := proto.Unmarshal(b, &st); err != nil {
		return nil, err
	}
	r := contract.Record(st.AsMap())
	if s, ok := r[contract.FieldCreatedAt].(string); ok {
		if at, err := time.Parse(time.RFC3339Nano, s); err == nil {
			r[contract.FieldCreatedAt] = at
		}
	}
	return r, nil
}

// timeOf reads a time field, the zero time when it is absent or not a time.
func timeOf(r contract.Record, field string) time.Time {
	at, _ := r[field].(time.Time)
	return at
}

// idOf returns the record id, generating one for records that carry none.
func idOf(r contract.Record) string {
	if id, ok := r[contract.FieldID].(string); ok && id != "" {
		return id
	}
	return uuid.NewString()
}
