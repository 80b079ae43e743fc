package storage

import (
	"chat-room/contract"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var recentWindow = contract.Query{OrderBy: contract.FieldCreatedAt, Descending: true, Limit: 25}

func newRecord(i int, at time.Time) contract.Record {
	return contract.Record{
		contract.FieldID:        uuid.NewString(),
		contract.FieldText:      fmt.Sprintf("message %d", i),
		contract.FieldUID:       fmt.Sprintf("user_%d", i%3),
		contract.FieldPhotoURL:  "https://example.com/p.png",
		contract.FieldCreatedAt: at,
	}
}

// seed adds n records one second apart, starting at base.
func seed(t *testing.T, store contract.DocumentStore, base time.Time, n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		require.NoError(t, store.Add(context.Background(), newRecord(i, base.Add(time.Duration(i)*time.Second))))
	}
}

func texts(records []contract.Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		text, _ := r[contract.FieldText].(string)
		out = append(out, text)
	}
	return out
}

func nextChange(t *testing.T, listener contract.Listener) []contract.Record {
	t.Helper()
	select {
	case records, ok := <-listener.Changes():
		require.True(t, ok, "listener closed")
		return records
	case <-time.After(5 * time.Second):
		t.Fatal("no change delivered")
		return nil
	}
}

// runStoreSuite checks the behaviour every DocumentStore backend shares.
func runStoreSuite(t *testing.T, open func(t *testing.T) contract.DocumentStore) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Query_Returns_Newest_Window_Descending", func(t *testing.T) {
		req := require.New(t)
		store := open(t)
		seed(t, store, base, 30)

		records, err := store.Query(context.Background(), recentWindow)
		req.NoError(err)
		req.Len(records, 25)
		req.Equal("message 30", records[0][contract.FieldText])
		req.Equal("message 6", records[24][contract.FieldText])
	})

	t.Run("Query_Ascending", func(t *testing.T) {
		req := require.New(t)
		store := open(t)
		seed(t, store, base, 3)

		records, err := store.Query(context.Background(), contract.Query{OrderBy: contract.FieldCreatedAt, Limit: 2})
		req.NoError(err)
		req.Equal([]string{"message 1", "message 2"}, texts(records))
	})

	t.Run("Query_Empty", func(t *testing.T) {
		req := require.New(t)
		store := open(t)

		records, err := store.Query(context.Background(), recentWindow)
		req.NoError(err)
		req.Empty(records)
	})

	t.Run("Record_Fields_Round_Trip", func(t *testing.T) {
		req := require.New(t)
		store := open(t)
		at := base.Add(1500 * time.Millisecond)
		record := newRecord(1, at)
		req.NoError(store.Add(context.Background(), record))

		records, err := store.Query(context.Background(), recentWindow)
		req.NoError(err)
		req.Len(records, 1)
		got := records[0]
		req.Equal(record[contract.FieldID], got[contract.FieldID])
		req.Equal(record[contract.FieldText], got[contract.FieldText])
		req.Equal(record[contract.FieldUID], got[contract.FieldUID])
		req.Equal(record[contract.FieldPhotoURL], got[contract.FieldPhotoURL])
		createdAt, ok := got[contract.FieldCreatedAt].(time.Time)
		req.True(ok)
		req.True(at.Equal(createdAt))
	})

	t.Run("Listen_Delivers_Initial_Then_Every_Change", func(t *testing.T) {
		req := require.New(t)
		store := open(t)
		seed(t, store, base, 2)

		listener, err := store.Listen(context.Background(), recentWindow)
		req.NoError(err)
		defer listener.Close()

		req.Equal([]string{"message 2", "message 1"}, texts(nextChange(t, listener)))

		req.NoError(store.Add(context.Background(), newRecord(3, base.Add(time.Minute))))
		req.Eventually(func() bool {
			select {
			case records := <-listener.Changes():
				return len(records) == 3 && records[0][contract.FieldText] == "message 3"
			default:
				return false
			}
		}, 5*time.Second, 10*time.Millisecond)
	})

	t.Run("Listen_Close_Ends_Changes", func(t *testing.T) {
		req := require.New(t)
		store := open(t)

		listener, err := store.Listen(context.Background(), recentWindow)
		req.NoError(err)
		req.NoError(listener.Close())

		req.Eventually(func() bool {
			_, ok := <-listener.Changes()
			return !ok
		}, 5*time.Second, 10*time.Millisecond)
		req.NoError(listener.Err())
	})

	t.Run("Listen_Context_Cancel_Ends_Changes", func(t *testing.T) {
		req := require.New(t)
		store := open(t)
		ctx, cancel := context.WithCancel(context.Background())

		listener, err := store.Listen(ctx, recentWindow)
		req.NoError(err)
		cancel()

		req.Eventually(func() bool {
			_, ok := <-listener.Changes()
			return !ok
		}, 5*time.Second, 10*time.Millisecond)
		req.NoError(listener.Close())
	})
}
