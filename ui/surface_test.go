package ui

import (
	"chat-room/contract"
	"chat-room/domain"
	"chat-room/errors"
	"chat-room/infrastructure/storage"
	"chat-room/mocks"
	"chat-room/moderation"
	"chat-room/observability"
	"chat-room/projection"
	"chat-room/repositories"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var (
	base  = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	alice = domain.Session{UserID: "alice", PhotoURL: "https://example.com/alice.png"}
)

// frameRecorder keeps every frame it is asked to render.
type frameRecorder struct {
	mu     sync.Mutex
	frames []domain.Frame
}

func (r *frameRecorder) Render(frame domain.Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, frame)
}

func (r *frameRecorder) last() (domain.Frame, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.frames) == 0 {
		return domain.Frame{}, false
	}
	return r.frames[len(r.frames)-1], true
}

// scrolled is the first frame that asked to scroll to the last row.
func (r *frameRecorder) scrolled() *domain.Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, frame := range r.frames {
		if frame.ScrollToLast {
			return &frame
		}
	}
	return nil
}

func rowTexts(frame domain.Frame) []string {
	out := make([]string, 0, len(frame.Rows))
	for _, row := range frame.Rows {
		out = append(out, row.Message.Text)
	}
	return out
}

func record(text, uid string, at time.Time) contract.Record {
	return contract.Record{
		contract.FieldID:        uuid.NewString(),
		contract.FieldText:      text,
		contract.FieldUID:       uid,
		contract.FieldCreatedAt: at,
	}
}

// start runs the surface on a memory store and returns it with its store and renderer.
func start(t *testing.T, session domain.Session, opts ...Option) (*Surface, *storage.MemoryStore, *frameRecorder, *repositories.MessageStore) {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	documentStore := storage.NewMemoryStore(log)
	messageStore := repositories.NewMessageStore(log, documentStore, observability.NewMetrics(nil),
		repositories.Options{SendTimeout: time.Second, FetchTimeout: time.Second})
	recorder := &frameRecorder{}
	surface := NewSurface(log, messageStore, session, recorder, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() {
		errs <- surface.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-errs)
		_ = messageStore.Close()
	})
	return surface, documentStore, recorder, messageStore
}

func eventuallyShows(t *testing.T, recorder *frameRecorder, expected []string) {
	t.Helper()
	require.Eventually(t, func() bool {
		frame, ok := recorder.last()
		return ok && fmt.Sprint(rowTexts(frame)) == fmt.Sprint(expected)
	}, 5*time.Second, 10*time.Millisecond, "expected %v", expected)
}

func TestSurface_Shows_Existing_Window_Ascending(t *testing.T) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	documentStore := storage.NewMemoryStore(log)
	for i := 1; i <= 30; i++ {
		require.NoError(t, documentStore.Add(context.Background(),
			record(fmt.Sprintf("message %d", i), "bob", base.Add(time.Duration(i)*time.Second))))
	}
	messageStore := repositories.NewMessageStore(log, documentStore, nil, repositories.Options{})
	recorder := &frameRecorder{}
	surface := NewSurface(log, messageStore, alice, recorder)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = surface.Run(ctx) }()

	require.Eventually(t, func() bool {
		messages := surface.Messages()
		return len(messages) == 25 && messages[0].Text == "message 6" && messages[24].Text == "message 30"
	}, 5*time.Second, 10*time.Millisecond)
}

func TestSurface_Send_Appends_Right_Aligned_And_Scrolls(t *testing.T) {
	req := require.New(t)
	clock := func() time.Time { return base }
	surface, documentStore, recorder, _ := start(t, alice, WithClock(clock))
	eventuallyShows(t, recorder, []string{})

	req.NoError(surface.Submit(context.Background(), "hello"))

	frame := recorder.scrolled()
	req.NotNil(frame)
	req.Equal("hello", frame.Rows[len(frame.Rows)-1].Message.Text)
	req.Equal(domain.AlignRight, frame.Rows[len(frame.Rows)-1].Alignment)

	req.Eventually(func() bool {
		records, err := documentStore.Query(context.Background(), repositories.RecentWindow)
		return err == nil && len(records) == 1
	}, 5*time.Second, 10*time.Millisecond)
	records, err := documentStore.Query(context.Background(), repositories.RecentWindow)
	req.NoError(err)
	req.Equal("hello", records[0][contract.FieldText])
	req.Equal("alice", records[0][contract.FieldUID])
	req.Equal(alice.PhotoURL, records[0][contract.FieldPhotoURL])
	req.Equal(base, records[0][contract.FieldCreatedAt])

	// The echo replaces the optimistic row, it is not shown twice
	eventuallyShows(t, recorder, []string{"hello"})
}

func TestSurface_Rejects_Short_Text(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"Empty", ""},
		{"Two characters", "hi"},
		{"Two multibyte characters", "éé"},
		{"Combining accent", "e\u0301x"},
		{"Skin tone modifiers", "\U0001F44D\U0001F3FD\U0001F44B\U0001F3FF"},
		{"Flag pair", "\U0001F1EB\U0001F1F7!"},
		{"Family emoji", "\U0001F468\u200D\U0001F469\u200D\U0001F467"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			surface, documentStore, recorder, _ := start(t, alice)
			eventuallyShows(t, recorder, []string{})

			err := surface.Submit(context.Background(), tt.text)
			req.True(errors.Is(err, errors.ErrTextTooShort))
			req.Empty(surface.Messages())
			req.Nil(recorder.scrolled())

			records, err := documentStore.Query(context.Background(), repositories.RecentWindow)
			req.NoError(err)
			req.Empty(records)
		})
	}
}

func TestSurface_Accepts_Three_Characters(t *testing.T) {
	req := require.New(t)
	surface, _, recorder, _ := start(t, alice)
	eventuallyShows(t, recorder, []string{})

	req.NoError(surface.Submit(context.Background(), "hey"))
	req.NoError(surface.Submit(context.Background(), "ééé"))
	req.NoError(surface.Submit(context.Background(), "e\u0301xy"))
	req.NoError(surface.Submit(context.Background(), "\U0001F1EB\U0001F1F7\U0001F1E9\U0001F1EA\U0001F1EE\U0001F1F9"))
	req.Len(surface.Messages(), 4)
}

func TestSurface_Live_Message_From_Other_User_Is_Left_Aligned(t *testing.T) {
	req := require.New(t)
	_, documentStore, recorder, _ := start(t, alice)
	eventuallyShows(t, recorder, []string{})

	req.NoError(documentStore.Add(context.Background(), record("hi alice", "bob", base)))
	eventuallyShows(t, recorder, []string{"hi alice"})

	frame, _ := recorder.last()
	req.Equal(domain.AlignLeft, frame.Rows[0].Alignment)
	req.False(frame.ScrollToLast)
}

func TestSurface_Same_Message_Aligned_By_Viewer(t *testing.T) {
	req := require.New(t)
	_, documentStore, aliceView, _ := start(t, alice)
	_, _, bobView, _ := startOn(t, documentStore, domain.Session{UserID: "bob"})

	req.NoError(documentStore.Add(context.Background(), record("from alice", "alice", base)))
	eventuallyShows(t, aliceView, []string{"from alice"})
	eventuallyShows(t, bobView, []string{"from alice"})

	aliceFrame, _ := aliceView.last()
	bobFrame, _ := bobView.last()
	req.Equal(domain.AlignRight, aliceFrame.Rows[0].Alignment)
	req.Equal(domain.AlignLeft, bobFrame.Rows[0].Alignment)
}

func TestSurface_Window_Slides_On_New_Message(t *testing.T) {
	req := require.New(t)
	_, documentStore, recorder, _ := start(t, alice)
	for i := 1; i <= 25; i++ {
		req.NoError(documentStore.Add(context.Background(),
			record(fmt.Sprintf("message %d", i), "bob", base.Add(time.Duration(i)*time.Second))))
	}
	req.NoError(documentStore.Add(context.Background(), record("message 26", "bob", base.Add(time.Hour))))

	req.Eventually(func() bool {
		frame, ok := recorder.last()
		return ok && len(frame.Rows) == 25 &&
			frame.Rows[0].Message.Text == "message 2" && frame.Rows[24].Message.Text == "message 26"
	}, 5*time.Second, 10*time.Millisecond)
}

func TestSurface_Placeholder_Record_Is_Shown(t *testing.T) {
	req := require.New(t)
	_, documentStore, recorder, _ := start(t, alice)

	req.NoError(documentStore.Add(context.Background(), contract.Record{contract.FieldUID: "bob", contract.FieldCreatedAt: base}))
	eventuallyShows(t, recorder, []string{domain.PlaceholderText})
}

func TestSurface_Moderator_Censors_Outgoing_Text(t *testing.T) {
	req := require.New(t)
	moderator, err := moderation.NewModerator([]string{"badger"}, '*', logs.GetLoggerFromLevel(slog.LevelDebug))
	req.NoError(err)
	surface, _, recorder, _ := start(t, alice, WithModerator(moderator))
	eventuallyShows(t, recorder, []string{})

	req.NoError(surface.Submit(context.Background(), "the badger"))
	req.Equal("the ******", surface.Messages()[0].Text)
}

func TestSurface_Replace_Policy_Follows_Snapshots_Only(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	store := mocks.NewMockMessageStore(ctrl)
	stream := mocks.NewMockSnapshotStream(ctrl)
	snapshots := make(chan []domain.Message, 1)

	store.EXPECT().FetchRecent(gomock.Any()).Return([]domain.Message{{Text: "fetched", SenderID: "bob", CreatedAt: base}}, nil)
	store.EXPECT().Subscribe(gomock.Any()).Return(stream, nil)
	store.EXPECT().Send(gomock.Any()).Times(1)
	stream.EXPECT().Snapshots().Return((<-chan []domain.Message)(snapshots))
	stream.EXPECT().Close().Return(nil)

	recorder := &frameRecorder{}
	surface := NewSurface(logs.GetLoggerFromLevel(slog.LevelDebug), store, alice, recorder,
		WithMergePolicy(projection.MergeReplace))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- surface.Run(ctx) }()
	eventuallyShows(t, recorder, []string{"fetched"})

	req.NoError(surface.Submit(context.Background(), "optimistic"))
	req.Len(surface.Messages(), 2)

	// A snapshot that does not carry the local message drops it
	snapshots <- []domain.Message{{Text: "other", SenderID: "bob", CreatedAt: base}}
	eventuallyShows(t, recorder, []string{"other"})

	cancel()
	req.NoError(<-done)
}

func TestSurface_Fetch_Failure_Ends_Run(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	store := mocks.NewMockMessageStore(ctrl)
	stream := mocks.NewMockSnapshotStream(ctrl)
	store.EXPECT().FetchRecent(gomock.Any()).Return(nil, fmt.Errorf("permission denied"))
	store.EXPECT().Subscribe(gomock.Any()).Return(stream, nil)
	stream.EXPECT().Snapshots().Return(make(<-chan []domain.Message)).AnyTimes()
	stream.EXPECT().Close().Return(nil).Times(1)

	surface := NewSurface(logs.GetLoggerFromLevel(slog.LevelDebug), store, alice, &frameRecorder{})
	err := surface.Run(context.Background())
	req.True(errors.Is(err, errors.ErrFetchFailed))
	req.ErrorContains(err, "permission denied")

	req.True(errors.Is(surface.Submit(context.Background(), "too late"), errors.ErrSurfaceClosed))
}

func TestSurface_Subscribe_Failure_Keeps_Surface_Running(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	store := mocks.NewMockMessageStore(ctrl)
	store.EXPECT().FetchRecent(gomock.Any()).Return([]domain.Message{{Text: "stored", SenderID: "bob", CreatedAt: base}}, nil)
	store.EXPECT().Subscribe(gomock.Any()).Return(nil, fmt.Errorf("quota exceeded"))
	store.EXPECT().Send(gomock.Any()).Times(1)

	recorder := &frameRecorder{}
	surface := NewSurface(logs.GetLoggerFromLevel(slog.LevelDebug), store, alice, recorder)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- surface.Run(ctx) }()

	eventuallyShows(t, recorder, []string{"stored"})
	req.NoError(surface.Submit(context.Background(), "still works"))
	eventuallyShows(t, recorder, []string{"stored", "still works"})

	cancel()
	req.NoError(<-done)
}

func TestSurface_Teardown_Releases_Subscription(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	documentStore := storage.NewMemoryStore(log)
	messageStore := repositories.NewMessageStore(log, documentStore, nil, repositories.Options{})
	surface := NewSurface(log, messageStore, alice, &frameRecorder{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- surface.Run(ctx) }()
	req.Eventually(func() bool {
		return documentStore.Listeners() == 1
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	req.NoError(<-done)
	req.Equal(0, messageStore.OpenSubscriptions())
	req.Eventually(func() bool {
		return documentStore.Listeners() == 0
	}, 5*time.Second, 10*time.Millisecond)
}

func startOn(t *testing.T, documentStore *storage.MemoryStore, session domain.Session) (*Surface, *storage.MemoryStore, *frameRecorder, *repositories.MessageStore) {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	messageStore := repositories.NewMessageStore(log, documentStore, nil, repositories.Options{})
	recorder := &frameRecorder{}
	surface := NewSurface(log, messageStore, session, recorder)

	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() {
		errs <- surface.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-errs)
		_ = messageStore.Close()
	})
	return surface, documentStore, recorder, messageStore
}

func TestSurface_Late_Fetch_Does_Not_Override_Live_Snapshot(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	store := mocks.NewMockMessageStore(ctrl)
	stream := mocks.NewMockSnapshotStream(ctrl)
	snapshots := make(chan []domain.Message, 1)
	gate := make(chan struct{})

	store.EXPECT().FetchRecent(gomock.Any()).DoAndReturn(func(context.Context) ([]domain.Message, error) {
		<-gate
		return []domain.Message{{Text: "stale", SenderID: "bob", CreatedAt: base}}, nil
	})
	store.EXPECT().Subscribe(gomock.Any()).Return(stream, nil)
	stream.EXPECT().Snapshots().Return((<-chan []domain.Message)(snapshots))
	stream.EXPECT().Close().Return(nil)

	recorder := &frameRecorder{}
	surface := NewSurface(logs.GetLoggerFromLevel(slog.LevelDebug), store, alice, recorder)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- surface.Run(ctx) }()

	snapshots <- []domain.Message{{Text: "live", SenderID: "bob", CreatedAt: base.Add(time.Second)}}
	eventuallyShows(t, recorder, []string{"live"})
	close(gate)

	// Give the late fetch result time to be handled
	req.Never(func() bool {
		frame, _ := recorder.last()
		return fmt.Sprint(rowTexts(frame)) != "[live]"
	}, 200*time.Millisecond, 10*time.Millisecond)

	cancel()
	req.NoError(<-done)
}
