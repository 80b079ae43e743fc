//go:build e2e

package e2e

import (
	"chat-room/auth"
	"chat-room/contract"
	"chat-room/domain"
	"chat-room/infrastructure/storage"
	"chat-room/observability"
	"chat-room/repositories"
	"chat-room/ui"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/gookit/color"
	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"
)

const (
	secret = "e2e-secret-long-enough"
	issuer = "chat-room-e2e"
)

type recorder struct {
	mu   sync.Mutex
	last domain.Frame
}

func (r *recorder) Render(frame domain.Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last = frame
}

func (r *recorder) frame() domain.Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

type ChatScenarioSuite struct {
	suite.Suite
	Config     Config
	store      contract.DocumentStore
	closeStore func() error
}

func TestChatScenario(t *testing.T) {
	suite.Run(t, new(ChatScenarioSuite))
}

// SetupSuite loads the environment configuration and opens the target store
func (s *ChatScenarioSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)

	s.store, s.closeStore, err = storage.Open(context.Background(), s.Config.StoreConfig(),
		logs.GetLoggerFromLevel(slog.LevelDebug))
	s.Require().NoError(err)
}

func (s *ChatScenarioSuite) TearDownSuite() {
	if s.closeStore != nil {
		s.Require().NoError(s.closeStore())
	}
}

func (s *ChatScenarioSuite) step(name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)
}

// join signs a user in with a freshly issued token and runs a surface for them.
func (s *ChatScenarioSuite) join(ctx context.Context, userID string) (*ui.Surface, *recorder, *repositories.MessageStore) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	token, err := auth.IssueToken([]byte(secret), issuer, userID, userID, "", time.Hour)
	s.Require().NoError(err)
	session, err := auth.NewProvider([]byte(secret), issuer).SignIn(ctx, token)
	s.Require().NoError(err)

	messageStore := repositories.NewMessageStore(log, s.store, observability.NewMetrics(prometheus.NewRegistry()),
		repositories.Options{SendTimeout: 5 * time.Second, FetchTimeout: 5 * time.Second})
	view := &recorder{}
	surface := ui.NewSurface(log, messageStore, session, view)
	go func() {
		_ = surface.Run(ctx)
	}()
	return surface, view, messageStore
}

func (s *ChatScenarioSuite) TestTwoUsersSeeEachOther() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	marker := fmt.Sprintf("hello from alice %d", time.Now().UnixNano())

	s.step("Alice and Bob join")
	alice, aliceView, aliceStore := s.join(ctx, "alice")
	_, bobView, bobStore := s.join(ctx, "bob")

	s.step("Alice sends")
	s.Require().NoError(alice.Submit(ctx, marker))

	s.step("Both see the message, aligned per viewer")
	find := func(view *recorder) (domain.Row, bool) {
		for _, row := range view.frame().Rows {
			if row.Message.Text == marker {
				return row, true
			}
		}
		return domain.Row{}, false
	}
	s.Require().Eventually(func() bool {
		_, ok := find(bobView)
		return ok
	}, 10*time.Second, 50*time.Millisecond)
	aliceRow, ok := find(aliceView)
	s.Require().True(ok)
	bobRow, _ := find(bobView)
	s.Equal(domain.AlignRight, aliceRow.Alignment)
	s.Equal(domain.AlignLeft, bobRow.Alignment)

	s.step("Teardown releases subscriptions")
	cancel()
	<-alice.Done()
	s.Require().NoError(aliceStore.Close())
	s.Require().NoError(bobStore.Close())
	s.Zero(aliceStore.OpenSubscriptions())
	s.Zero(bobStore.OpenSubscriptions())
}

func (s *ChatScenarioSuite) TestWindowHoldsNewest25Ascending() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	start := time.Now().UTC().Add(time.Hour)

	s.step("Thirty messages are stored")
	for i := 1; i <= 30; i++ {
		s.Require().NoError(s.store.Add(ctx, contract.Record{
			contract.FieldText:      fmt.Sprintf("window %d", i),
			contract.FieldUID:       "seed",
			contract.FieldCreatedAt: start.Add(time.Duration(i) * time.Millisecond),
		}))
	}

	s.step("Fetch returns messages 6 to 30")
	messageStore := repositories.NewMessageStore(logs.GetLoggerFromLevel(slog.LevelDebug), s.store, nil,
		repositories.Options{FetchTimeout: 5 * time.Second})
	defer messageStore.Close()
	messages, err := messageStore.FetchRecent(ctx)
	s.Require().NoError(err)
	s.Require().Len(messages, 25)
	s.Equal("window 6", messages[0].Text)
	s.Equal("window 30", messages[24].Text)
}
