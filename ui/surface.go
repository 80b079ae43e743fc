// Package ui owns the chat surface: the one goroutine that holds the message list,
// applies store snapshots and local sends to it, and asks a renderer to draw it.
package ui

import (
	"chat-room/contract"
	"chat-room/domain"
	"chat-room/errors"
	"chat-room/projection"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/rivo/uniseg"
	"github.com/samber/lo"
)

// Moderator masks forbidden words before a message leaves the surface.
type Moderator interface {
	Censor(text string) (string, []string)
	Language(text string) string
}

type Option func(*Surface)

func WithMergePolicy(policy projection.MergePolicy) Option {
	return func(s *Surface) { s.timeline = projection.NewTimeline(policy) }
}

func WithModerator(moderator Moderator) Option {
	return func(s *Surface) { s.moderator = moderator }
}

func WithClock(clock func() time.Time) Option {
	return func(s *Surface) { s.clock = clock }
}

type submission struct {
	text   string
	result chan error
}

type fetchResult struct {
	messages []domain.Message
	err      error
}

type subscribeResult struct {
	stream contract.SnapshotStream
	err    error
}

// Surface is the chat screen of one signed-in user.
// The list is only mutated from Run, everything else talks to it through channels.
type Surface struct {
	log         *slog.Logger
	store       contract.MessageStore
	session     domain.Session
	renderer    contract.Renderer
	timeline    *projection.Timeline
	moderator   Moderator
	clock       func() time.Time
	submissions chan submission
	stopped     chan struct{}
}

func NewSurface(log *slog.Logger, store contract.MessageStore, session domain.Session,
	renderer contract.Renderer, opts ...Option) *Surface {
	s := &Surface{
		log:         log.With("user_id", session.UserID),
		store:       store,
		session:     session,
		renderer:    renderer,
		timeline:    projection.NewTimeline(projection.MergeReconcile),
		clock:       time.Now,
		submissions: make(chan submission),
		stopped:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run loads the recent window, listens for live snapshots and serves submissions until ctx is done.
// The initial fetch and the subscription start together. A live snapshot supersedes the fetch:
// a fetch result landing after one is dropped, later changes reach the list through the subscription anyway.
// A failed initial fetch ends Run with an error wrapping ErrFetchFailed.
// A failed subscription is logged and the surface keeps working without live updates.
// The subscription is always closed before Run returns.
func (s *Surface) Run(ctx context.Context) error {
	defer close(s.stopped)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	fetched := make(chan fetchResult, 1)
	subscribed := make(chan subscribeResult, 1)
	go func() {
		messages, err := s.store.FetchRecent(ctx)
		fetched <- fetchResult{messages: messages, err: err}
	}()
	go func() {
		stream, err := s.store.Subscribe(ctx)
		subscribed <- subscribeResult{stream: stream, err: err}
	}()

	var stream contract.SnapshotStream
	subscribing := true
	defer func() {
		cancel()
		if subscribing {
			if r := <-subscribed; r.stream != nil {
				stream = r.stream
			}
		}
		if stream != nil {
			if err := stream.Close(); err != nil {
				s.log.Debug("Closing subscription failed", "error", err)
			}
		}
	}()

	fetchedC, subscribedC := fetched, subscribed
	var snapshots <-chan []domain.Message
	live := false
	s.render(false)
	for {
		select {
		case <-ctx.Done():
			return nil

		case r := <-fetchedC:
			fetchedC = nil
			if r.err != nil {
				if ctx.Err() != nil {
					return nil
				}
				if !errors.Is(r.err, errors.ErrFetchFailed) {
					return fmt.Errorf("%w: %v", errors.ErrFetchFailed, r.err)
				}
				return r.err
			}
			if live {
				s.log.Debug("Initial window superseded by a live snapshot")
				continue
			}
			s.replace(r.messages)

		case r := <-subscribedC:
			subscribedC = nil
			subscribing = false
			if r.err != nil {
				s.log.Warn("Live updates unavailable", "error", r.err)
				continue
			}
			stream = r.stream
			snapshots = stream.Snapshots()

		case snapshot, ok := <-snapshots:
			if !ok {
				snapshots = nil
				s.log.Info("Live updates ended")
				continue
			}
			live = true
			s.replace(snapshot)

		case sub := <-s.submissions:
			sub.result <- s.submit(sub.text)
		}
	}
}

// Submit hands the input text to the surface goroutine and waits for it to be handled.
// Text of fewer than three characters is refused with ErrTextTooShort and nothing is sent.
func (s *Surface) Submit(ctx context.Context, text string) error {
	result := make(chan error, 1)
	select {
	case s.submissions <- submission{text: text, result: result}:
	case <-s.stopped:
		return errors.ErrSurfaceClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Messages returns a copy of the list as currently displayed.
func (s *Surface) Messages() []domain.Message {
	return s.timeline.Messages()
}

// Done is closed once Run has returned.
func (s *Surface) Done() <-chan struct{} {
	return s.stopped
}

func (s *Surface) submit(text string) error {
	// Length is counted in user-perceived characters: an accented letter or a flag is one.
	if n := uniseg.GraphemeClusterCount(text); n < domain.MinTextLength {
		return fmt.Errorf("%w: %d characters", errors.ErrTextTooShort, n)
	}
	if s.moderator != nil {
		censored, found := s.moderator.Censor(text)
		if len(found) > 0 {
			s.log.Debug("Outgoing message censored", "matches", len(found), "lang", s.moderator.Language(text))
		}
		text = censored
	}

	message := domain.Message{
		ID:             uuid.New(),
		Text:           text,
		SenderPhotoURL: s.session.PhotoURL,
		SenderID:       s.session.UserID,
		CreatedAt:      s.clock().UTC(),
	}
	s.store.Send(message)
	s.timeline.Append(message)
	s.render(true)
	return nil
}

func (s *Surface) replace(snapshot []domain.Message) {
	s.timeline.Replace(snapshot)
	s.render(false)
}

func (s *Surface) render(scrollToLast bool) {
	rows := lo.Map(s.timeline.Messages(), func(m domain.Message, _ int) domain.Row {
		return domain.Row{Message: m, Alignment: domain.AlignFor(m, s.session.UserID)}
	})
	s.renderer.Render(domain.Frame{Rows: rows, ScrollToLast: scrollToLast})
}
