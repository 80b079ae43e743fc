package services

import (
	"chat-room/contract"
	"chat-room/domain"
	"context"
	"fmt"
	"log/slog"
)

type ISessionService interface {
	SignIn(ctx context.Context, idToken string) (domain.Session, error)
	SignOut(ctx context.Context, teardown func())
}

// SessionService drives the signed-in lifecycle around an identity provider.
type SessionService struct {
	log      *slog.Logger
	provider contract.IdentityProvider
}

func NewSessionService(log *slog.Logger, provider contract.IdentityProvider) ISessionService {
	return &SessionService{log: log, provider: provider}
}

func (s *SessionService) SignIn(ctx context.Context, idToken string) (domain.Session, error) {
	session, err := s.provider.SignIn(ctx, idToken)
	if err != nil {
		return domain.Session{}, fmt.Errorf("sign-in failed: %w", err)
	}
	s.log.Info("Signed in", "user_id", session.UserID)
	return session, nil
}

// SignOut runs teardown first, so nothing keeps listening for a user who is gone.
// A provider failure is only logged.
func (s *SessionService) SignOut(ctx context.Context, teardown func()) {
	if teardown != nil {
		teardown()
	}
	if err := s.provider.SignOut(ctx); err != nil {
		s.log.Warn("Sign-out failed", "error", err)
		return
	}
	s.log.Info("Signed out")
}
