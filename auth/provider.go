package auth

import (
	"chat-room/domain"
	"chat-room/errors"
	"context"
	"sync"
)

// Provider exchanges ID tokens for the current session and holds it until sign-out.
type Provider struct {
	mu      sync.RWMutex
	secret  []byte
	issuer  string
	session domain.Session
}

func NewProvider(secret []byte, issuer string) *Provider {
	return &Provider{secret: secret, issuer: issuer}
}

func (p *Provider) SignIn(ctx context.Context, idToken string) (domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return domain.Session{}, err
	}
	claims, err := ValidateToken(idToken, p.secret, p.issuer)
	if err != nil {
		return domain.Session{}, err
	}
	session := domain.Session{
		UserID:      claims.Subject,
		PhotoURL:    claims.Picture,
		DisplayName: claims.Name,
	}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time
	}

	p.mu.Lock()
	p.session = session
	p.mu.Unlock()
	return session, nil
}

func (p *Provider) SignOut(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session.IsZero() {
		return errors.ErrNotSignedIn
	}
	p.session = domain.Session{}
	return nil
}

func (p *Provider) Current() (domain.Session, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.session, !p.session.IsZero()
}
