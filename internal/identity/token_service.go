package identity

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/romashorodok/conferencing-platform/pkg/protocol"
	"github.com/romashorodok/conferencing-platform/pkg/variables"
	"go.uber.org/fx"
)

const (
	_ISSUER = "signal-server"

	_MAX_PURGE_INTERVAL = time.Minute
)

type TokenContext struct {
	UserID    protocol.UserID
	TokenID   string
	ExpiresAt time.Time
}

type session struct {
	userID    protocol.UserID
	expiresAt time.Time
}

// TokenService signs session tokens. A token is valid only while its session
// is registered, so ending a session revokes the token before it expires.
// Expired sessions are dropped on a later Issue.
type TokenService struct {
	key jwk.Key
	ttl time.Duration
	now func() time.Time

	sessionsMu    sync.RWMutex
	sessions      map[string]session
	purgeInterval time.Duration
	nextPurge     time.Time
}

func (s *TokenService) Issue(userID protocol.UserID) (string, *TokenContext, error) {
	now := s.now()
	tokenID := uuid.NewString()

	token, err := jwt.NewBuilder().
		Issuer(_ISSUER).
		Subject(userID).
		JwtID(tokenID).
		IssuedAt(now).
		Expiration(now.Add(s.ttl)).
		Build()
	if err != nil {
		return "", nil, err
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, s.key))
	if err != nil {
		return "", nil, fmt.Errorf("unable sign token. Err: %w", err)
	}

	s.sessionsMu.Lock()
	if !now.Before(s.nextPurge) {
		s.purgeLocked(now)
	}
	s.sessions[tokenID] = session{userID: userID, expiresAt: now.Add(s.ttl)}
	s.sessionsMu.Unlock()

	return string(signed), &TokenContext{
		UserID:    userID,
		TokenID:   tokenID,
		ExpiresAt: now.Add(s.ttl),
	}, nil
}

func (s *TokenService) Verify(insecureToken string) (*TokenContext, error) {
	token, err := jwt.Parse([]byte(insecureToken),
		jwt.WithKey(jwa.HS256, s.key),
		jwt.WithValidate(true),
		jwt.WithIssuer(_ISSUER),
		jwt.WithClock(jwt.ClockFunc(s.now)),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidToken, err)
	}

	s.sessionsMu.RLock()
	sess, live := s.sessions[token.JwtID()]
	s.sessionsMu.RUnlock()

	if !live || sess.userID != token.Subject() || !s.now().Before(sess.expiresAt) {
		return nil, ErrSessionNotFound
	}

	return &TokenContext{
		UserID:    sess.userID,
		TokenID:   token.JwtID(),
		ExpiresAt: token.Expiration(),
	}, nil
}

func (s *TokenService) Revoke(tokenID string) {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	delete(s.sessions, tokenID)
}

// Purge drops expired sessions and reports how many are left.
func (s *TokenService) Purge() int {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()

	s.purgeLocked(s.now())
	return len(s.sessions)
}

func (s *TokenService) purgeLocked(now time.Time) {
	for tokenID, sess := range s.sessions {
		if !now.Before(sess.expiresAt) {
			delete(s.sessions, tokenID)
		}
	}
	s.nextPurge = now.Add(s.purgeInterval)
}

// sweep purges expired sessions until ctx is done.
func (s *TokenService) sweep(ctx context.Context) {
	ticker := time.NewTicker(s.purgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Purge()
		}
	}
}

type NewTokenServiceParams struct {
	fx.In

	Lifecycle fx.Lifecycle `optional:"true"`
	Config    *variables.Config
}

// NewTokenService signs with a key generated at start, so tokens do not
// survive a restart.
func NewTokenService(params NewTokenServiceParams) (*TokenService, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("unable generate token key. Err: %w", err)
	}

	key, err := jwk.FromRaw(raw)
	if err != nil {
		return nil, fmt.Errorf("unable cast token key to jwk key. Err: %w", err)
	}

	service := &TokenService{
		key:           key,
		ttl:           params.Config.TokenTTL,
		now:           time.Now,
		sessions:      make(map[string]session),
		purgeInterval: min(params.Config.TokenTTL, _MAX_PURGE_INTERVAL),
	}

	if params.Lifecycle != nil && service.purgeInterval > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		params.Lifecycle.Append(fx.Hook{
			OnStart: func(context.Context) error {
				go service.sweep(ctx)
				return nil
			},
			OnStop: func(context.Context) error {
				cancel()
				return nil
			},
		})
	}
	return service, nil
}
