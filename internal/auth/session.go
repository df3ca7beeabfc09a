// Package auth holds the console's sign-in state: the bearer token, its
// persistence, and the profile of the signed-in user whose embedded role
// drives every permission check.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"adminpanel.org/internal/gateway"
	"adminpanel.org/internal/model"
	"adminpanel.org/internal/obs"
)

// Status is the session lifecycle.
type Status int

const (
	Idle Status = iota
	Authenticating
	Authenticated
	Failed
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Gateway is the part of the gateway client the session needs.
type Gateway interface {
	Login(ctx context.Context, creds model.Credentials) (string, error)
	Profile(ctx context.Context, token string) (model.User, error)
}

// Session is the single sign-in state of the process. It doubles as the
// gateway's TokenSource and the permission resolver's SessionSource.
type Session struct {
	gw     Gateway
	tokens TokenStore
	now    func() time.Time

	mu     sync.RWMutex
	user   *model.User
	token  string
	status Status
	errMsg string
}

type SessionOption func(*Session)

// WithClock overrides time.Now for expiry checks.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

func NewSession(gw Gateway, tokens TokenStore, opts ...SessionOption) *Session {
	if tokens == nil {
		tokens = NewMemoryTokenStore()
	}
	s := &Session{gw: gw, tokens: tokens, now: time.Now, status: Idle}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login authenticates, persists the token and loads the profile. A session
// is never left holding a token whose profile could not be fetched.
func (s *Session) Login(ctx context.Context, creds model.Credentials) error {
	if err := creds.Validate(); err != nil {
		return err
	}
	s.set(Authenticating, "")

	token, err := s.gw.Login(ctx, creds)
	if err != nil {
		return s.fail("login", err)
	}
	if err := s.tokens.Save(ctx, token); err != nil {
		return s.fail("login", fmt.Errorf("persist token: %w", err))
	}
	user, err := s.gw.Profile(ctx, token)
	if err != nil {
		s.clearStored(ctx)
		return s.fail("login", err)
	}
	s.signIn(token, user)
	obs.Logger().Info().Str("user_id", user.ID).Msg("signed in")
	return nil
}

// Restore revives a persisted session at process start. Without a stored
// token the session stays Idle and Restore returns nil. An expired token is
// erased and ErrTokenExpired returned. A token the gateway rejects is erased
// and the session fails; other profile errors keep the token for a retry.
func (s *Session) Restore(ctx context.Context) error {
	token, err := s.tokens.Load(ctx)
	if errors.Is(err, ErrNoToken) {
		s.set(Idle, "")
		return nil
	}
	if err != nil {
		return s.fail("restore", fmt.Errorf("load token: %w", err))
	}
	if Expired(token, s.now()) {
		s.clearStored(ctx)
		s.set(Idle, "")
		obs.Logger().Info().Msg("stored token expired")
		return ErrTokenExpired
	}

	s.set(Authenticating, "")
	user, err := s.gw.Profile(ctx, token)
	if err != nil {
		if errors.Is(err, gateway.ErrAuth) {
			s.clearStored(ctx)
		}
		return s.fail("restore", err)
	}
	s.signIn(token, user)
	return nil
}

// Logout erases the stored token and forgets the user.
func (s *Session) Logout(ctx context.Context) error {
	err := s.tokens.Clear(ctx)
	s.mu.Lock()
	s.user = nil
	s.token = ""
	s.status = Idle
	s.errMsg = ""
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	return nil
}

// Token implements gateway.TokenSource.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// CurrentUser returns a copy of the signed-in user, or nil.
func (s *Session) CurrentUser() *model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	if s.user.RoleAttribute != nil {
		ra := *s.user.RoleAttribute
		u.RoleAttribute = &ra
	}
	return &u
}

func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *Session) ErrorMessage() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errMsg
}

// Authenticated reports whether a user is signed in.
func (s *Session) Authenticated() bool {
	return s.Status() == Authenticated
}

func (s *Session) signIn(token string, user model.User) {
	s.mu.Lock()
	s.token = token
	s.user = &user
	s.status = Authenticated
	s.errMsg = ""
	s.mu.Unlock()
}

func (s *Session) set(status Status, msg string) {
	s.mu.Lock()
	s.status = status
	s.errMsg = msg
	s.mu.Unlock()
}

func (s *Session) fail(op string, err error) error {
	s.mu.Lock()
	s.user = nil
	s.token = ""
	s.status = Failed
	s.errMsg = err.Error()
	s.mu.Unlock()
	obs.Logger().Warn().Str("op", op).Err(err).Msg("session failed")
	return err
}

func (s *Session) clearStored(ctx context.Context) {
	if err := s.tokens.Clear(ctx); err != nil {
		obs.Logger().Warn().Err(err).Msg("clear stored token")
	}
}
