package session

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// ErrMissingProvider indicates a session was constructed without an auth provider.
var ErrMissingProvider = errors.New("session: auth provider required")

// Change is one identity-change notification pushed by the auth provider.
// Identity is nil when the user signed out.
type Change struct {
	Identity *Identity
}

// AuthProvider is the external identity provider: interactive sign-in and
// sign-out plus a push stream of identity changes. The stream is the sole
// source of session state; SignIn/SignOut only trigger transitions.
type AuthProvider interface {
	SignIn(ctx context.Context) error
	SignOut(ctx context.Context) error
	Changes(ctx context.Context) (<-chan Change, func())
}

// StatusView is the UI surface the session drives: two mutually exclusive
// regions plus failure notices. Implementations must tolerate being called
// from the session's event goroutine.
type StatusView interface {
	ShowSignedIn(displayName string)
	ShowSignedOut()
	Notify(message string)
}

// Session owns the current identity for one running client. State starts
// as none and is updated exclusively by the provider's change stream.
type Session struct {
	provider AuthProvider
	view     StatusView
	logger   *zap.Logger

	mu      sync.RWMutex
	current *Identity
}

// SessionConfig wires the session's collaborators.
type SessionConfig struct {
	Provider AuthProvider
	View     StatusView
	Logger   *zap.Logger
}

// NewSession constructs an unauthenticated session.
func NewSession(cfg SessionConfig) (*Session, error) {
	if cfg.Provider == nil {
		return nil, ErrMissingProvider
	}
	view := cfg.View
	if view == nil {
		view = nopView{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{provider: cfg.Provider, view: view, logger: logger}, nil
}

// Run consumes identity-change notifications until the context ends. It is
// the only writer of session state; callers typically run it on its own
// goroutine for the lifetime of the client.
func (s *Session) Run(ctx context.Context) {
	changes, cancel := s.provider.Changes(ctx)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-changes:
			if !ok {
				return
			}
			s.apply(change)
		}
	}
}

func (s *Session) apply(change Change) {
	s.mu.Lock()
	s.current = change.Identity
	s.mu.Unlock()

	if change.Identity != nil {
		s.logger.Info("signed in", zap.String("user_id", change.Identity.ID))
		s.view.ShowSignedIn(change.Identity.DisplayName())
		return
	}
	s.logger.Info("signed out")
	s.view.ShowSignedOut()
}

// Current returns the cached identity, if any.
func (s *Session) Current() (Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return Identity{}, false
	}
	return *s.current, true
}

// IsAuthenticated reports whether an identity is present.
func (s *Session) IsAuthenticated() bool {
	_, ok := s.Current()
	return ok
}

// IsAdmin reports whether the current identity carries the admin flag.
func (s *Session) IsAdmin() bool {
	ident, ok := s.Current()
	return ok && ident.IsAdmin
}

// SignIn triggers the provider's interactive sign-in. Failures are reported
// through the view and leave the signed-out region in place; success is
// observed via the change stream, never set here.
func (s *Session) SignIn(ctx context.Context) error {
	if err := s.provider.SignIn(ctx); err != nil {
		s.logger.Warn("sign-in failed", zap.Error(err))
		s.view.Notify("Login failed. Please try again.")
		s.view.ShowSignedOut()
		return err
	}
	return nil
}

// SignOut triggers the provider's sign-out. On failure only a notice is
// raised; state is untouched since the change stream is the sole setter.
func (s *Session) SignOut(ctx context.Context) error {
	if err := s.provider.SignOut(ctx); err != nil {
		s.logger.Warn("sign-out failed", zap.Error(err))
		s.view.Notify("Logout failed. Please try again.")
		return err
	}
	return nil
}

type nopView struct{}

func (nopView) ShowSignedIn(string) {}
func (nopView) ShowSignedOut()      {}
func (nopView) Notify(string)       {}
