// Package session holds the client's authentication state as an explicit
// object with a defined lifecycle: created at application start, torn down at
// logout. Cart and checkout code receives it by injection instead of reading
// ambient globals.
package session

import (
	"context"
	"sync"

	"github.com/xenking/rosecart/internal/api"
	"github.com/xenking/rosecart/internal/storage"
)

// LoginListener runs on the unauthenticated-to-authenticated transition
// edge. It runs once per transition, not per render or per call.
type LoginListener func(ctx context.Context)

// LogoutListener runs when the session ends.
type LogoutListener func()

// Session is the current authentication context. It implements
// api.TokenSource so the API client picks up the bearer token automatically.
type Session struct {
	store storage.Store

	mu       sync.Mutex
	user     *api.User
	token    string
	onLogin  []LoginListener
	onLogout []LogoutListener
}

// New creates a Session, hydrating the access token from client storage so a
// restart stays authenticated. The user identity is unknown until the first
// successful Me call or login; a stale token simply fails its first request.
func New(store storage.Store) *Session {
	s := &Session{store: store}
	if token, ok := store.Get(storage.TokenKey); ok {
		s.token = token
	}
	return s
}

// AccessToken returns the current bearer token, empty when unauthenticated.
func (s *Session) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Authenticated reports whether a user identity is established.
func (s *Session) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user != nil
}

// User returns the current account, or nil when unauthenticated.
func (s *Session) User() *api.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// UserID returns the current account id, empty when unauthenticated.
func (s *Session) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return ""
	}
	return s.user.ID
}

// OnLogin registers a listener for the login transition edge. Registration
// order is invocation order.
func (s *Session) OnLogin(fn LoginListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onLogin = append(s.onLogin, fn)
}

// OnLogout registers a listener for session teardown.
func (s *Session) OnLogout(fn LogoutListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onLogout = append(s.onLogout, fn)
}

// Begin establishes the authenticated session from a login or registration
// result. Login listeners fire only on the unauthenticated-to-authenticated
// edge: calling Begin again for the same session (a token refresh, a re-fetch
// of the user) does not re-fire them.
func (s *Session) Begin(ctx context.Context, res *api.AuthResult) error {
	s.mu.Lock()
	wasAuthenticated := s.user != nil
	user := res.User
	s.user = &user
	s.token = res.AccessToken
	listeners := make([]LoginListener, len(s.onLogin))
	copy(listeners, s.onLogin)
	s.mu.Unlock()

	if err := s.store.Set(storage.TokenKey, res.AccessToken); err != nil {
		return err
	}
	if !wasAuthenticated {
		for _, fn := range listeners {
			fn(ctx)
		}
	}
	return nil
}

// Resume attaches a user identity fetched with the hydrated token, without
// treating it as a login transition. Used at startup when the stored token is
// still valid.
func (s *Session) Resume(user *api.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := *user
	s.user = &u
}

// End tears the session down: identity and token are dropped, the persisted
// token is removed, and logout listeners fire.
func (s *Session) End() error {
	s.mu.Lock()
	s.user = nil
	s.token = ""
	listeners := make([]LogoutListener, len(s.onLogout))
	copy(listeners, s.onLogout)
	s.mu.Unlock()

	err := s.store.Delete(storage.TokenKey)
	for _, fn := range listeners {
		fn()
	}
	return err
}
