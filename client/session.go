package client

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Session is a point-in-time snapshot of the authenticated state.
// Loading is true from construction until Bootstrap finishes.
type Session struct {
	User    *User
	Loading bool
}

// SessionStore owns the session object. Only its methods mutate the
// session; the transport layer operates on the token store alone.
// Consumers read snapshots via Current or Subscribe.
type SessionStore struct {
	api *Client
	log zerolog.Logger

	mu      sync.Mutex
	session Session

	once    sync.Once
	bootErr error

	subMu   sync.Mutex
	subs    map[int]func(Session)
	nextSub int
}

func NewSessionStore(api *Client) *SessionStore {
	return &SessionStore{
		api:     api,
		log:     api.log,
		session: Session{Loading: true},
		subs:    make(map[int]func(Session)),
	}
}

// Current returns a snapshot of the session.
func (s *SessionStore) Current() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// Subscribe registers fn to run after every session mutation. The
// returned cancel removes the subscription.
func (s *SessionStore) Subscribe(fn func(Session)) (cancel func()) {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

// Bootstrap restores the session from persisted credentials. It runs at
// most once; later calls return the first outcome. With no stored pair
// it makes no network call and touches no storage. A stale or rejected
// pair is cleared and the app starts logged out; that is logged, not
// surfaced. Loading is cleared whichever way it ends.
func (s *SessionStore) Bootstrap(ctx context.Context) error {
	s.once.Do(func() { s.bootErr = s.runBootstrap(ctx) })
	return s.bootErr
}

func (s *SessionStore) runBootstrap(ctx context.Context) error {
	pair, ok, err := s.api.tokens.Load()
	if err != nil {
		s.set(func(sess *Session) { sess.Loading = false })
		return err
	}
	if !ok || pair.AccessToken == "" {
		s.set(func(sess *Session) { sess.Loading = false })
		return nil
	}

	user, err := s.api.Me(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("session bootstrap failed")
		if cerr := s.api.tokens.Clear(); cerr != nil {
			s.log.Warn().Err(cerr).Msg("clear credentials failed")
		}
		s.set(func(sess *Session) {
			sess.User = nil
			sess.Loading = false
		})
		return nil
	}

	s.set(func(sess *Session) {
		sess.User = user
		sess.Loading = false
	})
	return nil
}

// Login exchanges credentials for a token pair, persists it, and loads
// the profile. On rejection nothing is persisted and the session is
// unchanged.
func (s *SessionStore) Login(ctx context.Context, email, password string) error {
	auth, err := s.api.Login(ctx, email, password)
	if err != nil {
		return err
	}

	pair := TokenPair{AccessToken: auth.AccessToken, RefreshToken: auth.RefreshToken}
	if err := s.api.tokens.Save(pair); err != nil {
		return err
	}

	user, err := s.api.Me(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("load profile after login failed")
		return err
	}

	s.set(func(sess *Session) {
		sess.User = user
		sess.Loading = false
	})
	return nil
}

// Register creates the account and then runs the full login flow.
func (s *SessionStore) Register(ctx context.Context, email, password, displayName string) error {
	_, err := s.api.Register(ctx, RegisterInput{
		Email:       email,
		Password:    password,
		DisplayName: displayName,
	})
	if err != nil {
		return err
	}
	return s.Login(ctx, email, password)
}

// Logout tells the server best-effort, then clears the pair and the
// user unconditionally. Server failures are logged and swallowed.
func (s *SessionStore) Logout(ctx context.Context) error {
	if pair, ok, err := s.api.tokens.Load(); err == nil && ok && pair.AccessToken != "" {
		if err := s.api.Logout(ctx); err != nil {
			s.log.Warn().Err(err).Msg("server logout failed")
		}
	}

	err := s.api.tokens.Clear()
	s.set(func(sess *Session) {
		sess.User = nil
		sess.Loading = false
	})
	return err
}

// Refresh forces a token rotation. With no refresh token stored it
// returns ErrMissingCredential without network I/O; a server rejection
// surfaces as *AuthenticationError and the caller must force a logout.
func (s *SessionStore) Refresh(ctx context.Context) error {
	_, err := s.api.transport.Refresh(ctx)
	return err
}

func (s *SessionStore) set(mutate func(*Session)) {
	s.mu.Lock()
	mutate(&s.session)
	snapshot := s.session
	s.mu.Unlock()

	s.notify(snapshot)
}

func (s *SessionStore) notify(snapshot Session) {
	s.subMu.Lock()
	fns := make([]func(Session), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(snapshot)
	}
}
