// Package session owns the signed-in identity: it persists it locally,
// refreshes it when expired and tells listeners when it changes.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lacag-app/lacag/internal/baas"
	"github.com/lacag-app/lacag/internal/model"
)

// Auth is the subset of the backend auth API the manager needs.
type Auth interface {
	SignInWithPassword(ctx context.Context, email, password string) (*model.Session, error)
	SignUp(ctx context.Context, email, password string) (*model.Session, error)
	Refresh(ctx context.Context, refreshToken string) (*model.Session, error)
	SignOut(ctx context.Context, accessToken string) error
}

// Persister stores the session between runs.
type Persister interface {
	Session() (*model.Session, error)
	SaveSession(*model.Session) error
	ClearSession() error
}

// ErrNoBackend is returned by sign-in operations when no backend is configured.
var ErrNoBackend = errors.New("session: no backend configured")

// Listener is called with the new session, or nil when signed out.
type Listener func(*model.Session)

// Manager tracks the current session.
type Manager struct {
	auth  Auth
	store Persister
	log   logrus.FieldLogger
	now   func() time.Time

	mu        sync.Mutex
	current   *model.Session
	listeners map[int]Listener
	nextID    int
}

// NewManager builds a manager. auth may be nil when no backend is configured;
// the manager then stays signed out.
func NewManager(auth Auth, store Persister, log logrus.FieldLogger) *Manager {
	return &Manager{
		auth:      auth,
		store:     store,
		log:       log.WithField("component", "session"),
		now:       time.Now,
		listeners: make(map[int]Listener),
	}
}

// Current returns a copy of the valid session, or nil.
func (m *Manager) Current() *model.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.current.Valid() {
		return nil
	}
	cp := *m.current
	return &cp
}

// OnChange registers fn and returns a func that removes it.
func (m *Manager) OnChange(fn Listener) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

// Set replaces the current session and notifies listeners when the identity
// or token changed. A malformed session counts as signed out.
func (m *Manager) Set(sess *model.Session) {
	if !sess.Valid() {
		sess = nil
	} else {
		cp := *sess
		sess = &cp
	}

	m.mu.Lock()
	prev := m.current
	m.current = sess
	changed := !sameToken(prev, sess)
	listeners := make([]Listener, 0, len(m.listeners))
	for _, fn := range m.listeners {
		listeners = append(listeners, fn)
	}
	m.mu.Unlock()

	if !changed {
		return
	}
	for _, fn := range listeners {
		if sess == nil {
			fn(nil)
			continue
		}
		cp := *sess
		fn(&cp)
	}
}

func sameToken(a, b *model.Session) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.UserID == b.UserID && a.AccessToken == b.AccessToken
}

// Restore loads the persisted session. An expired session is refreshed; if
// that fails the stored session is discarded and the manager stays signed out.
func (m *Manager) Restore(ctx context.Context) (*model.Session, error) {
	sess, err := m.store.Session()
	if err != nil {
		m.log.WithError(err).Warn("discarding unreadable stored session")
		_ = m.store.ClearSession()
		m.Set(nil)
		return nil, nil
	}
	if !sess.Valid() {
		m.Set(nil)
		return nil, nil
	}

	if sess.Expired(m.now()) {
		if m.auth == nil {
			m.Set(nil)
			return nil, nil
		}
		fresh, err := m.auth.Refresh(ctx, sess.RefreshToken)
		if err != nil {
			m.log.WithError(err).Info("stored session expired and could not be refreshed")
			if clearErr := m.store.ClearSession(); clearErr != nil {
				return nil, clearErr
			}
			m.Set(nil)
			return nil, nil
		}
		if err := m.store.SaveSession(fresh); err != nil {
			return nil, fmt.Errorf("saving refreshed session: %w", err)
		}
		sess = fresh
	}

	m.Set(sess)
	return m.Current(), nil
}

// SignIn authenticates with email and password and persists the session.
func (m *Manager) SignIn(ctx context.Context, email, password string) (*model.Session, error) {
	if m.auth == nil {
		return nil, ErrNoBackend
	}
	sess, err := m.auth.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return m.adopt(sess)
}

// SignUp registers an account. When the backend issues a session right away
// the user is signed in; otherwise baas.ErrConfirmationPending is returned.
func (m *Manager) SignUp(ctx context.Context, email, password string) (*model.Session, error) {
	if m.auth == nil {
		return nil, ErrNoBackend
	}
	sess, err := m.auth.SignUp(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return m.adopt(sess)
}

func (m *Manager) adopt(sess *model.Session) (*model.Session, error) {
	if !sess.Valid() {
		return nil, fmt.Errorf("backend returned an incomplete session: %w", baas.ErrUnauthorized)
	}
	if err := m.store.SaveSession(sess); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}
	m.Set(sess)
	return m.Current(), nil
}

// SignOut revokes the remote session when possible and always forgets the
// local one.
func (m *Manager) SignOut(ctx context.Context) error {
	sess := m.Current()
	if sess != nil && m.auth != nil {
		if err := m.auth.SignOut(ctx, sess.AccessToken); err != nil {
			m.log.WithError(err).Warn("remote sign-out failed, clearing local session anyway")
		}
	}
	if err := m.store.ClearSession(); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	m.Set(nil)
	return nil
}
