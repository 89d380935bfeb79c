package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lacag-app/lacag/internal/logger"
	"github.com/lacag-app/lacag/internal/model"
)

type memPersister struct {
	sess *model.Session
	err  error
}

func (p *memPersister) Session() (*model.Session, error) { return p.sess, p.err }
func (p *memPersister) SaveSession(s *model.Session) error {
	p.sess = s
	return nil
}
func (p *memPersister) ClearSession() error {
	p.sess = nil
	p.err = nil
	return nil
}

type fakeAuth struct {
	signIn     *model.Session
	refreshed  *model.Session
	refreshErr error
	signedOut  []string
}

func (f *fakeAuth) SignInWithPassword(context.Context, string, string) (*model.Session, error) {
	if f.signIn == nil {
		return nil, errors.New("bad credentials")
	}
	return f.signIn, nil
}

func (f *fakeAuth) SignUp(context.Context, string, string) (*model.Session, error) {
	return f.signIn, nil
}

func (f *fakeAuth) Refresh(context.Context, string) (*model.Session, error) {
	return f.refreshed, f.refreshErr
}

func (f *fakeAuth) SignOut(_ context.Context, token string) error {
	f.signedOut = append(f.signedOut, token)
	return nil
}

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newManager(auth Auth, p *memPersister) *Manager {
	m := NewManager(auth, p, logger.Discard())
	m.now = func() time.Time { return now }
	return m
}

func TestSetTreatsMalformedAsSignedOut(t *testing.T) {
	m := newManager(nil, &memPersister{})
	var seen []*model.Session
	m.OnChange(func(s *model.Session) { seen = append(seen, s) })

	m.Set(&model.Session{UserID: "u1", AccessToken: "a"})
	require.NotNil(t, m.Current())

	m.Set(&model.Session{UserID: "u1"})
	assert.Nil(t, m.Current())

	require.Len(t, seen, 2)
	assert.Equal(t, "u1", seen[0].UserID)
	assert.Nil(t, seen[1])
}

func TestSetSkipsNoopNotifications(t *testing.T) {
	m := newManager(nil, &memPersister{})
	calls := 0
	unsubscribe := m.OnChange(func(*model.Session) { calls++ })

	m.Set(nil)
	m.Set(&model.Session{UserID: "u1", AccessToken: "a"})
	m.Set(&model.Session{UserID: "u1", AccessToken: "a"})
	assert.Equal(t, 1, calls)

	m.Set(&model.Session{UserID: "u1", AccessToken: "b"})
	assert.Equal(t, 2, calls, "token refresh is a change")

	unsubscribe()
	m.Set(nil)
	assert.Equal(t, 2, calls)
}

func TestRestoreValid(t *testing.T) {
	p := &memPersister{sess: &model.Session{UserID: "u1", AccessToken: "a", ExpiresAt: now.Add(time.Hour)}}
	m := newManager(&fakeAuth{}, p)

	sess, err := m.Restore(context.Background())
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "u1", sess.UserID)
}

func TestRestoreRefreshesExpired(t *testing.T) {
	p := &memPersister{sess: &model.Session{UserID: "u1", AccessToken: "old", RefreshToken: "r", ExpiresAt: now.Add(-time.Minute)}}
	auth := &fakeAuth{refreshed: &model.Session{UserID: "u1", AccessToken: "new", RefreshToken: "r2", ExpiresAt: now.Add(time.Hour)}}
	m := newManager(auth, p)

	sess, err := m.Restore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "new", sess.AccessToken)
	assert.Equal(t, "new", p.sess.AccessToken)
}

func TestRestoreFailedRefreshSignsOut(t *testing.T) {
	p := &memPersister{sess: &model.Session{UserID: "u1", AccessToken: "old", ExpiresAt: now.Add(-time.Minute)}}
	m := newManager(&fakeAuth{refreshErr: errors.New("revoked")}, p)

	sess, err := m.Restore(context.Background())
	require.NoError(t, err)
	assert.Nil(t, sess)
	assert.Nil(t, m.Current())
	assert.Nil(t, p.sess)
}

func TestRestoreCorruptStoredSession(t *testing.T) {
	p := &memPersister{err: errors.New("decoding session: bad json")}
	m := newManager(nil, p)
	sess, err := m.Restore(context.Background())
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestSignInAndOut(t *testing.T) {
	p := &memPersister{}
	auth := &fakeAuth{signIn: &model.Session{UserID: "u1", AccessToken: "a"}}
	m := newManager(auth, p)

	sess, err := m.SignIn(context.Background(), "a@b.co", "pw")
	require.NoError(t, err)
	assert.Equal(t, "u1", sess.UserID)
	assert.NotNil(t, p.sess)

	require.NoError(t, m.SignOut(context.Background()))
	assert.Nil(t, m.Current())
	assert.Nil(t, p.sess)
	assert.Equal(t, []string{"a"}, auth.signedOut)
}

func TestSignInWithoutBackend(t *testing.T) {
	m := newManager(nil, &memPersister{})
	_, err := m.SignIn(context.Background(), "a@b.co", "pw")
	assert.ErrorIs(t, err, ErrNoBackend)
}
