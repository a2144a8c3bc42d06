package credential

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"go-task-manager/internal/model"
)

type fakeSessionStore struct {
	sessions map[string]model.Session
	failWith error
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: map[string]model.Session{}}
}

func (f *fakeSessionStore) Create(ctx context.Context, s model.Session) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.sessions[s.ID] = s
	return nil
}

func (f *fakeSessionStore) Get(ctx context.Context, id string) (model.Session, error) {
	if f.failWith != nil {
		return model.Session{}, f.failWith
	}
	s, ok := f.sessions[id]
	if !ok || s.Expired(time.Now().UTC()) {
		return model.Session{}, model.ErrSessionNotFound
	}
	return s, nil
}

func (f *fakeSessionStore) Destroy(ctx context.Context, id string) error {
	if f.failWith != nil {
		return f.failWith
	}
	delete(f.sessions, id)
	return nil
}

func (f *fakeSessionStore) DestroyAllForUser(ctx context.Context, userID string) error {
	if f.failWith != nil {
		return f.failWith
	}
	for id, s := range f.sessions {
		if s.UserID == userID {
			delete(f.sessions, id)
		}
	}
	return nil
}

func TestSessionIssuerRoundtrip(t *testing.T) {
	t.Parallel()

	store := newFakeSessionStore()
	issuer := NewSessionIssuer(store, time.Hour)
	ctx := context.Background()

	cred, err := issuer.Issue(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, cred.Value, 64)
	require.WithinDuration(t, time.Now().Add(time.Hour), cred.ExpiresAt, 5*time.Second)

	userID, err := issuer.Verify(ctx, cred.Value)
	require.NoError(t, err)
	require.Equal(t, "user-1", userID)
}

func TestSessionIssuerVerifyFailures(t *testing.T) {
	t.Parallel()

	t.Run("empty credential is denied", func(t *testing.T) {
		issuer := NewSessionIssuer(newFakeSessionStore(), time.Hour)
		_, err := issuer.Verify(context.Background(), "")
		require.ErrorIs(t, err, model.ErrCredentialInvalid)
	})

	t.Run("unknown id is denied", func(t *testing.T) {
		issuer := NewSessionIssuer(newFakeSessionStore(), time.Hour)
		_, err := issuer.Verify(context.Background(), "deadbeef")
		require.ErrorIs(t, err, model.ErrCredentialInvalid)
	})

	t.Run("expired session is denied", func(t *testing.T) {
		store := newFakeSessionStore()
		issuer := NewSessionIssuer(store, -time.Minute)

		cred, err := issuer.Issue(context.Background(), "user-1")
		require.NoError(t, err)

		_, err = issuer.Verify(context.Background(), cred.Value)
		require.ErrorIs(t, err, model.ErrCredentialInvalid)
	})

	t.Run("store failure surfaces as a distinct error", func(t *testing.T) {
		store := newFakeSessionStore()
		store.failWith = errors.New("connection refused")
		issuer := NewSessionIssuer(store, time.Hour)

		_, err := issuer.Verify(context.Background(), "deadbeef")
		require.Error(t, err)
		require.NotErrorIs(t, err, model.ErrCredentialInvalid)
	})
}

func TestSessionIssuerRevoke(t *testing.T) {
	t.Parallel()

	store := newFakeSessionStore()
	issuer := NewSessionIssuer(store, time.Hour)
	ctx := context.Background()

	cred, err := issuer.Issue(ctx, "user-1")
	require.NoError(t, err)

	require.NoError(t, issuer.Revoke(ctx, cred.Value))
	_, err = issuer.Verify(ctx, cred.Value)
	require.ErrorIs(t, err, model.ErrCredentialInvalid)

	// Revoking again stays silent.
	require.NoError(t, issuer.Revoke(ctx, cred.Value))
	require.NoError(t, issuer.Revoke(ctx, ""))
}

func TestSessionIssuerRevokeAllForUser(t *testing.T) {
	t.Parallel()

	store := newFakeSessionStore()
	issuer := NewSessionIssuer(store, time.Hour)
	ctx := context.Background()

	first, err := issuer.Issue(ctx, "user-1")
	require.NoError(t, err)
	second, err := issuer.Issue(ctx, "user-1")
	require.NoError(t, err)
	other, err := issuer.Issue(ctx, "user-2")
	require.NoError(t, err)

	require.NoError(t, issuer.RevokeAllForUser(ctx, "user-1"))

	_, err = issuer.Verify(ctx, first.Value)
	require.ErrorIs(t, err, model.ErrCredentialInvalid)
	_, err = issuer.Verify(ctx, second.Value)
	require.ErrorIs(t, err, model.ErrCredentialInvalid)

	userID, err := issuer.Verify(ctx, other.Value)
	require.NoError(t, err)
	require.Equal(t, "user-2", userID)
}

func TestSessionIDsAreUnique(t *testing.T) {
	t.Parallel()

	store := newFakeSessionStore()
	issuer := NewSessionIssuer(store, time.Hour)

	seen := map[string]struct{}{}
	for i := 0; i < 50; i++ {
		cred, err := issuer.Issue(context.Background(), "user-1")
		require.NoError(t, err)
		_, dup := seen[cred.Value]
		require.False(t, dup)
		seen[cred.Value] = struct{}{}
	}
}
