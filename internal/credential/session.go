package credential

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"go-task-manager/internal/model"
)

type sessionStore interface {
	Create(ctx context.Context, s model.Session) error
	Get(ctx context.Context, id string) (model.Session, error)
	Destroy(ctx context.Context, id string) error
	DestroyAllForUser(ctx context.Context, userID string) error
}

// SessionIssuer issues opaque high-entropy session identifiers backed by a
// server-side store. Validity is re-checked on every Verify; nothing is
// cached, so logout and expiry take effect on the very next request.
type SessionIssuer struct {
	store sessionStore
	ttl   time.Duration
}

func NewSessionIssuer(store sessionStore, ttl time.Duration) *SessionIssuer {
	return &SessionIssuer{store: store, ttl: ttl}
}

func (s *SessionIssuer) Issue(ctx context.Context, userID string) (Credential, error) {
	id, err := newSessionID()
	if err != nil {
		return Credential{}, fmt.Errorf("generate session id: %w", err)
	}

	now := time.Now().UTC()
	session := model.Session{
		ID:        id,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.store.Create(ctx, session); err != nil {
		return Credential{}, err
	}

	return Credential{Value: id, ExpiresAt: session.ExpiresAt}, nil
}

func (s *SessionIssuer) Verify(ctx context.Context, raw string) (string, error) {
	if raw == "" {
		return "", model.ErrCredentialInvalid
	}

	session, err := s.store.Get(ctx, raw)
	if errors.Is(err, model.ErrSessionNotFound) {
		return "", model.ErrCredentialInvalid
	}
	if err != nil {
		return "", err
	}

	// The store query already filters on expiry; keep the check anyway so a
	// permissive store implementation cannot widen the contract.
	if session.Expired(time.Now().UTC()) {
		return "", model.ErrCredentialInvalid
	}

	return session.UserID, nil
}

func (s *SessionIssuer) Revoke(ctx context.Context, raw string) error {
	if raw == "" {
		return nil
	}
	return s.store.Destroy(ctx, raw)
}

func (s *SessionIssuer) RevokeAllForUser(ctx context.Context, userID string) error {
	return s.store.DestroyAllForUser(ctx, userID)
}

// newSessionID returns 32 random bytes hex-encoded. Collisions are treated
// as negligible rather than checked.
func newSessionID() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
