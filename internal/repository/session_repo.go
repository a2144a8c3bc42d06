package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"go-task-manager/internal/model"
)

// SessionRepository is the server-side session store. Expiry is enforced on
// every Get; the background sweep only reclaims disk, it is never relied on
// for correctness.
type SessionRepository struct {
	pool *pgxpool.Pool
}

func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

func (r *SessionRepository) Create(ctx context.Context, s model.Session) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO sessions (id, user_id, created_at, expires_at)
		 VALUES ($1, $2, $3, $4)`,
		s.ID, s.UserID, s.CreatedAt, s.ExpiresAt)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// Get returns the session only while it is live. An expired record that the
// sweep has not removed yet behaves exactly like an absent one.
func (r *SessionRepository) Get(ctx context.Context, id string) (model.Session, error) {
	var s model.Session
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, created_at, expires_at FROM sessions
		 WHERE id = $1 AND expires_at > now()`, id).
		Scan(&s.ID, &s.UserID, &s.CreatedAt, &s.ExpiresAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return model.Session{}, model.ErrSessionNotFound
	}
	if err != nil {
		return model.Session{}, fmt.Errorf("get session: %w", err)
	}
	return s, nil
}

// Destroy removes the session. Destroying an absent session is not an error,
// which keeps logout idempotent.
func (r *SessionRepository) Destroy(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	return nil
}

func (r *SessionRepository) DestroyAllForUser(ctx context.Context, userID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("destroy sessions for user: %w", err)
	}
	return nil
}

func (r *SessionRepository) CleanExpired(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("clean expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}
