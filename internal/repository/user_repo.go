package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"go-task-manager/internal/model"
)

const userColumns = `id, name, email, password_hash, role, avatar_public_id, avatar_url,
       reset_password_hash, reset_password_expires_at, created_at, updated_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func scanUser(row pgx.Row) (model.User, error) {
	var (
		u              model.User
		avatarPublicID *string
		avatarURL      *string
		resetHash      *string
	)
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role,
		&avatarPublicID, &avatarURL, &resetHash, &u.ResetPasswordExpiresAt,
		&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, err
	}

	if avatarPublicID != nil && avatarURL != nil {
		u.Avatar = &model.Avatar{PublicID: *avatarPublicID, URL: *avatarURL}
	}
	if resetHash != nil {
		u.ResetPasswordHash = *resetHash
	}
	return u, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (model.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))

	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, model.ErrUserNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("find user by id: %w", err)
	}
	return u, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (model.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`,
		strings.TrimSpace(email)))

	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, model.ErrUserNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("find user by email: %w", err)
	}
	return u, nil
}

func (r *UserRepository) Create(ctx context.Context, u model.User) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, name, email, password_hash, role, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.Role, u.CreatedAt, u.UpdatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return model.ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *UserRepository) UpdateDetails(ctx context.Context, id string, name string, email string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET name = $2, email = $3, updated_at = $4 WHERE id = $1`,
		id, name, email, time.Now().UTC())

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return model.ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("update user details: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id string, passwordHash string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`,
		id, passwordHash, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) UpdateAvatar(ctx context.Context, id string, avatar *model.Avatar) error {
	var publicID, url *string
	if avatar != nil {
		publicID = &avatar.PublicID
		url = &avatar.URL
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET avatar_public_id = $2, avatar_url = $3, updated_at = $4 WHERE id = $1`,
		id, publicID, url, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update avatar: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrUserNotFound
	}
	return nil
}

// SetResetToken stores the hash of an outstanding password-reset token. Only
// the hash ever touches the database; the plaintext goes out by email.
func (r *UserRepository) SetResetToken(ctx context.Context, id string, tokenHash string, expiresAt time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET reset_password_hash = $2, reset_password_expires_at = $3, updated_at = $4
		 WHERE id = $1`,
		id, tokenHash, expiresAt, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set reset token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) ClearResetToken(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET reset_password_hash = NULL, reset_password_expires_at = NULL, updated_at = $2
		 WHERE id = $1`,
		id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("clear reset token: %w", err)
	}
	return nil
}

// FindByResetToken matches a stored reset-token hash that has not expired yet.
func (r *UserRepository) FindByResetToken(ctx context.Context, tokenHash string, now time.Time) (model.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE reset_password_hash = $1 AND reset_password_expires_at > $2`,
		tokenHash, now))

	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, model.ErrResetTokenInvalid
	}
	if err != nil {
		return model.User{}, fmt.Errorf("find user by reset token: %w", err)
	}
	return u, nil
}

func (r *UserRepository) UpdateRole(ctx context.Context, id string, role model.Role) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET role = $2, updated_at = $3 WHERE id = $1`,
		id, role, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) List(ctx context.Context) ([]model.PublicUser, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, email, role, avatar_public_id, avatar_url, created_at
		 FROM users ORDER BY lower(email)`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]model.PublicUser, 0)
	for rows.Next() {
		var (
			u              model.PublicUser
			avatarPublicID *string
			avatarURL      *string
		)
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &avatarPublicID, &avatarURL, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		if avatarPublicID != nil && avatarURL != nil {
			u.Avatar = &model.Avatar{PublicID: *avatarPublicID, URL: *avatarURL}
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
