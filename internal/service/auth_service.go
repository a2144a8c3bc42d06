package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"go-task-manager/internal/credential"
	"go-task-manager/internal/mailer"
	"go-task-manager/internal/model"
	"go-task-manager/internal/storage"
	"go-task-manager/pkg/apierror"
)

const bcryptCost = 12

// dummyHash is compared against when login hits an unknown email so that the
// unknown-email and wrong-password paths cost the same and return the same
// error.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("timing-equalizer"), bcryptCost)

type userStore interface {
	FindByID(ctx context.Context, id string) (model.User, error)
	FindByEmail(ctx context.Context, email string) (model.User, error)
	Create(ctx context.Context, u model.User) error
	UpdateDetails(ctx context.Context, id string, name string, email string) error
	UpdatePassword(ctx context.Context, id string, passwordHash string) error
	UpdateAvatar(ctx context.Context, id string, avatar *model.Avatar) error
	SetResetToken(ctx context.Context, id string, tokenHash string, expiresAt time.Time) error
	ClearResetToken(ctx context.Context, id string) error
	FindByResetToken(ctx context.Context, tokenHash string, now time.Time) (model.User, error)
	UpdateRole(ctx context.Context, id string, role model.Role) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]model.PublicUser, error)
}

type AuthService struct {
	users         userStore
	issuer        credential.Issuer
	mail          mailer.Mailer
	avatars       storage.AvatarStore
	resetTokenTTL time.Duration
	resetBaseURL  string
	avatarMaxSize int64
}

func NewAuthService(
	users userStore,
	issuer credential.Issuer,
	mail mailer.Mailer,
	avatars storage.AvatarStore,
	resetTokenTTL time.Duration,
	resetBaseURL string,
	avatarMaxSize int64,
) *AuthService {
	return &AuthService{
		users:         users,
		issuer:        issuer,
		mail:          mail,
		avatars:       avatars,
		resetTokenTTL: resetTokenTTL,
		resetBaseURL:  resetBaseURL,
		avatarMaxSize: avatarMaxSize,
	}
}

// Register creates a user with role "user" and issues a fresh credential.
func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (model.User, credential.Credential, error) {
	if err := validateName(req.Name); err != nil {
		return model.User{}, credential.Credential{}, err
	}
	if err := validateEmail(req.Email); err != nil {
		return model.User{}, credential.Credential{}, err
	}
	if err := validatePassword(req.Password); err != nil {
		return model.User{}, credential.Credential{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return model.User{}, credential.Credential{}, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := model.User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: string(hash),
		Role:         model.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return model.User{}, credential.Credential{}, err
	}

	cred, err := s.issuer.Issue(ctx, user.ID)
	if err != nil {
		return model.User{}, credential.Credential{}, err
	}

	return user, cred, nil
}

// Login verifies the credentials and issues a fresh credential. Unknown email
// and wrong password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email string, password string) (model.User, credential.Credential, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return model.User{}, credential.Credential{}, apierror.Validation("please provide an email and password")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, model.ErrUserNotFound) {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return model.User{}, credential.Credential{}, model.ErrInvalidCredentials
	}
	if err != nil {
		return model.User{}, credential.Credential{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return model.User{}, credential.Credential{}, model.ErrInvalidCredentials
	}

	cred, err := s.issuer.Issue(ctx, user.ID)
	if err != nil {
		return model.User{}, credential.Credential{}, err
	}

	return user, cred, nil
}

// Logout revokes the credential. Revoking an absent or already-revoked
// credential succeeds, so a double logout never errors.
func (s *AuthService) Logout(ctx context.Context, raw string) error {
	if raw == "" {
		return nil
	}
	return s.issuer.Revoke(ctx, raw)
}

func (s *AuthService) GetUserByID(ctx context.Context, id string) (model.User, error) {
	return s.users.FindByID(ctx, id)
}

func (s *AuthService) UpdateDetails(ctx context.Context, userID string, req model.UpdateDetailsRequest) (model.User, error) {
	if err := validateName(req.Name); err != nil {
		return model.User{}, err
	}
	if err := validateEmail(req.Email); err != nil {
		return model.User{}, err
	}

	err := s.users.UpdateDetails(ctx, userID, strings.TrimSpace(req.Name), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		return model.User{}, err
	}

	return s.users.FindByID(ctx, userID)
}

// RotatePassword changes the password and rotates the credential: the old
// one is destroyed before the new one is issued, so a stolen session does
// not outlive a password change.
func (s *AuthService) RotatePassword(ctx context.Context, userID string, oldCredential string, currentPassword string, newPassword string) (credential.Credential, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return credential.Credential{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		return credential.Credential{}, model.ErrInvalidCredentials
	}

	if err := validatePassword(newPassword); err != nil {
		return credential.Credential{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return credential.Credential{}, fmt.Errorf("hash password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, userID, string(hash)); err != nil {
		return credential.Credential{}, err
	}

	if err := s.issuer.Revoke(ctx, oldCredential); err != nil {
		return credential.Credential{}, err
	}

	return s.issuer.Issue(ctx, userID)
}

// RequestPasswordReset responds success-shaped whether or not the email
// exists. A reset mail only goes out for known users; on delivery failure
// the stored token is cleared and the caller sees a delivery error.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	if err := validateEmail(email); err != nil {
		return err
	}

	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, model.ErrUserNotFound) {
		slog.Info("password reset requested for unknown email")
		return nil
	}
	if err != nil {
		return err
	}

	plaintext, tokenHash, err := newResetToken()
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}

	expiresAt := time.Now().UTC().Add(s.resetTokenTTL)
	if err := s.users.SetResetToken(ctx, user.ID, tokenHash, expiresAt); err != nil {
		return err
	}

	resetURL := fmt.Sprintf("%s/api/v1/auth/resetpassword/%s", strings.TrimSuffix(s.resetBaseURL, "/"), plaintext)
	if err := s.mail.Send(ctx, mailer.ResetMessage(user.Email, resetURL)); err != nil {
		slog.Error("reset mail delivery failed", "error", err)
		if clearErr := s.users.ClearResetToken(ctx, user.ID); clearErr != nil {
			slog.Error("failed to clear reset token after delivery failure", "error", clearErr)
		}
		return model.ErrDeliveryFailed
	}

	return nil
}

// ResetPassword consumes a single-use reset token: the incoming plaintext is
// hashed and matched against a stored, unexpired hash.
func (s *AuthService) ResetPassword(ctx context.Context, token string, newPassword string) (model.User, credential.Credential, error) {
	if strings.TrimSpace(token) == "" {
		return model.User{}, credential.Credential{}, model.ErrResetTokenInvalid
	}

	user, err := s.users.FindByResetToken(ctx, hashResetToken(token), time.Now().UTC())
	if err != nil {
		return model.User{}, credential.Credential{}, err
	}

	if err := validatePassword(newPassword); err != nil {
		return model.User{}, credential.Credential{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return model.User{}, credential.Credential{}, fmt.Errorf("hash password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		return model.User{}, credential.Credential{}, err
	}
	if err := s.users.ClearResetToken(ctx, user.ID); err != nil {
		return model.User{}, credential.Credential{}, err
	}

	// Any session issued before the reset is suspect.
	if err := s.issuer.RevokeAllForUser(ctx, user.ID); err != nil {
		return model.User{}, credential.Credential{}, err
	}

	cred, err := s.issuer.Issue(ctx, user.ID)
	if err != nil {
		return model.User{}, credential.Credential{}, err
	}

	return user, cred, nil
}

// UpdateAvatar validates the upload, stores it in the object store and
// replaces the user's avatar reference. The previous object is removed
// best-effort after the new one is in place.
func (s *AuthService) UpdateAvatar(ctx context.Context, userID string, data []byte) (model.User, error) {
	if s.avatars == nil {
		return model.User{}, apierror.New("NOT_CONFIGURED", "avatar storage is not configured", "", http.StatusServiceUnavailable)
	}
	if int64(len(data)) > s.avatarMaxSize {
		return model.User{}, apierror.Validation(fmt.Sprintf("please upload an image smaller than %d bytes", s.avatarMaxSize))
	}

	contentType, err := storage.SniffImage(data)
	if err != nil {
		return model.User{}, apierror.Validation("please upload a valid image file")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return model.User{}, err
	}

	key := fmt.Sprintf("avatars/avatar_%s_%d", userID, time.Now().UnixMilli())
	url, err := s.avatars.Upload(ctx, key, contentType, data)
	if err != nil {
		return model.User{}, fmt.Errorf("upload avatar: %w", err)
	}

	newAvatar := &model.Avatar{PublicID: key, URL: url}
	if err := s.users.UpdateAvatar(ctx, userID, newAvatar); err != nil {
		return model.User{}, err
	}

	if user.Avatar != nil && user.Avatar.PublicID != "" {
		if err := s.avatars.Delete(ctx, user.Avatar.PublicID); err != nil {
			slog.Warn("failed to delete previous avatar", "key", user.Avatar.PublicID, "error", err)
		}
	}

	user.Avatar = newAvatar
	return user, nil
}

// Admin user management.

func (s *AuthService) ListUsers(ctx context.Context) ([]model.PublicUser, error) {
	return s.users.List(ctx)
}

func (s *AuthService) UpdateRole(ctx context.Context, userID string, rawRole string) (model.User, error) {
	role, err := model.ParseRole(rawRole)
	if err != nil {
		return model.User{}, apierror.Validation(err.Error())
	}

	if err := s.users.UpdateRole(ctx, userID, role); err != nil {
		return model.User{}, err
	}
	return s.users.FindByID(ctx, userID)
}

// DeleteUser removes the account and revokes every credential issued to it.
func (s *AuthService) DeleteUser(ctx context.Context, userID string) error {
	if err := s.issuer.RevokeAllForUser(ctx, userID); err != nil {
		return err
	}
	return s.users.Delete(ctx, userID)
}

func newResetToken() (plaintext string, tokenHash string, err error) {
	buf := make([]byte, 20)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}
	plaintext = hex.EncodeToString(buf)
	return plaintext, hashResetToken(plaintext), nil
}

func hashResetToken(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}
