package credential

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"go-task-manager/internal/model"
)

// TokenIssuer mints self-contained HS256 tokens. There is no server-side
// record: the trade-off is no storage against no instant revocation, which
// rotatePassword callers must be aware of.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl}
}

func (t *TokenIssuer) Issue(ctx context.Context, userID string) (Credential, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(t.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"iat": now.Unix(),
		"exp": expiresAt.Unix(),
	})
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return Credential{}, fmt.Errorf("sign token: %w", err)
	}

	return Credential{Value: signed, ExpiresAt: expiresAt}, nil
}

func (t *TokenIssuer) Verify(ctx context.Context, raw string) (string, error) {
	if raw == "" {
		return "", model.ErrCredentialInvalid
	}

	parsed, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", model.ErrCredentialInvalid
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", model.ErrCredentialInvalid
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", model.ErrCredentialInvalid
	}

	return sub, nil
}

// Revoke is a client-side discard in this design; the server keeps no state
// to delete. Logout still clears the cookie at the transport layer.
func (t *TokenIssuer) Revoke(ctx context.Context, raw string) error {
	return nil
}

func (t *TokenIssuer) RevokeAllForUser(ctx context.Context, userID string) error {
	return nil
}
