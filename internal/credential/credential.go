// Package credential defines the bearer artifact that proves an identity
// across requests, with two interchangeable designs: server-side sessions
// (opaque ids, instantly revocable) and stateless signed tokens (no server
// storage, no mid-lifetime revocation). A process picks one at boot.
package credential

import (
	"context"
	"time"
)

// Credential is the raw value handed to the transport (cookie or header)
// together with its absolute expiry.
type Credential struct {
	Value     string
	ExpiresAt time.Time
}

// Issuer is the common contract both designs implement.
//
// Verify resolves a raw credential to the owning user id. It returns
// model.ErrCredentialInvalid for anything wrong with the credential itself
// (absent, expired, bad signature); any other error means the backing store
// failed and must be reported as infrastructure trouble, not as a denial.
//
// Revoke invalidates the credential where the design supports it. The
// stateless token design cannot revoke before natural expiry; its Revoke is
// a no-op and clients simply discard the token.
type Issuer interface {
	Issue(ctx context.Context, userID string) (Credential, error)
	Verify(ctx context.Context, raw string) (string, error)
	Revoke(ctx context.Context, raw string) error
	RevokeAllForUser(ctx context.Context, userID string) error
}
