package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go-task-manager/internal/model"
	"go-task-manager/internal/policy"
)

type credentialVerifier interface {
	Verify(ctx context.Context, raw string) (string, error)
}

type userLoader interface {
	FindByID(ctx context.Context, id string) (model.User, error)
}

type authObserver interface {
	ObserveAuth(outcome string)
}

type contextKey string

const (
	identityContextKey   contextKey = "identity"
	credentialContextKey contextKey = "credential"
)

// Authenticator resolves the request credential to a User on every protected
// request. Extraction precedence is fixed: session cookie first, then
// Authorization: Bearer, then the X-Auth-Token header.
type Authenticator struct {
	verifier     credentialVerifier
	users        userLoader
	responder    *DenialResponder
	cookieName   string
	storeTimeout time.Duration
	observer     authObserver
}

func NewAuthenticator(
	verifier credentialVerifier,
	users userLoader,
	responder *DenialResponder,
	cookieName string,
	storeTimeout time.Duration,
	observer authObserver,
) *Authenticator {
	return &Authenticator{
		verifier:     verifier,
		users:        users,
		responder:    responder,
		cookieName:   cookieName,
		storeTimeout: storeTimeout,
		observer:     observer,
	}
}

func (a *Authenticator) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := a.ExtractCredential(r)
		if raw == "" {
			a.deny(w, r, "not authorised to access this route")
			return
		}

		// Bound the store calls; a timed-out store is an infrastructure
		// failure, never a credential denial.
		ctx, cancel := context.WithTimeout(r.Context(), a.storeTimeout)
		defer cancel()

		userID, err := a.verifier.Verify(ctx, raw)
		if errors.Is(err, model.ErrCredentialInvalid) {
			a.deny(w, r, "not authorised to access this route")
			return
		}
		if err != nil {
			a.storeFailure(w, r, err)
			return
		}

		user, err := a.users.FindByID(ctx, userID)
		if errors.Is(err, model.ErrUserNotFound) {
			// User deleted after the credential was issued.
			a.deny(w, r, "not authorised to access this route")
			return
		}
		if err != nil {
			a.storeFailure(w, r, err)
			return
		}

		if a.observer != nil {
			a.observer.ObserveAuth("success")
		}

		reqCtx := context.WithValue(r.Context(), identityContextKey, user)
		reqCtx = context.WithValue(reqCtx, credentialContextKey, raw)
		next.ServeHTTP(w, r.WithContext(reqCtx))
	})
}

// RequireRoles gates a route on the identity's role. It must be mounted
// after RequireAuth.
func (a *Authenticator) RequireRoles(roles ...model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromContext(r.Context())
			if !ok {
				a.deny(w, r, "not authorised to access this route")
				return
			}

			if !policy.Allowed(identity.Role, roles...) {
				a.responder.Forbidden(w, r, "user role "+string(identity.Role)+" is not authorized to access this route")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ExtractCredential reads the raw credential off the transport without
// resolving it. Logout uses this directly so it stays idempotent.
func (a *Authenticator) ExtractCredential(r *http.Request) string {
	if cookie, err := r.Cookie(a.cookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}

	return strings.TrimSpace(r.Header.Get("X-Auth-Token"))
}

func (a *Authenticator) deny(w http.ResponseWriter, r *http.Request, message string) {
	if a.observer != nil {
		a.observer.ObserveAuth("denied")
	}
	a.responder.Unauthenticated(w, r, message)
}

// storeFailure reports the backing store being down as a distinct 500 so
// operators can tell it apart from ordinary denials. The client still learns
// nothing about the credential.
func (a *Authenticator) storeFailure(w http.ResponseWriter, r *http.Request, err error) {
	if a.observer != nil {
		a.observer.ObserveAuth("store_error")
	}
	slog.Error("credential resolution failed", "error", err)
	a.responder.StoreUnavailable(w, r)
}

func IdentityFromContext(ctx context.Context) (model.User, bool) {
	user, ok := ctx.Value(identityContextKey).(model.User)
	return user, ok
}

func CredentialFromContext(ctx context.Context) (string, bool) {
	raw, ok := ctx.Value(credentialContextKey).(string)
	return raw, ok
}
