package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"go-task-manager/internal/credential"
	"go-task-manager/internal/mailer"
	"go-task-manager/internal/middleware"
	"go-task-manager/internal/model"
	"go-task-manager/internal/service"
)

// In-memory stores so the whole register/login/logout flow runs against the
// real service and the real session issuer.

type memUserStore struct {
	mu    sync.Mutex
	users map[string]model.User
}

func (m *memUserStore) FindByID(ctx context.Context, id string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return model.User{}, model.ErrUserNotFound
	}
	return u, nil
}

func (m *memUserStore) FindByEmail(ctx context.Context, email string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == strings.ToLower(strings.TrimSpace(email)) {
			return u, nil
		}
	}
	return model.User{}, model.ErrUserNotFound
}

func (m *memUserStore) Create(ctx context.Context, u model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return model.ErrEmailTaken
		}
	}
	m.users[u.ID] = u
	return nil
}

func (m *memUserStore) UpdateDetails(ctx context.Context, id string, name string, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.users[id]
	u.Name, u.Email = name, email
	m.users[id] = u
	return nil
}

func (m *memUserStore) UpdatePassword(ctx context.Context, id string, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.users[id]
	u.PasswordHash = passwordHash
	m.users[id] = u
	return nil
}

func (m *memUserStore) UpdateAvatar(ctx context.Context, id string, avatar *model.Avatar) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.users[id]
	u.Avatar = avatar
	m.users[id] = u
	return nil
}

func (m *memUserStore) SetResetToken(ctx context.Context, id string, tokenHash string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.users[id]
	u.ResetPasswordHash = tokenHash
	u.ResetPasswordExpiresAt = &expiresAt
	m.users[id] = u
	return nil
}

func (m *memUserStore) ClearResetToken(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.users[id]
	u.ResetPasswordHash = ""
	u.ResetPasswordExpiresAt = nil
	m.users[id] = u
	return nil
}

func (m *memUserStore) FindByResetToken(ctx context.Context, tokenHash string, now time.Time) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ResetPasswordHash == tokenHash && u.ResetPasswordExpiresAt != nil && u.ResetPasswordExpiresAt.After(now) {
			return u, nil
		}
	}
	return model.User{}, model.ErrResetTokenInvalid
}

func (m *memUserStore) UpdateRole(ctx context.Context, id string, role model.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.users[id]
	u.Role = role
	m.users[id] = u
	return nil
}

func (m *memUserStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, id)
	return nil
}

func (m *memUserStore) List(ctx context.Context) ([]model.PublicUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.PublicUser, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u.Public())
	}
	return out, nil
}

type memSessionStore struct {
	mu       sync.Mutex
	sessions map[string]model.Session
}

func (m *memSessionStore) Create(ctx context.Context, s model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return nil
}

func (m *memSessionStore) Get(ctx context.Context, id string) (model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.Expired(time.Now().UTC()) {
		return model.Session{}, model.ErrSessionNotFound
	}
	return s, nil
}

func (m *memSessionStore) Destroy(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *memSessionStore) DestroyAllForUser(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		if s.UserID == userID {
			delete(m.sessions, id)
		}
	}
	return nil
}

type nopMailer struct{}

func (nopMailer) Send(ctx context.Context, msg mailer.Message) error { return nil }

func newTestServer(t *testing.T) http.Handler {
	t.Helper()

	users := &memUserStore{users: map[string]model.User{}}
	sessions := &memSessionStore{sessions: map[string]model.Session{}}
	issuer := credential.NewSessionIssuer(sessions, time.Hour)
	svc := service.NewAuthService(users, issuer, nopMailer{}, nil, 10*time.Minute, "http://localhost:8080", 1<<20)

	responder := middleware.NewDenialResponder("/login")
	authenticator := middleware.NewAuthenticator(issuer, users, responder, "sid", time.Second, nil)

	cookies := CookieConfig{Name: "sid", TTL: time.Hour}
	authHandler := NewAuthHandler(svc, cookies, authenticator.ExtractCredential)

	r := chi.NewRouter()
	r.Route("/api/v1/auth", func(a chi.Router) {
		a.Post("/register", authHandler.Register)
		a.Post("/login", authHandler.Login)
		a.Post("/logout", authHandler.Logout)
		a.With(authenticator.RequireAuth).Get("/me", authHandler.Me)
		a.With(authenticator.RequireAuth).Put("/updatepassword", authHandler.UpdatePassword)
	})
	return r
}

func postJSON(t *testing.T, server http.Handler, path string, payload any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)
	return rec
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == "sid" {
			return c
		}
	}
	t.Fatal("no sid cookie in response")
	return nil
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) model.APIResponse {
	t.Helper()
	var resp model.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestRegisterSetsSessionCookie(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	rec := postJSON(t, server, "/api/v1/auth/register", model.RegisterRequest{
		Name: "Alice", Email: "alice@example.com", Password: "Sup3rsecret",
	}, nil)

	require.Equal(t, http.StatusCreated, rec.Code)

	cookie := sessionCookie(t, rec)
	require.NotEmpty(t, cookie.Value)
	require.True(t, cookie.HttpOnly)
	require.Equal(t, "/", cookie.Path)
	require.Equal(t, http.SameSiteLaxMode, cookie.SameSite)

	resp := decodeEnvelope(t, rec)
	require.True(t, resp.Success)

	// Session mode never echoes the credential in the body.
	require.NotContains(t, rec.Body.String(), cookie.Value)
	require.NotContains(t, rec.Body.String(), "password")

	// The fresh cookie resolves on a protected route.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.AddCookie(cookie)
	meRec := httptest.NewRecorder()
	server.ServeHTTP(meRec, req)
	require.Equal(t, http.StatusOK, meRec.Code)
	require.Contains(t, meRec.Body.String(), "alice@example.com")
}

func TestLoginFailureEnvelope(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	rec := postJSON(t, server, "/api/v1/auth/register", model.RegisterRequest{
		Name: "Alice", Email: "alice@example.com", Password: "Sup3rsecret",
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	wrongPass := postJSON(t, server, "/api/v1/auth/login", model.LoginRequest{
		Email: "alice@example.com", Password: "WrongPass1",
	}, nil)
	unknownEmail := postJSON(t, server, "/api/v1/auth/login", model.LoginRequest{
		Email: "nobody@example.com", Password: "Sup3rsecret",
	}, nil)

	require.Equal(t, http.StatusUnauthorized, wrongPass.Code)
	require.Equal(t, http.StatusUnauthorized, unknownEmail.Code)

	// Byte-identical denials, so the response cannot be used to enumerate
	// accounts.
	require.Equal(t, wrongPass.Body.String(), unknownEmail.Body.String())

	resp := decodeEnvelope(t, wrongPass)
	require.False(t, resp.Success)
	require.Equal(t, "INVALID_CREDENTIALS", resp.Error.Code)
}

func TestLogoutIsIdempotentAndClearsCookie(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	rec := postJSON(t, server, "/api/v1/auth/register", model.RegisterRequest{
		Name: "Alice", Email: "alice@example.com", Password: "Sup3rsecret",
	}, nil)
	cookie := sessionCookie(t, rec)

	first := postJSON(t, server, "/api/v1/auth/logout", map[string]any{}, cookie)
	require.Equal(t, http.StatusOK, first.Code)

	cleared := sessionCookie(t, first)
	require.Empty(t, cleared.Value)
	require.Negative(t, cleared.MaxAge)

	// Same cookie again, and no cookie at all: both still succeed.
	second := postJSON(t, server, "/api/v1/auth/logout", map[string]any{}, cookie)
	require.Equal(t, http.StatusOK, second.Code)
	third := postJSON(t, server, "/api/v1/auth/logout", map[string]any{}, nil)
	require.Equal(t, http.StatusOK, third.Code)

	// The session is gone on the next protected request.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.AddCookie(cookie)
	meRec := httptest.NewRecorder()
	server.ServeHTTP(meRec, req)
	require.Equal(t, http.StatusUnauthorized, meRec.Code)
}

func TestUpdatePasswordRotatesSession(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	rec := postJSON(t, server, "/api/v1/auth/register", model.RegisterRequest{
		Name: "Alice", Email: "alice@example.com", Password: "Sup3rsecret",
	}, nil)
	oldCookie := sessionCookie(t, rec)

	body, err := json.Marshal(model.UpdatePasswordRequest{
		CurrentPassword: "Sup3rsecret",
		NewPassword:     "Ev3nBetter",
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/auth/updatepassword", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(oldCookie)
	rotateRec := httptest.NewRecorder()
	server.ServeHTTP(rotateRec, req)
	require.Equal(t, http.StatusOK, rotateRec.Code)

	newCookie := sessionCookie(t, rotateRec)
	require.NotEqual(t, oldCookie.Value, newCookie.Value)

	// The old session died with the password change.
	meReq := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	meReq.AddCookie(oldCookie)
	oldRec := httptest.NewRecorder()
	server.ServeHTTP(oldRec, meReq)
	require.Equal(t, http.StatusUnauthorized, oldRec.Code)

	meReq2 := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	meReq2.AddCookie(newCookie)
	newRec := httptest.NewRecorder()
	server.ServeHTTP(newRec, meReq2)
	require.Equal(t, http.StatusOK, newRec.Code)
}

func TestProtectedRouteWithoutCredential(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	resp := decodeEnvelope(t, rec)
	require.False(t, resp.Success)
	require.Equal(t, "UNAUTHORIZED", resp.Error.Code)
}
