package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"go-task-manager/internal/credential"
	"go-task-manager/internal/middleware"
	"go-task-manager/internal/model"
	"go-task-manager/internal/service"
	"go-task-manager/pkg/apierror"
)

// CookieConfig fixes the credential transport attributes. Secure is enabled
// in production only so local development over plain HTTP keeps working.
type CookieConfig struct {
	Name      string
	TTL       time.Duration
	Secure    bool
	TokenMode bool
}

type AuthHandler struct {
	service *service.AuthService
	cookies CookieConfig
	extract func(r *http.Request) string
}

func NewAuthHandler(svc *service.AuthService, cookies CookieConfig, extract func(r *http.Request) string) *AuthHandler {
	return &AuthHandler{service: svc, cookies: cookies, extract: extract}
}

func (h *AuthHandler) setCredentialCookie(w http.ResponseWriter, cred credential.Credential) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookies.Name,
		Value:    cred.Value,
		Path:     "/",
		MaxAge:   int(h.cookies.TTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearCredentialCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookies.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) authResponse(user model.User, cred credential.Credential) model.AuthResponse {
	resp := model.AuthResponse{User: user.Public()}
	if h.cookies.TokenMode {
		resp.Token = cred.Value
	}
	return resp
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}

	user, cred, err := h.service.Register(r.Context(), payload)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setCredentialCookie(w, cred)
	writeSuccess(w, http.StatusCreated, h.authResponse(user, cred))
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}

	user, cred, err := h.service.Login(r.Context(), payload.Email, payload.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setCredentialCookie(w, cred)
	writeSuccess(w, http.StatusOK, h.authResponse(user, cred))
}

// Logout destroys the session if one is presented and clears the cookie.
// It is deliberately not behind RequireAuth: logging out with an absent or
// already-invalidated credential succeeds.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Logout(r.Context(), h.extract(r)); err != nil {
		writeError(w, err)
		return
	}

	h.clearCredentialCookie(w)
	writeSuccess(w, http.StatusOK, map[string]any{})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, model.ErrUnauthenticated)
		return
	}

	writeSuccess(w, http.StatusOK, identity.Public())
}

func (h *AuthHandler) UpdateDetails(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, model.ErrUnauthenticated)
		return
	}

	var payload model.UpdateDetailsRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}

	user, err := h.service.UpdateDetails(r.Context(), identity.ID, payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, user.Public())
}

func (h *AuthHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, model.ErrUnauthenticated)
		return
	}

	var payload model.UpdatePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}

	oldCredential, _ := middleware.CredentialFromContext(r.Context())
	cred, err := h.service.RotatePassword(r.Context(), identity.ID, oldCredential, payload.CurrentPassword, payload.NewPassword)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setCredentialCookie(w, cred)
	writeSuccess(w, http.StatusOK, h.authResponse(identity, cred))
}

func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}

	if err := h.service.RequestPasswordReset(r.Context(), payload.Email); err != nil {
		writeError(w, err)
		return
	}

	// Success-shaped whether or not the account exists.
	writeSuccess(w, http.StatusOK, "Email sent")
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}

	user, cred, err := h.service.ResetPassword(r.Context(), chi.URLParam(r, "token"), payload.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setCredentialCookie(w, cred)
	writeSuccess(w, http.StatusOK, h.authResponse(user, cred))
}

func (h *AuthHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, model.ErrUnauthenticated)
		return
	}

	file, _, err := r.FormFile("avatar")
	if err != nil {
		writeError(w, apierror.Validation("please upload an image file"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, apierror.Validation("could not read uploaded file"))
		return
	}

	user, err := h.service.UpdateAvatar(r.Context(), identity.ID, data)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, user.Public())
}
