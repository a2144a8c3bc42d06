package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"go-task-manager/internal/model"
	"go-task-manager/internal/service"
	"go-task-manager/pkg/apierror"
)

// UserHandler is the admin-only user management surface.
type UserHandler struct {
	service *service.AuthService
}

func NewUserHandler(svc *service.AuthService) *UserHandler {
	return &UserHandler{service: svc}
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, users)
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetUserByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, user.Public())
}

func (h *UserHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.UpdateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}

	user, err := h.service.UpdateRole(r.Context(), chi.URLParam(r, "id"), payload.Role)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, user.Public())
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteUser(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{})
}
