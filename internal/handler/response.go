package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"go-task-manager/internal/model"
	"go-task-manager/pkg/apierror"
)

// verbose controls whether unclassified error text is echoed to clients.
// It is enabled outside production only.
var verbose bool

func SetVerbose(v bool) {
	verbose = v
}

func writeSuccess(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: true,
		Data:    data,
	})
}

// writeError is the single translation point from service errors to the
// uniform envelope.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	body := &model.APIError{
		Code:    "INTERNAL_ERROR",
		Message: "Unexpected server error",
	}

	var apiErr *apierror.APIError
	if errors.As(err, &apiErr) {
		status = apiErr.HTTPStatus
		body.Code = apiErr.Code
		body.Message = apiErr.Message
		body.Details = apiErr.Details
	} else if errors.Is(err, model.ErrInvalidCredentials) {
		status = http.StatusUnauthorized
		body.Code = "INVALID_CREDENTIALS"
		body.Message = "Invalid credentials"
	} else if errors.Is(err, model.ErrEmailTaken) {
		status = http.StatusConflict
		body.Code = "DUPLICATE_EMAIL"
		body.Message = "Email already registered"
	} else if errors.Is(err, model.ErrUserNotFound) {
		status = http.StatusNotFound
		body.Code = "NOT_FOUND"
		body.Message = "User not found"
	} else if errors.Is(err, model.ErrTaskNotFound) {
		status = http.StatusNotFound
		body.Code = "NOT_FOUND"
		body.Message = "Task not found"
	} else if errors.Is(err, model.ErrUnauthenticated) || errors.Is(err, model.ErrCredentialInvalid) || errors.Is(err, model.ErrSessionNotFound) {
		status = http.StatusUnauthorized
		body.Code = "UNAUTHORIZED"
		body.Message = "Authentication required"
	} else if errors.Is(err, model.ErrForbidden) {
		status = http.StatusForbidden
		body.Code = "FORBIDDEN"
		body.Message = "Access denied"
	} else if errors.Is(err, model.ErrResetTokenInvalid) {
		status = http.StatusBadRequest
		body.Code = "INVALID_RESET_TOKEN"
		body.Message = "Invalid token"
	} else if errors.Is(err, model.ErrDeliveryFailed) {
		status = http.StatusInternalServerError
		body.Code = "DELIVERY_ERROR"
		body.Message = "Email could not be sent"
	} else if errors.Is(err, model.ErrStoreUnavailable) {
		status = http.StatusInternalServerError
		body.Code = "STORE_UNAVAILABLE"
		body.Message = "Data store unavailable"
	} else if errors.Is(err, model.ErrInvalidInput) {
		status = http.StatusBadRequest
		body.Code = "BAD_REQUEST"
		body.Message = "Invalid input"
	} else {
		// Log unclassified errors so they are visible in container logs.
		slog.Error("unhandled error in writeError", "error", err.Error())
		if verbose {
			body.Details = err.Error()
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: false,
		Error:   body,
	})
}
