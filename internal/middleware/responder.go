package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"go-task-manager/internal/model"
)

// DenialResponder picks the denial shape the caller can actually use: a JSON
// envelope for API clients, a redirect to the login page for browser
// navigations that expect HTML.
type DenialResponder struct {
	fallbackPath string
}

func NewDenialResponder(fallbackPath string) *DenialResponder {
	if fallbackPath == "" {
		fallbackPath = "/login"
	}
	return &DenialResponder{fallbackPath: fallbackPath}
}

func (d *DenialResponder) Unauthenticated(w http.ResponseWriter, r *http.Request, message string) {
	if wantsHTML(r) {
		http.Redirect(w, r, d.fallbackPath, http.StatusFound)
		return
	}
	writeDenial(w, http.StatusUnauthorized, "UNAUTHORIZED", message)
}

func (d *DenialResponder) Forbidden(w http.ResponseWriter, r *http.Request, message string) {
	if wantsHTML(r) {
		http.Redirect(w, r, d.fallbackPath, http.StatusFound)
		return
	}
	writeDenial(w, http.StatusForbidden, "FORBIDDEN", message)
}

// StoreUnavailable always answers JSON: infrastructure failure is not a
// navigation concern and must stay visible to API clients and probes alike.
func (d *DenialResponder) StoreUnavailable(w http.ResponseWriter, r *http.Request) {
	writeDenial(w, http.StatusInternalServerError, "STORE_UNAVAILABLE", "session backend unavailable")
}

// wantsHTML detects a browser navigation: an Accept header preferring HTML
// on a GET that is not an XMLHttpRequest.
func wantsHTML(r *http.Request) bool {
	if r.Method != http.MethodGet {
		return false
	}
	if r.Header.Get("X-Requested-With") == "XMLHttpRequest" {
		return false
	}
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "text/html")
}

func writeDenial(w http.ResponseWriter, status int, code string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: false,
		Error: &model.APIError{
			Code:    code,
			Message: message,
		},
	})
}
