package service

import (
	"regexp"
	"strings"

	"go-task-manager/pkg/apierror"
)

var (
	emailRx = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	nameRx  = regexp.MustCompile(`^[\p{L} .'-]+$`)
)

// validatePassword enforces the one canonical server-side rule: at least 8
// characters with an upper-case letter, a lower-case letter and a digit.
func validatePassword(password string) error {
	if len(password) < 8 {
		return apierror.Validation("password must be at least 8 characters")
	}

	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasDigit = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit {
		return apierror.Validation("password must contain upper-case, lower-case and digit characters")
	}
	return nil
}

func validateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return apierror.Validation("email is required")
	}
	if len(email) > 254 || !emailRx.MatchString(email) {
		return apierror.Validation("email is not well-formed")
	}
	return nil
}

func validateName(name string) error {
	name = strings.TrimSpace(name)
	if len(name) < 2 || len(name) > 50 {
		return apierror.Validation("name must be between 2 and 50 characters")
	}
	if !nameRx.MatchString(name) {
		return apierror.Validation("name contains invalid characters")
	}
	return nil
}
