package model

import (
	"fmt"
	"strings"
	"time"
)

// Role is the closed set of user roles. Invalid values are rejected at the
// model boundary so they can never reach the database.
type Role string

const (
	RoleUser      Role = "user"
	RolePublisher Role = "publisher"
	RoleAdmin     Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RolePublisher, RoleAdmin:
		return true
	}
	return false
}

func ParseRole(raw string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	if !role.Valid() {
		return "", fmt.Errorf("invalid role %q", raw)
	}
	return role, nil
}

// Avatar references an image held by the external object store.
type Avatar struct {
	PublicID string `json:"public_id"`
	URL      string `json:"url"`
}

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Avatar       *Avatar   `json:"avatar,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Password-reset fields. Set transiently by the forgot-password flow and
	// cleared after use or on delivery failure. Never serialized.
	ResetPasswordHash      string     `json:"-"`
	ResetPasswordExpiresAt *time.Time `json:"-"`
}

// PublicUser is the client-facing projection of a User. The password hash and
// reset fields never leave the server.
type PublicUser struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	Avatar    *Avatar   `json:"avatar,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (u User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		Avatar:    u.Avatar,
		CreatedAt: u.CreatedAt,
	}
}
