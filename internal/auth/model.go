package auth

import (
	"strings"
	"time"

	apperrors "github.com/stewardrx/platform/internal/shared/errors"
	"github.com/stewardrx/platform/internal/shared/types"
)

// Roles
const (
	RoleClinician = "clinician"
	RoleAdmin     = "admin"
)

// User is an account that can sign in to the platform
type User struct {
	ID           types.ID  `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"full_name"`
	Role         string    `json:"role"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// LoginRequest is the credentials payload
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r *LoginRequest) Validate() error {
	details := make(map[string]string)
	if strings.TrimSpace(r.Username) == "" {
		details["username"] = "username is required"
	}
	if r.Password == "" {
		details["password"] = "password is required"
	}
	if len(details) > 0 {
		return apperrors.Validation("invalid login request", details)
	}
	return nil
}

// LoginResponse carries the issued token and the signed-in user
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      User      `json:"user"`
}

// RegisterRequest creates a new account, admin only
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

func (r *RegisterRequest) Validate() error {
	details := make(map[string]string)
	if strings.TrimSpace(r.Username) == "" {
		details["username"] = "username is required"
	}
	if len(r.Password) < 8 {
		details["password"] = "password must be at least 8 characters"
	}
	if strings.TrimSpace(r.FullName) == "" {
		details["full_name"] = "full_name is required"
	}
	if r.Role != RoleClinician && r.Role != RoleAdmin {
		details["role"] = "role must be clinician or admin"
	}
	if len(details) > 0 {
		return apperrors.Validation("invalid registration request", details)
	}
	return nil
}
