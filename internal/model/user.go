package model

import (
	"time"

	"github.com/google/uuid"
)

// Role is a user's access level.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// User is an account mirrored from the identity provider (or a local admin).
type User struct {
	ID           uuid.UUID `json:"id"`
	ExternalID   string    `json:"external_id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         Role      `json:"role"`
	Credits      int       `json:"credits"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsAdmin reports whether the user may use the back-office.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// AdminLoginRequest is the payload for back-office authentication.
type AdminLoginRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=6,max=128"`
}

// AdminLoginResponse is returned after successful admin login.
type AdminLoginResponse struct {
	Token string `json:"token"`
	Admin User   `json:"admin"`
}
