package domain

import (
	"strings"
	"time"
)

// User is a workflow actor. Session management lives outside this module;
// the stored record still carries the password hash like any directory row.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Role         Role
	FirstName    string
	LastName     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type UserInput struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Role         Role
	FirstName    string
	LastName     string
}

// NewUser constructs a directory record. Role defaults to Editor, matching
// the least-privileged workflow role.
func NewUser(in UserInput, now time.Time) (User, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)

	if in.ID == "" {
		return User{}, ErrInvalidID
	}
	if in.Username == "" {
		return User{}, ErrInvalidUsername
	}
	if in.Email == "" || !strings.Contains(in.Email, "@") {
		return User{}, ErrInvalidEmail
	}
	if in.Role == "" {
		in.Role = RoleEditor
	}
	if !IsValidRole(in.Role) {
		return User{}, ErrInvalidRole
	}

	return User{
		ID:           in.ID,
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: in.PasswordHash,
		Role:         in.Role,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		CreatedAt:    now.UTC(),
		UpdatedAt:    now.UTC(),
	}, nil
}
