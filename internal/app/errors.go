package app

import "errors"

// ErrNotFound and related errors describe lookup and permission failures.
var (
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrUsernameTaken    = errors.New("username already taken")
	ErrEmailTaken       = errors.New("email already taken")
	ErrInvalidPassword  = errors.New("invalid password")
)
