package users

import "errors"

var (
	ErrNotFound = errors.New("user not found")
	// ErrConflict is returned when id_number collides with another profile.
	ErrConflict = errors.New("user with this ID number already exists")
	// ErrAuthLinked is returned when an auth identity already owns a profile.
	ErrAuthLinked = errors.New("auth identity already linked to a user")
)
