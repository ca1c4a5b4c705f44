package database

import (
	"errors"
	"strings"
)

// ErrDuplicateEmail is returned when a user is created with an email already in use
var ErrDuplicateEmail = errors.New("email already registered")

// ErrInvalidKey is returned for ids that cannot be used as document field names
var ErrInvalidKey = errors.New("invalid key")

// validFieldKey reports whether id is safe to embed in a dotted document path
func validFieldKey(id string) bool {
	return id != "" && !strings.ContainsAny(id, ".$")
}
