package store

import "errors"

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrEmailTaken is returned when another active account already holds the
// requested email.
var ErrEmailTaken = errors.New("email already exists")
