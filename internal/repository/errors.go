package repository

import "errors"

// ErrNotFound is returned when a requested contact does not exist in the store.
var ErrNotFound = errors.New("not found")

// ErrDuplicateID is returned by Create when a contact with the same ID exists.
var ErrDuplicateID = errors.New("duplicate id")
