package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrDraftOnly is returned when attempting to delete a reservation
	// that has left the draft state.
	ErrDraftOnly = errors.New("only draft reservations can be deleted")
)
