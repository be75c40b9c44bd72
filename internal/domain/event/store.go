package event

import (
	"context"
	"errors"
)

// Store is the query and mutation contract of the remote event backend
type Store interface {
	// Select runs a read query and returns backend-shaped rows
	Select(ctx context.Context, q Query) ([]Row, error)

	// Insert stores a new event and returns the stored row
	Insert(ctx context.Context, row Row) (Row, error)

	// Register records a user joining an event
	Register(ctx context.Context, reg Registration) error
}

// Common errors
var (
	ErrNotFound     = errors.New("event not found")
	ErrValidation   = errors.New("validation failed")
	ErrInvalidDate  = errors.New("invalid event date")
	ErrAlreadyExist = errors.New("already registered")
)
