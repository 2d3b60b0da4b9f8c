package chat

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyInput is returned for empty or whitespace-only input.
	ErrEmptyInput = errors.New("message cannot be empty")
	// ErrTurnInProgress is returned when a turn is started while another runs.
	ErrTurnInProgress = errors.New("a turn is already in progress")
	// ErrSessionEnded is returned once End has been called.
	ErrSessionEnded = errors.New("chat session has ended")
)

// ValidationError reports input rejected before anything is persisted.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// StorageError reports a failed repository operation during a turn.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
