package core

import (
	"errors"
	"fmt"
)

// Error codes surfaced on the wire protocol.
const (
	ErrCodeEmptyMessage  = "empty_message"
	ErrCodeClassNotFound = "class_not_found"
	ErrCodeNotAuthorized = "not_authorized"
	ErrCodeStorage       = "storage_unavailable"
	ErrCodeBadRequest    = "bad_request"
)

var (
	// ErrEmptyMessage rejects whitespace-only message text.
	ErrEmptyMessage = errors.New("message text is empty")
	// ErrNotAuthorized rejects senders outside the class roster.
	ErrNotAuthorized = errors.New("not a class member")
)

// StorageError marks a durability-layer failure. The send is retryable by
// the client; nothing was broadcast.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
