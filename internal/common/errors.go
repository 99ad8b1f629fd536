// Package common defines shared constants and the error taxonomy used across
// client and server layers of courier. Callers should use errors.Is to
// match the sentinel values and errors.As to extract typed details.
package common

import (
	"errors"
	"fmt"
)

var (
	// Taxonomy roots. Typed errors below match these through Is.
	ErrTransport = errors.New("transport error")
	ErrNotFound  = errors.New("not found")
	ErrIntegrity = errors.New("integrity check failed")
	ErrStorage   = errors.New("storage error")

	// Transport causes.
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = errors.New("unauthorized")

	// Validation errors (programmer errors, not runtime failures).
	ErrInvalidArgument = errors.New("invalid argument")

	// Attachment lifecycle errors.
	ErrAttachmentBusy = errors.New("attachment is already downloading")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// TransportError is a network or RPC level failure. It is retryable by the
// caller.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("transport error: %v", e.Err)
	}
	return fmt.Sprintf("transport error: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Is reports whether target is ErrTransport.
func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// NotFoundError is the well-known "definitely absent" outcome, e.g. an
// identifier that is not registered or a local attachment that does not
// exist. It is not retryable.
type NotFoundError struct {
	Code     int
	Resource string
}

// NewNotFoundError returns a NotFoundError carrying NotFoundCode.
func NewNotFoundError(resource string) *NotFoundError {
	return &NotFoundError{Code: NotFoundCode, Resource: resource}
}

func (e *NotFoundError) Error() string {
	if e.Resource == "" {
		return fmt.Sprintf("not found (code %d)", e.Code)
	}
	return fmt.Sprintf("%s not found (code %d)", e.Resource, e.Code)
}

// Is reports whether target is ErrNotFound.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// StorageError is a local filesystem or database failure. It is fatal to the
// operation, not to the process.
type StorageError struct {
	Op  string
	ID  string
	Err error
}

func (e *StorageError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("storage error: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage error: %s %s: %v", e.Op, e.ID, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Is reports whether target is ErrStorage.
func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// IsRetryable reports whether err is worth retrying with the same input.
// Only transport failures are; not-found, integrity and storage failures are
// final for the attempt.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrIntegrity) {
		return false
	}
	return errors.Is(err, ErrTransport)
}
