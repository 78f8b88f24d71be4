package domain

import (
	"errors"
	"fmt"
)

// ValidationError reports malformed or out-of-range input. It is produced
// before any write reaches storage.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ErrNotFound is returned when an operation references a missing record.
type ErrNotFound struct {
	Entity EntityType
	ID     int64
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// InsufficientStockError is returned when a sale requests more units than are on hand.
type InsufficientStockError struct {
	ItemID    int64
	Requested int
	Available int
}

func (e InsufficientStockError) Error() string {
	return fmt.Sprintf("cannot sell %d units of item %d: only %d in stock", e.Requested, e.ItemID, e.Available)
}

// ErrAuthFailed is returned for any credential mismatch. It never reveals
// whether the username exists.
var ErrAuthFailed = errors.New("invalid username or password")

// StorageError wraps an underlying connection or query failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// WrapStorage annotates err as a StorageError for op. Typed domain errors and
// nil pass through untouched.
func WrapStorage(op string, err error) error {
	if err == nil || IsDomainError(err) {
		return err
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// ForbiddenError is returned by the session façade when the role lacks permission.
type ForbiddenError struct {
	Role      Role
	Operation Operation
}

func (e ForbiddenError) Error() string {
	return fmt.Sprintf("role %s may not %s", e.Role, e.Operation)
}

// IsDomainError reports whether err is one of the typed, caller-facing kinds
// (validation, not found, insufficient stock, auth, forbidden).
func IsDomainError(err error) bool {
	var (
		ve ValidationError
		nf ErrNotFound
		is InsufficientStockError
		fe ForbiddenError
	)
	switch {
	case errors.As(err, &ve), errors.As(err, &nf), errors.As(err, &is), errors.As(err, &fe):
		return true
	case errors.Is(err, ErrAuthFailed):
		return true
	}
	return false
}
