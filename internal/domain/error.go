package domain

import (
	"errors"
	"fmt"
)

var (
	// Common domain errors
	ErrNotFound            = errors.New("entity not found")
	ErrAlreadyExists       = errors.New("entity already exists")
	ErrAlreadyFinalized    = errors.New("order already finalized")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrOperationFailed     = errors.New("operation failed")
	ErrInvalidExecContext  = errors.New("invalid execution context")
)

// Entity names carried by NotFoundError.
const (
	EntityPlan     = "plan"
	EntityOrder    = "order"
	EntityUser     = "user"
	EntityTemplate = "template"
)

// NotFoundError reports which kind of entity could not be located.
type NotFoundError struct {
	Entity string
	Key    string
}

func (e *NotFoundError) Error() string {
	if e.Key == "" {
		return e.Entity + " not found"
	}
	return fmt.Sprintf("%s %q not found", e.Entity, e.Key)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

func NewNotFound(entity, key string) error {
	return &NotFoundError{Entity: entity, Key: key}
}

// ValidationError is returned when an input field fails validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidArgument }

func NewValidationError(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// PersistenceError wraps a storage-layer failure.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	if e.Err == nil {
		return e.Op + ": " + ErrOperationFailed.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool { return target == ErrOperationFailed }

func NewPersistenceError(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}

// NotFoundEntity returns the entity name of a NotFoundError in err's chain, or "".
func NotFoundEntity(err error) string {
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return nf.Entity
	}
	return ""
}
