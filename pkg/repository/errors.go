package repository

import (
	"errors"
	"fmt"

	"github.com/garnizeh/cddrecords/pkg/models"
)

// Lookup-by-key returns (nil, nil) when nothing matches. ErrNotFound is only
// returned by operations that need an existing row (update, delete).
var ErrNotFound = errors.New("entity not found")

// ErrUniquenessViolation is matched by every UniquenessError.
var ErrUniquenessViolation = errors.New("entity already exists")

// ErrStorage is matched by every StorageError.
var ErrStorage = errors.New("storage failure")

// ValidationError and ErrValidation are re-exported so callers can depend on
// this package alone.
type ValidationError = models.ValidationError

var ErrValidation = models.ErrValidation

// UniquenessError reports an insert or update that collided with a unique
// constraint (natural key or composite unique index).
type UniquenessError struct {
	Entity string
	Key    string
	Err    error
}

func (e *UniquenessError) Error() string {
	return fmt.Sprintf("%s %q already exists", e.Entity, e.Key)
}

func (e *UniquenessError) Unwrap() error { return e.Err }

func (e *UniquenessError) Is(target error) bool { return target == ErrUniquenessViolation }

// StorageKind classifies a StorageError.
type StorageKind string

const (
	KindTimeout      StorageKind = "timeout"
	KindConnectivity StorageKind = "connectivity"
	KindConstraint   StorageKind = "constraint"
	KindUnknown      StorageKind = "unknown"
)

// StorageError wraps any other failure from the underlying store with enough
// context to log and retry at a higher layer.
type StorageError struct {
	Op     string
	Entity string
	Key    string
	Kind   StorageKind
	Err    error
}

func (e *StorageError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s %s: %s: %v", e.Op, e.Entity, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s %s %q: %s: %v", e.Op, e.Entity, e.Key, e.Kind, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// IsTimeout reports whether err is a StorageError of kind timeout.
func IsTimeout(err error) bool {
	var se *StorageError
	return errors.As(err, &se) && se.Kind == KindTimeout
}
