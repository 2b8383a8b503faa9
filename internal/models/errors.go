// -----------------------------------------------------------------------
// Error taxonomy for the scheduling store
// -----------------------------------------------------------------------

package models

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an operation references a job, trigger
	// or type tag that must exist but does not.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned on insert when replace was not
	// requested and the (group, name) key is already taken.
	ErrAlreadyExists = errors.New("already exists")

	// ErrUnsupported is returned by operations the store deliberately does
	// not implement.
	ErrUnsupported = errors.New("unsupported operation")

	// ErrJobMismatch is returned by ReplaceTrigger when the new trigger
	// references a different job than the old one.
	ErrJobMismatch = errors.New("new trigger is not related to the same job as the old trigger")
)

// ConfigError reports bad or conflicting store configuration. It fails
// initialization and is never retried.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "store configuration: " + e.Reason
}

// NewConfigError creates a ConfigError with a formatted reason.
func NewConfigError(format string, args ...interface{}) *ConfigError {
	return &ConfigError{Reason: fmt.Sprintf(format, args...)}
}

// SerializationError reports a data-map value that could not be
// serialized. Key identifies the offending entry.
type SerializationError struct {
	Key string
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("value of property %q is not serializable: %v", e.Key, e.Err)
}

func (e *SerializationError) Unwrap() error {
	return e.Err
}

// StorageError wraps an underlying database failure with the operation
// that hit it.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// WrapStorage wraps err as a StorageError unless it already carries a
// taxonomy meaning that must surface unchanged.
func WrapStorage(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrAlreadyExists) ||
		errors.Is(err, ErrUnsupported) || errors.Is(err, ErrJobMismatch) {
		return err
	}
	var se *SerializationError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
