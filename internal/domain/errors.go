package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across the persistence and encoding layers.
var (
	// ErrNotFound indicates the referenced patient identifier does not exist.
	ErrNotFound = errors.New("not found")
	// ErrEmptyStore indicates a latest-record lookup against an empty table.
	// It wraps ErrNotFound so callers can match either.
	ErrEmptyStore = fmt.Errorf("no patients recorded: %w", ErrNotFound)
)

// ValidationError indicates malformed, missing or unknown input supplied by
// the caller. It is never retryable.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field %q: %s", e.Field, e.Message)
}

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// UnknownFieldError indicates a field name outside the schema mapper's fixed
// domain. It is a validation failure and unwraps to a ValidationError.
type UnknownFieldError struct {
	Field string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("unknown patient field %q", e.Field)
}

// Unwrap lets errors.As treat an unknown field as a validation error.
func (e *UnknownFieldError) Unwrap() error {
	return &ValidationError{Field: e.Field, Message: "unknown field"}
}

// EncodingError indicates a categorical value outside its fixed vocabulary
// for a feature slot with no documented default (sex, chest pain type).
type EncodingError struct {
	Field string
	Value string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("cannot encode field %q: value %q outside fixed vocabulary", e.Field, e.Value)
}

// StorageError indicates a transient or permanent persistence failure in the
// primary relational store. Transient instances are retryable by the caller.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError wraps a driver-level error with the failed operation name.
func NewStorageError(op string, err error) *StorageError {
	return &StorageError{Op: op, Err: err}
}

// SecondaryStoreError indicates a failure writing a prediction record to the
// secondary document store. Callers log it and continue; it never invalidates
// a prediction already produced.
type SecondaryStoreError struct {
	Op  string
	Err error
}

func (e *SecondaryStoreError) Error() string {
	return fmt.Sprintf("secondary store failure during %s: %v", e.Op, e.Err)
}

func (e *SecondaryStoreError) Unwrap() error {
	return e.Err
}

// NewSecondaryStoreError wraps a document store error with the failed
// operation name.
func NewSecondaryStoreError(op string, err error) *SecondaryStoreError {
	return &SecondaryStoreError{Op: op, Err: err}
}

// IsNotFound reports whether err denotes a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation reports whether err is caller-fault input (validation,
// unknown field, or encoding failure).
func IsValidation(err error) bool {
	var ve *ValidationError
	var ue *UnknownFieldError
	var ee *EncodingError
	return errors.As(err, &ve) || errors.As(err, &ue) || errors.As(err, &ee)
}
