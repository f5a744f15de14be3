package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is matched by every NotFoundError through errors.Is.
var ErrNotFound = errors.New("not found")

// FieldError is a single (field, reason) pair produced by validation.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError reports bad or missing input fields.
type ValidationError struct {
	Fields []FieldError
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Reason: reason}}}
}

// Add appends a field failure and returns the receiver.
func (e *ValidationError) Add(field, reason string) *ValidationError {
	e.Fields = append(e.Fields, FieldError{Field: field, Reason: reason})
	return e
}

// OrNil returns nil when no field failed, so callers can build the error
// incrementally and return it unconditionally.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Reason))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// NotFoundError reports that a referenced id does not exist.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %s not found", e.Resource, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// StorageError reports that the persistence layer itself failed.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// PartialFailureError reports that an attachment record and its stored
// content disagree: one side was written or removed and the other was not.
// Attachment is the record as it exists (or existed) in storage.
type PartialFailureError struct {
	Attachment *Attachment
	Op         string
	Err        error
}

func (e *PartialFailureError) Error() string {
	name := ""
	if e.Attachment != nil {
		name = e.Attachment.Name
	}
	return fmt.Sprintf("partial failure during %s of attachment %q: %v", e.Op, name, e.Err)
}

func (e *PartialFailureError) Unwrap() error {
	return e.Err
}
