package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError(t *testing.T) {
	verr := &ValidationError{}
	assert.NoError(t, verr.OrNil())

	var nilErr *ValidationError
	assert.NoError(t, nilErr.OrNil())

	verr.Add("title", "is required").Add("dueAt", "is invalid")
	err := verr.OrNil()
	assert.Error(t, err)
	assert.Equal(t, "validation failed: title: is required; dueAt: is invalid", err.Error())

	var target *ValidationError
	assert.True(t, errors.As(fmt.Errorf("wrapped: %w", err), &target))
	assert.Len(t, target.Fields, 2)
}

func TestNotFoundError(t *testing.T) {
	err := fmt.Errorf("lookup: %w", &NotFoundError{Resource: "todo", ID: "abc"})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "todo with ID abc not found")
}

func TestStorageAndPartialFailureUnwrap(t *testing.T) {
	cause := errors.New("disk full")

	serr := &StorageError{Op: "create todo", Err: cause}
	assert.ErrorIs(t, serr, cause)
	assert.Equal(t, "storage: create todo: disk full", serr.Error())

	perr := &PartialFailureError{Attachment: &Attachment{Name: "a.txt"}, Op: "upload", Err: cause}
	assert.ErrorIs(t, perr, cause)
	assert.Contains(t, perr.Error(), `"a.txt"`)
	assert.NotErrorIs(t, perr, ErrNotFound)
}

func TestTodoPatchEmpty(t *testing.T) {
	assert.True(t, TodoPatch{}.Empty())

	title := "x"
	assert.False(t, TodoPatch{Title: &title}.Empty())
	assert.False(t, TodoPatch{ClearDueAt: true}.Empty())
}
