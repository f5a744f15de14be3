package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Todo struct {
	ID          string     `gorm:"type:uuid;primaryKey"`
	Title       string     `gorm:"not null"`
	Description string     `gorm:"not null;default:''"`
	DueAt       *time.Time `gorm:"index"`
	Completed   bool       `gorm:"not null;default:false"`
	FoundTodo   bool       `gorm:"not null;default:false"`
	CreatedAt   time.Time  `gorm:"index"`
	UpdatedAt   time.Time

	// Edit is projected from the editing state on read, never stored on the row.
	Edit bool `gorm:"-"`
}

// BeforeCreate assigns the opaque id when the caller did not.
func (t *Todo) BeforeCreate(tx *gorm.DB) error {
	if t.ID != "" {
		return nil
	}
	id, err := newID()
	if err != nil {
		return err
	}
	t.ID = id
	return nil
}

// newID returns a time-ordered UUIDv7 so ids sort in insertion order.
func newID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generating id: %w", err)
	}
	return id.String(), nil
}

// TodoPatch carries a partial update. Nil fields are left untouched.
type TodoPatch struct {
	Title       *string
	Description *string
	DueAt       *time.Time
	ClearDueAt  bool
}

// Empty reports whether the patch would change nothing.
func (p TodoPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.DueAt == nil && !p.ClearDueAt
}

// FoundMatch selects how a title search is compared against stored titles.
type FoundMatch string

const (
	FoundMatchExact    FoundMatch = "exact"
	FoundMatchContains FoundMatch = "contains"
)
