package domain

import (
	"time"

	"gorm.io/gorm"
)

// Attachment is a stored file owned by exactly one Todo. The link is advisory
// at the storage level and checked by the attachment service on upload.
type Attachment struct {
	ID          string    `gorm:"type:uuid;primaryKey"`
	TodoID      string    `gorm:"type:uuid;not null;index"`
	Name        string    `gorm:"not null;index"`
	Size        int64     `gorm:"not null"`
	StoragePath string    `gorm:"not null"`
	CreatedAt   time.Time `gorm:"index"`
}

func (a *Attachment) BeforeCreate(tx *gorm.DB) error {
	if a.ID != "" {
		return nil
	}
	id, err := newID()
	if err != nil {
		return err
	}
	a.ID = id
	return nil
}

// EditingState is a named slot of presentation state. The "editing" slot
// holds the one todo currently open for editing.
type EditingState struct {
	Slot      string `gorm:"primaryKey"`
	TodoID    string `gorm:"not null"`
	UpdatedAt time.Time
}

func (EditingState) TableName() string {
	return "ui_state"
}
