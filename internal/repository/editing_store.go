package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Tomlord1122/todo-service/internal/domain"
)

const editingSlot = "editing"

// EditingStore holds the single "currently editing" todo id. Set replaces the
// previous value in one write, so at most one todo is ever in edit mode.
type EditingStore interface {
	// Get returns the editing todo id, or "" when none is set.
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, todoID string) error
	// ClearIf removes the value only when it still points at todoID.
	ClearIf(ctx context.Context, todoID string) error
}

type gormEditingStore struct {
	db *gorm.DB
}

func NewGormEditingStore(db *gorm.DB) EditingStore {
	return &gormEditingStore{db: db}
}

func (s *gormEditingStore) Get(ctx context.Context) (string, error) {
	var state domain.EditingState
	err := s.db.WithContext(ctx).Where("slot = ?", editingSlot).First(&state).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("reading editing state: %w", err)
	}
	return state.TodoID, nil
}

func (s *gormEditingStore) Set(ctx context.Context, todoID string) error {
	state := domain.EditingState{Slot: editingSlot, TodoID: todoID, UpdatedAt: time.Now()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slot"}},
		DoUpdates: clause.AssignmentColumns([]string{"todo_id", "updated_at"}),
	}).Create(&state).Error
	if err != nil {
		return fmt.Errorf("writing editing state: %w", err)
	}
	return nil
}

func (s *gormEditingStore) ClearIf(ctx context.Context, todoID string) error {
	err := s.db.WithContext(ctx).
		Where("slot = ? AND todo_id = ?", editingSlot, todoID).
		Delete(&domain.EditingState{}).Error
	if err != nil {
		return fmt.Errorf("clearing editing state: %w", err)
	}
	return nil
}
