package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Tomlord1122/todo-service/internal/domain"
)

// ErrNotFound is returned by every repository when no record matches.
var ErrNotFound = errors.New("record not found")

// TodoRepository defines the persistence operations for todos.
type TodoRepository interface {
	Create(ctx context.Context, todo *domain.Todo) error
	FindByID(ctx context.Context, id string) (*domain.Todo, error)
	// GetAll returns every todo in insertion order.
	GetAll(ctx context.Context) ([]domain.Todo, error)
	UpdateByID(ctx context.Context, id string, patch domain.TodoPatch) error
	// ToggleCompleted flips the completed flag in a single write.
	ToggleCompleted(ctx context.Context, id string) error
	// MarkFound sets found_todo on every todo to whether its title matches
	// query, and returns how many matched.
	MarkFound(ctx context.Context, query string, match domain.FoundMatch) (int64, error)
	Delete(ctx context.Context, id string) error
}

// gormTodoRepository implements TodoRepository using GORM.
type gormTodoRepository struct {
	db *gorm.DB
}

func NewGormTodoRepository(db *gorm.DB) TodoRepository {
	return &gormTodoRepository{db: db}
}

func (r *gormTodoRepository) Create(ctx context.Context, todo *domain.Todo) error {
	if err := r.db.WithContext(ctx).Create(todo).Error; err != nil {
		return fmt.Errorf("inserting todo: %w", err)
	}
	return nil
}

func (r *gormTodoRepository) FindByID(ctx context.Context, id string) (*domain.Todo, error) {
	if !validUUID(id) {
		return nil, ErrNotFound
	}

	var todo domain.Todo
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&todo).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("finding todo %s: %w", id, err)
	}
	return &todo, nil
}

func (r *gormTodoRepository) GetAll(ctx context.Context) ([]domain.Todo, error) {
	var todos []domain.Todo
	err := r.db.WithContext(ctx).Order("created_at asc").Order("id asc").Find(&todos).Error
	if err != nil {
		return nil, fmt.Errorf("listing todos: %w", err)
	}
	return todos, nil
}

func (r *gormTodoRepository) UpdateByID(ctx context.Context, id string, patch domain.TodoPatch) error {
	if !validUUID(id) {
		return ErrNotFound
	}

	updates := map[string]interface{}{}
	if patch.Title != nil {
		updates["title"] = *patch.Title
	}
	if patch.Description != nil {
		updates["description"] = *patch.Description
	}
	if patch.ClearDueAt {
		updates["due_at"] = nil
	} else if patch.DueAt != nil {
		updates["due_at"] = *patch.DueAt
	}

	if len(updates) == 0 {
		_, err := r.FindByID(ctx, id)
		return err
	}

	result := r.db.WithContext(ctx).Model(&domain.Todo{}).Where("id = ?", id).Updates(updates)
	return rowsOrNotFound(result, "updating todo "+id)
}

func (r *gormTodoRepository) ToggleCompleted(ctx context.Context, id string) error {
	if !validUUID(id) {
		return ErrNotFound
	}
	result := r.db.WithContext(ctx).Model(&domain.Todo{}).
		Where("id = ?", id).
		Update("completed", gorm.Expr("NOT completed"))
	return rowsOrNotFound(result, "toggling todo "+id)
}

func (r *gormTodoRepository) MarkFound(ctx context.Context, query string, match domain.FoundMatch) (int64, error) {
	var expr interface{}
	switch {
	case query == "":
		expr = false
	case match == domain.FoundMatchContains:
		if r.db.Dialector.Name() == "postgres" {
			expr = gorm.Expr("strpos(title, ?) > 0", query)
		} else {
			expr = gorm.Expr("instr(title, ?) > 0", query)
		}
	default:
		expr = gorm.Expr("title = ?", query)
	}

	// UpdateColumn leaves updated_at alone: found_todo is presentation state.
	err := r.db.WithContext(ctx).Model(&domain.Todo{}).
		Where("1 = 1").
		UpdateColumn("found_todo", expr).Error
	if err != nil {
		return 0, fmt.Errorf("marking found todos: %w", err)
	}

	var n int64
	if err := r.db.WithContext(ctx).Model(&domain.Todo{}).Where("found_todo = ?", true).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("counting found todos: %w", err)
	}
	return n, nil
}

func (r *gormTodoRepository) Delete(ctx context.Context, id string) error {
	if !validUUID(id) {
		return ErrNotFound
	}
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Todo{})
	return rowsOrNotFound(result, "deleting todo "+id)
}

func validUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func rowsOrNotFound(result *gorm.DB, op string) error {
	if result.Error != nil {
		return fmt.Errorf("%s: %w", op, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
