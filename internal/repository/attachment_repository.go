package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/Tomlord1122/todo-service/internal/domain"
)

// AttachmentRepository defines the persistence operations for attachment
// records. Content lives in a blobstore.Store, not here.
type AttachmentRepository interface {
	Create(ctx context.Context, attachment *domain.Attachment) error
	// FindOne returns the attachment matching both the owning todo and id.
	FindOne(ctx context.Context, todoID, id string) (*domain.Attachment, error)
	FindByTodo(ctx context.Context, todoID string) ([]domain.Attachment, error)
	// Count returns the number of attachment records across all todos.
	Count(ctx context.Context) (int64, error)
	CountByName(ctx context.Context, name string) (int64, error)
	Delete(ctx context.Context, todoID, id string) error
}

type gormAttachmentRepository struct {
	db *gorm.DB
}

func NewGormAttachmentRepository(db *gorm.DB) AttachmentRepository {
	return &gormAttachmentRepository{db: db}
}

func (r *gormAttachmentRepository) Create(ctx context.Context, attachment *domain.Attachment) error {
	if err := r.db.WithContext(ctx).Create(attachment).Error; err != nil {
		return fmt.Errorf("inserting attachment: %w", err)
	}
	return nil
}

func (r *gormAttachmentRepository) FindOne(ctx context.Context, todoID, id string) (*domain.Attachment, error) {
	if !validUUID(todoID) || !validUUID(id) {
		return nil, ErrNotFound
	}

	var attachment domain.Attachment
	err := r.db.WithContext(ctx).Where("id = ? AND todo_id = ?", id, todoID).First(&attachment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("finding attachment %s: %w", id, err)
	}
	return &attachment, nil
}

func (r *gormAttachmentRepository) FindByTodo(ctx context.Context, todoID string) ([]domain.Attachment, error) {
	attachments := []domain.Attachment{}
	if !validUUID(todoID) {
		return attachments, nil
	}

	err := r.db.WithContext(ctx).
		Where("todo_id = ?", todoID).
		Order("created_at asc").Order("id asc").
		Find(&attachments).Error
	if err != nil {
		return nil, fmt.Errorf("listing attachments for todo %s: %w", todoID, err)
	}
	return attachments, nil
}

func (r *gormAttachmentRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&domain.Attachment{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("counting attachments: %w", err)
	}
	return n, nil
}

func (r *gormAttachmentRepository) CountByName(ctx context.Context, name string) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&domain.Attachment{}).Where("name = ?", name).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("counting attachments named %q: %w", name, err)
	}
	return n, nil
}

func (r *gormAttachmentRepository) Delete(ctx context.Context, todoID, id string) error {
	if !validUUID(todoID) || !validUUID(id) {
		return ErrNotFound
	}
	result := r.db.WithContext(ctx).Where("id = ? AND todo_id = ?", id, todoID).Delete(&domain.Attachment{})
	return rowsOrNotFound(result, "deleting attachment "+id)
}
