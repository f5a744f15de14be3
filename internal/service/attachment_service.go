package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/multierr"

	"github.com/Tomlord1122/todo-service/internal/blobstore"
	"github.com/Tomlord1122/todo-service/internal/domain"
	"github.com/Tomlord1122/todo-service/internal/logger"
	"github.com/Tomlord1122/todo-service/internal/repository"
)

// UploadRequest carries one received file.
type UploadRequest struct {
	TodoID   string
	FileName string
	Size     int64
	Content  io.Reader
}

// AttachmentResponse is the representation of an Attachment returned to clients.
type AttachmentResponse struct {
	ID          string `json:"id"`
	TodoID      string `json:"todoId"`
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	StoragePath string `json:"storagePath"`
	CreatedAt   string `json:"createdAt"`
}

// CascadeResult reports a best-effort removal of a todo's attachments.
// Failures combines every per-attachment error and is nil when all went well.
type CascadeResult struct {
	Removed  int
	Failures error
}

// AttachmentService manages files attached to todos.
type AttachmentService interface {
	// Upload stores a file for an existing todo. The record is written
	// before the content; when the content write fails the returned
	// *domain.PartialFailureError carries the persisted record so the
	// caller can RollbackUpload it.
	Upload(ctx context.Context, req UploadRequest) (*AttachmentResponse, error)
	ListByTodo(ctx context.Context, todoID string) ([]AttachmentResponse, error)
	GetOne(ctx context.Context, todoID, attachmentID string) (*AttachmentResponse, error)
	// OpenContent returns the attachment and a reader over its content. The
	// caller closes the reader.
	OpenContent(ctx context.Context, todoID, attachmentID string) (*AttachmentResponse, io.ReadCloser, error)
	Delete(ctx context.Context, todoID, attachmentID string) error
	DeleteAllForTodo(ctx context.Context, todoID string) (*CascadeResult, error)
	RollbackUpload(ctx context.Context, attachment *domain.Attachment) error
}

type attachmentService struct {
	attachments   repository.AttachmentRepository
	todos         repository.TodoRepository
	store         blobstore.Store
	names         NamePolicy
	publicBaseURL string
	log           *logger.Logger
}

// AttachmentServiceConfig groups the collaborators of NewAttachmentService.
type AttachmentServiceConfig struct {
	Attachments   repository.AttachmentRepository
	Todos         repository.TodoRepository
	Store         blobstore.Store
	Names         NamePolicy
	PublicBaseURL string
	Logger        *logger.Logger
}

func NewAttachmentService(cfg AttachmentServiceConfig) AttachmentService {
	names := cfg.Names
	if names == nil {
		names = &countPolicy{repo: cfg.Attachments}
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &attachmentService{
		attachments:   cfg.Attachments,
		todos:         cfg.Todos,
		store:         cfg.Store,
		names:         names,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		log:           log.WithComponent("attachment_service"),
	}
}

func (s *attachmentService) Upload(ctx context.Context, req UploadRequest) (*AttachmentResponse, error) {
	name, verr := sanitizeFileName(req.FileName)
	if req.Size < 0 {
		verr.Add("file", "size must not be negative")
	}
	if req.Content == nil {
		verr.Add("file", "is required")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	if _, err := s.todos.FindByID(ctx, req.TodoID); err != nil {
		return nil, notFoundOrStorage(err, "todo", req.TodoID, "find todo")
	}

	resolved, err := s.names.Resolve(ctx, name)
	if err != nil {
		return nil, &domain.StorageError{Op: "resolve attachment name", Err: err}
	}

	attachment := &domain.Attachment{
		TodoID:      req.TodoID,
		Name:        resolved,
		Size:        req.Size,
		StoragePath: s.storagePath(req.TodoID, resolved),
	}
	if err := s.attachments.Create(ctx, attachment); err != nil {
		return nil, &domain.StorageError{Op: "create attachment", Err: err}
	}

	if err := s.store.Put(ctx, blobstore.Key(req.TodoID, resolved), req.Content, req.Size); err != nil {
		s.log.WithError(err).Warnw("attachment content write failed",
			"todo_id", req.TodoID, "attachment_id", attachment.ID, "name", resolved)
		return nil, &domain.PartialFailureError{Attachment: attachment, Op: "upload", Err: err}
	}

	s.log.Infow("attachment uploaded",
		"todo_id", req.TodoID, "attachment_id", attachment.ID, "name", resolved, "size", req.Size)
	return toAttachmentResponse(attachment), nil
}

func (s *attachmentService) ListByTodo(ctx context.Context, todoID string) ([]AttachmentResponse, error) {
	attachments, err := s.attachments.FindByTodo(ctx, todoID)
	if err != nil {
		return nil, &domain.StorageError{Op: "list attachments", Err: err}
	}

	responses := make([]AttachmentResponse, 0, len(attachments))
	for i := range attachments {
		responses = append(responses, *toAttachmentResponse(&attachments[i]))
	}
	return responses, nil
}

func (s *attachmentService) GetOne(ctx context.Context, todoID, attachmentID string) (*AttachmentResponse, error) {
	attachment, err := s.attachments.FindOne(ctx, todoID, attachmentID)
	if err != nil {
		return nil, notFoundOrStorage(err, "attachment", attachmentID, "find attachment")
	}
	return toAttachmentResponse(attachment), nil
}

func (s *attachmentService) OpenContent(ctx context.Context, todoID, attachmentID string) (*AttachmentResponse, io.ReadCloser, error) {
	attachment, err := s.attachments.FindOne(ctx, todoID, attachmentID)
	if err != nil {
		return nil, nil, notFoundOrStorage(err, "attachment", attachmentID, "find attachment")
	}

	rc, err := s.store.Open(ctx, blobstore.Key(attachment.TodoID, attachment.Name))
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, nil, &domain.NotFoundError{Resource: "attachment content", ID: attachmentID}
		}
		return nil, nil, &domain.StorageError{Op: "open attachment content", Err: err}
	}
	return toAttachmentResponse(attachment), rc, nil
}

func (s *attachmentService) Delete(ctx context.Context, todoID, attachmentID string) error {
	attachment, err := s.attachments.FindOne(ctx, todoID, attachmentID)
	if err != nil {
		return notFoundOrStorage(err, "attachment", attachmentID, "find attachment")
	}

	if err := s.attachments.Delete(ctx, todoID, attachmentID); err != nil {
		return notFoundOrStorage(err, "attachment", attachmentID, "delete attachment")
	}

	if err := s.store.Delete(ctx, blobstore.Key(attachment.TodoID, attachment.Name)); err != nil {
		s.log.WithError(err).Warnw("attachment content removal failed",
			"todo_id", todoID, "attachment_id", attachmentID)
		return &domain.PartialFailureError{Attachment: attachment, Op: "delete", Err: err}
	}
	return nil
}

// DeleteAllForTodo removes every attachment of the todo. Each record is
// removed even when its content could not be.
func (s *attachmentService) DeleteAllForTodo(ctx context.Context, todoID string) (*CascadeResult, error) {
	attachments, err := s.attachments.FindByTodo(ctx, todoID)
	if err != nil {
		return nil, &domain.StorageError{Op: "list attachments", Err: err}
	}

	result := &CascadeResult{}
	for _, a := range attachments {
		if err := s.store.Delete(ctx, blobstore.Key(a.TodoID, a.Name)); err != nil {
			result.Failures = multierr.Append(result.Failures,
				fmt.Errorf("removing content of %q: %w", a.Name, err))
		}
		if err := s.attachments.Delete(ctx, a.TodoID, a.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
			result.Failures = multierr.Append(result.Failures,
				fmt.Errorf("removing record of %q: %w", a.Name, err))
			continue
		}
		result.Removed++
	}

	if result.Failures != nil {
		s.log.WithError(result.Failures).Warnw("attachment cascade incomplete",
			"todo_id", todoID, "removed", result.Removed, "total", len(attachments))
	}
	return result, nil
}

func (s *attachmentService) RollbackUpload(ctx context.Context, attachment *domain.Attachment) error {
	if attachment == nil {
		return nil
	}

	var errs error
	if err := s.attachments.Delete(ctx, attachment.TodoID, attachment.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		errs = multierr.Append(errs, &domain.StorageError{Op: "rollback attachment record", Err: err})
	}
	if err := s.store.Delete(ctx, blobstore.Key(attachment.TodoID, attachment.Name)); err != nil {
		errs = multierr.Append(errs, &domain.StorageError{Op: "rollback attachment content", Err: err})
	}

	if errs != nil {
		s.log.WithError(errs).Errorw("upload rollback failed", "attachment_id", attachment.ID)
		return errs
	}
	s.log.Infow("upload rolled back", "todo_id", attachment.TodoID, "attachment_id", attachment.ID)
	return nil
}

func (s *attachmentService) storagePath(todoID, name string) string {
	return s.publicBaseURL + "/" + todoID + "/" + url.PathEscape(name)
}

// sanitizeFileName accepts only a plain base name. The returned
// ValidationError is empty when the name is usable.
func sanitizeFileName(raw string) (string, *domain.ValidationError) {
	verr := &domain.ValidationError{}
	name := strings.TrimSpace(raw)
	switch {
	case name == "":
		verr.Add("file", "file name is required")
	case name == "." || name == "..":
		verr.Add("file", "file name is invalid")
	case strings.ContainsAny(name, `/\`) || filepath.Base(name) != name:
		verr.Add("file", "file name must not contain path separators")
	case strings.ContainsRune(name, 0):
		verr.Add("file", "file name is invalid")
	}
	return name, verr
}

func toAttachmentResponse(a *domain.Attachment) *AttachmentResponse {
	return &AttachmentResponse{
		ID:          a.ID,
		TodoID:      a.TodoID,
		Name:        a.Name,
		Size:        a.Size,
		StoragePath: a.StoragePath,
		CreatedAt:   a.CreatedAt.Format(time.RFC3339),
	}
}

// notFoundOrStorage maps repository.ErrNotFound to a *domain.NotFoundError
// and wraps everything else as a *domain.StorageError.
func notFoundOrStorage(err error, resource, id, op string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return &domain.NotFoundError{Resource: resource, ID: id}
	}
	return &domain.StorageError{Op: op, Err: err}
}
