package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/multierr"

	"github.com/Tomlord1122/todo-service/internal/domain"
	"github.com/Tomlord1122/todo-service/internal/logger"
	"github.com/Tomlord1122/todo-service/internal/repository"
)

// CreateTodoRequest holds the data needed to create a new todo.
type CreateTodoRequest struct {
	Title       string  `json:"title" validate:"required,notblank,max=500"`
	Description string  `json:"description"`
	DueAt       *string `json:"dueAt"`
}

// UpdateTodoRequest holds the data for updating an existing todo.
// Nil fields are left unchanged. An empty dueAt clears the due date.
type UpdateTodoRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	DueAt       *string `json:"dueAt"`
}

// SearchRequest is the body of a found-todo search.
type SearchRequest struct {
	Title string `json:"title"`
}

// TodoResponse is the representation of a Todo returned to clients.
type TodoResponse struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	DueAt       *string `json:"dueAt"`
	Completed   bool    `json:"completed"`
	Edit        bool    `json:"edit"`
	FoundTodo   bool    `json:"foundTodo"`
	CreatedAt   string  `json:"createdAt"`
	UpdatedAt   string  `json:"updatedAt"`
}

// DeleteTodoResult reports what a todo deletion removed. Warnings lists
// attachment files that could not be cleaned up.
type DeleteTodoResult struct {
	ID                 string   `json:"id"`
	AttachmentsRemoved int      `json:"attachmentsRemoved"`
	Warnings           []string `json:"warnings"`
}

// TodoService defines the operations for managing todos.
type TodoService interface {
	CreateTodo(ctx context.Context, req CreateTodoRequest) (*TodoResponse, error)
	GetTodoByID(ctx context.Context, id string) (*TodoResponse, error)
	// GetAllTodos returns every todo in insertion order.
	GetAllTodos(ctx context.Context) ([]TodoResponse, error)
	UpdateTodo(ctx context.Context, id string, req UpdateTodoRequest) (*TodoResponse, error)
	ToggleCompleted(ctx context.Context, id string) (*TodoResponse, error)
	// SetEditing makes id the only todo in edit mode.
	SetEditing(ctx context.Context, id string) (*TodoResponse, error)
	// MarkFound flags the todos whose title matches query and clears the
	// flag on the rest, then returns the full list.
	MarkFound(ctx context.Context, query string) ([]TodoResponse, error)
	// DeleteTodo removes the todo and, best effort, its attachments.
	DeleteTodo(ctx context.Context, id string) (*DeleteTodoResult, error)
}

type todoService struct {
	repo        repository.TodoRepository
	editing     repository.EditingStore
	attachments AttachmentService
	match       domain.FoundMatch
	validate    *validator.Validate
	log         *logger.Logger
}

// TodoServiceConfig groups the collaborators of NewTodoService.
type TodoServiceConfig struct {
	Todos       repository.TodoRepository
	Editing     repository.EditingStore
	Attachments AttachmentService
	// Match selects the MarkFound comparison; empty means exact.
	Match  domain.FoundMatch
	Logger *logger.Logger
}

func NewTodoService(cfg TodoServiceConfig) TodoService {
	match := cfg.Match
	if match == "" {
		match = domain.FoundMatchExact
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &todoService{
		repo:        cfg.Todos,
		editing:     cfg.Editing,
		attachments: cfg.Attachments,
		match:       match,
		validate:    newValidator(),
		log:         log.WithComponent("todo_service"),
	}
}

func (s *todoService) CreateTodo(ctx context.Context, req CreateTodoRequest) (*TodoResponse, error) {
	verr := validateStruct(s.validate, req)

	var dueAt *time.Time
	if req.DueAt != nil && strings.TrimSpace(*req.DueAt) != "" {
		t, ok := parseDueAt(*req.DueAt)
		if !ok {
			verr.Add("dueAt", "must be a date (YYYY-MM-DD) or RFC 3339 timestamp")
		}
		dueAt = &t
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	todo := &domain.Todo{
		Title:       req.Title,
		Description: req.Description,
		DueAt:       dueAt,
	}
	if err := s.repo.Create(ctx, todo); err != nil {
		s.log.WithError(err).Errorw("failed to create todo", "title", req.Title)
		return nil, &domain.StorageError{Op: "create todo", Err: err}
	}

	s.log.Infow("todo created", "todo_id", todo.ID)
	return toTodoResponse(todo), nil
}

func (s *todoService) GetTodoByID(ctx context.Context, id string) (*TodoResponse, error) {
	todo, err := s.findTodo(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.project(ctx, todo)
}

func (s *todoService) GetAllTodos(ctx context.Context) ([]TodoResponse, error) {
	todos, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, &domain.StorageError{Op: "list todos", Err: err}
	}

	editingID, err := s.editing.Get(ctx)
	if err != nil {
		return nil, &domain.StorageError{Op: "read editing state", Err: err}
	}

	responses := make([]TodoResponse, 0, len(todos))
	for i := range todos {
		todos[i].Edit = todos[i].ID == editingID
		responses = append(responses, *toTodoResponse(&todos[i]))
	}
	return responses, nil
}

func (s *todoService) UpdateTodo(ctx context.Context, id string, req UpdateTodoRequest) (*TodoResponse, error) {
	verr := &domain.ValidationError{}
	patch := domain.TodoPatch{Description: req.Description}

	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" {
			verr.Add("title", "is required")
		} else if err := s.validate.Var(*req.Title, "max=500"); err != nil {
			verr.Add("title", "must be at most 500 characters")
		}
		patch.Title = req.Title
	}
	if req.DueAt != nil {
		if strings.TrimSpace(*req.DueAt) == "" {
			patch.ClearDueAt = true
		} else if t, ok := parseDueAt(*req.DueAt); ok {
			patch.DueAt = &t
		} else {
			verr.Add("dueAt", "must be a date (YYYY-MM-DD) or RFC 3339 timestamp")
		}
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateByID(ctx, id, patch); err != nil {
		return nil, notFoundOrStorage(err, "todo", id, "update todo")
	}
	return s.GetTodoByID(ctx, id)
}

func (s *todoService) ToggleCompleted(ctx context.Context, id string) (*TodoResponse, error) {
	if err := s.repo.ToggleCompleted(ctx, id); err != nil {
		return nil, notFoundOrStorage(err, "todo", id, "toggle todo")
	}
	return s.GetTodoByID(ctx, id)
}

func (s *todoService) SetEditing(ctx context.Context, id string) (*TodoResponse, error) {
	todo, err := s.findTodo(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.editing.Set(ctx, todo.ID); err != nil {
		return nil, &domain.StorageError{Op: "set editing state", Err: err}
	}

	todo.Edit = true
	return toTodoResponse(todo), nil
}

func (s *todoService) MarkFound(ctx context.Context, query string) ([]TodoResponse, error) {
	n, err := s.repo.MarkFound(ctx, query, s.match)
	if err != nil {
		return nil, &domain.StorageError{Op: "mark found todos", Err: err}
	}
	s.log.Debugw("found todos marked", "query", query, "match", s.match, "matched", n)
	return s.GetAllTodos(ctx)
}

func (s *todoService) DeleteTodo(ctx context.Context, id string) (*DeleteTodoResult, error) {
	if _, err := s.findTodo(ctx, id); err != nil {
		return nil, err
	}

	result := &DeleteTodoResult{ID: id, Warnings: []string{}}

	cascade, err := s.attachments.DeleteAllForTodo(ctx, id)
	if err != nil {
		return nil, err
	}
	result.AttachmentsRemoved = cascade.Removed
	for _, ferr := range multierr.Errors(cascade.Failures) {
		result.Warnings = append(result.Warnings, ferr.Error())
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return nil, notFoundOrStorage(err, "todo", id, "delete todo")
	}

	if err := s.editing.ClearIf(ctx, id); err != nil {
		s.log.WithError(err).Warnw("failed to clear editing state", "todo_id", id)
		result.Warnings = append(result.Warnings, "clearing editing state: "+err.Error())
	}

	s.log.Infow("todo deleted", "todo_id", id,
		"attachments_removed", result.AttachmentsRemoved, "warnings", len(result.Warnings))
	return result, nil
}

func (s *todoService) findTodo(ctx context.Context, id string) (*domain.Todo, error) {
	todo, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.log.WithError(err).Errorw("failed to fetch todo", "todo_id", id)
		}
		return nil, notFoundOrStorage(err, "todo", id, "find todo")
	}
	return todo, nil
}

// project fills in the Edit flag from the editing state.
func (s *todoService) project(ctx context.Context, todo *domain.Todo) (*TodoResponse, error) {
	editingID, err := s.editing.Get(ctx)
	if err != nil {
		return nil, &domain.StorageError{Op: "read editing state", Err: err}
	}
	todo.Edit = todo.ID == editingID
	return toTodoResponse(todo), nil
}

func toTodoResponse(todo *domain.Todo) *TodoResponse {
	resp := &TodoResponse{
		ID:          todo.ID,
		Title:       todo.Title,
		Description: todo.Description,
		Completed:   todo.Completed,
		Edit:        todo.Edit,
		FoundTodo:   todo.FoundTodo,
		CreatedAt:   todo.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   todo.UpdatedAt.Format(time.RFC3339),
	}
	if todo.DueAt != nil {
		due := todo.DueAt.Format(time.RFC3339)
		resp.DueAt = &due
	}
	return resp
}
