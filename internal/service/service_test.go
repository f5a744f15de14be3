package service

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Tomlord1122/todo-service/internal/domain"
	"github.com/Tomlord1122/todo-service/internal/repository"
	"github.com/Tomlord1122/todo-service/internal/testutil"
)

type fixture struct {
	todos       TodoService
	attachments AttachmentService
	attRepo     repository.AttachmentRepository
	editing     repository.EditingStore
	store       *testutil.FaultyStore
}

type fixtureOption func(*fixtureConfig)

type fixtureConfig struct {
	namePolicy string
	match      domain.FoundMatch
}

func withNamePolicy(kind string) fixtureOption {
	return func(c *fixtureConfig) { c.namePolicy = kind }
}

func withMatch(m domain.FoundMatch) fixtureOption {
	return func(c *fixtureConfig) { c.match = m }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	cfg := fixtureConfig{namePolicy: NamePolicyCount, match: domain.FoundMatchExact}
	for _, opt := range opts {
		opt(&cfg)
	}

	db := testutil.NewTestDB(t)
	todoRepo := repository.NewGormTodoRepository(db)
	attRepo := repository.NewGormAttachmentRepository(db)
	editing := repository.NewGormEditingStore(db)
	store := testutil.NewFaultyStore()

	names, err := NewNamePolicy(cfg.namePolicy, attRepo)
	require.NoError(t, err)

	attachments := NewAttachmentService(AttachmentServiceConfig{
		Attachments:   attRepo,
		Todos:         todoRepo,
		Store:         store,
		Names:         names,
		PublicBaseURL: "/uploads/",
	})
	todos := NewTodoService(TodoServiceConfig{
		Todos:       todoRepo,
		Editing:     editing,
		Attachments: attachments,
		Match:       cfg.match,
	})

	return &fixture{
		todos:       todos,
		attachments: attachments,
		attRepo:     attRepo,
		editing:     editing,
		store:       store,
	}
}

func (f *fixture) createTodo(t *testing.T, title string) *TodoResponse {
	t.Helper()
	todo, err := f.todos.CreateTodo(context.Background(), CreateTodoRequest{Title: title})
	require.NoError(t, err)
	return todo
}

func (f *fixture) upload(t *testing.T, todoID, name, content string) *AttachmentResponse {
	t.Helper()
	att, err := f.attachments.Upload(context.Background(), uploadOf(todoID, name, content))
	require.NoError(t, err)
	return att
}

func uploadOf(todoID, name, content string) UploadRequest {
	return UploadRequest{
		TodoID:   todoID,
		FileName: name,
		Size:     int64(len(content)),
		Content:  strings.NewReader(content),
	}
}

func readAll(t *testing.T, rc io.ReadCloser) string {
	t.Helper()
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(data)
}
