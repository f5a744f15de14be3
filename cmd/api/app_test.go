package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tomlord1122/todo-service/internal/config"
	"github.com/Tomlord1122/todo-service/internal/logger"
	"github.com/Tomlord1122/todo-service/internal/service"
)

func sqliteConfig(t *testing.T) *config.Config {
	dir := t.TempDir()
	return &config.Config{
		Database: config.DatabaseConfig{
			Driver:     "sqlite",
			SQLitePath: filepath.Join(dir, "todos.db"),
		},
		Storage: config.StorageConfig{
			Type:          "filesystem",
			FSRoot:        filepath.Join(dir, "uploads"),
			PublicBaseURL: "/uploads",
		},
		Attachments: config.AttachmentsConfig{NamePolicy: "unique"},
		Search:      config.SearchConfig{Match: "contains"},
		Session:     config.SessionConfig{Store: "database"},
	}
}

func TestBuildAppWithSQLite(t *testing.T) {
	ctx := context.Background()
	app, err := buildApp(ctx, sqliteConfig(t), logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	todo, err := app.todos.CreateTodo(ctx, service.CreateTodoRequest{Title: "Wire it up"})
	require.NoError(t, err)

	todos, err := app.todos.MarkFound(ctx, "Wire")
	require.NoError(t, err)
	require.Len(t, todos, 1)
	assert.True(t, todos[0].FoundTodo, "search.match=contains is applied")

	assert.Equal(t, "up", app.db.Health()["status"])

	list, err := app.attachments.ListByTodo(ctx, todo.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestBuildAppRejectsUnknownDriver(t *testing.T) {
	cfg := sqliteConfig(t)
	cfg.Database.Driver = "oracle"

	_, err := buildApp(context.Background(), cfg, logger.Nop())
	assert.Error(t, err)
}

func TestBuildAppRejectsUnknownNamePolicy(t *testing.T) {
	cfg := sqliteConfig(t)
	cfg.Attachments.NamePolicy = "random"

	_, err := buildApp(context.Background(), cfg, logger.Nop())
	assert.Error(t, err)
}
