package database_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Tomlord1122/todo-service/internal/config"
	"github.com/Tomlord1122/todo-service/internal/database"
	"github.com/Tomlord1122/todo-service/internal/database/migrations"
	"github.com/Tomlord1122/todo-service/internal/domain"
	"github.com/Tomlord1122/todo-service/internal/logger"
	"github.com/Tomlord1122/todo-service/internal/testutil"
)

func TestNewSQLite(t *testing.T) {
	cfg := config.DatabaseConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "todos.db"),
	}

	svc, err := database.New(cfg, logger.Nop())
	require.NoError(t, err)
	defer svc.Close()

	require.NoError(t, database.AutoMigrate(svc.GetDB()))

	todo := &domain.Todo{Title: "persisted"}
	require.NoError(t, svc.GetDB().Create(todo).Error)
	assert.NotEmpty(t, todo.ID)

	health := svc.Health()
	assert.Equal(t, "up", health["status"])
	assert.Equal(t, "sqlite", health["driver"])
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	_, err := database.New(config.DatabaseConfig{Driver: "mongo"}, logger.Nop())
	assert.Error(t, err)
}

func TestHealthAfterClose(t *testing.T) {
	cfg := config.DatabaseConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "todos.db"),
	}
	svc, err := database.New(cfg, logger.Nop())
	require.NoError(t, err)
	require.NoError(t, svc.Close())

	assert.Equal(t, "down", svc.Health()["status"])
}

func TestPostgresMigrations(t *testing.T) {
	cfg := testutil.StartPostgres(t)

	require.NoError(t, migrations.Up(cfg.URL()))
	require.NoError(t, migrations.Up(cfg.URL()), "re-running is a no-op")

	current, dirty, latest, err := migrations.Version(cfg.URL())
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, latest, current)

	svc, err := database.New(cfg, logger.Nop())
	require.NoError(t, err)
	defer svc.Close()
	assert.Equal(t, "up", svc.Health()["status"])

	todo := &domain.Todo{Title: "from postgres"}
	require.NoError(t, svc.GetDB().Create(todo).Error)

	require.NoError(t, migrations.Down(cfg.URL()))
	current, _, _, err = migrations.Version(cfg.URL())
	require.NoError(t, err)
	assert.Zero(t, current)
}

func TestMongoService(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping mongo integration test in short mode")
	}
	endpoint := testutil.StartContainer(t, "mongo:7", "27017/tcp", wait.ForListeningPort("27017/tcp"))

	svc, err := database.NewMongo(context.Background(), config.DatabaseConfig{
		MongoURI: "mongodb://" + endpoint,
		Name:     "todos_test",
	}, logger.Nop())
	require.NoError(t, err)
	defer svc.Close()

	assert.Equal(t, "up", svc.Health()["status"])
	assert.Equal(t, "todos_test", svc.Database().Name())
}
