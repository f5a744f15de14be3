package testutil

import (
	"context"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/Tomlord1122/todo-service/internal/config"
	"github.com/Tomlord1122/todo-service/internal/database"
	"github.com/Tomlord1122/todo-service/internal/database/migrations"
	"github.com/Tomlord1122/todo-service/internal/logger"
)

// StartPostgres runs a postgres container and returns a config pointing at
// it. The schema is not migrated. Skips when Docker is unavailable.
func StartPostgres(t *testing.T) config.DatabaseConfig {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("todos"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	host, err := ctr.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get container host: %v", err)
	}
	port, err := ctr.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("failed to get container port: %v", err)
	}

	return config.DatabaseConfig{
		Driver:       "postgres",
		Host:         host,
		Port:         port.Int(),
		Name:         "todos",
		User:         "postgres",
		Password:     "postgres",
		Schema:       "public",
		SSLMode:      "disable",
		MaxOpenConns: 10,
		MaxIdleConns: 2,
	}
}

// NewPostgresDB starts postgres, applies the migrations and returns an open
// connection that is closed when the test completes.
func NewPostgresDB(t *testing.T) database.SQLService {
	t.Helper()
	cfg := StartPostgres(t)

	if err := migrations.Up(cfg.URL()); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	svc, err := database.New(cfg, logger.Nop())
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}
