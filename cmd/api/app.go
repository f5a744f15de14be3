package main

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/multierr"

	"github.com/Tomlord1122/todo-service/internal/blobstore"
	"github.com/Tomlord1122/todo-service/internal/config"
	"github.com/Tomlord1122/todo-service/internal/database"
	"github.com/Tomlord1122/todo-service/internal/database/migrations"
	"github.com/Tomlord1122/todo-service/internal/domain"
	"github.com/Tomlord1122/todo-service/internal/logger"
	"github.com/Tomlord1122/todo-service/internal/repository"
	"github.com/Tomlord1122/todo-service/internal/service"
)

// application holds the wired services and the connections to release on
// shutdown.
type application struct {
	db          database.Service
	redis       *redis.Client
	store       blobstore.Store
	todos       service.TodoService
	attachments service.AttachmentService
}

func (a *application) Close() error {
	var err error
	if a.redis != nil {
		err = multierr.Append(err, a.redis.Close())
	}
	if a.db != nil {
		err = multierr.Append(err, a.db.Close())
	}
	return err
}

type repositories struct {
	todos       repository.TodoRepository
	attachments repository.AttachmentRepository
	editing     repository.EditingStore
}

// buildApp opens the record store selected by cfg.Database.Driver, prepares
// its schema and wires the services on top of it.
func buildApp(ctx context.Context, cfg *config.Config, log *logger.Logger) (_ *application, err error) {
	app := &application{}
	defer func() {
		if err != nil {
			_ = app.Close()
		}
	}()

	repos, err := openRepositories(ctx, cfg, log, app)
	if err != nil {
		return nil, err
	}

	if cfg.Session.Store == "redis" {
		app.redis, err = database.NewRedis(ctx, cfg.Redis, log.WithComponent("redis"))
		if err != nil {
			return nil, err
		}
		repos.editing = repository.NewRedisEditingStore(app.redis)
	}

	app.store, err = blobstore.NewStoreFromConfig(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to create attachment store: %w", err)
	}
	if err := app.store.ValidateSetup(ctx); err != nil {
		return nil, fmt.Errorf("attachment store is not usable: %w", err)
	}

	names, err := service.NewNamePolicy(cfg.Attachments.NamePolicy, repos.attachments)
	if err != nil {
		return nil, err
	}

	app.attachments = service.NewAttachmentService(service.AttachmentServiceConfig{
		Attachments:   repos.attachments,
		Todos:         repos.todos,
		Store:         app.store,
		Names:         names,
		PublicBaseURL: cfg.Storage.PublicBaseURL,
		Logger:        log,
	})
	app.todos = service.NewTodoService(service.TodoServiceConfig{
		Todos:       repos.todos,
		Editing:     repos.editing,
		Attachments: app.attachments,
		Match:       domain.FoundMatch(cfg.Search.Match),
		Logger:      log,
	})

	return app, nil
}

func openRepositories(ctx context.Context, cfg *config.Config, log *logger.Logger, app *application) (*repositories, error) {
	dbLog := log.WithComponent("database")

	switch cfg.Database.Driver {
	case "mongo":
		mongoService, err := database.NewMongo(ctx, cfg.Database, dbLog)
		if err != nil {
			return nil, err
		}
		app.db = mongoService
		mdb := mongoService.Database()
		return &repositories{
			todos:       repository.NewMongoTodoRepository(mdb),
			attachments: repository.NewMongoAttachmentRepository(mdb),
			editing:     repository.NewMongoEditingStore(mdb),
		}, nil

	case "postgres", "sqlite":
		sqlService, err := database.New(cfg.Database, dbLog)
		if err != nil {
			return nil, err
		}
		app.db = sqlService

		if cfg.Database.Driver == "postgres" {
			dbLog.Info("applying database migrations")
			if err := migrations.Up(cfg.Database.URL()); err != nil {
				return nil, err
			}
		} else {
			if err := database.AutoMigrate(sqlService.GetDB()); err != nil {
				return nil, fmt.Errorf("failed to auto-migrate database: %w", err)
			}
		}

		gormDB := sqlService.GetDB()
		return &repositories{
			todos:       repository.NewGormTodoRepository(gormDB),
			attachments: repository.NewGormAttachmentRepository(gormDB),
			editing:     repository.NewGormEditingStore(gormDB),
		}, nil

	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Database.Driver)
	}
}
