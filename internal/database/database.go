package database

import (
	"context"
	"fmt"
	"strconv"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Tomlord1122/todo-service/internal/config"
	"github.com/Tomlord1122/todo-service/internal/domain"
	"github.com/Tomlord1122/todo-service/internal/logger"
)

// Service is what the server needs from any record store connection.
type Service interface {
	Health() map[string]string
	Close() error
}

// SQLService is a gorm-backed connection (postgres or sqlite).
type SQLService interface {
	Service
	GetDB() *gorm.DB
}

type service struct {
	db      *gorm.DB
	dialect string
	name    string
	log     *logger.Logger
}

// New opens a gorm connection for the postgres or sqlite driver.
func New(cfg config.DatabaseConfig, log *logger.Logger) (SQLService, error) {
	var dialector gorm.Dialector
	var name string
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.New(postgres.Config{DriverName: "pgx", DSN: cfg.DSN()})
		name = cfg.Name
	case "sqlite":
		dialector = sqlite.Open(cfg.SQLitePath)
		name = cfg.SQLitePath
	default:
		return nil, fmt.Errorf("unsupported sql driver: %s", cfg.Driver)
	}

	level := gormlogger.Warn
	if cfg.LogQueries {
		level = gormlogger.Info
	}
	gormLog := gormlogger.New(
		log.StdLog(zapcore.InfoLevel),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if cfg.Driver == "sqlite" {
		// sqlite serializes writers; one connection avoids SQLITE_BUSY under
		// concurrent requests.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	return &service{db: db, dialect: cfg.Driver, name: name, log: log}, nil
}

// NewFromDB wraps an existing gorm connection.
func NewFromDB(db *gorm.DB, log *logger.Logger) SQLService {
	return &service{db: db, dialect: db.Dialector.Name(), log: log}
}

// AutoMigrate creates the tables from the domain models. Postgres deployments
// use the SQL migrations instead; this is for sqlite and tests.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&domain.Todo{}, &domain.Attachment{}, &domain.EditingState{})
}

func (s *service) GetDB() *gorm.DB {
	return s.db
}

func (s *service) Health() map[string]string {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	stats := make(map[string]string)
	sqlDB, err := s.db.DB()
	if err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("failed to get underlying DB for health check: %v", err)
		return stats
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db down: %v", err)
		s.log.Warnw("database health check failed", "error", err)
		return stats
	}

	stats["status"] = "up"
	stats["message"] = "It's healthy"
	stats["driver"] = s.dialect

	dbStats := sqlDB.Stats()
	stats["open_connections"] = strconv.Itoa(dbStats.OpenConnections)
	stats["in_use"] = strconv.Itoa(dbStats.InUse)
	stats["idle"] = strconv.Itoa(dbStats.Idle)
	stats["wait_count"] = strconv.FormatInt(dbStats.WaitCount, 10)
	stats["wait_duration"] = dbStats.WaitDuration.String()
	stats["max_idle_closed"] = strconv.FormatInt(dbStats.MaxIdleClosed, 10)
	stats["max_lifetime_closed"] = strconv.FormatInt(dbStats.MaxLifetimeClosed, 10)

	if dbStats.OpenConnections > 80 {
		stats["message"] = "The database is experiencing heavy load."
	}
	if dbStats.WaitCount > 1000 {
		stats["message"] = "The database has a high number of wait events, indicating potential bottlenecks."
	}

	return stats
}

func (s *service) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	s.log.Infow("closing database connection pool", "database", s.name)
	return sqlDB.Close()
}
