package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Tomlord1122/todo-service/internal/config"
	"github.com/Tomlord1122/todo-service/internal/logger"
)

// MongoService is a mongo-backed connection.
type MongoService interface {
	Service
	Database() *mongo.Database
}

type mongoService struct {
	client *mongo.Client
	db     *mongo.Database
	log    *logger.Logger
}

// NewMongo connects, pings and ensures the indexes the repositories rely on.
func NewMongo(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (MongoService, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	s := &mongoService{client: client, db: client.Database(cfg.Name), log: log}
	if err := EnsureMongoIndexes(connectCtx, s.db); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

// EnsureMongoIndexes creates the secondary indexes on the attachments
// collection. Creating an existing index is a no-op.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection("attachments").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "todoId", Value: 1}}},
		{Keys: bson.D{{Key: "name", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create attachment indexes: %w", err)
	}
	return nil
}

func (s *mongoService) Database() *mongo.Database {
	return s.db
}

func (s *mongoService) Health() map[string]string {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	stats := map[string]string{"driver": "mongo"}
	if err := s.client.Ping(ctx, nil); err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db down: %v", err)
		s.log.Warnw("mongo health check failed", "error", err)
		return stats
	}
	stats["status"] = "up"
	stats["message"] = "It's healthy"
	return stats
}

func (s *mongoService) Close() error {
	s.log.Infow("disconnecting from mongo", "database", s.db.Name())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
