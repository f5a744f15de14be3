package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Tomlord1122/todo-service/internal/database"
	"github.com/Tomlord1122/todo-service/internal/testutil"
)

// newMongoDatabaseFactory starts one mongo container for the calling test and
// hands out a fresh database per subtest.
func newMongoDatabaseFactory(t *testing.T) func(t *testing.T) *mongo.Database {
	if testing.Short() {
		t.Skip("skipping mongo integration test in short mode")
	}
	endpoint := startMongo(t)

	ctx := context.Background()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI("mongodb://"+endpoint))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	return func(t *testing.T) *mongo.Database {
		db := client.Database("test_" + primitive.NewObjectID().Hex())
		require.NoError(t, database.EnsureMongoIndexes(ctx, db))
		t.Cleanup(func() { _ = db.Drop(context.Background()) })
		return db
	}
}

func startMongo(t *testing.T) string {
	t.Helper()
	return testutil.StartContainer(t, "mongo:7", "27017/tcp", wait.ForListeningPort("27017/tcp"))
}

func TestMongoTodoRepository(t *testing.T) {
	newDB := newMongoDatabaseFactory(t)
	runTodoRepositoryContract(t, func(t *testing.T) TodoRepository {
		return NewMongoTodoRepository(newDB(t))
	}, primitive.NewObjectID().Hex())
}

func TestMongoAttachmentRepository(t *testing.T) {
	newDB := newMongoDatabaseFactory(t)
	runAttachmentRepositoryContract(t, func(t *testing.T) AttachmentRepository {
		return NewMongoAttachmentRepository(newDB(t))
	}, func() string { return primitive.NewObjectID().Hex() })
}

func TestMongoEditingStore(t *testing.T) {
	newDB := newMongoDatabaseFactory(t)
	runEditingStoreContract(t, func(t *testing.T) EditingStore {
		return NewMongoEditingStore(newDB(t))
	})
}
