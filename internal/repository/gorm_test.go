package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tomlord1122/todo-service/internal/domain"
	"github.com/Tomlord1122/todo-service/internal/testutil"
)

func TestGormTodoRepository(t *testing.T) {
	runTodoRepositoryContract(t, func(t *testing.T) TodoRepository {
		return NewGormTodoRepository(testutil.NewTestDB(t))
	}, uuid.NewString())
}

func TestGormAttachmentRepository(t *testing.T) {
	runAttachmentRepositoryContract(t, func(t *testing.T) AttachmentRepository {
		return NewGormAttachmentRepository(testutil.NewTestDB(t))
	}, uuid.NewString)
}

func TestGormEditingStore(t *testing.T) {
	runEditingStoreContract(t, func(t *testing.T) EditingStore {
		return NewGormEditingStore(testutil.NewTestDB(t))
	})
}

func TestGormEditingStore_ConcurrentSetLeavesOneValue(t *testing.T) {
	db := testutil.NewTestDB(t)
	store := NewGormEditingStore(db)
	ctx := context.Background()

	ids := make([]string, 8)
	for i := range ids {
		ids[i] = uuid.NewString()
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			assert.NoError(t, store.Set(ctx, id))
		}(id)
	}
	wg.Wait()

	got, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Contains(t, ids, got)

	var rows int64
	require.NoError(t, db.Model(&domain.EditingState{}).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)
}

func TestGormTodoRepository_UpdateBumpsUpdatedAt(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewGormTodoRepository(db)
	ctx := context.Background()

	todo := &domain.Todo{Title: "a"}
	require.NoError(t, repo.Create(ctx, todo))
	before := todo.UpdatedAt

	require.NoError(t, repo.UpdateByID(ctx, todo.ID, domain.TodoPatch{Description: strPtr("b")}))
	got, err := repo.FindByID(ctx, todo.ID)
	require.NoError(t, err)
	assert.Equal(t, "b", got.Description)
	assert.False(t, got.UpdatedAt.Before(before))
}

func TestGormTodoRepository_GetAllTiesBreakByID(t *testing.T) {
	repo := NewGormTodoRepository(testutil.NewTestDB(t))
	ctx := context.Background()

	created := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)
	titles := []string{"first", "second", "third", "fourth", "fifth"}
	for _, title := range titles {
		require.NoError(t, repo.Create(ctx, &domain.Todo{Title: title, CreatedAt: created}))
	}

	todos, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, todos, len(titles))
	for i, todo := range todos {
		assert.Equal(t, titles[i], todo.Title)
	}
}
