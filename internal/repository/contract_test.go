package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tomlord1122/todo-service/internal/domain"
)

func strPtr(s string) *string { return &s }

// runTodoRepositoryContract exercises a TodoRepository implementation.
// missingID must be a well-formed id for the backend that matches nothing.
func runTodoRepositoryContract(t *testing.T, newRepo func(t *testing.T) TodoRepository, missingID string) {
	ctx := context.Background()

	t.Run("create assigns id and defaults", func(t *testing.T) {
		repo := newRepo(t)
		todo := &domain.Todo{Title: "Buy milk"}
		require.NoError(t, repo.Create(ctx, todo))
		require.NotEmpty(t, todo.ID)

		got, err := repo.FindByID(ctx, todo.ID)
		require.NoError(t, err)
		assert.Equal(t, "Buy milk", got.Title)
		assert.False(t, got.Completed)
		assert.False(t, got.FoundTodo)
		assert.Nil(t, got.DueAt)
	})

	t.Run("find missing", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.FindByID(ctx, missingID)
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = repo.FindByID(ctx, "not-an-id")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("get all keeps insertion order", func(t *testing.T) {
		repo := newRepo(t)
		titles := []string{"one", "two", "three", "four"}
		for _, title := range titles {
			require.NoError(t, repo.Create(ctx, &domain.Todo{Title: title}))
		}

		todos, err := repo.GetAll(ctx)
		require.NoError(t, err)
		require.Len(t, todos, len(titles))
		for i, todo := range todos {
			assert.Equal(t, titles[i], todo.Title)
		}
	})

	t.Run("update merges supplied fields", func(t *testing.T) {
		repo := newRepo(t)
		due := time.Date(2030, 1, 2, 0, 0, 0, 0, time.UTC)
		todo := &domain.Todo{Title: "old", Description: "keep me", DueAt: &due}
		require.NoError(t, repo.Create(ctx, todo))

		require.NoError(t, repo.UpdateByID(ctx, todo.ID, domain.TodoPatch{Title: strPtr("new")}))

		got, err := repo.FindByID(ctx, todo.ID)
		require.NoError(t, err)
		assert.Equal(t, "new", got.Title)
		assert.Equal(t, "keep me", got.Description)
		require.NotNil(t, got.DueAt)
		assert.True(t, due.Equal(*got.DueAt))

		require.NoError(t, repo.UpdateByID(ctx, todo.ID, domain.TodoPatch{ClearDueAt: true}))
		got, err = repo.FindByID(ctx, todo.ID)
		require.NoError(t, err)
		assert.Nil(t, got.DueAt)
	})

	t.Run("update missing", func(t *testing.T) {
		repo := newRepo(t)
		err := repo.UpdateByID(ctx, missingID, domain.TodoPatch{Title: strPtr("x")})
		assert.ErrorIs(t, err, ErrNotFound)
		err = repo.UpdateByID(ctx, missingID, domain.TodoPatch{})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("toggle completed twice restores", func(t *testing.T) {
		repo := newRepo(t)
		todo := &domain.Todo{Title: "flip"}
		require.NoError(t, repo.Create(ctx, todo))

		require.NoError(t, repo.ToggleCompleted(ctx, todo.ID))
		got, err := repo.FindByID(ctx, todo.ID)
		require.NoError(t, err)
		assert.True(t, got.Completed)

		require.NoError(t, repo.ToggleCompleted(ctx, todo.ID))
		got, err = repo.FindByID(ctx, todo.ID)
		require.NoError(t, err)
		assert.False(t, got.Completed)

		assert.ErrorIs(t, repo.ToggleCompleted(ctx, missingID), ErrNotFound)
	})

	t.Run("mark found exact", func(t *testing.T) {
		repo := newRepo(t)
		for _, title := range []string{"Milk", "milk", "Buy Milk", "Milk"} {
			require.NoError(t, repo.Create(ctx, &domain.Todo{Title: title}))
		}

		n, err := repo.MarkFound(ctx, "Milk", domain.FoundMatchExact)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		todos, err := repo.GetAll(ctx)
		require.NoError(t, err)
		found := map[string]int{}
		for _, todo := range todos {
			if todo.FoundTodo {
				found[todo.Title]++
			}
		}
		assert.Equal(t, map[string]int{"Milk": 2}, found)

		// A second search resets earlier matches.
		n, err = repo.MarkFound(ctx, "milk", domain.FoundMatchExact)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("mark found contains", func(t *testing.T) {
		repo := newRepo(t)
		for _, title := range []string{"Milk", "Buy Milk", "bread"} {
			require.NoError(t, repo.Create(ctx, &domain.Todo{Title: title}))
		}

		n, err := repo.MarkFound(ctx, "Milk", domain.FoundMatchContains)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
	})

	t.Run("mark found blank query matches nothing", func(t *testing.T) {
		repo := newRepo(t)
		for _, title := range []string{"Milk", "Buy Milk", ""} {
			require.NoError(t, repo.Create(ctx, &domain.Todo{Title: title}))
		}

		for _, match := range []domain.FoundMatch{domain.FoundMatchExact, domain.FoundMatchContains} {
			_, err := repo.MarkFound(ctx, "Milk", match)
			require.NoError(t, err)

			n, err := repo.MarkFound(ctx, "", match)
			require.NoError(t, err)
			assert.Zero(t, n, "match %s", match)

			todos, err := repo.GetAll(ctx)
			require.NoError(t, err)
			for _, todo := range todos {
				assert.False(t, todo.FoundTodo, "match %s title %q", match, todo.Title)
			}
		}
	})

	t.Run("delete", func(t *testing.T) {
		repo := newRepo(t)
		todo := &domain.Todo{Title: "gone"}
		require.NoError(t, repo.Create(ctx, todo))

		require.NoError(t, repo.Delete(ctx, todo.ID))
		_, err := repo.FindByID(ctx, todo.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, repo.Delete(ctx, todo.ID), ErrNotFound)
	})
}

// runAttachmentRepositoryContract exercises an AttachmentRepository.
// newTodoID returns a fresh well-formed todo id for the backend.
func runAttachmentRepositoryContract(t *testing.T, newRepo func(t *testing.T) AttachmentRepository, newTodoID func() string) {
	ctx := context.Background()

	t.Run("create and find one", func(t *testing.T) {
		repo := newRepo(t)
		todoID := newTodoID()
		a := &domain.Attachment{TodoID: todoID, Name: "a.txt", Size: 3, StoragePath: "/uploads/x/a.txt"}
		require.NoError(t, repo.Create(ctx, a))
		require.NotEmpty(t, a.ID)

		got, err := repo.FindOne(ctx, todoID, a.ID)
		require.NoError(t, err)
		assert.Equal(t, "a.txt", got.Name)
		assert.Equal(t, int64(3), got.Size)
		assert.Equal(t, todoID, got.TodoID)

		_, err = repo.FindOne(ctx, newTodoID(), a.ID)
		assert.ErrorIs(t, err, ErrNotFound, "attachment must not be found under another todo")
	})

	t.Run("find by todo and counts", func(t *testing.T) {
		repo := newRepo(t)
		first, second := newTodoID(), newTodoID()
		for i := 0; i < 3; i++ {
			require.NoError(t, repo.Create(ctx, &domain.Attachment{TodoID: first, Name: "f", Size: 1, StoragePath: "p"}))
		}
		for i := 0; i < 2; i++ {
			require.NoError(t, repo.Create(ctx, &domain.Attachment{TodoID: second, Name: "g", Size: 1, StoragePath: "p"}))
		}

		list, err := repo.FindByTodo(ctx, first)
		require.NoError(t, err)
		require.Len(t, list, 3)
		for _, a := range list {
			assert.Equal(t, first, a.TodoID)
		}

		n, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(5), n)

		n, err = repo.CountByName(ctx, "g")
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		empty, err := repo.FindByTodo(ctx, "bogus")
		require.NoError(t, err)
		assert.NotNil(t, empty)
		assert.Empty(t, empty)
	})

	t.Run("delete requires matching todo", func(t *testing.T) {
		repo := newRepo(t)
		todoID := newTodoID()
		a := &domain.Attachment{TodoID: todoID, Name: "d", Size: 1, StoragePath: "p"}
		require.NoError(t, repo.Create(ctx, a))

		assert.ErrorIs(t, repo.Delete(ctx, newTodoID(), a.ID), ErrNotFound)
		require.NoError(t, repo.Delete(ctx, todoID, a.ID))
		assert.ErrorIs(t, repo.Delete(ctx, todoID, a.ID), ErrNotFound)
	})
}

// runEditingStoreContract exercises an EditingStore.
func runEditingStoreContract(t *testing.T, newStore func(t *testing.T) EditingStore) {
	ctx := context.Background()

	t.Run("empty by default", func(t *testing.T) {
		s := newStore(t)
		id, err := s.Get(ctx)
		require.NoError(t, err)
		assert.Empty(t, id)
	})

	t.Run("set replaces", func(t *testing.T) {
		s := newStore(t)
		first := "6f1c1b54-3a0e-4b6a-9d0e-7e1f2a3b4c5d"
		second := "0a9b8c7d-6e5f-4a3b-8c2d-1e0f9a8b7c6d"
		require.NoError(t, s.Set(ctx, first))
		require.NoError(t, s.Set(ctx, second))

		id, err := s.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, second, id)
	})

	t.Run("clear if only matches current", func(t *testing.T) {
		s := newStore(t)
		current := "6f1c1b54-3a0e-4b6a-9d0e-7e1f2a3b4c5d"
		other := "0a9b8c7d-6e5f-4a3b-8c2d-1e0f9a8b7c6d"
		require.NoError(t, s.Set(ctx, current))

		require.NoError(t, s.ClearIf(ctx, other))
		id, err := s.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, current, id)

		require.NoError(t, s.ClearIf(ctx, current))
		id, err = s.Get(ctx)
		require.NoError(t, err)
		assert.Empty(t, id)
	})
}
