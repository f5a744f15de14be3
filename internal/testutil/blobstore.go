package testutil

import (
	"context"
	"errors"
	"io"
	"sync/atomic"

	"github.com/Tomlord1122/todo-service/internal/blobstore"
)

// ErrInjected is returned by FaultyStore when a failure is switched on.
var ErrInjected = errors.New("injected storage failure")

// FaultyStore wraps a MemoryStore and fails Put or Delete on demand.
type FaultyStore struct {
	*blobstore.MemoryStore
	failPut    atomic.Bool
	failDelete atomic.Bool
}

func NewFaultyStore() *FaultyStore {
	return &FaultyStore{MemoryStore: blobstore.NewMemoryStore()}
}

func (f *FaultyStore) FailPut(fail bool)    { f.failPut.Store(fail) }
func (f *FaultyStore) FailDelete(fail bool) { f.failDelete.Store(fail) }

func (f *FaultyStore) Put(ctx context.Context, key string, r io.Reader, size int64) error {
	if f.failPut.Load() {
		return ErrInjected
	}
	return f.MemoryStore.Put(ctx, key, r, size)
}

func (f *FaultyStore) Delete(ctx context.Context, key string) error {
	if f.failDelete.Load() {
		return ErrInjected
	}
	return f.MemoryStore.Delete(ctx, key)
}

var _ blobstore.Store = (*FaultyStore)(nil)
