package blobstore

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tomlord1122/todo-service/internal/config"
)

func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("put then open returns content", func(t *testing.T) {
		s := newStore(t)
		data := []byte("hello attachment")
		require.NoError(t, s.Put(ctx, "todo-1/a.txt", bytes.NewReader(data), int64(len(data))))

		rc, err := s.Open(ctx, "todo-1/a.txt")
		require.NoError(t, err)
		defer rc.Close()
		got, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, data, got)
	})

	t.Run("put replaces existing content", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Put(ctx, "t/a", strings.NewReader("one"), 3))
		require.NoError(t, s.Put(ctx, "t/a", strings.NewReader("second"), 6))

		rc, err := s.Open(ctx, "t/a")
		require.NoError(t, err)
		defer rc.Close()
		got, _ := io.ReadAll(rc)
		assert.Equal(t, "second", string(got))
	})

	t.Run("size mismatch leaves nothing behind", func(t *testing.T) {
		s := newStore(t)
		err := s.Put(ctx, "t/short", strings.NewReader("abc"), 10)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "size mismatch")

		_, err = s.Open(ctx, "t/short")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("open missing key", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Open(ctx, "nope/missing.bin")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Put(ctx, "t/d", strings.NewReader("x"), 1))
		require.NoError(t, s.Delete(ctx, "t/d"))
		require.NoError(t, s.Delete(ctx, "t/d"))

		_, err := s.Open(ctx, "t/d")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("rejects escaping keys", func(t *testing.T) {
		s := newStore(t)
		for _, key := range []string{"", "/abs", "../x", "a/../../x", "a//b"} {
			err := s.Put(ctx, key, strings.NewReader("x"), 1)
			assert.Error(t, err, "key %q", key)
		}
	})

	t.Run("concurrent puts", func(t *testing.T) {
		s := newStore(t)
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				key := Key("todo", string(rune('a'+i)))
				assert.NoError(t, s.Put(ctx, key, strings.NewReader("data"), 4))
			}(i)
		}
		wg.Wait()

		for i := 0; i < 10; i++ {
			rc, err := s.Open(ctx, Key("todo", string(rune('a'+i))))
			require.NoError(t, err)
			rc.Close()
		}
	})

	t.Run("validate setup", func(t *testing.T) {
		assert.NoError(t, newStore(t).ValidateSetup(ctx))
	})
}

func TestFileSystemStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store {
		s, err := NewFileSystemStore(t.TempDir())
		require.NoError(t, err)
		return s
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store {
		return NewMemoryStore()
	})
}

func TestFileSystemStore_Layout(t *testing.T) {
	root := t.TempDir()
	s, err := NewFileSystemStore(root)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, s.Put(ctx, Key("abc", "receipt.png"), strings.NewReader("png"), 3))

	data, err := os.ReadFile(filepath.Join(root, "abc", "receipt.png"))
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))

	entries, err := os.ReadDir(filepath.Join(root, "abc"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")

	require.NoError(t, s.Delete(ctx, Key("abc", "receipt.png")))
	_, err = os.Stat(filepath.Join(root, "abc"))
	assert.True(t, os.IsNotExist(err), "empty todo directory is removed")
}

func TestFileSystemStore_ValidateSetupMissingRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "store")
	s, err := NewFileSystemStore(root)
	require.NoError(t, err)
	require.NoError(t, os.RemoveAll(root))

	assert.Error(t, s.ValidateSetup(context.Background()))
}

func TestS3Store_ObjectKey(t *testing.T) {
	s := &S3Store{bucket: "b", prefix: "attachments"}
	key, err := s.objectKey("todo/file.txt")
	require.NoError(t, err)
	assert.Equal(t, "attachments/todo/file.txt", key)

	s.prefix = ""
	key, err = s.objectKey("todo/file.txt")
	require.NoError(t, err)
	assert.Equal(t, "todo/file.txt", key)

	_, err = s.objectKey("../escape")
	assert.Error(t, err)
}

func TestExactSizeReader(t *testing.T) {
	tests := []struct {
		name    string
		content string
		size    int64
		wantErr bool
	}{
		{"exact", "twelve bytes", 12, false},
		{"empty", "", 0, false},
		{"short", "twelve bytes", 20, true},
		{"long", "twelve bytes", 5, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &exactSizeReader{r: strings.NewReader(tt.content), want: tt.size}
			n, err := io.Copy(io.Discard, r)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "size")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.size, n)
		})
	}
}

func TestNewStoreFromConfig(t *testing.T) {
	ctx := context.Background()

	s, err := NewStoreFromConfig(ctx, config.StorageConfig{Type: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = NewStoreFromConfig(ctx, config.StorageConfig{Type: "filesystem", FSRoot: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &FileSystemStore{}, s)

	_, err = NewStoreFromConfig(ctx, config.StorageConfig{Type: "s3"})
	assert.Error(t, err, "bucket is required")

	_, err = NewStoreFromConfig(ctx, config.StorageConfig{Type: "ftp"})
	assert.Error(t, err)
}
