package uploadstore

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/dermaai/internal/domain/uploads"
)

func TestLocalStorage_RoundTrip(t *testing.T) {
	root := t.TempDir()
	store, err := NewLocalStorage(filepath.Join(root, "static", "uploads"))
	require.NoError(t, err)
	exerciseStorage(t, store)

	_, err = os.Stat(filepath.Join(root, "static", "uploads", "skin", "abc_rash.png"))
	require.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLocalStorage_RejectsEscapingKeys(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"../outside.png", "/etc/passwd", ".", "skin/../../x"} {
		_, err := store.Put(context.Background(), key, []byte("x"), "image/png")
		require.Error(t, err, key)
	}
}

func TestMemoryStorage_RoundTrip(t *testing.T) {
	store := NewMemoryStorage()
	exerciseStorage(t, store)
	require.Empty(t, store.Keys())
}

func TestSanitizeEndpoint(t *testing.T) {
	require.Equal(t, "acc.r2.cloudflarestorage.com", sanitizeEndpoint("https://acc.r2.cloudflarestorage.com/bucket"))
	require.Equal(t, "localhost:9000", sanitizeEndpoint(" http://localhost:9000 "))
}

func exerciseStorage(t *testing.T, store uploads.ObjectStorage) {
	t.Helper()
	ctx := context.Background()

	obj, err := store.Put(ctx, "skin/abc_rash.png", []byte("pixels"), "image/png")
	require.NoError(t, err)
	require.Equal(t, int64(6), obj.Size)
	require.NotEmpty(t, obj.ETag)

	rc, err := store.Get(ctx, "skin/abc_rash.png")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	require.Equal(t, "pixels", string(data))

	require.NoError(t, store.Delete(ctx, "skin/abc_rash.png"))
	require.NoError(t, store.Delete(ctx, "skin/abc_rash.png"))
	_, err = store.Get(ctx, "skin/abc_rash.png")
	require.True(t, errors.Is(err, os.ErrNotExist))
}
