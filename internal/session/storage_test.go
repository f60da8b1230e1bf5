package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseStorage runs the shared get/set/remove/clear contract
func exerciseStorage(t *testing.T, storage Storage) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := storage.Get(ctx, KeyToken)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, storage.Set(ctx, KeyToken, "t1"))
	require.NoError(t, storage.Set(ctx, KeyUser, `{"id":"u1"}`))
	require.NoError(t, storage.Set(ctx, KeyToken, "t2"))

	value, ok, err := storage.Get(ctx, KeyToken)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "t2", value)

	require.NoError(t, storage.Remove(ctx, KeyToken))
	require.NoError(t, storage.Remove(ctx, KeyToken))
	_, ok, err = storage.Get(ctx, KeyToken)
	require.NoError(t, err)
	assert.False(t, ok)

	value, ok, err = storage.Get(ctx, KeyUser)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"id":"u1"}`, value)

	require.NoError(t, storage.Clear(ctx))
	_, ok, err = storage.Get(ctx, KeyUser)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStorage(t *testing.T) {
	exerciseStorage(t, NewMemoryStorage())
}

func TestFileStorage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	storage, err := NewFileStorage(path)
	require.NoError(t, err)

	exerciseStorage(t, storage)
}

func TestFileStorage_Permissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	storage, err := NewFileStorage(path)
	require.NoError(t, err)

	require.NoError(t, storage.Set(context.Background(), KeyToken, "t1"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestFileStorage_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	first, err := NewFileStorage(path)
	require.NoError(t, err)
	require.NoError(t, first.Set(context.Background(), KeyToken, "t1"))

	second, err := NewFileStorage(path)
	require.NoError(t, err)
	value, ok, err := second.Get(context.Background(), KeyToken)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "t1", value)
}

func TestFileStorage_CorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	storage, err := NewFileStorage(path)
	require.NoError(t, err)

	_, _, err = storage.Get(context.Background(), KeyToken)
	assert.Error(t, err)

	// removing keys from a corrupt document discards it
	require.NoError(t, RemoveKeys(context.Background(), storage))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestNewFileStorage_RequiresPath(t *testing.T) {
	_, err := NewFileStorage("")
	assert.Error(t, err)
}

func TestSealedStorage(t *testing.T) {
	inner := NewMemoryStorage()
	sealed, err := NewSealedStorage(inner, "workstation-secret")
	require.NoError(t, err)

	exerciseStorage(t, sealed)

	require.NoError(t, sealed.Set(context.Background(), KeyToken, "t1"))
	raw, ok, err := inner.Get(context.Background(), KeyToken)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEqual(t, "t1", raw)

	value, ok, err := sealed.Get(context.Background(), KeyToken)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "t1", value)
}

func TestSealedStorage_WrongKey(t *testing.T) {
	inner := NewMemoryStorage()
	writer, err := NewSealedStorage(inner, "first")
	require.NoError(t, err)
	require.NoError(t, writer.Set(context.Background(), KeyToken, "t1"))

	reader, err := NewSealedStorage(inner, "second")
	require.NoError(t, err)
	_, ok, err := reader.Get(context.Background(), KeyToken)
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestNewSealedStorage_EmptyPassphrase(t *testing.T) {
	_, err := NewSealedStorage(NewMemoryStorage(), "")
	assert.Error(t, err)
}

func TestRemoveKeys(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	for _, key := range Keys {
		require.NoError(t, storage.Set(ctx, key, "x"))
	}
	require.NoError(t, storage.Set(ctx, "unrelated", "kept"))

	require.NoError(t, RemoveKeys(ctx, storage))

	assert.Equal(t, 1, storage.Len())
}
