package storage_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ipinsights-workflow/internal/storage"
	"ipinsights-workflow/pkg/models"
)

func setupLocalStore(t *testing.T) *storage.LocalObjectStore {
	t.Helper()

	store, err := storage.NewLocalObjectStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestLocalObjectStorePutGet(t *testing.T) {
	ctx := context.Background()
	store := setupLocalStore(t)

	require.NoError(t, store.CreateBucket(ctx, "bucket"))
	require.NoError(t, store.PutObject(ctx, "bucket", "sec405/train/tuples.csv", strings.NewReader("user-1,10.0.0.5\n")))

	data, err := store.GetObject(ctx, "bucket", "sec405/train/tuples.csv")
	require.NoError(t, err)
	assert.Equal(t, "user-1,10.0.0.5\n", string(data))
}

func TestLocalObjectStoreGetMissingObject(t *testing.T) {
	ctx := context.Background()
	store := setupLocalStore(t)

	require.NoError(t, store.CreateBucket(ctx, "bucket"))

	_, err := store.GetObject(ctx, "bucket", "missing.csv")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestLocalObjectStoreHeadBucket(t *testing.T) {
	ctx := context.Background()
	store := setupLocalStore(t)

	require.NoError(t, store.CreateBucket(ctx, "bucket"))
	assert.NoError(t, store.HeadBucket(ctx, "bucket"))

	err := store.HeadBucket(ctx, "no-such-bucket")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestLocalObjectStoreListObjects(t *testing.T) {
	ctx := context.Background()
	store := setupLocalStore(t)

	require.NoError(t, store.CreateBucket(ctx, "bucket"))
	require.NoError(t, store.PutObject(ctx, "bucket", "sec405/train/a.csv", strings.NewReader("x")))
	require.NoError(t, store.PutObject(ctx, "bucket", "sec405/train/b.csv", strings.NewReader("y")))
	require.NoError(t, store.PutObject(ctx, "bucket", "sec405/infer/c.csv", strings.NewReader("z")))

	objects, err := store.ListObjects(ctx, "bucket", "sec405/train/")
	require.NoError(t, err)
	require.Len(t, objects, 2)
	assert.Equal(t, "sec405/train/a.csv", objects[0].Name)
	assert.Equal(t, "sec405/train/b.csv", objects[1].Name)
}

func TestFirstCSV(t *testing.T) {
	obj, ok := storage.FirstCSV([]storage.Object{
		{Name: "sec405/train/readme.txt"},
		{Name: "sec405/train/tuples.csv"},
	})
	require.True(t, ok)
	assert.Equal(t, "sec405/train/tuples.csv", obj.Name)

	_, ok = storage.FirstCSV([]storage.Object{{Name: "sec405/train/readme.txt"}})
	assert.False(t, ok)
}
