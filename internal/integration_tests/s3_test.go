package integrationtests

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ipinsights-workflow/internal/storage"
	"ipinsights-workflow/pkg/models"
)

const bucketName = "tuples-bucket"

func setupTestObjectStore(t *testing.T, ctx context.Context) *storage.S3ObjectStore {
	t.Helper()

	endpoint := setupMinioContainer(t, ctx)

	objectStore, err := storage.NewS3ObjectStore(storage.S3ClientConfig{
		Endpoint:        endpoint,
		Region:          "us-east-1",
		AccessKeyID:     minioUsername,
		SecretAccessKey: minioPassword,
	})
	require.NoError(t, err)
	return objectStore
}

func TestS3ObjectStore_PutGetObject(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	objectStore := setupTestObjectStore(t, ctx)
	require.NoError(t, objectStore.CreateBucket(ctx, bucketName))

	key := "train/cloudtrail_tuples.csv"
	content := []byte("user-1,10.0.0.5\nuser-2,10.0.0.9\n")

	require.NoError(t, objectStore.PutObject(ctx, bucketName, key, bytes.NewReader(content)))

	data, err := objectStore.GetObject(ctx, bucketName, key)
	require.NoError(t, err)
	assert.Equal(t, content, data)
}

func TestS3ObjectStore_GetMissingObject(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	objectStore := setupTestObjectStore(t, ctx)
	require.NoError(t, objectStore.CreateBucket(ctx, bucketName))

	_, err := objectStore.GetObject(ctx, bucketName, "train/absent.csv")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestS3ObjectStore_ListObjects(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	objectStore := setupTestObjectStore(t, ctx)
	require.NoError(t, objectStore.CreateBucket(ctx, bucketName))

	files := []string{"train/cloudtrail_tuples.csv", "train/notes.txt", "infer/guardduty_tuples.csv"}
	for _, file := range files {
		require.NoError(t, objectStore.PutObject(ctx, bucketName, file, strings.NewReader("content: "+file)))
	}

	objs, err := objectStore.ListObjects(ctx, bucketName, "train/")
	require.NoError(t, err)
	assert.Len(t, objs, 2)

	csv, ok := storage.FirstCSV(objs)
	require.True(t, ok)
	assert.Equal(t, "train/cloudtrail_tuples.csv", csv.Name)
}

func TestS3ObjectStore_CreateBucketIdempotent(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	objectStore := setupTestObjectStore(t, ctx)
	require.NoError(t, objectStore.CreateBucket(ctx, bucketName))
	require.NoError(t, objectStore.CreateBucket(ctx, bucketName))
}

func TestCheckBucket_Accessible(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	objectStore := setupTestObjectStore(t, ctx)
	require.NoError(t, objectStore.CreateBucket(ctx, bucketName))

	require.NoError(t, storage.CheckBucket(ctx, objectStore, bucketName))
}

func TestCheckBucket_Missing(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	objectStore := setupTestObjectStore(t, ctx)

	err := storage.CheckBucket(ctx, objectStore, "absent-bucket")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrNotFound)
}
