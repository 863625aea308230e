package storage

import (
	"context"
	"io"
)

type Object struct {
	Name string
	Size int64
}

type ObjectStore interface {
	// HeadBucket probes bucket existence and accessibility without touching
	// any object. Errors are classified per the workflow taxonomy.
	HeadBucket(ctx context.Context, bucket string) error

	CreateBucket(ctx context.Context, bucket string) error

	GetObject(ctx context.Context, bucket, key string) ([]byte, error)

	PutObject(ctx context.Context, bucket, key string, data io.Reader) error

	ListObjects(ctx context.Context, bucket, prefix string) ([]Object, error)
}
