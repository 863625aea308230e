package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"ipinsights-workflow/pkg/models"
)

// LocalObjectStore is a filesystem-backed store used in tests and local
// development. Buckets map to directories under the base dir.
type LocalObjectStore struct {
	baseDir string
}

var _ ObjectStore = (*LocalObjectStore)(nil)

func NewLocalObjectStore(dir string) (*LocalObjectStore, error) {
	baseDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path for %s: %w", dir, err)
	}

	return &LocalObjectStore{baseDir: baseDir}, nil
}

func (s *LocalObjectStore) fullpath(bucket, key string) string {
	return filepath.Join(s.baseDir, bucket, filepath.FromSlash(key))
}

func (s *LocalObjectStore) HeadBucket(ctx context.Context, bucket string) error {
	info, err := os.Stat(filepath.Join(s.baseDir, bucket))
	if os.IsNotExist(err) {
		return fmt.Errorf("bucket %s does not exist: %w", bucket, models.ErrNotFound)
	}
	if os.IsPermission(err) {
		return fmt.Errorf("access to bucket %s denied: %w", bucket, models.ErrAccessDenied)
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("bucket %s does not exist: %w", bucket, models.ErrNotFound)
	}
	return nil
}

func (s *LocalObjectStore) CreateBucket(ctx context.Context, bucket string) error {
	if err := os.MkdirAll(filepath.Join(s.baseDir, bucket), os.ModePerm); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
	}
	return nil
}

func (s *LocalObjectStore) GetObject(ctx context.Context, bucket, key string) ([]byte, error) {
	data, err := os.ReadFile(s.fullpath(bucket, key))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("object %s/%s does not exist: %w", bucket, key, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s/%s: %w", bucket, key, err)
	}
	return data, nil
}

func (s *LocalObjectStore) PutObject(ctx context.Context, bucket, key string, data io.Reader) error {
	path := s.fullpath(bucket, key)
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return fmt.Errorf("failed to create directory for %s/%s: %w", bucket, key, err)
	}

	dst, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file %s/%s: %w", bucket, key, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, data); err != nil {
		return fmt.Errorf("failed to write file %s/%s: %w", bucket, key, err)
	}

	return nil
}

func (s *LocalObjectStore) ListObjects(ctx context.Context, bucket, prefix string) ([]Object, error) {
	root := filepath.Join(s.baseDir, bucket)
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil, fmt.Errorf("bucket %s does not exist: %w", bucket, models.ErrNotFound)
	}

	var objects []Object
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			objects = append(objects, Object{Name: key, Size: info.Size()})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list objects in bucket %s with prefix %s: %w", bucket, prefix, err)
	}

	return objects, nil
}
