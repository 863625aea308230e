package storage

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	"ipinsights-workflow/pkg/models"
)

// Bucket names: 3-63 chars, letters, digits, dots, hyphens, starting and
// ending with a letter or digit.
var bucketNameRe = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9.-]{1,61}[a-zA-Z0-9]$`)

// CheckBucket verifies the configured bucket exists and is accessible before
// any cost-incurring remote operation runs. A missing or malformed name fails
// with ErrInvalidConfiguration without issuing a single remote call.
func CheckBucket(ctx context.Context, store ObjectStore, bucket string) error {
	if bucket == "" {
		return fmt.Errorf("bucket name is empty: %w", models.ErrInvalidConfiguration)
	}
	if !bucketNameRe.MatchString(bucket) {
		return fmt.Errorf("'%s' is not a valid bucket name: %w", bucket, models.ErrInvalidConfiguration)
	}

	if err := store.HeadBucket(ctx, bucket); err != nil {
		return err
	}

	slog.Info("Bucket verified", "bucket", bucket)
	return nil
}
