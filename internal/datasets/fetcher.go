package datasets

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path"

	"github.com/go-resty/resty/v2"

	"ipinsights-workflow/internal/storage"
	"ipinsights-workflow/pkg/models"
)

const (
	TrainFile = "cloudtrail_tuples.csv"
	InferFile = "guardduty_tuples.csv"
)

// Fetcher stages prepared tuple datasets into the bucket so a fresh bucket
// can be populated before a workflow run. Objects that already exist are
// left untouched.
type Fetcher struct {
	client *resty.Client
	store  storage.ObjectStore
}

func NewFetcher(baseURL string, store storage.ObjectStore) *Fetcher {
	return &Fetcher{
		client: resty.New().SetBaseURL(baseURL),
		store:  store,
	}
}

func (f *Fetcher) Stage(ctx context.Context, bucket, prefix string) error {
	items := []struct {
		remote string
		key    string
	}{
		{remote: TrainFile, key: path.Join(prefix, storage.TrainDir, TrainFile)},
		{remote: InferFile, key: path.Join(prefix, storage.InferDir, InferFile)},
	}

	for _, item := range items {
		existing, err := f.store.ListObjects(ctx, bucket, item.key)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			slog.Info("Dataset already staged, skipping", "bucket", bucket, "key", item.key)
			continue
		}

		res, err := f.client.R().
			SetContext(ctx).
			Get("/" + item.remote)
		if err != nil {
			return fmt.Errorf("failed to fetch dataset %s: %v: %w", item.remote, err, models.ErrRemoteCallError)
		}
		if !res.IsSuccess() {
			return fmt.Errorf("fetching dataset %s returned status %d: %w", item.remote, res.StatusCode(), models.ErrRemoteCallError)
		}

		if err := f.store.PutObject(ctx, bucket, item.key, bytes.NewReader(res.Body())); err != nil {
			return err
		}
		slog.Info("Dataset staged", "bucket", bucket, "key", item.key, "bytes", len(res.Body()))
	}

	return nil
}
