package ingestion

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	storage_go "github.com/supabase-community/storage-go"
)

// supabaseStore is the default driver. Listing is per-folder (the storage
// API has no recursive list), so Walk goes through walkLeaves.
type supabaseStore struct {
	client *storage_go.Client
	bucket string
}

func newSupabaseStore(cfg StorageConfig) (*supabaseStore, error) {
	if cfg.ProjectURL == "" || cfg.ServiceKey == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("supabase storage requires SUPABASE_URL, SUPABASE_SERVICE_ROLE_KEY and a bucket")
	}
	rawURL := strings.TrimRight(cfg.ProjectURL, "/") + "/storage/v1"
	client := storage_go.NewClient(rawURL, cfg.ServiceKey, nil)
	return &supabaseStore{client: client, bucket: cfg.Bucket}, nil
}

// The storage-go v0.8 client is not context-aware; ctx is checked between
// calls so multi-object operations still abort on cancellation.

func (s *supabaseStore) Upload(ctx context.Context, key string, body []byte, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	upsert := true
	opts := storage_go.FileOptions{Upsert: &upsert}
	if contentType != "" {
		opts.ContentType = &contentType
	}
	if _, err := s.client.UploadFile(s.bucket, key, bytes.NewReader(body), opts); err != nil {
		return fmt.Errorf("upload to storage (bucket %s, key %s): %w", s.bucket, key, err)
	}
	return nil
}

func (s *supabaseStore) Download(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := s.client.DownloadFile(s.bucket, key)
	if err != nil {
		return nil, fmt.Errorf("download from storage (bucket %s, key %s): %w", s.bucket, key, err)
	}
	return data, nil
}

func (s *supabaseStore) listFolder(ctx context.Context, dir string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	objects, err := s.client.ListFiles(s.bucket, dir, storage_go.FileSearchOptions{Limit: 1000})
	if err != nil {
		return nil, fmt.Errorf("list storage folder %s: %w", dir, err)
	}
	names := make([]string, 0, len(objects))
	for _, o := range objects {
		names = append(names, o.Name)
	}
	return names, nil
}

func (s *supabaseStore) Walk(ctx context.Context, prefix string) ([]string, error) {
	return walkLeaves(ctx, s, prefix)
}

func (s *supabaseStore) Remove(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.client.RemoveFile(s.bucket, keys); err != nil {
		return fmt.Errorf("remove %d objects from storage: %w", len(keys), err)
	}
	return nil
}
