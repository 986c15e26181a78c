package storage

import "context"

// Store is the blob-storage contract the batch pipeline consumes. Save
// persists the bytes and returns the public URL of the stored object.
type Store interface {
	Save(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Read(ctx context.Context, key string) ([]byte, error)
	PublicURL(key string) string
	ListKeys(ctx context.Context, prefix string, limit int) ([]string, error)
	Available() bool
}
