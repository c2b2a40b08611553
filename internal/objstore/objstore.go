package objstore

import (
	"context"
	"io"
	"time"
)

// ObjectStore is the object-storage collaborator used for avatars and
// message media. Avatars live in a public bucket addressed by
// PublicURL; media is only ever handed out through Presign.
type ObjectStore interface {
	Put(ctx context.Context, bucket, key string, body io.Reader, contentType string) error
	Get(ctx context.Context, bucket, key string) (io.ReadCloser, error)
	Presign(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
	PublicURL(bucket, key string) string
}
