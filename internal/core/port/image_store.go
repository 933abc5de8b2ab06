package port

import (
	"context"
	"io"
)

// ImageStore keeps uploaded plant images and returns their public URL.
type ImageStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
}
