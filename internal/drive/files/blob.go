package files

import (
	"context"
	"io"

	"github.com/Laisky/laisky-cloud-drive/library/blob"
)

// BlobStore holds the raw bytes behind each FileRecord.
// Delete wraps blob.ErrNotFound when the object is already gone.
type BlobStore interface {
	Put(ctx context.Context, name, contentType string, r io.Reader, size int64) (blob.Object, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, fn func(blob.Object) error) error
}
