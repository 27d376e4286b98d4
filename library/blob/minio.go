// Package blob stores raw file bytes in an S3-compatible bucket through minio-go.
package blob

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrNotFound is returned by Delete when the object does not exist.
var ErrNotFound = errors.New("blob not found")

// Object describes one stored blob.
type Object struct {
	ID           string
	Size         int64
	LastModified time.Time
}

// Options configures a MinIO-backed store.
type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Secure    bool
	Bucket    string
	Prefix    string
}

// MinioStore puts and removes objects under Bucket/Prefix.
type MinioStore struct {
	cli    *minio.Client
	bucket string
	prefix string
}

// NewMinioStore dials the endpoint and creates the bucket when missing.
func NewMinioStore(ctx context.Context, opt Options) (*MinioStore, error) {
	if opt.Bucket == "" {
		return nil, errors.New("bucket is required")
	}

	cli, err := minio.New(opt.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opt.AccessKey, opt.SecretKey, ""),
		Secure: opt.Secure,
	})
	if err != nil {
		return nil, errors.Wrap(err, "new minio client")
	}

	exists, err := cli.BucketExists(ctx, opt.Bucket)
	if err != nil {
		return nil, errors.Wrapf(err, "check bucket %q", opt.Bucket)
	}
	if !exists {
		if err = cli.MakeBucket(ctx, opt.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, errors.Wrapf(err, "make bucket %q", opt.Bucket)
		}
	}

	return NewMinioStoreWithClient(cli, opt.Bucket, opt.Prefix), nil
}

// NewMinioStoreWithClient wraps an existing client.
func NewMinioStoreWithClient(cli *minio.Client, bucket, prefix string) *MinioStore {
	return &MinioStore{
		cli:    cli,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

// objectKey generates a fresh key, keeping the original extension for content sniffing.
func (s *MinioStore) objectKey(name string) string {
	key := uuid.NewString()
	if idx := strings.LastIndex(name, "."); idx >= 0 && idx < len(name)-1 {
		key += strings.ToLower(name[idx:])
	}
	if s.prefix == "" {
		return key
	}
	return fmt.Sprintf("%s/%s", s.prefix, key)
}

// Put uploads size bytes from r and returns the generated id with the size the store reports.
func (s *MinioStore) Put(ctx context.Context, name, contentType string, r io.Reader, size int64) (Object, error) {
	objkey := s.objectKey(name)
	info, err := s.cli.PutObject(ctx, s.bucket, objkey, r, size,
		minio.PutObjectOptions{
			ContentType: contentType,
		},
	)
	if err != nil {
		return Object{}, errors.Wrapf(err, "put object %q", objkey)
	}

	return Object{
		ID:           objkey,
		Size:         info.Size,
		LastModified: info.LastModified,
	}, nil
}

// Delete removes the object, returning ErrNotFound when it is already gone.
func (s *MinioStore) Delete(ctx context.Context, id string) error {
	if _, err := s.cli.StatObject(ctx, s.bucket, id, minio.StatObjectOptions{}); err != nil {
		if isNoSuchKey(err) {
			return errors.Wrapf(ErrNotFound, "object %q", id)
		}
		return errors.Wrapf(err, "stat object %q", id)
	}

	if err := s.cli.RemoveObject(ctx, s.bucket, id, minio.RemoveObjectOptions{}); err != nil {
		return errors.Wrapf(err, "remove object %q", id)
	}
	return nil
}

// List calls fn for every object under the prefix until fn returns an error.
func (s *MinioStore) List(ctx context.Context, fn func(Object) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	opts := minio.ListObjectsOptions{Recursive: true}
	if s.prefix != "" {
		opts.Prefix = s.prefix + "/"
	}
	for obj := range s.cli.ListObjects(ctx, s.bucket, opts) {
		if obj.Err != nil {
			return errors.Wrap(obj.Err, "list objects")
		}
		if err := fn(Object{ID: obj.Key, Size: obj.Size, LastModified: obj.LastModified}); err != nil {
			return errors.WithStack(err)
		}
	}

	return nil
}

func isNoSuchKey(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == 404
}
