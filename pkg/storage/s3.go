package storage

import (
	"bytes"
	"context"
	"io"

	"github.com/minio/minio-go/v7"
)

// S3Storage stores blobs in an S3-compatible bucket via minio-go. It is the
// permanent tier a CachedStorage fronts when cmd/cherrysniff is given
// -s3-endpoint and archives each commit's canonical diff text off-box.
type S3Storage struct {
	cl     *minio.Client
	bucket string
}

var _ Storage = (*S3Storage)(nil)

// NewS3Storage wraps an already-configured minio client for bucket.
func NewS3Storage(cl *minio.Client, bucket string) *S3Storage {
	return &S3Storage{cl: cl, bucket: bucket}
}

func (s *S3Storage) Get(ctx context.Context, id string) ([]byte, error) {
	obj, err := s.cl.GetObject(ctx, s.bucket, id, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if len(data) == 0 {
		if _, statErr := obj.Stat(); statErr != nil {
			return nil, ErrNotFound
		}
	}
	return data, nil
}

func (s *S3Storage) Put(ctx context.Context, id string, data []byte) error {
	_, err := s.cl.PutObject(ctx, s.bucket, id,
		bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{})
	return err
}

func (s *S3Storage) Del(ctx context.Context, id string) error {
	return s.cl.RemoveObject(ctx, s.bucket, id, minio.RemoveObjectOptions{})
}
