package snapshot

import (
	"context"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"
)

// S3Config describes a bucket on any S3-compatible service.
type S3Config struct {
	Access   string
	Secret   string
	Bucket   string
	Endpoint string
	Region   string
	// Insecure switches to plain http, for local test servers.
	Insecure bool
}

// S3 stores objects in an S3-compatible bucket.
type S3 struct {
	client *minio.Client
	bucket string
}

var _ Target = (*S3)(nil)

// NewS3 connects to the configured endpoint and verifies the bucket
// exists.
func NewS3(cfg *S3Config) (*S3, error) {
	if cfg == nil {
		return nil, errors.New("must provide config")
	}
	if cfg.Access == "" || cfg.Secret == "" || cfg.Bucket == "" || cfg.Endpoint == "" {
		return nil, errors.New("must provide access, secret, bucket and endpoint")
	}
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Access, cfg.Secret, ""),
		Region: cfg.Region,
		Secure: !cfg.Insecure,
	})
	if err != nil {
		return nil, err
	}
	found, err := mc.BucketExists(context.Background(), cfg.Bucket)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errors.Errorf("bucket '%s' doesn't exist", cfg.Bucket)
	}
	return &S3{client: mc, bucket: cfg.Bucket}, nil
}

func (s *S3) Put(ctx context.Context, name string, r io.Reader, size int64) error {
	opts := minio.PutObjectOptions{ContentType: "application/octet-stream"}
	_, err := s.client.PutObject(ctx, s.bucket, name, r, size, opts)
	return err
}

func (s *S3) Get(ctx context.Context, name string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	// GetObject defers the request, so a missing object would otherwise
	// only surface on the first Read
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, err
	}
	return obj, nil
}

func (s *S3) List(ctx context.Context, prefix string) ([]string, error) {
	opts := minio.ListObjectsOptions{Prefix: prefix, Recursive: true}
	var names []string
	for oi := range s.client.ListObjects(ctx, s.bucket, opts) {
		if oi.Err != nil {
			return nil, oi.Err
		}
		names = append(names, oi.Key)
	}
	return names, nil
}

func (s *S3) Delete(ctx context.Context, name string) error {
	return s.client.RemoveObject(ctx, s.bucket, name, minio.RemoveObjectOptions{})
}
