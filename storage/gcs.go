package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"greencloud/config"
)

// GCSBackend stores bytes as objects in a single bucket. Object names are the
// backend-relative paths.
type GCSBackend struct {
	client *gcs.Client
	bucket string
}

func NewGCSBackend(ctx context.Context, cfg config.GCSConfig) (*GCSBackend, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS storage client: %w", err)
	}
	return &GCSBackend{client: client, bucket: cfg.Bucket}, nil
}

func (b *GCSBackend) object(name string) *gcs.ObjectHandle {
	return b.client.Bucket(b.bucket).Object(name)
}

func (b *GCSBackend) Write(ctx context.Context, name string, r io.Reader) (int64, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := b.object(name).If(gcs.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = "application/octet-stream"

	written, err := io.Copy(w, r)
	if err != nil {
		// Canceling the writer's context aborts the upload without committing the object.
		cancel()
		_ = w.Close()
		return 0, fmt.Errorf("copy to gs://%s/%s: %w", b.bucket, name, err)
	}
	if err := mapGCSError(w.Close()); err != nil {
		if errors.Is(err, ErrExist) {
			return 0, err
		}
		return 0, fmt.Errorf("close GCS writer for %s: %w", name, err)
	}
	return written, nil
}

func (b *GCSBackend) Remove(ctx context.Context, name string) error {
	return mapGCSError(b.object(name).Delete(ctx))
}

func (b *GCSBackend) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	rd, err := b.object(name).NewReader(ctx)
	if err != nil {
		return nil, mapGCSError(err)
	}
	return rd, nil
}

// mapGCSError turns a failed DoesNotExist precondition into ErrExist and a
// missing object into ErrNotExist. Other errors pass through.
func mapGCSError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return ErrNotExist
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusPreconditionFailed:
			return ErrExist
		case http.StatusNotFound:
			return ErrNotExist
		}
	}
	return err
}

func (b *GCSBackend) Close() error {
	return b.client.Close()
}
