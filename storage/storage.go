// Package storage holds the physical byte stores used by the ingestion pipeline.
// Paths are slash-separated and relative to the backend root.
package storage

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrExist is returned by Write when the target path is already taken.
	ErrExist = errors.New("storage: object already exists")
	// ErrNotExist is returned when a path does not resolve to stored bytes.
	ErrNotExist = errors.New("storage: object does not exist")
)

// Backend is the physical storage collaborator. Write never overwrites.
type Backend interface {
	Write(ctx context.Context, path string, r io.Reader) (int64, error)
	Remove(ctx context.Context, path string) error
	Open(ctx context.Context, path string) (io.ReadCloser, error)
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// ContextReader returns a reader that fails once ctx is done.
func ContextReader(ctx context.Context, r io.Reader) io.Reader {
	return ctxReader{ctx: ctx, r: r}
}
