package model

import (
	"context"
	"io"
)

// Storage retains raw uploaded images outside the searchable record
// store. Records are immutable, so retained images are never deleted.
type Storage interface {
	Upload(ctx context.Context, key string, reader io.Reader) error
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	Exists(ctx context.Context, key string) (bool, error)
}
