// Package storage uploads task attachments to S3-compatible object storage.
package storage

import (
	"context"
	"errors"
	"io"
)

var ErrDisabled = errors.New("object storage is not configured")

// ObjectStore stores an object and returns the URL it can be fetched from.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
}
