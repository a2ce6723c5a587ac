package repository

import (
	"context"
	"errors"
)

// ErrBlobNotFound is returned by Get when nothing is stored under the key
var ErrBlobNotFound = errors.New("blob not found")

// BlobRepository is a key-value store holding opaque serialised documents
type BlobRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}
