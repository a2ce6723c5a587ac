package repository

import (
	"context"
	"sync"

	domainRepo "clinic-calendar/internal/domain/repository"
)

type memoryBlobRepository struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryBlobRepository keeps blobs for the lifetime of the process only
func NewMemoryBlobRepository() domainRepo.BlobRepository {
	return &memoryBlobRepository{blobs: make(map[string][]byte)}
}

func (r *memoryBlobRepository) Get(ctx context.Context, key string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	data, ok := r.blobs[key]
	if !ok {
		return nil, domainRepo.ErrBlobNotFound
	}
	return append([]byte(nil), data...), nil
}

func (r *memoryBlobRepository) Set(ctx context.Context, key string, value []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.blobs[key] = append([]byte(nil), value...)
	return nil
}
