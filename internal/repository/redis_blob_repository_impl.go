package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	domainRepo "clinic-calendar/internal/domain/repository"

	"github.com/redis/go-redis/v9"
)

const redisUpdatedAtSuffix = ":updated_at"

type redisBlobRepository struct {
	client *redis.Client
}

func NewRedisBlobRepository(client *redis.Client) domainRepo.BlobRepository {
	return &redisBlobRepository{client: client}
}

func (r *redisBlobRepository) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domainRepo.ErrBlobNotFound
		}
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return data, nil
}

// Set writes the value and its modification time in one transaction
func (r *redisBlobRepository) Set(ctx context.Context, key string, value []byte) error {
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, key, value, 0)
	pipe.Set(ctx, key+redisUpdatedAtSuffix, time.Now().UTC().Format(time.RFC3339), 0)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}
