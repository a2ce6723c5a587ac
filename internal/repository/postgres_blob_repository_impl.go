package repository

import (
	"context"
	"errors"

	"clinic-calendar/internal/domain/entity"
	domainRepo "clinic-calendar/internal/domain/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type postgresBlobRepository struct {
	db *gorm.DB
}

func NewPostgresBlobRepository(db *gorm.DB) domainRepo.BlobRepository {
	return &postgresBlobRepository{db: db}
}

func (r *postgresBlobRepository) Get(ctx context.Context, key string) ([]byte, error) {
	var blob entity.Blob
	err := r.db.WithContext(ctx).Where("key = ?", key).First(&blob).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainRepo.ErrBlobNotFound
		}
		return nil, err
	}
	return []byte(blob.Value), nil
}

// Set upserts the row so the key always holds exactly one value
func (r *postgresBlobRepository) Set(ctx context.Context, key string, value []byte) error {
	blob := &entity.Blob{Key: key, Value: string(value)}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(blob).Error
}
