package repository_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"clinic-calendar/internal/domain/entity"
	domainRepo "clinic-calendar/internal/domain/repository"
	"clinic-calendar/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// exerciseBlobRepository runs the contract every backend must satisfy
func exerciseBlobRepository(t *testing.T, repo domainRepo.BlobRepository, key string) {
	t.Helper()
	ctx := context.Background()

	if _, err := repo.Get(ctx, key); !errors.Is(err, domainRepo.ErrBlobNotFound) {
		t.Fatalf("Expected ErrBlobNotFound for empty key, got %v", err)
	}

	first := []byte(`{"version":1,"appointments":[]}`)
	if err := repo.Set(ctx, key, first); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := repo.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != string(first) {
		t.Errorf("Expected %s, got %s", first, got)
	}

	// last write wins
	second := []byte(`[]`)
	if err := repo.Set(ctx, key, second); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	got, err = repo.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get after overwrite: %v", err)
	}
	if string(got) != string(second) {
		t.Errorf("Expected overwrite %s, got %s", second, got)
	}
}

func TestMemoryBlobRepository(t *testing.T) {
	exerciseBlobRepository(t, repository.NewMemoryBlobRepository(), "appointments")
}

func TestMemoryBlobRepositoryCopiesValues(t *testing.T) {
	repo := repository.NewMemoryBlobRepository()
	ctx := context.Background()

	value := []byte("abc")
	if err := repo.Set(ctx, "k", value); err != nil {
		t.Fatal(err)
	}
	value[0] = 'x'

	got, _ := repo.Get(ctx, "k")
	if string(got) != "abc" {
		t.Errorf("Stored value changed through caller's slice: %s", got)
	}
}

func TestRedisBlobRepository(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	exerciseBlobRepository(t, repository.NewRedisBlobRepository(client), "appointments")

	if !mr.Exists("appointments:updated_at") {
		t.Error("Expected updated_at companion key to be written")
	}
}

func TestRedisBlobRepositoryUnavailable(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatal(err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { client.Close() })
	mr.Close()

	repo := repository.NewRedisBlobRepository(client)
	_, err = repo.Get(context.Background(), "appointments")
	if err == nil || errors.Is(err, domainRepo.ErrBlobNotFound) {
		t.Errorf("Expected connection error, got %v", err)
	}
	if err := repo.Set(context.Background(), "appointments", []byte("[]")); err == nil {
		t.Error("Expected Set to fail when redis is down")
	}
}

func TestPostgresBlobRepository(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("db: %v", err)
	}
	if err := db.AutoMigrate(&entity.Blob{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	key := fmt.Sprintf("test-appointments-%d", time.Now().UnixNano())
	t.Cleanup(func() { db.Where("key = ?", key).Delete(&entity.Blob{}) })

	exerciseBlobRepository(t, repository.NewPostgresBlobRepository(db), key)
}
