// Package storagetest holds the behavioural suite every storage.Repository
// backend must pass.
package storagetest

import (
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/urcuisine/urcuisine/storage"
)

// RunRepositoryTests runs the common suite against any Repository implementation.
// The repository must be empty.
func RunRepositoryTests(t *testing.T, repo storage.Repository) {
	t.Helper()

	bucket := "client"
	rec := &storage.Record{Ver: 1, Data: []byte(`{"valid":true}`), UpdatedAt: time.Now().UTC().Truncate(time.Second)}

	t.Run("PutAndGet", func(t *testing.T) {
		if err := repo.Put(bucket, "SESSION", "validity", rec); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		got, err := repo.Get(bucket, "SESSION", "validity")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got.Ver != rec.Ver || string(got.Data) != string(rec.Data) || !got.UpdatedAt.Equal(rec.UpdatedAt) {
			t.Fatalf("Get returned wrong record: %+v", got)
		}
	})

	t.Run("GetReturnsCopy", func(t *testing.T) {
		got, err := repo.Get(bucket, "SESSION", "validity")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		got.Data[0] = 'X'
		again, err := repo.Get(bucket, "SESSION", "validity")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if again.Data[0] == 'X' {
			t.Fatal("repository must not share record buffers with callers")
		}
	})

	t.Run("Overwrite", func(t *testing.T) {
		next := &storage.Record{Ver: 1, Data: []byte(`{"valid":false}`)}
		if err := repo.Put(bucket, "SESSION", "validity", next); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		got, err := repo.Get(bucket, "SESSION", "validity")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if string(got.Data) != `{"valid":false}` {
			t.Fatalf("got data %q after overwrite", got.Data)
		}
	})

	t.Run("GetMissing", func(t *testing.T) {
		_, err := repo.Get("no-such-bucket", "SESSION", "validity")
		if !errors.Is(err, storage.ErrBucketNotFound) {
			t.Fatalf("expected ErrBucketNotFound, got %v", err)
		}
		_, err = repo.Get(bucket, "SESSION", "no-such-record")
		if !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("List", func(t *testing.T) {
		if err := repo.Put(bucket, "COOKIE", "a", rec); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		if err := repo.Put(bucket, "COOKIE", "b", rec); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		if err := repo.Put(bucket, "COOKIES", "c", rec); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		ids, err := repo.List(bucket, "COOKIE")
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		sort.Strings(ids)
		if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
			t.Fatalf("List returned %v, want [a b]", ids)
		}

		ids, err = repo.List("no-such-bucket", "COOKIE")
		if err != nil {
			t.Fatalf("List on missing bucket failed: %v", err)
		}
		if len(ids) != 0 {
			t.Fatalf("expected no ids for missing bucket, got %v", ids)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := repo.Delete(bucket, "COOKIE", "a"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if _, err := repo.Get(bucket, "COOKIE", "a"); !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("expected ErrNotFound after delete, got %v", err)
		}
		if err := repo.Delete(bucket, "COOKIE", "a"); !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("expected ErrNotFound deleting twice, got %v", err)
		}
		if err := repo.Delete("no-such-bucket", "COOKIE", "a"); !errors.Is(err, storage.ErrBucketNotFound) {
			t.Fatalf("expected ErrBucketNotFound, got %v", err)
		}
	})
}
