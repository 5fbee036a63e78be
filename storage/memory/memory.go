// Package memory provides a thread-safe in-memory implementation of storage.Repository.
package memory

import (
	"strings"
	"sync"

	"github.com/urcuisine/urcuisine/storage"
)

// Repository is a thread-safe in-memory implementation of storage.Repository.
// Suitable for testing and for clients that do not need state to survive a restart.
type Repository struct {
	mu   sync.RWMutex
	data map[string]map[string]*storage.Record
}

var _ storage.Repository = (*Repository)(nil)

// NewRepository creates a new empty in-memory Repository.
func NewRepository() *Repository {
	return &Repository{data: make(map[string]map[string]*storage.Record)}
}

func makeKey(recordType, recordID string) string {
	return recordType + ":" + recordID
}

func (r *Repository) Put(bucket, recordType, recordID string, record *storage.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[bucket]; !ok {
		r.data[bucket] = make(map[string]*storage.Record)
	}
	r.data[bucket][makeKey(recordType, recordID)] = record.Clone()
	return nil
}

func (r *Repository) Get(bucket, recordType, recordID string) (*storage.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bucketData, ok := r.data[bucket]
	if !ok {
		return nil, storage.ErrBucketNotFound
	}
	rec, ok := bucketData[makeKey(recordType, recordID)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return rec.Clone(), nil
}

func (r *Repository) Delete(bucket, recordType, recordID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	bucketData, ok := r.data[bucket]
	if !ok {
		return storage.ErrBucketNotFound
	}
	k := makeKey(recordType, recordID)
	if _, ok := bucketData[k]; !ok {
		return storage.ErrNotFound
	}
	delete(bucketData, k)
	return nil
}

func (r *Repository) List(bucket, recordType string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ids []string
	prefix := recordType + ":"
	for k := range r.data[bucket] {
		if id, ok := strings.CutPrefix(k, prefix); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
