// Package storage provides the storage abstraction for durable client state.
package storage

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrBucketNotFound is returned when the bucket holding a record has never been written.
	ErrBucketNotFound = errors.New("bucket not found")
)

// Record is a single stored value. Data is opaque to the repository.
type Record struct {
	Ver       int       `json:"ver"`
	Data      []byte    `json:"data"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy of r.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	return &Record{
		Ver:       r.Ver,
		Data:      append([]byte(nil), r.Data...),
		UpdatedAt: r.UpdatedAt,
	}
}

// Repository defines the interface for durable record storage. Records are
// addressed by bucket, record type and record ID.
type Repository interface {
	Put(bucket string, recordType string, recordID string, record *Record) error
	Get(bucket string, recordType string, recordID string) (*Record, error)
	Delete(bucket string, recordType string, recordID string) error
	List(bucket string, recordType string) ([]string, error)
}
