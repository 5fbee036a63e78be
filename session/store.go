package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/urcuisine/urcuisine/storage"
)

const (
	storeBucket        = "client"
	validityRecordType = "SESSION"
	validityRecordID   = "validity"
	validityRecordVer  = 1

	// DefaultHorizon is how long a successful login or signup is trusted
	// locally before the client stops attempting remote validation.
	DefaultHorizon = 72 * time.Hour
)

// Validity is the persisted cache of the last known authentication state.
type Validity struct {
	Valid     bool      `json:"valid"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Store persists the single validity record in a storage.Repository.
// It holds no business logic; Manager decides when to write.
type Store struct {
	repo storage.Repository
	now  func() time.Time
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithStoreClock sets the time source used to compute and check expiry.
func WithStoreClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore returns a Store backed by repo.
func NewStore(repo storage.Repository, opts ...StoreOption) *Store {
	s := &Store{repo: repo, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WriteValidity persists {valid, now+horizon}. A zero horizon expires the
// record immediately.
func (s *Store) WriteValidity(valid bool, horizon time.Duration) error {
	data, err := json.Marshal(Validity{Valid: valid, ExpiresAt: s.now().Add(horizon).UTC()})
	if err != nil {
		return err
	}
	rec := &storage.Record{Ver: validityRecordVer, Data: data, UpdatedAt: s.now().UTC()}
	if err := s.repo.Put(storeBucket, validityRecordType, validityRecordID, rec); err != nil {
		return fmt.Errorf("writing validity record: %w", err)
	}
	return nil
}

// ReadValidity returns the stored record. ok is false when none was ever written.
func (s *Store) ReadValidity() (v Validity, ok bool, err error) {
	rec, err := s.repo.Get(storeBucket, validityRecordType, validityRecordID)
	if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrBucketNotFound) {
		return Validity{}, false, nil
	}
	if err != nil {
		return Validity{}, false, fmt.Errorf("reading validity record: %w", err)
	}
	if rec.Ver != validityRecordVer {
		return Validity{}, false, fmt.Errorf("unsupported validity record version: %d", rec.Ver)
	}
	if err := json.Unmarshal(rec.Data, &v); err != nil {
		return Validity{}, false, fmt.Errorf("decoding validity record: %w", err)
	}
	return v, true, nil
}

// IsCurrentlyValid reports whether a record exists, is flagged valid and has
// not expired. It never touches the network. Unreadable records count as invalid.
func (s *Store) IsCurrentlyValid() bool {
	v, ok, err := s.ReadValidity()
	if err != nil || !ok {
		return false
	}
	return v.Valid && !s.now().After(v.ExpiresAt)
}
