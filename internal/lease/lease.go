// Coterie - Community Capacity Management and Content Curation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coterie

// Package lease provides a BadgerDB-backed run lease. Scheduled passes hold
// the lease for their duration so overlapping runs, whether from a slow
// previous pass or a second process pointed at the same data directory,
// never mutate member state concurrently. TTL expiry reclaims leases left
// behind by crashed runs.
package lease

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/coterie/internal/config"
)

// ErrLeaseHeld indicates another owner currently holds the lease.
var ErrLeaseHeld = errors.New("lease held by another owner")

const leaseKeyPrefix = "lease:"

// record is the stored lease state.
type record struct {
	Owner      string    `json:"owner"`
	AcquiredAt time.Time `json:"acquired_at"`
}

// Manager grants and releases named run leases.
type Manager struct {
	db     *badger.DB
	ttl    time.Duration
	logger zerolog.Logger
}

// New opens the lease store at the configured path.
func New(cfg *config.LeaseConfig, logger zerolog.Logger) (*Manager, error) {
	opts := badger.DefaultOptions(cfg.Path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open lease store: %w", err)
	}
	return newManager(db, cfg.TTL, logger), nil
}

// NewInMemory creates a lease manager without any disk state. Used in tests
// and single-process deployments that opt out of durable leasing.
func NewInMemory(ttl time.Duration, logger zerolog.Logger) (*Manager, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open in-memory lease store: %w", err)
	}
	return newManager(db, ttl, logger), nil
}

func newManager(db *badger.DB, ttl time.Duration, logger zerolog.Logger) *Manager {
	return &Manager{
		db:     db,
		ttl:    ttl,
		logger: logger.With().Str("component", "lease").Logger(),
	}
}

// Acquire takes the named lease for owner. Returns ErrLeaseHeld when a live
// lease belongs to a different owner. Re-acquiring a lease the same owner
// already holds refreshes its TTL.
func (m *Manager) Acquire(name, owner string) error {
	key := []byte(leaseKeyPrefix + name)

	err := m.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		switch {
		case err == nil:
			var current record
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &current)
			}); err != nil {
				return fmt.Errorf("decode lease: %w", err)
			}
			if current.Owner != owner {
				return ErrLeaseHeld
			}
		case errors.Is(err, badger.ErrKeyNotFound):
			// Free to take.
		default:
			return fmt.Errorf("read lease: %w", err)
		}

		data, err := json.Marshal(record{Owner: owner, AcquiredAt: time.Now().UTC()})
		if err != nil {
			return fmt.Errorf("encode lease: %w", err)
		}
		entry := badger.NewEntry(key, data).WithTTL(m.ttl)
		return txn.SetEntry(entry)
	})
	if err != nil {
		return err
	}

	m.logger.Debug().Str("lease", name).Str("owner", owner).Msg("Lease acquired")
	return nil
}

// Release frees the named lease if owner holds it. Releasing a lease held by
// someone else is an error; releasing an expired or absent lease is not.
func (m *Manager) Release(name, owner string) error {
	key := []byte(leaseKeyPrefix + name)

	return m.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read lease: %w", err)
		}

		var current record
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &current)
		}); err != nil {
			return fmt.Errorf("decode lease: %w", err)
		}
		if current.Owner != owner {
			return ErrLeaseHeld
		}
		return txn.Delete(key)
	})
}

// Close closes the underlying store.
func (m *Manager) Close() error {
	return m.db.Close()
}
