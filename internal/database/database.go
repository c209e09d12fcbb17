// Coterie - Community Capacity Management and Content Curation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coterie

// Package database provides the DuckDB-backed persistent store for Coterie:
// member capacity records, activity scores, the waitlist, the append-only
// rotation log, community snapshots, and the highlight set.
//
// Multi-step side effects (eviction, reactivation, highlight replacement) are
// single transactions so that readers never observe a half-applied state and
// reruns after a crash remain idempotent.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tomtom215/coterie/internal/config"
	"github.com/tomtom215/coterie/internal/logging"
)

// ErrNotFound is returned by point queries when no row matches.
var ErrNotFound = errors.New("not found")

// defaultQueryTimeout bounds queries whose caller context has no deadline.
const defaultQueryTimeout = 30 * time.Second

// DB wraps the DuckDB connection and provides data access methods.
type DB struct {
	conn *sql.DB
	cfg  *config.DatabaseConfig
}

// New creates a new database connection and initializes the schema.
func New(cfg *config.DatabaseConfig) (*DB, error) {
	numThreads := cfg.Threads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}

	// Ensure the parent directory exists for file-backed databases.
	if dbDir := filepath.Dir(cfg.Path); dbDir != "" && dbDir != "." {
		if err := os.MkdirAll(dbDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dbDir, err)
		}
	}

	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s",
		cfg.Path, numThreads, cfg.MaxMemory)

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	maxConns := cfg.MaxOpenConns
	if maxConns <= 0 {
		maxConns = 8
	}
	conn.SetMaxOpenConns(maxConns)
	conn.SetMaxIdleConns(maxConns)
	conn.SetConnMaxLifetime(time.Hour)

	db := &DB{conn: conn, cfg: cfg}

	if err := db.initialize(); err != nil {
		if closeErr := conn.Close(); closeErr != nil {
			logging.Warn().Err(closeErr).Msg("Failed to close database after init error")
		}
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	logging.Info().
		Str("path", cfg.Path).
		Int("threads", numThreads).
		Int("max_conns", maxConns).
		Msg("Database initialized")

	return db, nil
}

// NewInMemory creates an in-memory database for tests.
func NewInMemory() (*DB, error) {
	conn, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory database: %w", err)
	}
	// DuckDB in-memory databases are per-connection; keep a single one so
	// every query sees the same catalog.
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn, cfg: &config.DatabaseConfig{}}
	if err := db.initialize(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to initialize in-memory database: %w", err)
	}
	return db, nil
}

// Close closes the underlying connection.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}
	return db.conn.Close()
}

// Ping verifies the connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	return db.conn.PingContext(ctx)
}

// ensureContext guarantees a deadline on database operations.
func (db *DB) ensureContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		return context.WithTimeout(context.Background(), defaultQueryTimeout)
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		return context.WithTimeout(ctx, defaultQueryTimeout)
	}
	return ctx, func() {}
}

// withTx runs fn inside a transaction, rolling back on error.
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logging.Warn().Err(rbErr).Msg("Transaction rollback failed")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
