// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tomtom215/vitrine/internal/config"
	"github.com/tomtom215/vitrine/internal/logging"
)

const inMemoryPath = ":memory:"

// DB is the DuckDB store behind the catalog, the interaction tables and the
// outcome log.
type DB struct {
	conn *sql.DB
	cfg  *config.DatabaseConfig

	// now stamps writes that arrive without a timestamp.
	now func() time.Time
}

// New opens the database at cfg.Path, creating its directory if needed, and
// brings the schema up to date.
func New(cfg *config.DatabaseConfig) (*DB, error) {
	if cfg == nil {
		return nil, errors.New("database config is nil")
	}
	if cfg.Path != inMemoryPath {
		if dir := filepath.Dir(cfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
	}

	conn, err := sql.Open("duckdb", dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	conn.SetMaxOpenConns(runtime.NumCPU())
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(time.Hour)
	conn.SetConnMaxIdleTime(5 * time.Minute)

	db := &DB{
		conn: conn,
		cfg:  cfg,
		now:  func() time.Time { return time.Now().UTC() },
	}

	ctx, cancel := context.WithTimeout(context.Background(), schemaTimeout)
	defer cancel()
	if err := db.initialize(ctx); err != nil {
		closeWithLog(conn, "")
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return db, nil
}

// dsn encodes the connection settings. Extension autoloading stays off
// since the schema needs none.
func dsn(cfg *config.DatabaseConfig) string {
	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	memory := cfg.MaxMemory
	if memory == "" {
		memory = "1GB"
	}
	q := url.Values{}
	q.Set("access_mode", "read_write")
	q.Set("threads", strconv.Itoa(threads))
	q.Set("max_memory", memory)
	q.Set("preserve_insertion_order", strconv.FormatBool(cfg.PreserveInsertionOrder))
	q.Set("autoinstall_known_extensions", "false")
	q.Set("autoload_known_extensions", "false")
	return cfg.Path + "?" + q.Encode()
}

func (db *DB) initialize(ctx context.Context) error {
	if err := db.execDDL(ctx, tableDDL()); err != nil {
		return err
	}
	if err := db.migrate(ctx); err != nil {
		return err
	}
	if !db.cfg.SkipIndexes {
		if err := db.CreateIndexes(ctx); err != nil {
			return err
		}
	}
	if err := db.Checkpoint(ctx); err != nil {
		logging.Warn().Err(err).Msg("Checkpoint after schema setup failed")
	}
	return nil
}

// Conn returns the underlying connection pool.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// SetClock replaces the clock used for default write timestamps.
func (db *DB) SetClock(now func() time.Time) {
	db.now = func() time.Time { return now().UTC() }
}

// Ping reports whether the database answers.
func (db *DB) Ping(ctx context.Context) error {
	if db.conn == nil {
		return errors.New("database connection is nil")
	}
	return db.conn.PingContext(ctx)
}

// Close checkpoints so the next start does not replay the WAL, then closes
// the pool.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}
	if err := db.Checkpoint(context.Background()); err != nil {
		logging.Warn().Err(err).Msg("Checkpoint before close failed")
	}
	return db.conn.Close()
}
