// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package storage

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/vitrine/internal/recommend"
)

// Key prefixes for BadgerDB storage
const (
	metaKeyPrefix = "model:meta:"
	dataKeyPrefix = "model:data:"
)

// DefaultRetain is the number of generations kept per model name.
const DefaultRetain = 3

// Metadata describes one stored snapshot.
type Metadata struct {
	// Name is the model name (e.g. "latent", "neural").
	Name string `json:"name"`

	// Version is the caller's format version of the encoded value.
	Version int `json:"version"`

	// Generation increases by one with every save under Name.
	Generation uint64 `json:"generation"`

	// SavedAt is when the snapshot was written.
	SavedAt time.Time `json:"saved_at"`

	// Size is the compressed payload size in bytes.
	Size int64 `json:"size"`

	// Checksum is the hex SHA-256 of the uncompressed payload.
	Checksum string `json:"checksum"`
}

// Options configures Open.
type Options struct {
	// Path is the BadgerDB directory. Ignored when InMemory is set.
	Path string

	// InMemory keeps everything in memory (tests, ephemeral deployments).
	InMemory bool

	// Retain is the number of generations kept per name.
	// Default: 3.
	Retain int
}

// Store persists model snapshots in BadgerDB. It is safe for concurrent use.
type Store struct {
	db     *badger.DB
	owned  bool
	retain int
	now    func() time.Time
	logger zerolog.Logger

	// Saves are serialized so generation numbers never collide.
	saveMu sync.Mutex
}

// Open opens (or creates) a BadgerDB database and wraps it in a Store that
// closes it on Close.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func Open(opts Options, logger zerolog.Logger) (*Store, error) {
	var bopts badger.Options
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if opts.Path == "" {
			return nil, fmt.Errorf("model store path is required")
		}
		bopts = badger.DefaultOptions(opts.Path)
	}
	bopts = bopts.WithLogger(&badgerLogger{logger: logger.With().Str("component", "badger").Logger()})

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open model store: %w", err)
	}

	s := New(db, opts.Retain, logger)
	s.owned = true
	return s, nil
}

// New wraps an already open database. The caller keeps ownership of db.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func New(db *badger.DB, retain int, logger zerolog.Logger) *Store {
	if retain < 1 {
		retain = DefaultRetain
	}
	return &Store{
		db:     db,
		retain: retain,
		now:    time.Now,
		logger: logger.With().Str("component", "model_store").Logger(),
	}
}

// Close closes the database if the store opened it.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}

func generationKey(prefix, name string, gen uint64) []byte {
	return []byte(fmt.Sprintf("%s%s:%020d", prefix, name, gen))
}

func namePrefix(prefix, name string) []byte {
	return []byte(prefix + name + ":")
}

// encode gob-encodes v and gzips the result, returning the compressed bytes
// and the checksum of the uncompressed payload.
func encode(v any) (compressed []byte, checksum string, err error) {
	var raw bytes.Buffer
	if err := gob.NewEncoder(&raw).Encode(v); err != nil {
		return nil, "", fmt.Errorf("encode model: %w", err)
	}
	sum := sha256.Sum256(raw.Bytes())

	var buf bytes.Buffer
	gzw := gzip.NewWriter(&buf)
	if _, err := gzw.Write(raw.Bytes()); err != nil {
		return nil, "", fmt.Errorf("compress model: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return nil, "", fmt.Errorf("finalize compression: %w", err)
	}
	return buf.Bytes(), hex.EncodeToString(sum[:]), nil
}

func decode(compressed []byte, checksum string, v any) error {
	gzr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return fmt.Errorf("decompress model: %w", err)
	}
	defer func() { _ = gzr.Close() }() //nolint:errcheck // error on gzip close after read is not actionable

	raw, err := io.ReadAll(gzr)
	if err != nil {
		return fmt.Errorf("read decompressed data: %w", err)
	}

	sum := sha256.Sum256(raw)
	if got := hex.EncodeToString(sum[:]); got != checksum {
		return fmt.Errorf("checksum mismatch: expected %s, got %s", checksum, got)
	}

	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(v); err != nil {
		return fmt.Errorf("decode model: %w", err)
	}
	return nil
}

// Save stores v as the next generation of name and prunes generations
// beyond the retention limit.
func (s *Store) Save(ctx context.Context, name string, version int, v any) (*Metadata, error) {
	if name == "" || strings.Contains(name, ":") {
		return nil, fmt.Errorf("invalid model name %q", name)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, checksum, err := encode(v)
	if err != nil {
		return nil, err
	}

	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	meta := Metadata{
		Name:     name,
		Version:  version,
		SavedAt:  s.now().UTC(),
		Size:     int64(len(data)),
		Checksum: checksum,
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		gens, err := generations(txn, name)
		if err != nil {
			return err
		}
		if len(gens) > 0 {
			meta.Generation = gens[len(gens)-1] + 1
		} else {
			meta.Generation = 1
		}

		metaJSON, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
		if err := txn.Set(generationKey(dataKeyPrefix, name, meta.Generation), data); err != nil {
			return fmt.Errorf("set model data: %w", err)
		}
		if err := txn.Set(generationKey(metaKeyPrefix, name, meta.Generation), metaJSON); err != nil {
			return fmt.Errorf("set model metadata: %w", err)
		}

		gens = append(gens, meta.Generation)
		for _, old := range expired(gens, s.retain) {
			if err := deleteGeneration(txn, name, old); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("save model %s: %w", name, err)
	}

	s.logger.Debug().
		Str("model", name).
		Uint64("generation", meta.Generation).
		Int64("size_bytes", meta.Size).
		Msg("Model snapshot saved")
	return &meta, nil
}

// Load decodes the newest generation of name into v. It returns
// recommend.ErrSnapshotNotFound when nothing has been stored.
func (s *Store) Load(ctx context.Context, name string, v any) (*Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var meta Metadata
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		m, err := latestMetadata(txn, name)
		if err != nil {
			return err
		}
		meta = *m

		item, err := txn.Get(generationKey(dataKeyPrefix, name, meta.Generation))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: payload missing for %s generation %d", recommend.ErrSnapshotNotFound, name, meta.Generation)
		}
		if err != nil {
			return fmt.Errorf("get model data: %w", err)
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := decode(data, meta.Checksum, v); err != nil {
		return nil, fmt.Errorf("load model %s: %w", name, err)
	}
	return &meta, nil
}

// Metadata returns the newest generation's metadata without decoding the payload.
func (s *Store) Metadata(ctx context.Context, name string) (*Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var meta *Metadata
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		meta, err = latestMetadata(txn, name)
		return err
	})
	return meta, err
}

// List returns the newest metadata of every stored model, ordered by name.
func (s *Store) List(ctx context.Context) ([]Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	latest := make(map[string]Metadata)
	var names []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(metaKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var m Metadata
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &m)
			}); err != nil {
				return fmt.Errorf("decode metadata: %w", err)
			}
			if _, seen := latest[m.Name]; !seen {
				names = append(names, m.Name)
			}
			// Keys are ordered, so later generations overwrite earlier ones.
			latest[m.Name] = m
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]Metadata, 0, len(names))
	for _, name := range names {
		out = append(out, latest[name])
	}
	return out, nil
}

// Delete removes every generation of name.
func (s *Store) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	return s.db.Update(func(txn *badger.Txn) error {
		gens, err := generations(txn, name)
		if err != nil {
			return err
		}
		for _, gen := range gens {
			if err := deleteGeneration(txn, name, gen); err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveSnapshot implements algorithms.SnapshotStore.
func (s *Store) SaveSnapshot(ctx context.Context, name string, version int, v any) error {
	_, err := s.Save(ctx, name, version, v)
	return err
}

// LoadSnapshot implements algorithms.SnapshotStore.
func (s *Store) LoadSnapshot(ctx context.Context, name string, v any) (time.Time, error) {
	meta, err := s.Load(ctx, name, v)
	if err != nil {
		return time.Time{}, err
	}
	return meta.SavedAt, nil
}

// generations lists the stored generations of name in ascending order.
func generations(txn *badger.Txn, name string) ([]uint64, error) {
	prefix := namePrefix(metaKeyPrefix, name)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	var gens []uint64
	for it.Rewind(); it.Valid(); it.Next() {
		suffix := strings.TrimPrefix(string(it.Item().Key()), string(prefix))
		gen, err := strconv.ParseUint(suffix, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse generation key %q: %w", it.Item().Key(), err)
		}
		gens = append(gens, gen)
	}
	return gens, nil
}

func latestMetadata(txn *badger.Txn, name string) (*Metadata, error) {
	prefix := namePrefix(metaKeyPrefix, name)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.Reverse = true
	it := txn.NewIterator(opts)
	defer it.Close()

	it.Seek(append(append([]byte(nil), prefix...), 0xFF))
	if !it.ValidForPrefix(prefix) {
		return nil, fmt.Errorf("%w: %s", recommend.ErrSnapshotNotFound, name)
	}

	var m Metadata
	if err := it.Item().Value(func(val []byte) error {
		return json.Unmarshal(val, &m)
	}); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return &m, nil
}

func deleteGeneration(txn *badger.Txn, name string, gen uint64) error {
	if err := txn.Delete(generationKey(dataKeyPrefix, name, gen)); err != nil {
		return fmt.Errorf("delete model data: %w", err)
	}
	if err := txn.Delete(generationKey(metaKeyPrefix, name, gen)); err != nil {
		return fmt.Errorf("delete model metadata: %w", err)
	}
	return nil
}

// expired returns the generations beyond the newest retain, given gens in
// ascending order.
func expired(gens []uint64, retain int) []uint64 {
	if len(gens) <= retain {
		return nil
	}
	return gens[:len(gens)-retain]
}

// badgerLogger routes BadgerDB's printf-style logging into zerolog. Info
// is demoted to debug since badger is chatty on open and compaction.
type badgerLogger struct {
	logger zerolog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error().Msgf(strings.TrimSpace(format), args...)
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn().Msgf(strings.TrimSpace(format), args...)
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug().Msgf(strings.TrimSpace(format), args...)
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Trace().Msgf(strings.TrimSpace(format), args...)
}
