// Mercatus - Content-Based Product Recommendation Service
// Copyright 2026 Mercatus Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mercatus-labs/mercatus

// Package storage persists fitted model snapshots.
//
// A snapshot is stored as a single artifact at a configured path: a
// gob-encoded envelope carrying a schema version tag, metadata, and the
// gzip-compressed model state with a SHA-256 checksum. The schema tag
// distinguishes structurally incompatible snapshots from merely stale
// ones; anything unreadable, corrupt, or written by a different schema
// loads as "absent" and triggers retraining rather than a hard failure.
package storage

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mercatus-labs/mercatus/internal/recommend"
)

// SchemaVersion identifies the on-disk snapshot layout. Bump it whenever
// snapshotState changes incompatibly; older files then load as absent.
const SchemaVersion = 1

// Metadata describes a stored snapshot.
type Metadata struct {
	// SavedAt is when the snapshot was written.
	SavedAt time.Time

	// ModelVersion is the engine's fit counter at save time.
	ModelVersion int

	// ItemCount is the number of items in the snapshot.
	ItemCount int

	// VocabularySize is the number of vocabulary terms.
	VocabularySize int

	// Checksum is the SHA-256 of the uncompressed model state.
	Checksum string

	// SizeBytes is the compressed state size.
	SizeBytes int64
}

// snapshotState is the serializable model state.
type snapshotState struct {
	Items      []recommend.Item
	Terms      []string
	Rows       [][]float64
	Similarity [][]float64
	Version    int
	TrainedAt  time.Time
}

// storedFile is the on-disk envelope.
type storedFile struct {
	SchemaVersion  int
	Metadata       Metadata
	CompressedData []byte
}

// Store reads and writes the snapshot artifact at a fixed path.
// All operations are safe for concurrent use.
type Store struct {
	path   string
	logger zerolog.Logger
	mu     sync.Mutex
}

// NewStore creates a snapshot store. The parent directory is created if
// it does not exist.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewStore(path string, logger zerolog.Logger) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("snapshot path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create snapshot directory: %w", err)
		}
	}
	return &Store{
		path:   path,
		logger: logger.With().Str("component", "modelstore").Logger(),
	}, nil
}

// Save writes the snapshot atomically: the envelope goes to a temp file
// in the same directory and is renamed over the target.
func (s *Store) Save(ctx context.Context, snap *recommend.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	state := snapshotState{
		Items:      snap.Items,
		Terms:      snap.Space.Terms,
		Rows:       snap.Space.Rows,
		Similarity: snap.Similarity,
		Version:    snap.Version,
		TrainedAt:  snap.TrainedAt,
	}

	var raw bytes.Buffer
	if err := gob.NewEncoder(&raw).Encode(state); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	hash := sha256.Sum256(raw.Bytes())

	var compressed bytes.Buffer
	gzw := gzip.NewWriter(&compressed)
	if _, err := gzw.Write(raw.Bytes()); err != nil {
		return fmt.Errorf("compress snapshot: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return fmt.Errorf("finalize compression: %w", err)
	}

	sf := storedFile{
		SchemaVersion: SchemaVersion,
		Metadata: Metadata{
			SavedAt:        time.Now(),
			ModelVersion:   snap.Version,
			ItemCount:      len(snap.Items),
			VocabularySize: len(snap.Space.Terms),
			Checksum:       hex.EncodeToString(hash[:]),
			SizeBytes:      int64(compressed.Len()),
		},
		CompressedData: compressed.Bytes(),
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".snapshot-*")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()

	if err := gob.NewEncoder(tmp).Encode(sf); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("publish snapshot: %w", err)
	}

	s.logger.Debug().
		Str("path", s.path).
		Int("items", sf.Metadata.ItemCount).
		Int64("size_bytes", sf.Metadata.SizeBytes).
		Msg("snapshot saved")

	return nil
}

// Load restores the stored snapshot. It reports absent - never an error -
// when no file exists or the file is unreadable, corrupt, or written by
// an incompatible schema; callers treat absent as "must retrain".
func (s *Store) Load(ctx context.Context) (*recommend.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ctx.Err() != nil {
		return nil, false
	}

	f, err := os.Open(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn().Err(err).Str("path", s.path).Msg("snapshot unreadable, will retrain")
		}
		return nil, false
	}
	defer func() { _ = f.Close() }()

	var sf storedFile
	if err := gob.NewDecoder(f).Decode(&sf); err != nil {
		s.logger.Warn().Err(err).Str("path", s.path).Msg("snapshot corrupt, will retrain")
		return nil, false
	}

	if sf.SchemaVersion != SchemaVersion {
		s.logger.Warn().
			Int("found", sf.SchemaVersion).
			Int("want", SchemaVersion).
			Msg("snapshot schema mismatch, will retrain")
		return nil, false
	}

	gzr, err := gzip.NewReader(bytes.NewReader(sf.CompressedData))
	if err != nil {
		s.logger.Warn().Err(err).Msg("snapshot decompression failed, will retrain")
		return nil, false
	}
	defer func() { _ = gzr.Close() }()

	raw, err := io.ReadAll(gzr)
	if err != nil {
		s.logger.Warn().Err(err).Msg("snapshot decompression failed, will retrain")
		return nil, false
	}

	hash := sha256.Sum256(raw)
	if checksum := hex.EncodeToString(hash[:]); checksum != sf.Metadata.Checksum {
		s.logger.Warn().Msg("snapshot checksum mismatch, will retrain")
		return nil, false
	}

	var state snapshotState
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&state); err != nil {
		s.logger.Warn().Err(err).Msg("snapshot decode failed, will retrain")
		return nil, false
	}

	snap, err := rebuild(state)
	if err != nil {
		s.logger.Warn().Err(err).Msg("snapshot inconsistent, will retrain")
		return nil, false
	}

	return snap, true
}

// Metadata reads the stored envelope's metadata without decompressing the
// model state.
func (s *Store) Metadata(ctx context.Context) (Metadata, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ctx.Err() != nil {
		return Metadata{}, false
	}

	f, err := os.Open(s.path)
	if err != nil {
		return Metadata{}, false
	}
	defer func() { _ = f.Close() }()

	var sf storedFile
	if err := gob.NewDecoder(f).Decode(&sf); err != nil {
		return Metadata{}, false
	}
	return sf.Metadata, sf.SchemaVersion == SchemaVersion
}

// rebuild reconstructs an immutable snapshot from serialized state,
// re-deriving the term index and revalidating size consistency.
func rebuild(state snapshotState) (*recommend.Snapshot, error) {
	index := make(map[string]int, len(state.Terms))
	for i, term := range state.Terms {
		index[term] = i
	}

	space := &recommend.VectorSpace{
		Terms: state.Terms,
		Index: index,
		Rows:  state.Rows,
	}
	return recommend.NewSnapshot(state.Items, space, state.Similarity, state.Version, state.TrainedAt)
}

// Ensure interface compliance.
var _ recommend.ModelStore = (*Store)(nil)
