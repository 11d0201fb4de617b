// Copyright (C) 2019-2026, Nodekit Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package statestore implements the persistent state service (§4.6): a
// process with direct kernel channels backing SetState/GetState/
// DeleteState/Backup against an embedded pebble key-value engine, plus
// first-boot bootstrap from distribution zips.
package statestore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cockroachdb/pebble"

	"github.com/nodekit-os/kernel/id"
	"github.com/nodekit-os/kernel/internal/log"
)

// NotFound is returned by GetState when no value is stored under key.
var NotFound = errors.New("statestore: not found")

// Store is the durable key-value engine backing a ProcessId's private
// state blob, keyed by id.ProcessId.Hash() (§4.1, §4.6).
type Store struct {
	db  *pebble.DB
	dir string
	log log.Logger
}

// Open opens (creating if absent) the pebble database rooted at
// <home>/kernel.
func Open(home string, logger log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.NewNoOpLogger()
	}
	dir := filepath.Join(home, "kernel")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("statestore: create %s: %w", dir, err)
	}
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("statestore: open %s: %w", dir, err)
	}
	return &Store{db: db, dir: dir, log: logger.With("component", "statestore")}, nil
}

// Close releases the underlying pebble handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func key(pid id.ProcessId) []byte {
	h := pid.Hash()
	return h[:]
}

// SetState writes value under key = hash(pid), overwriting any prior value.
func (s *Store) SetState(pid id.ProcessId, value []byte) error {
	if err := s.db.Set(key(pid), value, pebble.Sync); err != nil {
		return fmt.Errorf("statestore: set %s: %w", pid, err)
	}
	return nil
}

// GetState reads the value stored under key = hash(pid). Returns NotFound
// if absent.
func (s *Store) GetState(pid id.ProcessId) ([]byte, error) {
	v, closer, err := s.db.Get(key(pid))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, NotFound
	}
	if err != nil {
		return nil, fmt.Errorf("statestore: get %s: %w", pid, err)
	}
	out := append([]byte(nil), v...)
	if cerr := closer.Close(); cerr != nil {
		return nil, fmt.Errorf("statestore: close reader for %s: %w", pid, cerr)
	}
	return out, nil
}

// DeleteState removes key = hash(pid). Idempotent: deleting an absent key
// is not an error (§9 Open Question resolution — matches pebble's own
// Delete semantics, which never distinguishes "was present").
func (s *Store) DeleteState(pid id.ProcessId) error {
	if err := s.db.Delete(key(pid), pebble.Sync); err != nil {
		return fmt.Errorf("statestore: delete %s: %w", pid, err)
	}
	return nil
}

// Backup atomically snapshots the store to <home>/kernel/checkpoint,
// overwriting any prior snapshot rather than keeping history (§4.6,
// SPEC_FULL.md supplemented feature 5).
func (s *Store) Backup() error {
	dst := filepath.Join(s.dir, "checkpoint")
	if err := os.RemoveAll(dst); err != nil {
		return fmt.Errorf("statestore: clear prior checkpoint: %w", err)
	}
	if err := s.db.Checkpoint(dst); err != nil {
		return fmt.Errorf("statestore: checkpoint: %w", err)
	}
	return nil
}
