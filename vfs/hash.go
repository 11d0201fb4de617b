// Copyright (C) 2019-2026, Nodekit Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package vfs

import (
	"context"
	"io"
	"os"

	"github.com/zeebo/blake3"

	"github.com/nodekit-os/kernel/id"
)

// Hash returns the 32-byte BLAKE3 digest of path's bytes from offset 0,
// read fresh regardless of any cached handle's current position (§4.7).
func (s *Service) Hash(ctx context.Context, by id.ProcessId, drive id.Drive, path string) ([32]byte, error) {
	done, err := s.readOp(ctx, by, drive, "Hash")
	defer done()
	if err != nil {
		return [32]byte{}, err
	}
	full, err := s.resolve(drive, path)
	if err != nil {
		return [32]byte{}, err
	}
	f, err := os.Open(full)
	if err != nil {
		return [32]byte{}, err
	}
	defer f.Close()

	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return [32]byte{}, err
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out, nil
}
