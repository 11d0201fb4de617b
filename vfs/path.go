// Copyright (C) 2019-2026, Nodekit Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package vfs implements the capability-gated virtual file system service
// (§4.7): per-source FIFO serialization, a cached open-file handle table,
// and the read/write/root operation set, rooted at <home>/vfs/<drive>/...
// (§6).
package vfs

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/nodekit-os/kernel/id"
)

// ErrBadPath is returned for a path that escapes its drive, e.g. via "..".
var ErrBadPath = errors.New("vfs: path escapes drive")

// cleanPath normalizes a caller-supplied path and rejects traversal
// outside the drive root (SPEC_FULL.md supplemented feature 2a).
func cleanPath(p string) (string, error) {
	p = strings.TrimPrefix(p, "/")
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "", ErrBadPath
		}
	}
	clean := filepath.Clean("/" + p)
	if clean == "/" {
		return "", nil
	}
	return strings.TrimPrefix(clean, "/"), nil
}

func (s *Service) driveRoot(drive id.Drive) string {
	return filepath.Join(s.root, drive.String())
}

func (s *Service) resolve(drive id.Drive, path string) (string, error) {
	clean, err := cleanPath(path)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.driveRoot(drive), clean), nil
}
