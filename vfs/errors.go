// Copyright (C) 2019-2026, Nodekit Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package vfs

import "errors"

// Error taxonomy for VFS operations (§7).
var (
	ErrNoCap       = errors.New("vfs: missing capability")
	ErrNotFound    = errors.New("vfs: not found")
	ErrEmptyEntry  = errors.New("vfs: zip entry is empty")
	ErrNotOpen     = errors.New("vfs: file handle not open")
)
