// Copyright (C) 2019-2026, Nodekit Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package vfs

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/nodekit-os/kernel/capability"
	"github.com/nodekit-os/kernel/id"
)

func (s *Service) writeOp(ctx context.Context, by id.ProcessId, drive id.Drive, op string) (func(), error) {
	start := time.Now()
	if err := s.checkCap(ctx, by, capability.VfsWrite, drive); err != nil {
		return func() {}, err
	}
	unlock := s.lockSource(by)
	return func() { unlock(); s.observe(op, start) }, nil
}

// CreateDir creates a single directory level under drive at path.
func (s *Service) CreateDir(ctx context.Context, by id.ProcessId, drive id.Drive, path string) error {
	done, err := s.writeOp(ctx, by, drive, "CreateDir")
	defer done()
	if err != nil {
		return err
	}
	full, err := s.resolve(drive, path)
	if err != nil {
		return err
	}
	return os.Mkdir(full, 0o755)
}

// CreateDirAll creates path and any missing parents under drive.
func (s *Service) CreateDirAll(ctx context.Context, by id.ProcessId, drive id.Drive, path string) error {
	done, err := s.writeOp(ctx, by, drive, "CreateDirAll")
	defer done()
	if err != nil {
		return err
	}
	full, err := s.resolve(drive, path)
	if err != nil {
		return err
	}
	return os.MkdirAll(full, 0o755)
}

// CreateFile creates path, truncating it if it already exists, and opens
// it into the handle cache.
func (s *Service) CreateFile(ctx context.Context, by id.ProcessId, drive id.Drive, path string) error {
	done, err := s.writeOp(ctx, by, drive, "CreateFile")
	defer done()
	if err != nil {
		return err
	}
	full, err := s.resolve(drive, path)
	if err != nil {
		return err
	}
	f, err := os.Create(full)
	if err != nil {
		return err
	}
	h := s.handleFor(full)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.f != nil {
		h.f.Close()
	}
	h.f = f
	return nil
}

// OpenFile opens an existing file into the handle cache for subsequent
// read/write/seek operations.
func (s *Service) OpenFile(ctx context.Context, by id.ProcessId, drive id.Drive, path string, write bool) error {
	kind := capability.VfsRead
	if write {
		kind = capability.VfsWrite
	}
	start := time.Now()
	if err := s.checkCap(ctx, by, kind, drive); err != nil {
		return err
	}
	unlock := s.lockSource(by)
	defer func() { unlock(); s.observe("OpenFile", start) }()

	full, err := s.resolve(drive, path)
	if err != nil {
		return err
	}
	flag := os.O_RDONLY
	if write {
		flag = os.O_RDWR
	}
	f, err := os.OpenFile(full, flag, 0o644)
	if err != nil {
		return err
	}
	h := s.handleFor(full)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.f != nil {
		h.f.Close()
	}
	h.f = f
	return nil
}

// CloseFile closes and evicts path's cached handle.
func (s *Service) CloseFile(ctx context.Context, by id.ProcessId, drive id.Drive, path string) error {
	done, err := s.writeOp(ctx, by, drive, "CloseFile")
	defer done()
	if err != nil {
		return err
	}
	full, err := s.resolve(drive, path)
	if err != nil {
		return err
	}
	s.forgetHandle(full)
	return nil
}

// Write writes data at the file's current offset.
func (s *Service) Write(ctx context.Context, by id.ProcessId, drive id.Drive, path string, data []byte) error {
	done, err := s.writeOp(ctx, by, drive, "Write")
	defer done()
	if err != nil {
		return err
	}
	full, err := s.resolve(drive, path)
	if err != nil {
		return err
	}
	h := s.handleFor(full)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.f == nil {
		return ErrNotOpen
	}
	_, err = h.f.Write(data)
	return err
}

// WriteAll replaces the file's entire contents with data.
func (s *Service) WriteAll(ctx context.Context, by id.ProcessId, drive id.Drive, path string, data []byte) error {
	done, err := s.writeOp(ctx, by, drive, "WriteAll")
	defer done()
	if err != nil {
		return err
	}
	full, err := s.resolve(drive, path)
	if err != nil {
		return err
	}
	return os.WriteFile(full, data, 0o644)
}

// ReWrite seeks to 0, writes data, then truncates the file to len(data)
// (§4.7).
func (s *Service) ReWrite(ctx context.Context, by id.ProcessId, drive id.Drive, path string, data []byte) error {
	done, err := s.writeOp(ctx, by, drive, "ReWrite")
	defer done()
	if err != nil {
		return err
	}
	full, err := s.resolve(drive, path)
	if err != nil {
		return err
	}
	h := s.handleFor(full)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.f == nil {
		return ErrNotOpen
	}
	if _, err := h.f.Seek(0, 0); err != nil {
		return err
	}
	if _, err := h.f.Write(data); err != nil {
		return err
	}
	return h.f.Truncate(int64(len(data)))
}

// WriteAt writes data at the given byte offset.
func (s *Service) WriteAt(ctx context.Context, by id.ProcessId, drive id.Drive, path string, offset int64, data []byte) error {
	done, err := s.writeOp(ctx, by, drive, "WriteAt")
	defer done()
	if err != nil {
		return err
	}
	full, err := s.resolve(drive, path)
	if err != nil {
		return err
	}
	h := s.handleFor(full)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.f == nil {
		return ErrNotOpen
	}
	_, err = h.f.WriteAt(data, offset)
	return err
}

// Append writes data at the end of the file.
func (s *Service) Append(ctx context.Context, by id.ProcessId, drive id.Drive, path string, data []byte) error {
	done, err := s.writeOp(ctx, by, drive, "Append")
	defer done()
	if err != nil {
		return err
	}
	full, err := s.resolve(drive, path)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(full, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(data)
	return err
}

// SyncAll flushes path's cached handle to stable storage.
func (s *Service) SyncAll(ctx context.Context, by id.ProcessId, drive id.Drive, path string) error {
	done, err := s.writeOp(ctx, by, drive, "SyncAll")
	defer done()
	if err != nil {
		return err
	}
	full, err := s.resolve(drive, path)
	if err != nil {
		return err
	}
	h := s.handleFor(full)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.f == nil {
		return ErrNotOpen
	}
	return h.f.Sync()
}

// SetLen truncates or extends the file to exactly n bytes.
func (s *Service) SetLen(ctx context.Context, by id.ProcessId, drive id.Drive, path string, n int64) error {
	done, err := s.writeOp(ctx, by, drive, "SetLen")
	defer done()
	if err != nil {
		return err
	}
	full, err := s.resolve(drive, path)
	if err != nil {
		return err
	}
	return os.Truncate(full, n)
}

// RemoveFile removes a single file and evicts its cached handle.
func (s *Service) RemoveFile(ctx context.Context, by id.ProcessId, drive id.Drive, path string) error {
	done, err := s.writeOp(ctx, by, drive, "RemoveFile")
	defer done()
	if err != nil {
		return err
	}
	full, err := s.resolve(drive, path)
	if err != nil {
		return err
	}
	s.forgetHandle(full)
	return os.Remove(full)
}

// RemoveDir removes an empty directory.
func (s *Service) RemoveDir(ctx context.Context, by id.ProcessId, drive id.Drive, path string) error {
	done, err := s.writeOp(ctx, by, drive, "RemoveDir")
	defer done()
	if err != nil {
		return err
	}
	full, err := s.resolve(drive, path)
	if err != nil {
		return err
	}
	return os.Remove(full)
}

// RemoveDirAll recursively removes path and everything under it.
func (s *Service) RemoveDirAll(ctx context.Context, by id.ProcessId, drive id.Drive, path string) error {
	done, err := s.writeOp(ctx, by, drive, "RemoveDirAll")
	defer done()
	if err != nil {
		return err
	}
	full, err := s.resolve(drive, path)
	if err != nil {
		return err
	}
	return os.RemoveAll(full)
}

// Rename moves from to to within the same drive.
func (s *Service) Rename(ctx context.Context, by id.ProcessId, drive id.Drive, from, to string) error {
	done, err := s.writeOp(ctx, by, drive, "Rename")
	defer done()
	if err != nil {
		return err
	}
	fullFrom, err := s.resolve(drive, from)
	if err != nil {
		return err
	}
	fullTo, err := s.resolve(drive, to)
	if err != nil {
		return err
	}
	s.forgetHandle(fullFrom)
	if err := os.MkdirAll(filepath.Dir(fullTo), 0o755); err != nil {
		return err
	}
	return os.Rename(fullFrom, fullTo)
}
