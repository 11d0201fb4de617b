// Copyright (C) 2019-2026, Nodekit Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package vfs

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/nodekit-os/kernel/capability"
	"github.com/nodekit-os/kernel/id"
)

// FileInfo is the subset of os.FileInfo the Metadata operation exposes.
type FileInfo struct {
	Size  int64
	IsDir bool
}

func (s *Service) readOp(ctx context.Context, by id.ProcessId, drive id.Drive, op string) (func(), error) {
	start := time.Now()
	if err := s.checkCap(ctx, by, capability.VfsRead, drive); err != nil {
		return func() {}, err
	}
	unlock := s.lockSource(by)
	return func() { unlock(); s.observe(op, start) }, nil
}

// Read reads up to len(buf) bytes from the file's current offset.
func (s *Service) Read(ctx context.Context, by id.ProcessId, drive id.Drive, path string, buf []byte) (int, error) {
	done, err := s.readOp(ctx, by, drive, "Read")
	defer done()
	if err != nil {
		return 0, err
	}
	full, err := s.resolve(drive, path)
	if err != nil {
		return 0, err
	}
	h := s.handleFor(full)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.f == nil {
		return 0, ErrNotOpen
	}
	return h.f.Read(buf)
}

// ReadExact reads exactly n bytes, erroring on a short read.
func (s *Service) ReadExact(ctx context.Context, by id.ProcessId, drive id.Drive, path string, n int) ([]byte, error) {
	done, err := s.readOp(ctx, by, drive, "ReadExact")
	defer done()
	if err != nil {
		return nil, err
	}
	full, err := s.resolve(drive, path)
	if err != nil {
		return nil, err
	}
	h := s.handleFor(full)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.f == nil {
		return nil, ErrNotOpen
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(h.f, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadToEnd reads the remainder of the file from its current offset.
func (s *Service) ReadToEnd(ctx context.Context, by id.ProcessId, drive id.Drive, path string) ([]byte, error) {
	done, err := s.readOp(ctx, by, drive, "ReadToEnd")
	defer done()
	if err != nil {
		return nil, err
	}
	full, err := s.resolve(drive, path)
	if err != nil {
		return nil, err
	}
	h := s.handleFor(full)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.f == nil {
		return nil, ErrNotOpen
	}
	return io.ReadAll(h.f)
}

// ReadToString is ReadToEnd, requiring the bytes to be valid UTF-8 is left
// to the caller (the kernel carries bytes, not strings, end to end).
func (s *Service) ReadToString(ctx context.Context, by id.ProcessId, drive id.Drive, path string) (string, error) {
	b, err := s.ReadToEnd(ctx, by, drive, path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ReadDir lists the names of path's immediate children.
func (s *Service) ReadDir(ctx context.Context, by id.ProcessId, drive id.Drive, path string) ([]string, error) {
	done, err := s.readOp(ctx, by, drive, "ReadDir")
	defer done()
	if err != nil {
		return nil, err
	}
	full, err := s.resolve(drive, path)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(full)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	return names, nil
}

// Seek repositions the file's current offset.
func (s *Service) Seek(ctx context.Context, by id.ProcessId, drive id.Drive, path string, offset int64, whence int) (int64, error) {
	done, err := s.readOp(ctx, by, drive, "Seek")
	defer done()
	if err != nil {
		return 0, err
	}
	full, err := s.resolve(drive, path)
	if err != nil {
		return 0, err
	}
	h := s.handleFor(full)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.f == nil {
		return 0, ErrNotOpen
	}
	return h.f.Seek(offset, whence)
}

// Metadata reports path's size and whether it is a directory.
func (s *Service) Metadata(ctx context.Context, by id.ProcessId, drive id.Drive, path string) (FileInfo, error) {
	done, err := s.readOp(ctx, by, drive, "Metadata")
	defer done()
	if err != nil {
		return FileInfo{}, err
	}
	full, err := s.resolve(drive, path)
	if err != nil {
		return FileInfo{}, err
	}
	fi, err := os.Stat(full)
	if err != nil {
		return FileInfo{}, err
	}
	return FileInfo{Size: fi.Size(), IsDir: fi.IsDir()}, nil
}

// Len reports path's size in bytes.
func (s *Service) Len(ctx context.Context, by id.ProcessId, drive id.Drive, path string) (int64, error) {
	fi, err := s.Metadata(ctx, by, drive, path)
	if err != nil {
		return 0, err
	}
	return fi.Size, nil
}
