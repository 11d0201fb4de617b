// Copyright (C) 2019-2026, Nodekit Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package vfs

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/nodekit-os/kernel/id"
)

// AddZip extracts a zip archive's file entries under path within drive,
// creating directories as needed. Any file entry with zero uncompressed
// bytes is rejected with ErrEmptyEntry (§4.7).
func (s *Service) AddZip(ctx context.Context, by id.ProcessId, drive id.Drive, path string, zipBytes []byte) error {
	done, err := s.writeOp(ctx, by, drive, "AddZip")
	defer done()
	if err != nil {
		return err
	}
	return s.extractZip(drive, path, zipBytes)
}

// AddZipBytes is AddZip without the per-call capability check, for use by
// the bootstrap sequence (which runs as the kernel, already privileged)
// before any process-level caps exist. It still serializes via the
// per-source FIFO so it cannot race a concurrent AddZip by the same
// source.
func (s *Service) AddZipBytes(ctx context.Context, by id.ProcessId, drive id.Drive, path string, zipBytes []byte) error {
	start := time.Now()
	unlock := s.lockSource(by)
	defer func() { unlock(); s.observe("AddZip", start) }()
	return s.extractZip(drive, path, zipBytes)
}

func (s *Service) extractZip(drive id.Drive, path string, zipBytes []byte) error {
	base, err := s.resolve(drive, path)
	if err != nil {
		return err
	}
	zr, err := zip.NewReader(bytes.NewReader(zipBytes), int64(len(zipBytes)))
	if err != nil {
		return err
	}
	for _, zf := range zr.File {
		if zf.FileInfo().IsDir() {
			if err := os.MkdirAll(filepath.Join(base, zf.Name), 0o755); err != nil {
				return err
			}
			continue
		}
		if zf.UncompressedSize64 == 0 {
			return ErrEmptyEntry
		}
		dest := filepath.Join(base, zf.Name)
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}
		rc, err := zf.Open()
		if err != nil {
			return err
		}
		out, err := os.Create(dest)
		if err != nil {
			rc.Close()
			return err
		}
		_, err = io.Copy(out, rc)
		rc.Close()
		out.Close()
		if err != nil {
			return err
		}
	}
	return nil
}
