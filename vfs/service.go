// Copyright (C) 2019-2026, Nodekit Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package vfs

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/nodekit-os/kernel/capability"
	"github.com/nodekit-os/kernel/id"
	"github.com/nodekit-os/kernel/internal/log"
	"github.com/nodekit-os/kernel/internal/metrics"
)

// handle is a cached open file, guarded by its own mutex so concurrent
// operations against the same file serialize even if their sources differ
// (§4.7, §5 "VFS open-file table").
type handle struct {
	mu sync.Mutex
	f  *os.File
}

// Service is the VFS process: capability-gated, per-source FIFO, with a
// cached open-file handle table (§4.7).
type Service struct {
	root   string
	local  id.NodeId
	oracle *capability.Oracle
	log    log.Logger
	met    *metrics.Vfs

	fifoMu sync.Mutex
	fifo   map[id.ProcessId]*sync.Mutex

	handlesMu sync.RWMutex
	handles   map[string]*handle
}

// NewService opens (creating if absent) the VFS root at <home>/vfs.
func NewService(home string, local id.NodeId, oracle *capability.Oracle, logger log.Logger, met *metrics.Vfs) (*Service, error) {
	root := filepath.Join(home, "vfs")
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.NewNoOpLogger()
	}
	if met == nil {
		met = metrics.NewVfs(nil)
	}
	return &Service{
		root:    root,
		local:   local,
		oracle:  oracle,
		log:     logger.With("component", "vfs"),
		met:     met,
		fifo:    make(map[id.ProcessId]*sync.Mutex),
		handles: make(map[string]*handle),
	}, nil
}

// lockSource returns an unlock func that serializes operations issued by
// the same source process, so a single process never observes its own
// operations reordered (§4.7, §5).
func (s *Service) lockSource(by id.ProcessId) func() {
	s.fifoMu.Lock()
	m, ok := s.fifo[by]
	if !ok {
		m = &sync.Mutex{}
		s.fifo[by] = m
	}
	s.fifoMu.Unlock()
	m.Lock()
	return m.Unlock
}

func (s *Service) observe(op string, start time.Time) {
	s.met.OpDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// checkCap enforces the {kind, drive} capability requirement, with the
// same-(package,publisher)-as-drive bypass (§4.7).
func (s *Service) checkCap(ctx context.Context, by id.ProcessId, kind capability.VfsKind, drive id.Drive) error {
	if by.Drive() == drive {
		return nil
	}
	vfsAddr := id.Address{Node: s.local, Process: id.VfsProcessId}
	has, err := s.oracle.Has(ctx, by, capability.Capability{Issuer: vfsAddr, Params: capability.VfsParams(kind, drive)})
	if err != nil {
		return err
	}
	if !has {
		s.met.OpsDenied.Inc()
		return ErrNoCap
	}
	return nil
}

func (s *Service) handleFor(path string) *handle {
	s.handlesMu.Lock()
	defer s.handlesMu.Unlock()
	h, ok := s.handles[path]
	if !ok {
		h = &handle{}
		s.handles[path] = h
	}
	return h
}

func (s *Service) forgetHandle(path string) {
	s.handlesMu.Lock()
	defer s.handlesMu.Unlock()
	if h, ok := s.handles[path]; ok {
		if h.f != nil {
			h.f.Close()
		}
		delete(s.handles, path)
	}
}

// CreateDrive creates a new drive tree, requiring the {root: true}
// capability unless by already owns the drive's (package, publisher). The
// creator is auto-granted read and write caps on the new drive (§4.7).
func (s *Service) CreateDrive(ctx context.Context, by id.ProcessId, drive id.Drive) error {
	defer s.observe("CreateDrive", time.Now())
	unlock := s.lockSource(by)
	defer unlock()

	if by.Drive() != drive {
		vfsAddr := id.Address{Node: s.local, Process: id.VfsProcessId}
		has, err := s.oracle.Has(ctx, by, capability.Capability{Issuer: vfsAddr, Params: capability.VfsRootParams()})
		if err != nil {
			return err
		}
		if !has {
			s.met.OpsDenied.Inc()
			return ErrNoCap
		}
	}

	if err := os.MkdirAll(s.driveRoot(drive), 0o755); err != nil {
		return err
	}
	vfsAddr := id.Address{Node: s.local, Process: id.VfsProcessId}
	if err := s.oracle.Add(ctx, by, capability.Capability{Issuer: vfsAddr, Params: capability.VfsParams(capability.VfsRead, drive)}, [64]byte{}); err != nil {
		return err
	}
	return s.oracle.Add(ctx, by, capability.Capability{Issuer: vfsAddr, Params: capability.VfsParams(capability.VfsWrite, drive)}, [64]byte{})
}
