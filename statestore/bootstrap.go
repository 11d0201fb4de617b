// Copyright (C) 2019-2026, Nodekit Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package statestore

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/nodekit-os/kernel/capability"
	"github.com/nodekit-os/kernel/id"
	"github.com/nodekit-os/kernel/internal/log"
	"github.com/nodekit-os/kernel/internal/wrappers"
	"github.com/nodekit-os/kernel/process"
	"github.com/nodekit-os/kernel/record"
)

// Registrar is the subset of dispatch.Router's kernel-command surface
// Bootstrap needs; dispatch.Router satisfies it structurally, with no
// import of package dispatch required here (§4.5/§4.6 wiring).
type Registrar interface {
	InitializeProcess(ctx context.Context, pid id.ProcessId, rec record.ProcessRecord, logger log.Logger) (*process.Instance, error)
}

// VfsWriter is the subset of the VFS service Bootstrap needs to lay down
// a package's drive tree.
type VfsWriter interface {
	CreateDrive(ctx context.Context, by id.ProcessId, drive id.Drive) error
	AddZipBytes(ctx context.Context, by id.ProcessId, drive id.Drive, path string, zipBytes []byte) error
}

// packageMetadata is package.zip's metadata.json.
type packageMetadata struct {
	Package   string `json:"package"`
	Publisher string `json:"publisher"`
}

// manifestEntry is one entry of a package's manifest.json.
type manifestEntry struct {
	ProcessName      string   `json:"process_name"`
	ProcessWasmPath  string   `json:"process_wasm_path"`
	OnExit           string   `json:"on_exit"`
	RequestMessaging []string `json:"request_messaging"`
	RequestNetwork   bool     `json:"request_networking"`
	Public           bool     `json:"public"`
}

// RuntimeModule is a well-known runtime process seeded with the full
// runtime capability set at first boot (§4.6, SPEC_FULL.md supplemented
// feature 4).
type RuntimeModule struct {
	Id     id.ProcessId
	Public bool
}

// DefaultRuntimeModules returns the kernel/net/vfs/state/terminal set.
func DefaultRuntimeModules() []RuntimeModule {
	return []RuntimeModule{
		{Id: id.KernelProcessId},
		{Id: id.NetProcessId},
		{Id: id.VfsProcessId},
		{Id: id.StateProcessId},
		{Id: id.TerminalProcessId, Public: true},
	}
}

// Bootstrap runs only on first boot (no kernel record present): it seeds
// the runtime modules with the full runtime capability set, then reads
// every *.zip in targetDir as a package, extracts its files into a VFS
// drive, and registers each manifest-declared process with its requested
// capabilities (§4.6).
func Bootstrap(ctx context.Context, local id.NodeId, targetDir string, registrar Registrar, vfs VfsWriter, logger log.Logger) error {
	if logger == nil {
		logger = log.NewNoOpLogger()
	}
	kernel := id.Address{Node: local, Process: id.KernelProcessId}

	runtimeCaps := []capability.Capability{
		{Issuer: kernel, Params: capability.MessagingParams},
		{Issuer: id.Address{Node: local, Process: id.NetProcessId}, Params: capability.MessagingParams},
		{Issuer: kernel, Params: capability.NetworkParams},
		{Issuer: id.Address{Node: local, Process: id.VfsProcessId}, Params: capability.VfsRootParams()},
	}

	for _, m := range DefaultRuntimeModules() {
		_, err := registrar.InitializeProcess(ctx, m.Id, record.ProcessRecord{
			OnExit:       record.OnExit{Kind: record.OnExitRestart},
			Capabilities: runtimeCaps,
			Public:       m.Public,
		}, logger)
		if err != nil {
			return fmt.Errorf("statestore: bootstrap runtime module %s: %w", m.Id, err)
		}
	}

	entries, err := os.ReadDir(targetDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("statestore: read target dir %s: %w", targetDir, err)
	}

	var errs wrappers.Errs
	for _, de := range entries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), ".zip") {
			continue
		}
		path := filepath.Join(targetDir, de.Name())
		if err := bootstrapPackage(ctx, local, path, registrar, vfs, logger); err != nil {
			logger.Warn("bootstrap package failed", "package", de.Name(), "error", err)
			errs.Add(fmt.Errorf("package %s: %w", de.Name(), err))
		}
	}
	return errs.Err()
}

func bootstrapPackage(ctx context.Context, local id.NodeId, zipPath string, registrar Registrar, vfs VfsWriter, logger log.Logger) error {
	raw, err := os.ReadFile(zipPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", zipPath, err)
	}
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}

	meta, err := readZipJSON[packageMetadata](zr, "metadata.json")
	if err != nil {
		return fmt.Errorf("metadata.json: %w", err)
	}

	manifestBytes, err := readZipFile(zr, "manifest.json")
	if err != nil {
		return fmt.Errorf("manifest.json: %w", err)
	}
	var manifest []manifestEntry
	if err := json.Unmarshal(manifestBytes, &manifest); err != nil {
		return fmt.Errorf("parse manifest.json: %w", err)
	}

	drive := id.Drive{Package: meta.Package, Publisher: meta.Publisher}
	kernelPid := id.KernelProcessId

	if err := vfs.CreateDrive(ctx, kernelPid, drive); err != nil {
		return fmt.Errorf("create drive %s: %w", drive, err)
	}
	if err := vfs.AddZipBytes(ctx, kernelPid, drive, "/", raw); err != nil {
		return fmt.Errorf("extract package into drive %s: %w", drive, err)
	}

	for _, e := range manifest {
		pid := id.ProcessId{Name: e.ProcessName, Package: meta.Package, Publisher: meta.Publisher}

		caps := []capability.Capability{
			{Issuer: id.Address{Node: local, Process: pid}, Params: capability.MessagingParams},
		}
		for _, peer := range e.RequestMessaging {
			peerId, ok := id.DefaultAliases()[peer]
			if !ok {
				parsed, err := id.ParseProcessId(peer)
				if err != nil {
					logger.Warn("bootstrap: bad peer name in manifest", "package", meta.Package, "peer", peer, "error", err)
					continue
				}
				peerId = parsed
			}
			caps = append(caps, capability.Capability{Issuer: id.Address{Node: local, Process: peerId}, Params: capability.MessagingParams})
		}
		if e.RequestNetwork {
			caps = append(caps, capability.Capability{Issuer: id.Address{Node: local, Process: id.KernelProcessId}, Params: capability.NetworkParams})
		}
		caps = append(caps,
			capability.Capability{Issuer: id.Address{Node: local, Process: id.VfsProcessId}, Params: capability.VfsParams(capability.VfsRead, drive)},
			capability.Capability{Issuer: id.Address{Node: local, Process: id.VfsProcessId}, Params: capability.VfsParams(capability.VfsWrite, drive)},
		)

		onExit := record.OnExit{Kind: record.OnExitNone}
		if e.OnExit == "restart" {
			onExit = record.OnExit{Kind: record.OnExitRestart}
		}

		_, err := registrar.InitializeProcess(ctx, pid, record.ProcessRecord{
			WasmHandle:   "/" + drive.String() + "/" + strings.TrimPrefix(e.ProcessWasmPath, "/"),
			OnExit:       onExit,
			Capabilities: caps,
			Public:       e.Public,
		}, logger)
		if err != nil {
			return fmt.Errorf("register %s: %w", pid, err)
		}
	}
	return nil
}

func readZipFile(zr *zip.Reader, name string) ([]byte, error) {
	f, err := zr.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func readZipJSON[T any](zr *zip.Reader, name string) (T, error) {
	var out T
	raw, err := readZipFile(zr, name)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, err
	}
	return out, nil
}
