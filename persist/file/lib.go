package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// CheckpointName is the file holding the current checkpoint record.
const CheckpointName = "CHECKPOINT"

// Persist implements the mast.Backend interface for storing and loading
// nodes and the checkpoint from files.
type Persist struct {
	basepath string
}

// Load loads the bytes persisted in the named file.
func (p Persist) Load(ctx context.Context, name string) ([]byte, error) {
	return os.ReadFile(filepath.Join(p.basepath, name))
}

// Store persists the given bytes in a file of the given name, if it
// doesn't exist already. The file's contents are synced; its directory
// entry becomes durable at the next StoreCheckpoint.
func (p Persist) Store(ctx context.Context, name string, bytes []byte) error {
	path := filepath.Join(p.basepath, name)
	_, err := os.Stat(path)
	if os.IsNotExist(err) {
		return p.writeAtomically(path, bytes)
	}
	return err
}

// StoreCheckpoint syncs the directory, so every node stored so far is
// durable, then replaces the checkpoint file and syncs the directory
// again.
func (p Persist) StoreCheckpoint(ctx context.Context, b []byte) error {
	if err := syncDir(p.basepath); err != nil {
		return fmt.Errorf("sync nodes: %w", err)
	}
	if err := p.writeAtomically(filepath.Join(p.basepath, CheckpointName), b); err != nil {
		return err
	}
	return syncDir(p.basepath)
}

// LoadCheckpoint returns the checkpoint file's contents, or nil if
// there is no checkpoint yet.
func (p Persist) LoadCheckpoint(ctx context.Context) ([]byte, error) {
	b, err := os.ReadFile(filepath.Join(p.basepath, CheckpointName))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return b, err
}

// writeAtomically writes and syncs a uniquely-named temporary file in
// the same directory and renames it over path, so readers never see a
// partial file.
func (p Persist) writeAtomically(path string, b []byte) error {
	tmp := filepath.Join(p.basepath, fmt.Sprintf(".%s.tmp", uuid.NewString()))
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	_, err = f.Write(b)
	if err == nil {
		err = syncFile(f)
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Rename(tmp, path)
	}
	if err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// syncFile and syncDir are variables so tests can observe the order of
// syncs.
var (
	syncFile = (*os.File).Sync
	syncDir  = syncDirectory
)

func syncDirectory(path string) error {
	d, err := os.Open(path)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}

// NewPersistForPath returns a Persist that loads and stores nodes as
// files in the directory at the given path, creating it if needed.
//
//	p, err := NewPersistForPath("/var/db/state")
func NewPersistForPath(path string) (Persist, error) {
	err := os.MkdirAll(path, 0o755)
	if err != nil {
		return Persist{}, fmt.Errorf("create %s: %w", path, err)
	}
	return Persist{path}, nil
}
