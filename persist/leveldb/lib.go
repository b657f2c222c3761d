// Package leveldb stores tree nodes and checkpoints in a goleveldb
// database.
package leveldb

import (
	"context"
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

var (
	prefixNode    = []byte("N:") // N:<name> -> encoded node
	keyCheckpoint = []byte("M:checkpoint")
)

// Persist implements the mast.Backend interface on a LevelDB database.
type Persist struct {
	db *leveldb.DB
}

// Open opens or creates the database directory at path.
func Open(path string) (*Persist, error) {
	db, err := leveldb.OpenFile(path, &opt.Options{
		NoSync: false,
	})
	if err != nil {
		return nil, fmt.Errorf("opening leveldb: %w", err)
	}
	return &Persist{db: db}, nil
}

func nodeKey(name string) []byte {
	return append(append([]byte{}, prefixNode...), name...)
}

// Load returns the named node.
func (p *Persist) Load(ctx context.Context, name string) ([]byte, error) {
	b, err := p.db.Get(nodeKey(name), nil)
	if err != nil {
		return nil, fmt.Errorf("getting node %s: %w", name, err)
	}
	return b, nil
}

// Store persists the named node if it isn't present already. Node
// writes are not synced individually; the synced checkpoint write that
// follows them in the log makes them durable.
func (p *Persist) Store(ctx context.Context, name string, b []byte) error {
	key := nodeKey(name)
	exists, err := p.db.Has(key, nil)
	if err != nil {
		return fmt.Errorf("checking node existence: %w", err)
	}
	if exists {
		return nil
	}
	return p.db.Put(key, b, nil)
}

// StoreCheckpoint replaces the checkpoint with a synced write.
func (p *Persist) StoreCheckpoint(ctx context.Context, b []byte) error {
	return p.db.Put(keyCheckpoint, b, &opt.WriteOptions{Sync: true})
}

// LoadCheckpoint returns the checkpoint, or nil if none was stored.
func (p *Persist) LoadCheckpoint(ctx context.Context) ([]byte, error) {
	b, err := p.db.Get(keyCheckpoint, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting checkpoint: %w", err)
	}
	return b, nil
}

// Close closes the database.
func (p *Persist) Close() error {
	return p.db.Close()
}
