// Package bolt stores tree nodes and checkpoints in a bbolt database.
package bolt

import (
	"context"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	nodesBucket   = []byte("nodes")
	metaBucket    = []byte("meta")
	checkpointKey = []byte("checkpoint")
)

// Persist implements the mast.Backend interface on a bbolt database
// file. Node writes from concurrent flush workers are coalesced with
// DB.Batch.
type Persist struct {
	db *bolt.DB
}

// Open opens or creates the database file at path.
func Open(path string) (*Persist, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt store at %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{nodesBucket, metaBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure buckets exist: %w", err)
	}
	return &Persist{db: db}, nil
}

// Load returns a copy of the named node.
func (p *Persist) Load(ctx context.Context, name string) ([]byte, error) {
	var b []byte
	err := p.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(nodesBucket).Get([]byte(name))
		if v == nil {
			return fmt.Errorf("node %s not found", name)
		}
		// v is only valid for the life of the transaction
		b = append([]byte{}, v...)
		return nil
	})
	return b, err
}

// Store persists the named node if it isn't present already.
func (p *Persist) Store(ctx context.Context, name string, b []byte) error {
	return p.db.Batch(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(nodesBucket)
		if bucket.Get([]byte(name)) != nil {
			return nil
		}
		return bucket.Put([]byte(name), b)
	})
}

// StoreCheckpoint replaces the checkpoint in its own transaction.
func (p *Persist) StoreCheckpoint(ctx context.Context, b []byte) error {
	return p.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(metaBucket).Put(checkpointKey, b)
	})
}

// LoadCheckpoint returns the checkpoint, or nil if none was stored.
func (p *Persist) LoadCheckpoint(ctx context.Context) ([]byte, error) {
	var b []byte
	err := p.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(metaBucket).Get(checkpointKey); v != nil {
			b = append([]byte{}, v...)
		}
		return nil
	})
	return b, err
}

// Close closes the database.
func (p *Persist) Close() error {
	return p.db.Close()
}
