// Package merk adapts a mast.Tree to the store capabilities, adding a
// write buffer and the consensus operations: commit at a height,
// report the height and root hash, and answer queries with proofs.
//
// Writes are buffered until Flush or Commit, and reads see them
// immediately. Iteration, RootHash and Query see only what has been
// applied to the tree.
package merk

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/jrhy/merkstore/encoding"
	"github.com/jrhy/merkstore/mast"
	"github.com/jrhy/merkstore/store"
	"go.uber.org/zap"
)

// HeightKey is the aux key under which Commit records the height.
const HeightKey = "height"

// ErrHeightNotIncreasing is returned by Commit, when the store was
// created WithIncreasingHeights, for a height not above the last
// committed one.
var ErrHeightNotIncreasing = errors.New("merk: commit height not increasing")

var _ store.Store = (*Store)(nil)

// pending is a buffered write; a nil value is a delete.
type pending struct {
	value []byte
}

// Store is an authenticated store over a mast.Tree. It is not safe for
// concurrent use.
type Store struct {
	ctx        context.Context
	tree       *mast.Tree
	buffer     *treemap.Map
	log        *zap.Logger
	increasing bool
	// height of the last durable commit, if any
	committed    uint64
	hasCommitted bool
}

// Option configures a Store created by New.
type Option func(*Store)

// WithLogger sets the logger. The default discards everything.
func WithLogger(log *zap.Logger) Option {
	return func(s *Store) {
		s.log = log
	}
}

// WithContext sets the context passed to the tree and its backend.
func WithContext(ctx context.Context) Option {
	return func(s *Store) {
		s.ctx = ctx
	}
}

// WithIncreasingHeights makes Commit reject heights that are not
// greater than the last committed height.
func WithIncreasingHeights() Option {
	return func(s *Store) {
		s.increasing = true
	}
}

// New returns a Store over tree.
func New(tree *mast.Tree, opts ...Option) (*Store, error) {
	s := &Store{
		ctx:  context.Background(),
		tree: tree,
		buffer: treemap.NewWith(func(a, b interface{}) int {
			return bytes.Compare(a.([]byte), b.([]byte))
		}),
		log: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	h, found, err := s.auxHeight()
	if err != nil {
		return nil, err
	}
	s.committed, s.hasCommitted = h, found
	return s, nil
}

// Tree returns the underlying tree.
func (s *Store) Tree() *mast.Tree {
	return s.tree
}

// Get returns the buffered value for key if there is one, and otherwise
// the value in the tree.
func (s *Store) Get(key []byte) ([]byte, bool, error) {
	if p, ok := s.buffer.Get(key); ok {
		v := p.(pending).value
		if v == nil {
			return nil, false, nil
		}
		return append([]byte{}, v...), true, nil
	}
	v, found, err := s.tree.Get(s.ctx, key)
	if err != nil {
		return nil, false, &store.StorageError{Op: "get", Err: err}
	}
	return v, found, nil
}

func (s *Store) Put(key, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	s.buffer.Put(append([]byte{}, key...), pending{append([]byte{}, value...)})
	return nil
}

func (s *Store) Delete(key []byte) error {
	s.buffer.Put(append([]byte{}, key...), pending{})
	return nil
}

// Pending returns the number of buffered writes.
func (s *Store) Pending() int {
	return s.buffer.Size()
}

// IterFrom iterates over a snapshot of the tree, ignoring buffered
// writes.
func (s *Store) IterFrom(start []byte) store.Iterator {
	return s.tree.Iterator(s.ctx, start)
}

func (s *Store) batch() []mast.BatchEntry {
	batch := make([]mast.BatchEntry, 0, s.buffer.Size())
	it := s.buffer.Iterator()
	for it.Next() {
		e := mast.BatchEntry{Key: it.Key().([]byte), Op: mast.Delete}
		if v := it.Value().(pending).value; v != nil {
			e.Op, e.Value = mast.Put, v
		}
		batch = append(batch, e)
	}
	return batch
}

// Flush applies the buffered writes to the tree as one batch. The tree
// is not made durable; see Commit. The buffer is kept if the batch
// fails.
func (s *Store) Flush() error {
	if s.buffer.Empty() {
		return nil
	}
	batch := s.batch()
	if err := s.tree.Apply(s.ctx, batch, nil); err != nil {
		return &store.StorageError{Op: "flush", Err: err}
	}
	s.buffer.Clear()
	s.log.Debug("flushed", zap.Int("writes", len(batch)))
	return nil
}

// Commit applies the buffered writes together with the new height,
// then persists the tree. If anything fails the tree is left at the
// last commit, the buffer is kept, and Commit can be retried.
func (s *Store) Commit(height uint64) error {
	if s.hasCommitted && height <= s.committed {
		if s.increasing {
			return fmt.Errorf("%w: %d after %d", ErrHeightNotIncreasing, height, s.committed)
		}
		s.log.Warn("commit height not increasing",
			zap.Uint64("height", height),
			zap.Uint64("previous", s.committed))
	}
	h, err := encoding.Uint64{}.Encode(height)
	if err != nil {
		return err
	}
	batch := s.batch()
	aux := []mast.BatchEntry{{Key: []byte(HeightKey), Op: mast.Put, Value: h}}
	if err := s.tree.Commit(s.ctx, batch, aux); err != nil {
		return &store.StorageError{Op: "commit", Err: err}
	}
	s.buffer.Clear()
	s.committed, s.hasCommitted = height, true
	s.log.Debug("committed",
		zap.Uint64("height", height),
		zap.Int("writes", len(batch)),
		zap.Uint64("size", s.tree.Size()))
	return nil
}

// Height returns the height of the last commit, or 0 if there has
// been none.
func (s *Store) Height() (uint64, error) {
	h, _, err := s.auxHeight()
	return h, err
}

func (s *Store) auxHeight() (uint64, bool, error) {
	b, found := s.tree.GetAux([]byte(HeightKey))
	if !found {
		return 0, false, nil
	}
	h, err := encoding.Uint64{}.Decode(b)
	if err != nil {
		return 0, false, fmt.Errorf("aux %s: %w", HeightKey, err)
	}
	return h, true, nil
}

// RootHash returns the tree's root hash, which does not cover buffered
// writes.
func (s *Store) RootHash() ([]byte, error) {
	h, err := s.tree.RootHash()
	if err != nil {
		return nil, &store.StorageError{Op: "root hash", Err: err}
	}
	return h, nil
}

// Query returns the root hash followed by a proof of key's value, or
// of its absence, in the tree.
func (s *Store) Query(key []byte) ([]byte, error) {
	root, err := s.RootHash()
	if err != nil {
		return nil, err
	}
	proof, err := s.tree.Prove(s.ctx, [][]byte{key})
	if err != nil {
		return nil, &store.StorageError{Op: "query", Err: err}
	}
	return append(root, proof...), nil
}

// VerifyQuery checks a Query response for key against a trusted root
// hash and returns the proven value, or false if key is proven absent.
func VerifyQuery(rootHash, response, key []byte) ([]byte, bool, error) {
	if len(response) < mast.HashSize {
		return nil, false, fmt.Errorf("%w: response shorter than a hash", mast.ErrInvalidProof)
	}
	if !bytes.Equal(rootHash, response[:mast.HashSize]) {
		return nil, false, fmt.Errorf("%w: root hash mismatch", mast.ErrInvalidProof)
	}
	return mast.VerifyProof(rootHash, response[mast.HashSize:], key)
}
