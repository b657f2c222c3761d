// Package abci is the surface a consensus engine needs from the
// application's state: commit a block's writes at a height, report the
// last height and root hash, and answer proven queries.
package abci

import "fmt"

// Store is implemented by merk.Store.
type Store interface {
	// Height returns the height of the last commit, or 0.
	Height() (uint64, error)
	// RootHash returns the digest of the committed state.
	RootHash() ([]byte, error)
	// Query returns the root hash followed by a proof for key.
	Query(key []byte) ([]byte, error)
	// Commit makes pending writes durable at height.
	Commit(height uint64) error
}

// Info is what a node reports about its state on a handshake, letting
// the engine decide which blocks to replay.
type Info struct {
	Height   uint64
	RootHash []byte
}

// GetInfo reads the height and root hash of s together.
func GetInfo(s Store) (Info, error) {
	height, err := s.Height()
	if err != nil {
		return Info{}, fmt.Errorf("height: %w", err)
	}
	hash, err := s.RootHash()
	if err != nil {
		return Info{}, fmt.Errorf("root hash: %w", err)
	}
	return Info{Height: height, RootHash: hash}, nil
}

// String formats the info like "12/3f2a...".
func (i Info) String() string {
	return fmt.Sprintf("%d/%x", i.Height, i.RootHash)
}
