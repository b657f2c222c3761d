package mast

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// ErrInvalidProof is returned when a proof does not authenticate a key
// against a root hash.
var ErrInvalidProof = errors.New("invalid proof")

// proofNodeField is the protobuf field number under which each encoded
// node of a proof is framed, root first.
const proofNodeField protowire.Number = 1

// Prove returns a proof of the presence or absence of each key: every
// node on the search paths for the keys, each included once.
func (m *Tree) Prove(ctx context.Context, keys [][]byte) ([]byte, error) {
	var proof []byte
	seen := map[string]bool{}
	for _, key := range keys {
		link := m.root
		for link != nil {
			node, err := m.load(ctx, link)
			if err != nil {
				return nil, fmt.Errorf("prove %x: %w", key, err)
			}
			encoded, name, err := node.encode()
			if err != nil {
				return nil, fmt.Errorf("prove %x: %w", key, err)
			}
			if !seen[name] {
				seen[name] = true
				proof = protowire.AppendTag(proof, proofNodeField, protowire.BytesType)
				proof = protowire.AppendBytes(proof, encoded)
			}
			i, found := node.search(key)
			if found {
				break
			}
			link = node.Link[i]
		}
	}
	return proof, nil
}

// VerifyProof checks a proof produced by Prove against rootHash, and
// returns the value proven for key, or false if the proof shows the key
// is absent.
func VerifyProof(rootHash, proof, key []byte) ([]byte, bool, error) {
	if len(rootHash) != HashSize {
		return nil, false, fmt.Errorf("%w: root hash has %d bytes", ErrInvalidProof, len(rootHash))
	}
	nodes := map[string]*mastNode{}
	for len(proof) > 0 {
		num, typ, n := protowire.ConsumeTag(proof)
		if n < 0 {
			return nil, false, fmt.Errorf("%w: %v", ErrInvalidProof, protowire.ParseError(n))
		}
		if num != proofNodeField || typ != protowire.BytesType {
			return nil, false, fmt.Errorf("%w: unexpected field %d", ErrInvalidProof, num)
		}
		proof = proof[n:]
		encoded, n := protowire.ConsumeBytes(proof)
		if n < 0 {
			return nil, false, fmt.Errorf("%w: %v", ErrInvalidProof, protowire.ParseError(n))
		}
		proof = proof[n:]
		node, err := decodeNode(encoded)
		if err != nil {
			return nil, false, fmt.Errorf("%w: %v", ErrInvalidProof, err)
		}
		nodes[contentName(encoded)] = node
	}
	if bytes.Equal(rootHash, make([]byte, HashSize)) {
		return nil, false, nil
	}
	link := base64.RawURLEncoding.EncodeToString(rootHash)
	for {
		node, ok := nodes[link]
		if !ok {
			return nil, false, fmt.Errorf("%w: missing node %s", ErrInvalidProof, link)
		}
		i, found := node.search(key)
		if found {
			return append([]byte{}, node.Value[i]...), true, nil
		}
		if node.Link[i] == nil {
			return nil, false, nil
		}
		link = node.Link[i].(string)
	}
}
