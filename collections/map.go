// Package collections provides typed views over a byte store.
package collections

import (
	"errors"
	"fmt"

	"github.com/jrhy/merkstore/encoding"
	"github.com/jrhy/merkstore/store"
)

// MaxKeyLength is the longest encoded key Map.Get and Map.Delete
// accept.
const MaxKeyLength = 256

// ErrKeyTooLarge is returned when an encoded key is longer than
// MaxKeyLength.
var ErrKeyTooLarge = errors.New("collections: encoded key too large")

// Map is a typed map stored in s, with keys and values converted by
// the given codecs.
type Map[K, V any] struct {
	s      store.ReadWriter
	keys   encoding.Codec[K]
	values encoding.Codec[V]
}

// NewMap returns a Map over s.
//
//	balances := collections.NewMap[uint64, uint64](sub, encoding.Uint64{}, encoding.Uint64{})
func NewMap[K, V any](s store.ReadWriter, keys encoding.Codec[K], values encoding.Codec[V]) *Map[K, V] {
	return &Map[K, V]{s: s, keys: keys, values: values}
}

// Insert sets the value of key.
func (m *Map[K, V]) Insert(key K, value V) error {
	k, err := m.keys.Encode(key)
	if err != nil {
		return fmt.Errorf("encode key: %w", err)
	}
	v, err := m.values.Encode(value)
	if err != nil {
		return fmt.Errorf("encode value: %w", err)
	}
	return m.s.Put(k, v)
}

// Get returns the value of key, and whether it is present.
func (m *Map[K, V]) Get(key K) (V, bool, error) {
	var zero V
	var scratch [MaxKeyLength]byte
	k, err := m.encodeKey(scratch[:], key)
	if err != nil {
		return zero, false, err
	}
	b, found, err := m.s.Get(k)
	if err != nil || !found {
		return zero, false, err
	}
	v, err := m.values.Decode(b)
	if err != nil {
		return zero, false, fmt.Errorf("decode value: %w", err)
	}
	return v, true, nil
}

// Delete removes key. Deleting an absent key is not an error.
func (m *Map[K, V]) Delete(key K) error {
	var scratch [MaxKeyLength]byte
	k, err := m.encodeKey(scratch[:], key)
	if err != nil {
		return err
	}
	return m.s.Delete(k)
}

func (m *Map[K, V]) encodeKey(scratch []byte, key K) ([]byte, error) {
	n, err := m.keys.EncodingLength(key)
	if err != nil {
		return nil, fmt.Errorf("encode key: %w", err)
	}
	if n > len(scratch) {
		return nil, fmt.Errorf("%w: %d bytes", ErrKeyTooLarge, n)
	}
	n, err = m.keys.EncodeInto(scratch, key)
	if err != nil {
		return nil, fmt.Errorf("encode key: %w", err)
	}
	return scratch[:n], nil
}
