package store

import (
	"bytes"

	"github.com/emirpasic/gods/maps/treemap"
)

var _ Store = (*MapStore)(nil)

// MapStore is an in-memory Store whose writes apply immediately.
// Flush does nothing.
type MapStore struct {
	m *treemap.Map
}

// NewMapStore creates an empty MapStore.
func NewMapStore() *MapStore {
	return &MapStore{m: treemap.NewWith(func(a, b interface{}) int {
		return bytes.Compare(a.([]byte), b.([]byte))
	})}
}

// Get implements Reader.Get
func (m *MapStore) Get(key []byte) ([]byte, bool, error) {
	v, ok := m.m.Get(key)
	if !ok {
		return nil, false, nil
	}
	return append([]byte{}, v.([]byte)...), true, nil
}

// Put implements Writer.Put
func (m *MapStore) Put(key, value []byte) error {
	m.m.Put(append([]byte{}, key...), append([]byte{}, value...))
	return nil
}

// Delete implements Writer.Delete
func (m *MapStore) Delete(key []byte) error {
	m.m.Remove(key)
	return nil
}

// Flush implements Flusher.Flush
func (m *MapStore) Flush() error {
	return nil
}

// Len returns the number of entries.
func (m *MapStore) Len() int {
	return m.m.Size()
}

// IterFrom implements Iterable.IterFrom. The iterator finds each entry
// by seeking past the previous key, so writes between calls to Next
// are tolerated.
func (m *MapStore) IterFrom(start []byte) Iterator {
	return &mapIterator{m: m.m, seek: append([]byte{}, start...)}
}

type mapIterator struct {
	m     *treemap.Map
	seek  []byte
	key   []byte
	value []byte
	done  bool
}

func (iter *mapIterator) Next() bool {
	if iter.done {
		return false
	}
	k, v := iter.m.Ceiling(iter.seek)
	if k == nil {
		iter.done = true
		iter.key, iter.value = nil, nil
		return false
	}
	iter.key = append([]byte{}, k.([]byte)...)
	iter.value = append([]byte{}, v.([]byte)...)
	// the smallest key greater than iter.key
	iter.seek = append(append([]byte{}, iter.key...), 0)
	return true
}

func (iter *mapIterator) Key() []byte {
	return iter.key
}

func (iter *mapIterator) Value() []byte {
	return iter.value
}

func (iter *mapIterator) Error() error {
	return nil
}
