package store

import "fmt"

var _ Store = (*Prefixed)(nil)

// Prefixed confines all operations to the keys of an inner store that
// start with a one-byte prefix, and hides the prefix from callers.
type Prefixed struct {
	inner  Store
	prefix byte
}

// Prefix returns a view of inner restricted to keys starting with p.
// Prefixed stores nest: Prefix(Prefix(s, 1), 2) uses keys starting
// with 1, 2.
func Prefix(inner Store, p byte) *Prefixed {
	return &Prefixed{inner: inner, prefix: p}
}

// PrefixByte returns the prefix this store adds.
func (p *Prefixed) PrefixByte() byte {
	return p.prefix
}

func (p *Prefixed) key(key []byte) []byte {
	k := make([]byte, 1+len(key))
	k[0] = p.prefix
	copy(k[1:], key)
	return k
}

// Get reads prefix++key from the inner store.
func (p *Prefixed) Get(key []byte) ([]byte, bool, error) {
	return p.inner.Get(p.key(key))
}

// Put writes prefix++key to the inner store.
func (p *Prefixed) Put(key, value []byte) error {
	return p.inner.Put(p.key(key), value)
}

// Delete removes prefix++key from the inner store.
func (p *Prefixed) Delete(key []byte) error {
	return p.inner.Delete(p.key(key))
}

// Flush flushes the inner store.
func (p *Prefixed) Flush() error {
	return p.inner.Flush()
}

// IterFrom iterates over the inner store from prefix++start and stops
// at the first key outside the prefix.
func (p *Prefixed) IterFrom(start []byte) Iterator {
	return &prefixedIterator{iterator: p.inner.IterFrom(p.key(start)), prefix: p.prefix}
}

func (p *Prefixed) String() string {
	return fmt.Sprintf("Prefixed(%#02x)", p.prefix)
}

type prefixedIterator struct {
	iterator Iterator
	prefix   byte
	key      []byte
	done     bool
}

func (iter *prefixedIterator) Next() bool {
	if iter.done || !iter.iterator.Next() {
		iter.done = true
		iter.key = nil
		return false
	}
	k := iter.iterator.Key()
	if len(k) == 0 || k[0] != iter.prefix {
		iter.done = true
		iter.key = nil
		return false
	}
	// strip the prefix
	iter.key = k[1:]
	return true
}

func (iter *prefixedIterator) Key() []byte {
	return iter.key
}

func (iter *prefixedIterator) Value() []byte {
	if iter.key == nil {
		return nil
	}
	return iter.iterator.Value()
}

func (iter *prefixedIterator) Error() error {
	return iter.iterator.Error()
}
