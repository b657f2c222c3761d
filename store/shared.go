package store

var _ Store = (*Shared)(nil)

// Shared is a handle onto a Store that can be cloned, so several
// owners, such as the namespaces made by a Splitter, use one store.
// Handles are not safe for concurrent use.
type Shared struct {
	inner Store
}

// Share returns the first handle onto s.
func Share(s Store) *Shared {
	if shared, ok := s.(*Shared); ok {
		return shared.Clone()
	}
	return &Shared{inner: s}
}

// Clone returns another handle onto the same store.
func (s *Shared) Clone() *Shared {
	return &Shared{inner: s.inner}
}

// Inner returns the shared store.
func (s *Shared) Inner() Store {
	return s.inner
}

// Get reads key from the inner store.
func (s *Shared) Get(key []byte) ([]byte, bool, error) {
	return s.inner.Get(key)
}

// Put writes key to the inner store.
func (s *Shared) Put(key, value []byte) error {
	return s.inner.Put(key, value)
}

// Delete removes key from the inner store.
func (s *Shared) Delete(key []byte) error {
	return s.inner.Delete(key)
}

// IterFrom iterates the inner store from start.
func (s *Shared) IterFrom(start []byte) Iterator {
	return s.inner.IterFrom(start)
}

// Flush flushes the inner store.
func (s *Shared) Flush() error {
	return s.inner.Flush()
}
