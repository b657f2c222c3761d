// Package store defines the capabilities a key/value store offers and
// the wrappers that let independent collections share one store.
//
// Capabilities are split so a component can ask for only what it uses:
// a typed collection needs a ReadWriter, while a consensus adapter is a
// full Store.
package store

// Reader reads the current value of a key, including writes that have
// not been flushed yet.
type Reader interface {
	// Get returns the value for key, and false if there is none.
	Get(key []byte) ([]byte, bool, error)
}

// Writer records writes. Whether they take effect immediately or on
// Flush depends on the store.
type Writer interface {
	Put(key, value []byte) error
	Delete(key []byte) error
}

// ReadWriter groups Reader and Writer.
type ReadWriter interface {
	Reader
	Writer
}

// Iterator walks entries in ascending key order.
type Iterator interface {
	// Next advances to the next entry, returning false when there are
	// no more entries or an error occurred.
	Next() bool
	// Key returns the current key. The caller may keep it.
	Key() []byte
	// Value returns the current value. The caller may keep it.
	Value() []byte
	// Error returns the error that stopped iteration, if any.
	Error() error
}

// Iterable can iterate over its applied entries.
type Iterable interface {
	// IterFrom returns an Iterator over the entries whose keys are >=
	// start. Unflushed writes are not visible.
	IterFrom(start []byte) Iterator
}

// Flusher applies pending writes to the backing structure.
type Flusher interface {
	Flush() error
}

// Store has every capability.
type Store interface {
	Reader
	Writer
	Iterable
	Flusher
}
