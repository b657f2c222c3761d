package store

import (
	"errors"
	"fmt"
)

var (
	// ErrSplitLimit is returned by Splitter.Split once every prefix has
	// been issued.
	ErrSplitLimit = errors.New("store: no prefixes left to split")
	// ErrDuplicatePrefix is returned by Layout.Open when two names are
	// assigned the same prefix.
	ErrDuplicatePrefix = errors.New("store: prefix assigned twice")
)

// StorageError reports a failure of the backing storage during Op.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
