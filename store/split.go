package store

import (
	"fmt"
	"sort"
)

// MaxSplits is the number of distinct one-byte prefixes a Splitter
// can issue.
const MaxSplits = 256

// Splitter partitions one store into independent Prefixed stores,
// issuing prefixes 0, 1, 2, ... in call order. Code that splits the
// same store must always split in the same order to find its data
// again; Layout avoids that dependency.
type Splitter struct {
	store *Shared
	next  int
}

// NewSplitter returns a Splitter over s.
func NewSplitter(s Store) *Splitter {
	return &Splitter{store: Share(s)}
}

// Split returns a store using the next unissued prefix, or
// ErrSplitLimit after MaxSplits calls.
func (s *Splitter) Split() (*Prefixed, error) {
	if s.next >= MaxSplits {
		return nil, ErrSplitLimit
	}
	p := Prefix(s.store.Clone(), byte(s.next))
	s.next++
	return p, nil
}

// MustSplit is like Split but panics when the prefixes are exhausted.
// It suits splits whose number is fixed by the program.
func (s *Splitter) MustSplit() *Prefixed {
	p, err := s.Split()
	if err != nil {
		panic(err)
	}
	return p
}

// Remaining returns how many more prefixes can be issued.
func (s *Splitter) Remaining() int {
	return MaxSplits - s.next
}

// Layout names the sub-stores of a store and fixes each one's prefix,
// so that adding, removing or reordering code that opens sub-stores
// cannot move existing data.
type Layout map[string]byte

// Open returns the named sub-stores of s. It fails with
// ErrDuplicatePrefix if two names share a prefix.
func (l Layout) Open(s Store) (map[string]*Prefixed, error) {
	names := make([]string, 0, len(l))
	for name := range l {
		names = append(names, name)
	}
	sort.Strings(names)
	owner := map[byte]string{}
	for _, name := range names {
		p := l[name]
		if other, ok := owner[p]; ok {
			return nil, fmt.Errorf("%w: %q and %q both use %#02x", ErrDuplicatePrefix, other, name, p)
		}
		owner[p] = name
	}
	shared := Share(s)
	out := make(map[string]*Prefixed, len(l))
	for _, name := range names {
		out[name] = Prefix(shared.Clone(), l[name])
	}
	return out, nil
}
