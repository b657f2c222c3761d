package mast

import (
	"bytes"
	"context"
	"sort"
)

type iterFrame struct {
	node *mastNode
	// i is the next key of node to yield
	i int
}

// Iterator yields the entries of one version of a tree in ascending key
// order. Writes to the tree after the Iterator is created are not seen.
type Iterator struct {
	ctx   context.Context
	tree  *Tree
	stack []iterFrame
	key   []byte
	value []byte
	err   error
}

// Iterator returns an Iterator over the entries whose keys are >= start.
// A nil start iterates over the whole tree.
func (m *Tree) Iterator(ctx context.Context, start []byte) *Iterator {
	it := &Iterator{ctx: ctx, tree: m}
	it.err = it.seek(m.root, start)
	return it
}

func (it *Iterator) seek(link interface{}, start []byte) error {
	for link != nil {
		node, err := it.tree.load(it.ctx, link)
		if err != nil {
			return err
		}
		i := sort.Search(len(node.Key), func(i int) bool {
			return bytes.Compare(node.Key[i], start) >= 0
		})
		it.stack = append(it.stack, iterFrame{node, i})
		if i < len(node.Key) && bytes.Equal(node.Key[i], start) {
			return nil
		}
		link = node.Link[i]
	}
	return nil
}

func (it *Iterator) descendLeft(link interface{}) error {
	for link != nil {
		node, err := it.tree.load(it.ctx, link)
		if err != nil {
			return err
		}
		it.stack = append(it.stack, iterFrame{node, 0})
		link = node.Link[0]
	}
	return nil
}

// Next advances to the next entry, returning false when there are no
// more entries or an error occurred.
func (it *Iterator) Next() bool {
	if it.err != nil {
		return false
	}
	for len(it.stack) > 0 {
		top := &it.stack[len(it.stack)-1]
		if top.i >= len(top.node.Key) {
			it.stack = it.stack[:len(it.stack)-1]
			continue
		}
		node, i := top.node, top.i
		top.i++
		if err := it.descendLeft(node.Link[i+1]); err != nil {
			it.err = err
			return false
		}
		it.key = append([]byte{}, node.Key[i]...)
		it.value = append([]byte{}, node.Value[i]...)
		return true
	}
	it.key, it.value = nil, nil
	return false
}

// Key returns the current entry's key, which the caller may keep.
func (it *Iterator) Key() []byte {
	return it.key
}

// Value returns the current entry's value, which the caller may keep.
func (it *Iterator) Value() []byte {
	return it.value
}

// Error returns the error that stopped iteration, if any.
func (it *Iterator) Error() error {
	return it.err
}
