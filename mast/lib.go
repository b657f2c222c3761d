package mast

import (
	"bytes"
	"context"
	"fmt"
	"sort"
)

// mastNode is immutable once it is reachable from a tree. Writes build
// new nodes along the changed path and share everything else.
type mastNode struct {
	Key   [][]byte
	Value [][]byte
	// Link holds len(Key)+1 children, each nil, a persisted node name
	// (string), or an in-memory *mastNode.
	Link []interface{}

	// memoized serialization, set by encode or when loaded
	encoded []byte
	name    string
}

func emptyNode() *mastNode {
	return &mastNode{Link: []interface{}{nil}}
}

func (node *mastNode) isEmpty() bool {
	return len(node.Key) == 0 && node.Link[0] == nil
}

// linkTo returns the link a parent should hold for node; empty nodes
// are represented by a nil link.
func linkTo(node *mastNode) interface{} {
	if node.isEmpty() {
		return nil
	}
	return node
}

// search returns the index of the first key >= key, and whether that
// key is equal.
func (node *mastNode) search(key []byte) (int, bool) {
	i := sort.Search(len(node.Key), func(i int) bool {
		return bytes.Compare(node.Key[i], key) >= 0
	})
	return i, i < len(node.Key) && bytes.Equal(node.Key[i], key)
}

func (node *mastNode) clone() *mastNode {
	return &mastNode{
		Key:   append([][]byte(nil), node.Key...),
		Value: append([][]byte(nil), node.Value...),
		Link:  append([]interface{}(nil), node.Link...),
	}
}

// withEntry copies node with key inserted at i, the child at i
// replaced by left and right.
func (node *mastNode) withEntry(i int, key, value []byte, left, right interface{}) *mastNode {
	n := &mastNode{
		Key:   make([][]byte, 0, len(node.Key)+1),
		Value: make([][]byte, 0, len(node.Value)+1),
		Link:  make([]interface{}, 0, len(node.Link)+1),
	}
	n.Key = append(append(append(n.Key, node.Key[:i]...), key), node.Key[i:]...)
	n.Value = append(append(append(n.Value, node.Value[:i]...), value), node.Value[i:]...)
	n.Link = append(append(append(n.Link, node.Link[:i]...), left, right), node.Link[i+1:]...)
	return n
}

// withoutEntry copies node without the entry at i, its two neighboring
// children replaced by merged.
func (node *mastNode) withoutEntry(i int, merged interface{}) *mastNode {
	n := &mastNode{
		Key:   make([][]byte, 0, len(node.Key)-1),
		Value: make([][]byte, 0, len(node.Value)-1),
		Link:  make([]interface{}, 0, len(node.Link)-1),
	}
	n.Key = append(append(n.Key, node.Key[:i]...), node.Key[i+1:]...)
	n.Value = append(append(n.Value, node.Value[:i]...), node.Value[i+1:]...)
	n.Link = append(append(append(n.Link, node.Link[:i]...), merged), node.Link[i+2:]...)
	return n
}

func (m *Tree) put(ctx context.Context, key, value []byte) error {
	layer := keyLayer(key, m.branchFactor)
	if m.root == nil {
		m.height = layer
	}
	for m.height < layer {
		m.root = &mastNode{Link: []interface{}{m.root}}
		m.height++
	}
	root, added, err := m.insert(ctx, m.root, m.height, key, value, layer)
	if err != nil {
		return err
	}
	m.root = root
	if added {
		m.size++
	}
	return nil
}

// insert returns the new link for the subtree at link, which lives at
// the given layer, after the key has been set to value.
func (m *Tree) insert(ctx context.Context, link interface{}, layer uint8, key, value []byte, target uint8) (interface{}, bool, error) {
	node := emptyNode()
	if link != nil {
		var err error
		node, err = m.load(ctx, link)
		if err != nil {
			return nil, false, err
		}
	}
	i, found := node.search(key)
	if found {
		if bytes.Equal(node.Value[i], value) {
			return link, false, nil
		}
		n := node.clone()
		n.Value[i] = value
		return n, false, nil
	}
	if layer == target {
		left, right, err := m.split(ctx, node.Link[i], key)
		if err != nil {
			return nil, false, fmt.Errorf("split: %w", err)
		}
		return node.withEntry(i, key, value, left, right), true, nil
	}
	child, added, err := m.insert(ctx, node.Link[i], layer-1, key, value, target)
	if err != nil {
		return nil, false, err
	}
	n := node.clone()
	n.Link[i] = child
	return n, added, nil
}

// split partitions the subtree at link into the entries less than key
// and the entries greater than key. The key must not be present.
func (m *Tree) split(ctx context.Context, link interface{}, key []byte) (left, right interface{}, err error) {
	if link == nil {
		return nil, nil, nil
	}
	node, err := m.load(ctx, link)
	if err != nil {
		return nil, nil, err
	}
	i, found := node.search(key)
	if found {
		return nil, nil, fmt.Errorf("split found key %x at a lower layer than expected", key)
	}
	tooSmall, tooBig, err := m.split(ctx, node.Link[i], key)
	if err != nil {
		return nil, nil, err
	}
	leftNode := &mastNode{
		Key:   append([][]byte(nil), node.Key[:i]...),
		Value: append([][]byte(nil), node.Value[:i]...),
		Link:  append(append([]interface{}(nil), node.Link[:i]...), tooSmall),
	}
	rightNode := &mastNode{
		Key:   append([][]byte(nil), node.Key[i:]...),
		Value: append([][]byte(nil), node.Value[i:]...),
		Link:  append([]interface{}{tooBig}, node.Link[i+1:]...),
	}
	return linkTo(leftNode), linkTo(rightNode), nil
}

func (m *Tree) remove(ctx context.Context, key []byte) error {
	if m.root == nil {
		return nil
	}
	layer := keyLayer(key, m.branchFactor)
	if layer > m.height {
		return nil
	}
	root, removed, err := m.removeFrom(ctx, m.root, m.height, key, layer)
	if err != nil {
		return err
	}
	if !removed {
		return nil
	}
	m.root = root
	m.size--
	return m.shrink(ctx)
}

func (m *Tree) removeFrom(ctx context.Context, link interface{}, layer uint8, key []byte, target uint8) (interface{}, bool, error) {
	if link == nil {
		return nil, false, nil
	}
	node, err := m.load(ctx, link)
	if err != nil {
		return nil, false, err
	}
	i, found := node.search(key)
	if found {
		merged, err := m.mergeNodes(ctx, node.Link[i], node.Link[i+1])
		if err != nil {
			return nil, false, fmt.Errorf("merge: %w", err)
		}
		return linkTo(node.withoutEntry(i, merged)), true, nil
	}
	if layer == target {
		return link, false, nil
	}
	child, removed, err := m.removeFrom(ctx, node.Link[i], layer-1, key, target)
	if err != nil || !removed {
		return link, false, err
	}
	n := node.clone()
	n.Link[i] = child
	return linkTo(n), true, nil
}

// mergeNodes joins two adjacent subtrees of the same layer, all of
// whose keys in left are less than those in right.
func (m *Tree) mergeNodes(ctx context.Context, leftLink, rightLink interface{}) (interface{}, error) {
	if leftLink == nil {
		return rightLink, nil
	}
	if rightLink == nil {
		return leftLink, nil
	}
	left, err := m.load(ctx, leftLink)
	if err != nil {
		return nil, fmt.Errorf("load left: %w", err)
	}
	right, err := m.load(ctx, rightLink)
	if err != nil {
		return nil, fmt.Errorf("load right: %w", err)
	}
	last := len(left.Link) - 1
	mid, err := m.mergeNodes(ctx, left.Link[last], right.Link[0])
	if err != nil {
		return nil, err
	}
	combined := &mastNode{
		Key:   make([][]byte, 0, len(left.Key)+len(right.Key)),
		Value: make([][]byte, 0, len(left.Value)+len(right.Value)),
		Link:  make([]interface{}, 0, len(left.Link)+len(right.Link)-1),
	}
	combined.Key = append(append(combined.Key, left.Key...), right.Key...)
	combined.Value = append(append(combined.Value, left.Value...), right.Value...)
	combined.Link = append(append(append(combined.Link, left.Link[:last]...), mid), right.Link[1:]...)
	return combined, nil
}

// shrink drops keyless nodes from the top of the tree, so the root
// always holds the highest-layer keys.
func (m *Tree) shrink(ctx context.Context) error {
	for m.root != nil {
		node, err := m.load(ctx, m.root)
		if err != nil {
			return fmt.Errorf("load root: %w", err)
		}
		if len(node.Key) > 0 {
			return nil
		}
		m.root = node.Link[0]
		m.height--
	}
	m.height = 0
	return nil
}

func (m *Tree) get(ctx context.Context, key []byte) ([]byte, bool, error) {
	link := m.root
	for link != nil {
		node, err := m.load(ctx, link)
		if err != nil {
			return nil, false, err
		}
		i, found := node.search(key)
		if found {
			return node.Value[i], true, nil
		}
		link = node.Link[i]
	}
	return nil, false, nil
}

// validate checks the shape of the whole tree: ordering, layers, and
// the absence of empty nodes.
func (m *Tree) validate(ctx context.Context) error {
	if m.root == nil {
		if m.size != 0 {
			return fmt.Errorf("empty tree has size %d", m.size)
		}
		return nil
	}
	root, err := m.load(ctx, m.root)
	if err != nil {
		return err
	}
	if len(root.Key) == 0 {
		return fmt.Errorf("root has no keys")
	}
	var count uint64
	err = m.validateNode(ctx, m.root, m.height, nil, nil, &count)
	if err != nil {
		return err
	}
	if count != m.size {
		return fmt.Errorf("counted %d entries, size is %d", count, m.size)
	}
	return nil
}

func (m *Tree) validateNode(ctx context.Context, link interface{}, layer uint8, min, max []byte, count *uint64) error {
	node, err := m.load(ctx, link)
	if err != nil {
		return err
	}
	if node.isEmpty() {
		return fmt.Errorf("empty node at layer %d", layer)
	}
	if len(node.Link) != len(node.Key)+1 || len(node.Value) != len(node.Key) {
		return fmt.Errorf("node at layer %d has %d keys, %d values, %d links",
			layer, len(node.Key), len(node.Value), len(node.Link))
	}
	for i, key := range node.Key {
		if kl := keyLayer(key, m.branchFactor); kl != layer {
			return fmt.Errorf("key %x has layer %d but is in layer %d", key, kl, layer)
		}
		if min != nil && bytes.Compare(key, min) <= 0 ||
			max != nil && bytes.Compare(key, max) >= 0 {
			return fmt.Errorf("key %x out of range", key)
		}
		if i > 0 && bytes.Compare(node.Key[i-1], key) >= 0 {
			return fmt.Errorf("keys out of order at %x", key)
		}
	}
	*count += uint64(len(node.Key))
	for i, child := range node.Link {
		if child == nil {
			continue
		}
		if layer == 0 {
			return fmt.Errorf("leaf has a child")
		}
		lo, hi := min, max
		if i > 0 {
			lo = node.Key[i-1]
		}
		if i < len(node.Key) {
			hi = node.Key[i]
		}
		err = m.validateNode(ctx, child, layer-1, lo, hi, count)
		if err != nil {
			return err
		}
	}
	return nil
}
