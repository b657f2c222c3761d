package mast

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"github.com/minio/blake2b-simd"
)

// NodeCache holds decoded nodes by content name. A cached name is
// taken to mean the node is already stored, so trees sharing a cache
// must share a Backend. *lru.ARCCache satisfies it.
type NodeCache interface {
	Add(name, node interface{})
	Contains(name interface{}) bool
	Get(name interface{}) (node interface{}, ok bool)
}

// NewNodeCache returns an ARC cache of up to size nodes, at least one.
func NewNodeCache(size int) NodeCache {
	if size < 1 {
		size = 1
	}
	// NewARC fails only for sizes below one
	cache, _ := lru.NewARC(size)
	return cache
}

// contentName is the persisted identity of an encoded node.
func contentName(encoded []byte) string {
	hashBytes := blake2b.Sum256(encoded)
	return base64.RawURLEncoding.EncodeToString(hashBytes[:])
}

func linkName(link interface{}) (string, error) {
	switch l := link.(type) {
	case nil:
		return "", nil
	case string:
		return l, nil
	case *mastNode:
		_, name, err := l.encode()
		return name, err
	default:
		return "", fmt.Errorf("unknown link type %T", l)
	}
}

// encode returns the node's serialization and content name, which are
// computed once since nodes never change.
func (node *mastNode) encode() ([]byte, string, error) {
	if node.encoded != nil {
		return node.encoded, node.name, nil
	}
	encoded, err := encodeNode(node)
	if err != nil {
		return nil, "", err
	}
	node.encoded = encoded
	node.name = contentName(encoded)
	return node.encoded, node.name, nil
}

func (m *Tree) load(ctx context.Context, link interface{}) (*mastNode, error) {
	switch l := link.(type) {
	case string:
		return m.loadPersisted(ctx, l)
	case *mastNode:
		return l, nil
	default:
		return nil, fmt.Errorf("unknown link type %T", l)
	}
}

func (m *Tree) loadPersisted(ctx context.Context, name string) (*mastNode, error) {
	if m.nodeCache != nil {
		if node, ok := m.nodeCache.Get(name); ok {
			return node.(*mastNode), nil
		}
	}
	nodeBytes, err := m.backend.Load(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("persist load %s: %w", name, err)
	}
	if contentName(nodeBytes) != name {
		return nil, fmt.Errorf("persist load %s: content does not match name", name)
	}
	node, err := decodeNode(nodeBytes)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	node.encoded = nodeBytes
	node.name = name
	if m.nodeCache != nil {
		m.nodeCache.Add(name, node)
	}
	return node, nil
}

// store queues the node and every in-memory descendant for persisting,
// children before parents, and returns the node's name.
func (node *mastNode) store(ctx context.Context, m *Tree, storeQ chan<- func() error) (string, error) {
	for _, link := range node.Link {
		if child, ok := link.(*mastNode); ok {
			_, err := child.store(ctx, m, storeQ)
			if err != nil {
				return "", err
			}
		}
	}
	encoded, name, err := node.encode()
	if err != nil {
		return "", fmt.Errorf("encode: %w", err)
	}
	if m.nodeCache != nil && m.nodeCache.Contains(name) {
		return name, nil
	}
	persist, cache := m.backend, m.nodeCache
	storeQ <- func() error {
		err := persist.Store(ctx, name, encoded)
		if err != nil {
			return fmt.Errorf("persist store %s: %w", name, err)
		}
		if cache != nil {
			cache.Add(name, node)
		}
		return nil
	}
	return name, nil
}

// storeNodes persists every in-memory node under root using up to
// m.storeParallelism concurrent writes, and returns the root's name and
// the number of nodes written.
func (m *Tree) storeNodes(ctx context.Context, root *mastNode) (string, int, error) {
	storeQ := make(chan func() error)
	gate := make(chan struct{}, m.storeParallelism)
	var (
		seLock          sync.Mutex
		firstStoreError error
		stored          int
		wg              sync.WaitGroup
	)
	dispatched := make(chan struct{})
	go func() {
		defer close(dispatched)
		for f := range storeQ {
			gate <- struct{}{}
			wg.Add(1)
			go func(f func() error) {
				defer wg.Done()
				defer func() { <-gate }()
				seLock.Lock()
				failed := firstStoreError != nil
				seLock.Unlock()
				if failed {
					return
				}
				err := f()
				seLock.Lock()
				if err != nil {
					if firstStoreError == nil {
						firstStoreError = err
					}
				} else {
					stored++
				}
				seLock.Unlock()
			}(f)
		}
	}()

	name, err := root.store(ctx, m, storeQ)
	close(storeQ)
	<-dispatched
	wg.Wait()
	if err != nil {
		return "", 0, err
	}
	if firstStoreError != nil {
		return "", 0, firstStoreError
	}
	return name, stored, nil
}
