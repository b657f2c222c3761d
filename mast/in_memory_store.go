package mast

import (
	"context"
	"fmt"
	"io/fs"
	"sync"
)

// memoryBackend keeps nodes and the checkpoint in maps. Missing nodes
// are reported as fs.ErrNotExist, like the file backend.
type memoryBackend struct {
	mu         sync.Mutex
	nodes      map[string][]byte
	checkpoint []byte
}

// NewInMemoryStore returns a Backend that lives only as long as the
// process, usually for testing.
func NewInMemoryStore() Backend {
	return &memoryBackend{nodes: map[string][]byte{}}
}

func (b *memoryBackend) Store(ctx context.Context, name string, encoded []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.nodes[name]; !ok {
		b.nodes[name] = append([]byte{}, encoded...)
	}
	return nil
}

func (b *memoryBackend) Load(ctx context.Context, name string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	encoded, ok := b.nodes[name]
	if !ok {
		return nil, fmt.Errorf("node %s: %w", name, fs.ErrNotExist)
	}
	return encoded, nil
}

func (b *memoryBackend) StoreCheckpoint(ctx context.Context, checkpoint []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.checkpoint = append([]byte{}, checkpoint...)
	return nil
}

func (b *memoryBackend) LoadCheckpoint(ctx context.Context) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.checkpoint == nil {
		return nil, nil
	}
	return append([]byte{}, b.checkpoint...), nil
}
