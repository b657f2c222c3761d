package mast

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"
)

const (
	// DefaultBranchFactor is how many entries per node a tree will normally have.
	DefaultBranchFactor = 16
	// DefaultNodeCacheSize is the number of nodes cached when Config.NodeCache is unset.
	DefaultNodeCacheSize = 4096
	// DefaultStoreParallelism bounds the concurrent node writes of a Flush.
	DefaultStoreParallelism = 40
	// HashSize is the length in bytes of a root hash.
	HashSize = 32
)

// ErrUnsortedBatch is returned by Apply when batch keys are not
// strictly ascending.
var ErrUnsortedBatch = errors.New("batch keys must be sorted and unique")

// Persist stores encoded nodes under their content names. A name
// always refers to the same bytes, so storing a name twice may be
// skipped.
type Persist interface {
	Store(ctx context.Context, name string, encoded []byte) error
	Load(ctx context.Context, name string) ([]byte, error)
}

// Checkpointer durably records which root is current. Every node
// stored before StoreCheckpoint is called must be durable no later
// than the checkpoint that names it.
type Checkpointer interface {
	// StoreCheckpoint makes previously stored nodes durable, then
	// atomically replaces the checkpoint record.
	StoreCheckpoint(context.Context, []byte) error
	// LoadCheckpoint returns the last stored record, or nil if none was
	// ever stored.
	LoadCheckpoint(context.Context) ([]byte, error)
}

// Backend persists both nodes and the checkpoint naming the root.
type Backend interface {
	Persist
	Checkpointer
}

// Config controls how a tree is opened and persisted.
type Config struct {
	// Backend stores nodes and checkpoints. Nil means a new in-memory store.
	Backend Backend
	// BranchFactor, or number of entries per node, for a new tree. 0
	// means DefaultBranchFactor. An existing tree keeps the branch
	// factor it was created with.
	BranchFactor uint
	// NodeCache caches deserialized nodes and may be shared across
	// trees with the same Backend. Nil means a new cache of
	// DefaultNodeCacheSize.
	NodeCache NodeCache
	// StoreParallelism bounds concurrent node writes. 0 means DefaultStoreParallelism.
	StoreParallelism int
	Logger           *zap.Logger
}

// Root is the checkpoint record identifying a durable version of a tree.
type Root struct {
	Link         *string
	Size         uint64
	Height       uint8
	BranchFactor uint
	Aux          []AuxEntry `json:",omitempty"`
}

// AuxEntry is an unauthenticated side-channel entry.
type AuxEntry struct {
	Key   []byte
	Value []byte
}

// OpKind says what a BatchEntry does.
type OpKind uint8

const (
	// Put sets the entry's key to its value.
	Put OpKind = iota
	// Delete removes the entry's key, if present.
	Delete
)

func (o OpKind) String() string {
	switch o {
	case Put:
		return "put"
	case Delete:
		return "delete"
	default:
		return fmt.Sprintf("OpKind(%d)", uint8(o))
	}
}

// BatchEntry is one write of a batch passed to Apply.
type BatchEntry struct {
	Key   []byte
	Op    OpKind
	Value []byte
}

// Tree is an authenticated ordered map of byte keys to byte values.
// It is not safe for concurrent use.
type Tree struct {
	root             interface{}
	height           uint8
	size             uint64
	branchFactor     uint
	aux              map[string][]byte
	backend          Backend
	nodeCache        NodeCache
	storeParallelism int
	log              *zap.Logger
}

func newTree(config Config) *Tree {
	m := &Tree{
		branchFactor:     config.BranchFactor,
		aux:              map[string][]byte{},
		backend:          config.Backend,
		nodeCache:        config.NodeCache,
		storeParallelism: config.StoreParallelism,
		log:              config.Logger,
	}
	if m.branchFactor == 0 {
		m.branchFactor = DefaultBranchFactor
	}
	if m.backend == nil {
		m.backend = NewInMemoryStore()
	}
	if m.nodeCache == nil {
		m.nodeCache = NewNodeCache(DefaultNodeCacheSize)
	}
	if m.storeParallelism <= 0 {
		m.storeParallelism = DefaultStoreParallelism
	}
	if m.log == nil {
		m.log = zap.NewNop()
	}
	return m
}

// NewInMemory returns an empty tree backed by a new in-memory store.
func NewInMemory() *Tree {
	return newTree(Config{})
}

// Open loads the tree named by the backend's checkpoint, or an empty
// tree if there is none. The root is loaded and verified; other nodes
// will be loaded on demand.
func Open(ctx context.Context, config Config) (*Tree, error) {
	if config.BranchFactor == 1 {
		return nil, fmt.Errorf("branch factor must be at least 2")
	}
	m := newTree(config)
	b, err := m.backend.LoadCheckpoint(ctx)
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}
	if b == nil {
		return m, nil
	}
	var r Root
	err = json.Unmarshal(b, &r)
	if err != nil {
		return nil, fmt.Errorf("unmarshal checkpoint: %w", err)
	}
	if r.BranchFactor < 2 {
		return nil, fmt.Errorf("checkpoint has invalid branch factor %d", r.BranchFactor)
	}
	if config.BranchFactor != 0 && config.BranchFactor != r.BranchFactor {
		return nil, fmt.Errorf("tree has branch factor %d, configured %d", r.BranchFactor, config.BranchFactor)
	}
	m.branchFactor = r.BranchFactor
	m.size = r.Size
	m.height = r.Height
	for _, e := range r.Aux {
		m.aux[string(e.Key)] = e.Value
	}
	if r.Link != nil {
		m.root = *r.Link
		_, err = m.load(ctx, m.root)
		if err != nil {
			return nil, fmt.Errorf("checkRoot: %w", err)
		}
	}
	m.log.Debug("opened tree",
		zap.Uint64("size", m.size),
		zap.Uint8("height", m.height))
	return m, nil
}

// Get returns a copy of the value stored for key, and false if the tree
// doesn't contain it.
func (m *Tree) Get(ctx context.Context, key []byte) ([]byte, bool, error) {
	value, ok, err := m.get(ctx, key)
	if err != nil || !ok {
		return nil, ok, err
	}
	return append([]byte{}, value...), true, nil
}

// GetAux returns a copy of the side-channel value for key.
func (m *Tree) GetAux(key []byte) ([]byte, bool) {
	value, ok := m.aux[string(key)]
	if !ok {
		return nil, false
	}
	return append([]byte{}, value...), true
}

// Apply performs the batch of writes and the aux writes as one atomic
// step: if any write fails, the tree is left as it was. Keys within
// batch, and within aux, must be strictly ascending. Deleting an
// absent key is a no-op.
func (m *Tree) Apply(ctx context.Context, batch, aux []BatchEntry) error {
	if err := checkSorted(batch); err != nil {
		return err
	}
	if err := checkSorted(aux); err != nil {
		return fmt.Errorf("aux: %w", err)
	}
	root, height, size := m.root, m.height, m.size
	for _, e := range batch {
		var err error
		switch e.Op {
		case Put:
			err = m.put(ctx, append([]byte{}, e.Key...), append([]byte{}, e.Value...))
		case Delete:
			err = m.remove(ctx, e.Key)
		default:
			err = fmt.Errorf("unknown op %v", e.Op)
		}
		if err != nil {
			m.root, m.height, m.size = root, height, size
			return fmt.Errorf("%v %x: %w", e.Op, e.Key, err)
		}
	}
	if len(aux) > 0 {
		next := make(map[string][]byte, len(m.aux)+len(aux))
		for k, v := range m.aux {
			next[k] = v
		}
		for _, e := range aux {
			switch e.Op {
			case Put:
				next[string(e.Key)] = append([]byte{}, e.Value...)
			case Delete:
				delete(next, string(e.Key))
			}
		}
		m.aux = next
	}
	return nil
}

func checkSorted(batch []BatchEntry) error {
	for i := range batch {
		if batch[i].Op != Put && batch[i].Op != Delete {
			return fmt.Errorf("unknown op %v", batch[i].Op)
		}
		if i > 0 && bytes.Compare(batch[i-1].Key, batch[i].Key) >= 0 {
			return fmt.Errorf("%w: %x follows %x", ErrUnsortedBatch, batch[i].Key, batch[i-1].Key)
		}
	}
	return nil
}

// RootHash returns the 32-byte hash of the root node, which commits to
// every entry in the tree. The empty tree's hash is all zeroes.
func (m *Tree) RootHash() ([]byte, error) {
	if m.root == nil {
		return make([]byte, HashSize), nil
	}
	name, err := linkName(m.root)
	if err != nil {
		return nil, err
	}
	hash, err := base64.RawURLEncoding.DecodeString(name)
	if err != nil {
		return nil, fmt.Errorf("root name %q: %w", name, err)
	}
	return hash, nil
}

// Flush writes the new nodes of the tree to the backend and then
// replaces the backend's checkpoint with one naming the current root.
func (m *Tree) Flush(ctx context.Context) error {
	var link *string
	switch l := m.root.(type) {
	case nil:
	case string:
		link = &l
	case *mastNode:
		name, n, err := m.storeNodes(ctx, l)
		if err != nil {
			return fmt.Errorf("flush: %w", err)
		}
		m.root = name
		link = &name
		m.log.Debug("stored nodes", zap.Int("count", n), zap.String("root", name))
	}
	r := Root{
		Link:         link,
		Size:         m.size,
		Height:       m.height,
		BranchFactor: m.branchFactor,
	}
	for k, v := range m.aux {
		r.Aux = append(r.Aux, AuxEntry{[]byte(k), v})
	}
	sort.Slice(r.Aux, func(i, j int) bool {
		return bytes.Compare(r.Aux[i].Key, r.Aux[j].Key) < 0
	})
	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}
	err = m.backend.StoreCheckpoint(ctx, b)
	if err != nil {
		return fmt.Errorf("store checkpoint: %w", err)
	}
	return nil
}

// Commit applies batch and aux like Apply and then flushes. If the
// flush fails, the tree is returned to its state before the batch, so
// it never reports a version that is not durable.
func (m *Tree) Commit(ctx context.Context, batch, aux []BatchEntry) error {
	root, height, size, prevAux := m.root, m.height, m.size, m.aux
	if err := m.Apply(ctx, batch, aux); err != nil {
		return err
	}
	if err := m.Flush(ctx); err != nil {
		m.root, m.height, m.size, m.aux = root, height, size, prevAux
		m.log.Debug("rolled back commit", zap.Error(err))
		return err
	}
	return nil
}

// Height returns the number of levels between the leaves and root.
func (m *Tree) Height() uint8 {
	return m.height
}

// Size returns the number of entries in the tree.
func (m *Tree) Size() uint64 {
	return m.size
}

// BranchFactor returns the tree's expected number of entries per node.
func (m *Tree) BranchFactor() uint {
	return m.branchFactor
}
