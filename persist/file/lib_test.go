package file

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/jrhy/merkstore/mast"
	"github.com/jrhy/merkstore/persist/persisttest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ctx = context.Background()

func TestFiles(t *testing.T) {
	p, err := NewPersistForPath(filepath.Join(t.TempDir(), "nested"))
	require.NoError(t, err)

	err = p.Store(ctx, "foo", []byte("hello"))
	require.NoError(t, err)
	loaded, err := p.Load(ctx, "foo")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), loaded)

	// nodes are immutable, so a second store is skipped
	err = p.Store(ctx, "foo", []byte("ignored"))
	require.NoError(t, err)
	loaded, err = p.Load(ctx, "foo")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), loaded)

	_, err = p.Load(ctx, "missing")
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestCheckpoint(t *testing.T) {
	dir := t.TempDir()
	p, err := NewPersistForPath(dir)
	require.NoError(t, err)

	b, err := p.LoadCheckpoint(ctx)
	require.NoError(t, err)
	require.Nil(t, b)

	require.NoError(t, p.StoreCheckpoint(ctx, []byte("one")))
	require.NoError(t, p.StoreCheckpoint(ctx, []byte("two")))
	b, err = p.LoadCheckpoint(ctx)
	require.NoError(t, err)
	require.Equal(t, []byte("two"), b)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary files are renamed away")
}

func TestTreeRoundTrip(t *testing.T) {
	dir := t.TempDir()
	p, err := NewPersistForPath(dir)
	require.NoError(t, err)
	m, err := mast.Open(ctx, mast.Config{Backend: p})
	require.NoError(t, err)
	var batch []mast.BatchEntry
	for _, k := range []string{"a", "b", "c", "d", "e"} {
		batch = append(batch, mast.BatchEntry{Key: []byte(k), Op: mast.Put, Value: []byte(k)})
	}
	require.NoError(t, m.Apply(ctx, batch, nil))
	require.NoError(t, m.Flush(ctx))
	hash, err := m.RootHash()
	require.NoError(t, err)

	p2, err := NewPersistForPath(dir)
	require.NoError(t, err)
	reopened, err := mast.Open(ctx, mast.Config{Backend: p2})
	require.NoError(t, err)
	reopenedHash, err := reopened.RootHash()
	require.NoError(t, err)
	require.Equal(t, hash, reopenedHash)
	v, found, err := reopened.Get(ctx, []byte("c"))
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte("c"), v)
}

func TestBackend(t *testing.T) {
	p, err := NewPersistForPath(t.TempDir())
	require.NoError(t, err)
	persisttest.Run(t, func() mast.Backend { return p })
}

// recordSyncs logs each sync. Nodes are stored concurrently during a
// flush, so appends are locked.
func recordSyncs(t *testing.T) *[]string {
	var (
		mu     sync.Mutex
		events []string
	)
	record := func(e string) {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
	}
	origFile, origDir := syncFile, syncDir
	syncFile = func(f *os.File) error {
		record("file")
		return origFile(f)
	}
	syncDir = func(path string) error {
		record("dir")
		return origDir(path)
	}
	t.Cleanup(func() { syncFile, syncDir = origFile, origDir })
	return &events
}

func TestNodesDurableBeforeCheckpoint(t *testing.T) {
	events := recordSyncs(t)
	p, err := NewPersistForPath(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, p.Store(ctx, "node-1", []byte("one")))
	require.NoError(t, p.Store(ctx, "node-2", []byte("two")))
	require.NoError(t, p.Store(ctx, "node-1", []byte("one")))
	require.Equal(t, []string{"file", "file"}, *events, "each new node is synced once")

	require.NoError(t, p.StoreCheckpoint(ctx, []byte("root")))
	require.Equal(t, []string{"file", "file", "dir", "file", "dir"}, *events,
		"node renames are synced before the checkpoint is written")
}

func TestFlushSyncsEveryNode(t *testing.T) {
	events := recordSyncs(t)
	p, err := NewPersistForPath(t.TempDir())
	require.NoError(t, err)
	m, err := mast.Open(ctx, mast.Config{Backend: p, BranchFactor: 3})
	require.NoError(t, err)
	var batch []mast.BatchEntry
	for i := 0; i < 50; i++ {
		k := []byte{byte(i)}
		batch = append(batch, mast.BatchEntry{Key: k, Op: mast.Put, Value: k})
	}
	require.NoError(t, m.Apply(ctx, batch, nil))
	require.NoError(t, m.Flush(ctx))

	entries, err := os.ReadDir(p.basepath)
	require.NoError(t, err)
	nodes := len(entries) - 1
	require.Greater(t, nodes, 1)
	want := make([]string, 0, nodes+3)
	for i := 0; i < nodes; i++ {
		want = append(want, "file")
	}
	want = append(want, "dir", "file", "dir")
	require.Equal(t, want, *events)
}
