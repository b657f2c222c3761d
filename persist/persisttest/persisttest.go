// Package persisttest checks that a mast.Backend behaves the way the
// tree relies on.
package persisttest

import (
	"context"
	"fmt"
	"testing"

	"github.com/jrhy/merkstore/mast"
	"github.com/stretchr/testify/require"
)

// Run exercises node storage, the checkpoint, and a tree round trip
// through the Backends returned by open, which must all share the same
// underlying storage. open may return the same value each time.
func Run(t *testing.T, open func() mast.Backend) {
	ctx := context.Background()
	backend := open()

	t.Run("nodes", func(t *testing.T) {
		require.NoError(t, backend.Store(ctx, "node-a", []byte("alpha")))
		require.NoError(t, backend.Store(ctx, "node-a", []byte("alpha")))
		b, err := backend.Load(ctx, "node-a")
		require.NoError(t, err)
		require.Equal(t, []byte("alpha"), b)
		_, err = backend.Load(ctx, "node-missing")
		require.Error(t, err)
	})

	t.Run("checkpoint", func(t *testing.T) {
		b, err := backend.LoadCheckpoint(ctx)
		require.NoError(t, err)
		require.Nil(t, b)
		require.NoError(t, backend.StoreCheckpoint(ctx, []byte("one")))
		require.NoError(t, backend.StoreCheckpoint(ctx, []byte("two")))
		b, err = backend.LoadCheckpoint(ctx)
		require.NoError(t, err)
		require.Equal(t, []byte("two"), b)
	})

	t.Run("tree", func(t *testing.T) {
		_, err := mast.Open(ctx, mast.Config{Backend: open()})
		require.Error(t, err, "the checkpoint stored above is not a tree")

		require.NoError(t, backend.StoreCheckpoint(ctx, mustEmptyCheckpoint(t)))
		m, err := mast.Open(ctx, mast.Config{Backend: backend})
		require.NoError(t, err)
		var batch []mast.BatchEntry
		for i := 0; i < 200; i++ {
			k := []byte(fmt.Sprintf("k%04d", i))
			batch = append(batch, mast.BatchEntry{Key: k, Op: mast.Put, Value: k})
		}
		require.NoError(t, m.Apply(ctx, batch, nil))
		require.NoError(t, m.Flush(ctx))
		hash, err := m.RootHash()
		require.NoError(t, err)

		reopened, err := mast.Open(ctx, mast.Config{Backend: open()})
		require.NoError(t, err)
		reopenedHash, err := reopened.RootHash()
		require.NoError(t, err)
		require.Equal(t, hash, reopenedHash)
		require.Equal(t, uint64(200), reopened.Size())
		v, found, err := reopened.Get(ctx, []byte("k0123"))
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, []byte("k0123"), v)
	})
}

func mustEmptyCheckpoint(t *testing.T) []byte {
	backend := mast.NewInMemoryStore()
	m, err := mast.Open(context.Background(), mast.Config{Backend: backend, BranchFactor: 4})
	require.NoError(t, err)
	require.NoError(t, m.Flush(context.Background()))
	b, err := backend.LoadCheckpoint(context.Background())
	require.NoError(t, err)
	return b
}
