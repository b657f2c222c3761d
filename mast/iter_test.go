package mast

import (
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, it *Iterator) []string {
	var keys []string
	for it.Next() {
		keys = append(keys, string(it.Key()))
	}
	require.NoError(t, it.Error())
	return keys
}

func TestIterEmpty(t *testing.T) {
	t.Parallel()
	m := NewInMemory()
	it := m.Iterator(ctx, nil)
	require.False(t, it.Next())
	require.NoError(t, it.Error())
}

func TestIterSeek(t *testing.T) {
	t.Parallel()
	m := newTestTree(3)
	keys := make([]uint, 50)
	for i := range keys {
		keys[i] = uint(i * 2)
	}
	require.NoError(t, putAll(m, keys))

	all := collect(t, m.Iterator(ctx, nil))
	require.Len(t, all, 50)
	require.True(t, sort.StringsAreSorted(all))

	fromPresent := collect(t, m.Iterator(ctx, testKey(40)))
	require.Equal(t, string(testKey(40)), fromPresent[0])
	require.Len(t, fromPresent, 30)

	fromAbsent := collect(t, m.Iterator(ctx, testKey(41)))
	require.Equal(t, string(testKey(42)), fromAbsent[0])
	require.Len(t, fromAbsent, 29)

	require.Empty(t, collect(t, m.Iterator(ctx, []byte("zzz"))))
}

func TestIterValues(t *testing.T) {
	t.Parallel()
	m := newTestTree(3)
	require.NoError(t, putAll(m, []uint{3, 1, 2}))
	it := m.Iterator(ctx, nil)
	var got [][2]string
	for it.Next() {
		got = append(got, [2]string{string(it.Key()), string(it.Value())})
	}
	require.NoError(t, it.Error())
	want := [][2]string{
		{string(testKey(1)), string(testValue(1))},
		{string(testKey(2)), string(testValue(2))},
		{string(testKey(3)), string(testValue(3))},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected entries (-want +got):\n%s", diff)
	}
}

func TestIterSeesSnapshot(t *testing.T) {
	t.Parallel()
	m := newTestTree(3)
	require.NoError(t, putAll(m, []uint{1, 2, 3, 4, 5}))
	it := m.Iterator(ctx, nil)
	require.True(t, it.Next())
	first := it.Key()
	require.NoError(t, deleteAll(m, []uint{1, 2, 3, 4, 5}))
	require.NoError(t, putAll(m, []uint{6}))
	rest := collect(t, it)
	require.Equal(t, string(testKey(1)), string(first))
	require.Equal(t, []string{
		string(testKey(2)), string(testKey(3)), string(testKey(4)), string(testKey(5)),
	}, rest)
}

func TestIterYieldsOwnedCopies(t *testing.T) {
	t.Parallel()
	m := newTestTree(3)
	require.NoError(t, putAll(m, []uint{1}))
	it := m.Iterator(ctx, nil)
	require.True(t, it.Next())
	it.Value()[0] = 'X'
	v, _, err := m.Get(ctx, testKey(1))
	require.NoError(t, err)
	require.Equal(t, testValue(1), v)
}

func TestIterMatchesModel(t *testing.T) {
	t.Parallel()
	properties := gopter.NewProperties(defaultGopterParameters)
	properties.Property("iteration from any start yields the sorted suffix",
		prop.ForAll(
			func(keys []uint, start uint) bool {
				m := newTestTree(3)
				if putAll(m, keys) != nil {
					return false
				}
				set := map[string]bool{}
				for _, k := range keys {
					set[string(testKey(k))] = true
				}
				var want []string
				for k := range set {
					if k >= string(testKey(start)) {
						want = append(want, k)
					}
				}
				sort.Strings(want)
				var got []string
				it := m.Iterator(ctx, testKey(start))
				for it.Next() {
					got = append(got, string(it.Key()))
				}
				return it.Error() == nil && cmp.Equal(want, got)
			},
			gen.SliceOf(gen.UIntRange(0, 300)),
			gen.UIntRange(0, 300),
		))
	properties.TestingRun(t)
}
