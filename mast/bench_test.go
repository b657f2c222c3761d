package mast

import (
	"encoding/binary"
	"testing"
)

func benchKey(n int) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(n))
	return b[:]
}

func benchmarkApply(batchSize int, b *testing.B) {
	m := NewInMemory()
	batch := make([]BatchEntry, batchSize)
	n := 0
	for i := 0; i < b.N; i++ {
		for j := range batch {
			batch[j] = BatchEntry{Key: benchKey(n), Op: Put, Value: benchKey(n)}
			n++
		}
		if err := m.Apply(ctx, batch, nil); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkApply1(b *testing.B)   { benchmarkApply(1, b) }
func BenchmarkApply100(b *testing.B) { benchmarkApply(100, b) }
func BenchmarkApply1k(b *testing.B)  { benchmarkApply(1_000, b) }

func benchmarkGet(size int, b *testing.B) {
	m := NewInMemory()
	batch := make([]BatchEntry, size)
	for j := range batch {
		batch[j] = BatchEntry{Key: benchKey(j), Op: Put, Value: benchKey(j)}
	}
	if err := m.Apply(ctx, batch, nil); err != nil {
		b.Fatal(err)
	}
	if err := m.Flush(ctx); err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := m.Get(ctx, benchKey(i%size)); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkGet1k(b *testing.B)   { benchmarkGet(1_000, b) }
func BenchmarkGet100k(b *testing.B) { benchmarkGet(100_000, b) }

func BenchmarkFlush10k(b *testing.B) {
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		m := NewInMemory()
		batch := make([]BatchEntry, 10_000)
		for j := range batch {
			batch[j] = BatchEntry{Key: benchKey(j), Op: Put, Value: benchKey(j)}
		}
		if err := m.Apply(ctx, batch, nil); err != nil {
			b.Fatal(err)
		}
		b.StartTimer()
		if err := m.Flush(ctx); err != nil {
			b.Fatal(err)
		}
	}
}
