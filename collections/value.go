package collections

import (
	"fmt"

	"github.com/jrhy/merkstore/encoding"
	"github.com/jrhy/merkstore/store"
)

// Value is a single typed value stored at the empty key of s. It is
// usually given a sub-store of its own.
type Value[T any] struct {
	s     store.ReadWriter
	codec encoding.Codec[T]
}

// NewValue returns a Value stored in s under the empty key.
func NewValue[T any](s store.ReadWriter, codec encoding.Codec[T]) *Value[T] {
	return &Value[T]{s: s, codec: codec}
}

// Get returns the value, and whether it has been set.
func (v *Value[T]) Get() (T, bool, error) {
	var zero T
	b, found, err := v.s.Get([]byte{})
	if err != nil || !found {
		return zero, false, err
	}
	t, err := v.codec.Decode(b)
	if err != nil {
		return zero, false, fmt.Errorf("decode value: %w", err)
	}
	return t, true, nil
}

// GetOr returns the value, or def if it has not been set.
func (v *Value[T]) GetOr(def T) (T, error) {
	t, found, err := v.Get()
	if err != nil || !found {
		return def, err
	}
	return t, nil
}

// Set encodes t with the codec and stores it.
func (v *Value[T]) Set(t T) error {
	b, err := v.codec.Encode(t)
	if err != nil {
		return fmt.Errorf("encode value: %w", err)
	}
	return v.s.Put([]byte{}, b)
}

// Clear deletes the value, so Get reports it as unset.
func (v *Value[T]) Clear() error {
	return v.s.Delete([]byte{})
}
