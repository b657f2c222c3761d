// Package encoding defines how typed values become the byte keys and
// values of a store, and provides codecs for common types.
//
// Integer codecs are fixed-width big-endian so that the byte order of
// encoded keys matches the numeric order of the values, which keeps
// iteration over a typed collection in key order.
package encoding

import (
	"errors"
	"fmt"
)

var (
	// ErrBufferTooSmall is returned by EncodeInto when dst cannot hold
	// the encoding.
	ErrBufferTooSmall = errors.New("encoding: buffer too small")
	// ErrInvalidLength is returned by Decode when the input is not the
	// width the codec expects.
	ErrInvalidLength = errors.New("encoding: invalid length")
	// ErrInvalidValue is returned by Decode for input of the right
	// width that no value encodes to.
	ErrInvalidValue = errors.New("encoding: invalid value")
)

// Codec converts values of type T to and from bytes.
type Codec[T any] interface {
	// Encode returns a new exactly-sized encoding of v.
	Encode(v T) ([]byte, error)
	// EncodeInto writes the encoding of v to the start of dst and
	// returns the number of bytes written.
	EncodeInto(dst []byte, v T) (int, error)
	// EncodingLength returns the length of the encoding of v.
	EncodingLength(v T) (int, error)
	// Decode parses a value from the whole of b.
	Decode(b []byte) (T, error)
}

func encode[T any](c Codec[T], v T) ([]byte, error) {
	n, err := c.EncodingLength(v)
	if err != nil {
		return nil, err
	}
	b := make([]byte, n)
	if _, err := c.EncodeInto(b, v); err != nil {
		return nil, err
	}
	return b, nil
}

func checkSpace(dst []byte, n int) error {
	if len(dst) < n {
		return fmt.Errorf("%w: need %d bytes, have %d", ErrBufferTooSmall, n, len(dst))
	}
	return nil
}

func checkWidth(b []byte, n int) error {
	if len(b) != n {
		return fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidLength, n, len(b))
	}
	return nil
}
