package encoding

import (
	"encoding/binary"
	"fmt"
)

var (
	_ Codec[uint64] = Uint64{}
	_ Codec[uint32] = Uint32{}
	_ Codec[int64]  = Int64{}
	_ Codec[bool]   = Bool{}
)

// Uint64 encodes a uint64 as 8 big-endian bytes.
type Uint64 struct{}

func (c Uint64) Encode(v uint64) ([]byte, error) { return encode[uint64](c, v) }

func (Uint64) EncodingLength(uint64) (int, error) { return 8, nil }

func (Uint64) EncodeInto(dst []byte, v uint64) (int, error) {
	if err := checkSpace(dst, 8); err != nil {
		return 0, err
	}
	binary.BigEndian.PutUint64(dst, v)
	return 8, nil
}

func (Uint64) Decode(b []byte) (uint64, error) {
	if err := checkWidth(b, 8); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

// Uint32 encodes a uint32 as 4 big-endian bytes.
type Uint32 struct{}

func (c Uint32) Encode(v uint32) ([]byte, error) { return encode[uint32](c, v) }

func (Uint32) EncodingLength(uint32) (int, error) { return 4, nil }

func (Uint32) EncodeInto(dst []byte, v uint32) (int, error) {
	if err := checkSpace(dst, 4); err != nil {
		return 0, err
	}
	binary.BigEndian.PutUint32(dst, v)
	return 4, nil
}

func (Uint32) Decode(b []byte) (uint32, error) {
	if err := checkWidth(b, 4); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

// Int64 encodes an int64 as 8 big-endian bytes with the sign bit
// flipped, so negative values sort before positive ones.
type Int64 struct{}

func (c Int64) Encode(v int64) ([]byte, error) { return encode[int64](c, v) }

func (Int64) EncodingLength(int64) (int, error) { return 8, nil }

func (Int64) EncodeInto(dst []byte, v int64) (int, error) {
	return Uint64{}.EncodeInto(dst, uint64(v)^(1<<63))
}

func (Int64) Decode(b []byte) (int64, error) {
	u, err := Uint64{}.Decode(b)
	if err != nil {
		return 0, err
	}
	return int64(u ^ (1 << 63)), nil
}

// Bool encodes false as 0x00 and true as 0x01.
type Bool struct{}

func (c Bool) Encode(v bool) ([]byte, error) { return encode[bool](c, v) }

func (Bool) EncodingLength(bool) (int, error) { return 1, nil }

func (Bool) EncodeInto(dst []byte, v bool) (int, error) {
	if err := checkSpace(dst, 1); err != nil {
		return 0, err
	}
	dst[0] = 0
	if v {
		dst[0] = 1
	}
	return 1, nil
}

func (Bool) Decode(b []byte) (bool, error) {
	if err := checkWidth(b, 1); err != nil {
		return false, err
	}
	switch b[0] {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	return false, fmt.Errorf("%w: bool byte %#02x", ErrInvalidValue, b[0])
}

