package collections

import (
	"reflect"

	"github.com/jrhy/merkstore/encoding"
)

var reflectMapOp = reflect.TypeOf(mapOp{})

// uint16Codec widens to encoding.Uint32 to exercise a codec defined
// outside the encoding package.
type uint16Codec struct{}

func (uint16Codec) Encode(v uint16) ([]byte, error) { return encoding.Uint32{}.Encode(uint32(v)) }

func (uint16Codec) EncodeInto(dst []byte, v uint16) (int, error) {
	return encoding.Uint32{}.EncodeInto(dst, uint32(v))
}

func (uint16Codec) EncodingLength(v uint16) (int, error) {
	return encoding.Uint32{}.EncodingLength(uint32(v))
}

func (uint16Codec) Decode(b []byte) (uint16, error) {
	v, err := encoding.Uint32{}.Decode(b)
	return uint16(v), err
}
