package encoding

import (
	"bytes"
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func gopterParameters() *gopter.TestParameters {
	p := gopter.DefaultTestParameters()
	p.MinSuccessfulTests = 500
	return p
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}

func TestUint64(t *testing.T) {
	b, err := Uint64{}.Encode(0x0102030405060708)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, b)
	v, err := Uint64{}.Decode(b)
	require.NoError(t, err)
	require.Equal(t, uint64(0x0102030405060708), v)

	_, err = Uint64{}.Decode(b[:7])
	require.ErrorIs(t, err, ErrInvalidLength)
	_, err = Uint64{}.EncodeInto(make([]byte, 7), 1)
	require.ErrorIs(t, err, ErrBufferTooSmall)

	dst := make([]byte, 10)
	n, err := Uint64{}.EncodeInto(dst, 5)
	require.NoError(t, err)
	require.Equal(t, 8, n)
	require.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0, 5, 0, 0}, dst)
}

func TestUint32(t *testing.T) {
	b, err := Uint32{}.Encode(258)
	require.NoError(t, err)
	require.Equal(t, []byte{0, 0, 1, 2}, b)
	_, err = Uint32{}.Decode([]byte{1})
	require.ErrorIs(t, err, ErrInvalidLength)
}

func TestIntegerOrderIsByteOrder(t *testing.T) {
	properties := gopter.NewProperties(gopterParameters())
	properties.Property("uint64", prop.ForAll(
		func(a, b uint64) bool {
			ea, _ := Uint64{}.Encode(a)
			eb, _ := Uint64{}.Encode(b)
			want := 0
			if a < b {
				want = -1
			} else if a > b {
				want = 1
			}
			return bytes.Compare(ea, eb) == want
		},
		gen.UInt64(), gen.UInt64(),
	))
	properties.Property("int64", prop.ForAll(
		func(a, b int64) bool {
			ea, _ := Int64{}.Encode(a)
			eb, _ := Int64{}.Encode(b)
			da, err := Int64{}.Decode(ea)
			if err != nil || da != a {
				return false
			}
			want := 0
			if a < b {
				want = -1
			} else if a > b {
				want = 1
			}
			return sign(bytes.Compare(ea, eb)) == want
		},
		gen.Int64(), gen.Int64(),
	))
	properties.TestingRun(t)
}

func TestInt64Extremes(t *testing.T) {
	lo, err := Int64{}.Encode(math.MinInt64)
	require.NoError(t, err)
	require.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0, 0}, lo)
	hi, err := Int64{}.Encode(math.MaxInt64)
	require.NoError(t, err)
	require.Equal(t, []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}, hi)
	zero, err := Int64{}.Encode(0)
	require.NoError(t, err)
	require.Equal(t, []byte{0x80, 0, 0, 0, 0, 0, 0, 0}, zero)
}

func TestBool(t *testing.T) {
	b, err := Bool{}.Encode(true)
	require.NoError(t, err)
	require.Equal(t, []byte{1}, b)
	v, err := Bool{}.Decode([]byte{0})
	require.NoError(t, err)
	require.False(t, v)
	_, err = Bool{}.Decode([]byte{2})
	require.ErrorIs(t, err, ErrInvalidValue)
	_, err = Bool{}.Decode(nil)
	require.ErrorIs(t, err, ErrInvalidLength)
}

func TestBytesAndString(t *testing.T) {
	in := []byte("abc")
	b, err := Bytes{}.Encode(in)
	require.NoError(t, err)
	in[0] = 'x'
	assert.Equal(t, []byte("abc"), b, "Encode copies")

	n, err := String{}.EncodingLength("héllo")
	require.NoError(t, err)
	require.Equal(t, 6, n)
	_, err = String{}.EncodeInto(make([]byte, 5), "héllo")
	require.ErrorIs(t, err, ErrBufferTooSmall)
	s, err := String{}.Decode([]byte("héllo"))
	require.NoError(t, err)
	require.Equal(t, "héllo", s)

	empty, err := Bytes{}.Decode(nil)
	require.NoError(t, err)
	require.NotNil(t, empty)
	require.Empty(t, empty)
}

func stringValueCodec() Proto[*wrapperspb.StringValue] {
	return Proto[*wrapperspb.StringValue]{New: func() *wrapperspb.StringValue {
		return &wrapperspb.StringValue{}
	}}
}

func TestProto(t *testing.T) {
	codec := stringValueCodec()
	msg := wrapperspb.String("merkle")
	b, err := codec.Encode(msg)
	require.NoError(t, err)
	n, err := codec.EncodingLength(msg)
	require.NoError(t, err)
	require.Len(t, b, n)

	dst := make([]byte, n+4)
	written, err := codec.EncodeInto(dst, msg)
	require.NoError(t, err)
	require.Equal(t, n, written)
	require.Equal(t, b, dst[:n])
	_, err = codec.EncodeInto(dst[:n-1], msg)
	require.ErrorIs(t, err, ErrBufferTooSmall)

	decoded, err := codec.Decode(b)
	require.NoError(t, err)
	require.True(t, proto.Equal(msg, decoded))

	_, err = codec.Decode([]byte{0x0a, 0x10})
	require.Error(t, err)
}

func TestProtoEmptyMessage(t *testing.T) {
	codec := stringValueCodec()
	b, err := codec.Encode(&wrapperspb.StringValue{})
	require.NoError(t, err)
	require.Empty(t, b)
	decoded, err := codec.Decode(b)
	require.NoError(t, err)
	require.Equal(t, "", decoded.GetValue())
}
