package encoding

import (
	"fmt"

	"google.golang.org/protobuf/proto"
)

var marshalOptions = proto.MarshalOptions{Deterministic: true}

// Proto encodes protobuf messages with deterministic marshaling, so
// equal messages always produce equal bytes. New returns an empty
// message to decode into.
//
//	codec := encoding.Proto[*wrapperspb.StringValue]{New: func() *wrapperspb.StringValue {
//		return &wrapperspb.StringValue{}
//	}}
type Proto[M proto.Message] struct {
	New func() M
}

func (c Proto[M]) Encode(v M) ([]byte, error) {
	b, err := marshalOptions.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal %T: %w", v, err)
	}
	return b, nil
}

func (c Proto[M]) EncodingLength(v M) (int, error) {
	return marshalOptions.Size(v), nil
}

func (c Proto[M]) EncodeInto(dst []byte, v M) (int, error) {
	n := marshalOptions.Size(v)
	if err := checkSpace(dst, n); err != nil {
		return 0, err
	}
	b, err := marshalOptions.MarshalAppend(dst[:0:n], v)
	if err != nil {
		return 0, fmt.Errorf("marshal %T: %w", v, err)
	}
	return len(b), nil
}

func (c Proto[M]) Decode(b []byte) (M, error) {
	m := c.New()
	if err := proto.Unmarshal(b, m); err != nil {
		var zero M
		return zero, fmt.Errorf("unmarshal %T: %w", m, err)
	}
	return m, nil
}
