package encoding

var (
	_ Codec[[]byte] = Bytes{}
	_ Codec[string] = String{}
)

// Bytes encodes a byte slice as itself. It is only suitable where the
// encoding fills the whole key or value.
type Bytes struct{}

func (Bytes) Encode(v []byte) ([]byte, error) {
	return append([]byte{}, v...), nil
}

func (Bytes) EncodingLength(v []byte) (int, error) { return len(v), nil }

func (Bytes) EncodeInto(dst, v []byte) (int, error) {
	if err := checkSpace(dst, len(v)); err != nil {
		return 0, err
	}
	return copy(dst, v), nil
}

func (Bytes) Decode(b []byte) ([]byte, error) {
	return append([]byte{}, b...), nil
}

// String encodes a string as its bytes.
type String struct{}

func (String) Encode(v string) ([]byte, error) {
	return []byte(v), nil
}

func (String) EncodingLength(v string) (int, error) { return len(v), nil }

func (String) EncodeInto(dst []byte, v string) (int, error) {
	if err := checkSpace(dst, len(v)); err != nil {
		return 0, err
	}
	return copy(dst, v), nil
}

func (String) Decode(b []byte) (string, error) {
	return string(b), nil
}
