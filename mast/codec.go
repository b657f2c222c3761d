package mast

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

var errBadLength = errors.New("bad length")

func appendLength(buf []byte, n int) []byte {
	var tmpbuf [binary.MaxVarintLen64]byte
	width := binary.PutUvarint(tmpbuf[:], uint64(n))
	return append(buf, tmpbuf[:width]...)
}

func appendBytes(buf []byte, body []byte) []byte {
	buf = appendLength(buf, len(body))
	return append(buf, body...)
}

func appendByteSlices(buf []byte, l [][]byte) []byte {
	buf = appendLength(buf, len(l))
	for _, elem := range l {
		buf = appendBytes(buf, elem)
	}
	return buf
}

func decodeLength(buf []byte, n *int) ([]byte, error) {
	k, width := binary.Uvarint(buf)
	if width <= 0 {
		return nil, errBadLength
	}
	// every counted element occupies at least one byte
	if k > uint64(len(buf)-width) {
		return nil, fmt.Errorf("%w: %d", errBadLength, k)
	}
	*n = int(k)
	return buf[width:], nil
}

// decodeBytes always produces a non-nil body, so an empty value
// decodes as present-but-empty.
func decodeBytes(buf []byte, body *[]byte) ([]byte, error) {
	var err error
	var n int
	buf, err = decodeLength(buf, &n)
	if err != nil {
		return nil, err
	}
	if len(buf) < n {
		return nil, errors.New("bad body length")
	}
	*body = buf[:n:n]
	return buf[n:], nil
}

func decodeByteSlices(buf []byte, l *[][]byte) ([]byte, error) {
	var err error
	var total int
	buf, err = decodeLength(buf, &total)
	if err != nil {
		return nil, err
	}
	out := make([][]byte, total)
	for i := 0; i < total; i++ {
		buf, err = decodeBytes(buf, &out[i])
		if err != nil {
			return nil, err
		}
	}
	*l = out
	return buf, nil
}

func decodeLinks(buf []byte, l *[]interface{}) ([]byte, error) {
	var err error
	var total int
	buf, err = decodeLength(buf, &total)
	if err != nil {
		return nil, err
	}
	out := make([]interface{}, total)
	for i := 0; i < total; i++ {
		var body []byte
		buf, err = decodeBytes(buf, &body)
		if err != nil {
			return nil, err
		}
		if len(body) > 0 {
			out[i] = string(body)
		}
	}
	*l = out
	return buf, nil
}

// encodeNode serializes the node with each child replaced by its
// content name.
func encodeNode(node *mastNode) ([]byte, error) {
	buf := appendByteSlices(nil, node.Key)
	buf = appendByteSlices(buf, node.Value)
	buf = appendLength(buf, len(node.Link))
	for _, link := range node.Link {
		name, err := linkName(link)
		if err != nil {
			return nil, err
		}
		buf = appendLength(buf, len(name))
		buf = append(buf, name...)
	}
	return buf, nil
}

func decodeNode(buf []byte) (*mastNode, error) {
	var err error
	node := &mastNode{}
	buf, err = decodeByteSlices(buf, &node.Key)
	if err != nil {
		return nil, fmt.Errorf("decode node.Key: %w", err)
	}
	buf, err = decodeByteSlices(buf, &node.Value)
	if err != nil {
		return nil, fmt.Errorf("decode node.Value: %w", err)
	}
	buf, err = decodeLinks(buf, &node.Link)
	if err != nil {
		return nil, fmt.Errorf("decode node.Link: %w", err)
	}
	if len(buf) != 0 {
		return nil, fmt.Errorf("%d trailing bytes after node", len(buf))
	}
	if len(node.Value) != len(node.Key) {
		return nil, fmt.Errorf("mismatched keys and values")
	}
	if len(node.Link) != len(node.Key)+1 {
		return nil, fmt.Errorf("node has %d keys but %d links", len(node.Key), len(node.Link))
	}
	for i := 1; i < len(node.Key); i++ {
		if bytes.Compare(node.Key[i-1], node.Key[i]) >= 0 {
			return nil, fmt.Errorf("node keys out of order at %d", i)
		}
	}
	return node, nil
}
