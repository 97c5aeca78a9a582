// Package codec defines the storable contract every entity satisfies and the
// wire helpers entity codecs are written with.
//
// Records use the protobuf wire format with fixed field numbers. Changing a
// field number or wire type breaks every persisted record; add fields, never
// renumber.
package codec

import "fmt"

// MaxRecordSize bounds the encoded size of a single record in bytes.
const MaxRecordSize = 512

// Codec is a reversible mapping between T and its binary form.
// Decode(Encode(v)) must equal v for every valid v, and Encode must be
// deterministic. Implementations must be safe for concurrent use.
type Codec[T any] interface {
	Encode(v T) ([]byte, error)
	Decode(data []byte) (T, error)
}

// Marshal encodes v and enforces MaxRecordSize.
func Marshal[T any](c Codec[T], v T) ([]byte, error) {
	b, err := c.Encode(v)
	if err != nil {
		return nil, err
	}
	if len(b) > MaxRecordSize {
		return nil, fmt.Errorf("%w: %d > %d bytes", ErrRecordTooLarge, len(b), MaxRecordSize)
	}
	return b, nil
}

// Unmarshal decodes data, rejecting inputs larger than MaxRecordSize.
func Unmarshal[T any](c Codec[T], data []byte) (T, error) {
	if len(data) > MaxRecordSize {
		var zero T
		return zero, fmt.Errorf("%w: %d > %d bytes", ErrRecordTooLarge, len(data), MaxRecordSize)
	}
	return c.Decode(data)
}

// Size reports the encoded size of v without enforcing the bound.
func Size[T any](c Codec[T], v T) (int, error) {
	b, err := c.Encode(v)
	if err != nil {
		return 0, err
	}
	return len(b), nil
}
