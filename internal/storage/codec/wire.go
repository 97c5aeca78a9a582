package codec

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Builder appends fields in the order they are written. Entity codecs write
// fields in ascending number order so output is deterministic.
type Builder struct {
	buf []byte
}

// NewBuilder returns a Builder sized for a typical record.
func NewBuilder() *Builder {
	return &Builder{buf: make([]byte, 0, 128)}
}

// Fixed64 writes v as a fixed-width field; used for ids and timestamps so a
// record's size does not depend on their magnitude.
func (b *Builder) Fixed64(num protowire.Number, v uint64) {
	b.buf = protowire.AppendTag(b.buf, num, protowire.Fixed64Type)
	b.buf = protowire.AppendFixed64(b.buf, v)
}

// Varint writes v unconditionally.
func (b *Builder) Varint(num protowire.Number, v uint64) {
	b.buf = protowire.AppendTag(b.buf, num, protowire.VarintType)
	b.buf = protowire.AppendVarint(b.buf, v)
}

// Bool writes v unconditionally.
func (b *Builder) Bool(num protowire.Number, v bool) {
	b.Varint(num, protowire.EncodeBool(v))
}

// Float32 writes v as fixed32 bits.
func (b *Builder) Float32(num protowire.Number, v float32) {
	b.buf = protowire.AppendTag(b.buf, num, protowire.Fixed32Type)
	b.buf = protowire.AppendFixed32(b.buf, math.Float32bits(v))
}

// Text writes s, omitting the field when empty.
func (b *Builder) Text(num protowire.Number, s string) {
	if s == "" {
		return
	}
	b.buf = protowire.AppendTag(b.buf, num, protowire.BytesType)
	b.buf = protowire.AppendString(b.buf, s)
}

// Texts writes every element, empty ones included.
func (b *Builder) Texts(num protowire.Number, ss []string) {
	for _, s := range ss {
		b.buf = protowire.AppendTag(b.buf, num, protowire.BytesType)
		b.buf = protowire.AppendString(b.buf, s)
	}
}

// Float32s writes vs as one packed field, omitted when empty.
func (b *Builder) Float32s(num protowire.Number, vs []float32) {
	if len(vs) == 0 {
		return
	}
	b.buf = protowire.AppendTag(b.buf, num, protowire.BytesType)
	b.buf = protowire.AppendVarint(b.buf, uint64(4*len(vs)))
	for _, v := range vs {
		b.buf = protowire.AppendFixed32(b.buf, math.Float32bits(v))
	}
}

// Bytes returns the encoded record.
func (b *Builder) Bytes() []byte {
	return b.buf
}

// Reader walks the fields of an encoded record:
//
//	r := codec.NewReader(data)
//	for r.Next() {
//		switch r.Num() {
//		case 1:
//			v.ID = r.Fixed64()
//		default:
//			r.Skip()
//		}
//	}
//	return v, r.Err()
//
// Every Next must be followed by exactly one value accessor or Skip.
type Reader struct {
	data []byte
	num  protowire.Number
	typ  protowire.Type
	err  error
}

// NewReader returns a Reader over data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Next advances to the next field.
func (r *Reader) Next() bool {
	if r.err != nil || len(r.data) == 0 {
		return false
	}
	num, typ, n := protowire.ConsumeTag(r.data)
	if n < 0 {
		r.fail(protowire.ParseError(n))
		return false
	}
	r.data = r.data[n:]
	r.num, r.typ = num, typ
	return true
}

// Num returns the current field number.
func (r *Reader) Num() protowire.Number { return r.num }

// Err returns the first decoding error.
func (r *Reader) Err() error { return r.err }

// Fixed64 consumes a fixed64 value.
func (r *Reader) Fixed64() uint64 {
	if !r.expect(protowire.Fixed64Type) {
		return 0
	}
	v, n := protowire.ConsumeFixed64(r.data)
	if !r.advance(n) {
		return 0
	}
	return v
}

// Varint consumes a varint value.
func (r *Reader) Varint() uint64 {
	if !r.expect(protowire.VarintType) {
		return 0
	}
	v, n := protowire.ConsumeVarint(r.data)
	if !r.advance(n) {
		return 0
	}
	return v
}

// Bool consumes a varint-encoded bool.
func (r *Reader) Bool() bool {
	return protowire.DecodeBool(r.Varint())
}

// Float32 consumes a fixed32 float.
func (r *Reader) Float32() float32 {
	if !r.expect(protowire.Fixed32Type) {
		return 0
	}
	v, n := protowire.ConsumeFixed32(r.data)
	if !r.advance(n) {
		return 0
	}
	return math.Float32frombits(v)
}

// Text consumes a length-delimited string.
func (r *Reader) Text() string {
	if !r.expect(protowire.BytesType) {
		return ""
	}
	v, n := protowire.ConsumeString(r.data)
	if !r.advance(n) {
		return ""
	}
	return v
}

// Float32s consumes a packed float list and appends it to dst. An unpacked
// fixed32 element is accepted as well.
func (r *Reader) Float32s(dst []float32) []float32 {
	if r.typ == protowire.Fixed32Type {
		return append(dst, r.Float32())
	}
	if !r.expect(protowire.BytesType) {
		return dst
	}
	packed, n := protowire.ConsumeBytes(r.data)
	if !r.advance(n) {
		return dst
	}
	if len(packed)%4 != 0 {
		r.fail(fmt.Errorf("field %d: packed length %d", r.num, len(packed)))
		return dst
	}
	for len(packed) > 0 {
		v, m := protowire.ConsumeFixed32(packed)
		packed = packed[m:]
		dst = append(dst, math.Float32frombits(v))
	}
	return dst
}

// Skip discards the current field's value.
func (r *Reader) Skip() {
	n := protowire.ConsumeFieldValue(r.num, r.typ, r.data)
	r.advance(n)
}

func (r *Reader) expect(typ protowire.Type) bool {
	if r.err != nil {
		return false
	}
	if r.typ != typ {
		r.fail(fmt.Errorf("field %d: wire type %d, want %d", r.num, r.typ, typ))
		return false
	}
	return true
}

func (r *Reader) advance(n int) bool {
	if n < 0 {
		r.fail(protowire.ParseError(n))
		return false
	}
	r.data = r.data[n:]
	return true
}

func (r *Reader) fail(err error) {
	if r.err == nil {
		r.err = fmt.Errorf("%w: %w", ErrMalformed, err)
	}
}
