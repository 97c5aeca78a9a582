package codec

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

type sample struct {
	ID     uint64
	Name   string
	Tags   []string
	Scores []float32
	Count  uint64
	Live   bool
}

type sampleCodec struct{}

func (sampleCodec) Encode(v sample) ([]byte, error) {
	b := NewBuilder()
	b.Fixed64(1, v.ID)
	b.Text(2, v.Name)
	b.Texts(3, v.Tags)
	b.Float32s(4, v.Scores)
	b.Varint(5, v.Count)
	b.Bool(6, v.Live)
	return b.Bytes(), nil
}

func (sampleCodec) Decode(data []byte) (sample, error) {
	v := sample{Tags: []string{}, Scores: []float32{}}
	r := NewReader(data)
	for r.Next() {
		switch r.Num() {
		case 1:
			v.ID = r.Fixed64()
		case 2:
			v.Name = r.Text()
		case 3:
			v.Tags = append(v.Tags, r.Text())
		case 4:
			v.Scores = r.Float32s(v.Scores)
		case 5:
			v.Count = r.Varint()
		case 6:
			v.Live = r.Bool()
		default:
			r.Skip()
		}
	}
	return v, r.Err()
}

func TestMarshal_RoundTrip(t *testing.T) {
	in := sample{
		ID:     42,
		Name:   "widget",
		Tags:   []string{"a", "", "c"},
		Scores: []float32{0, 2.5, 5},
		Count:  7,
		Live:   true,
	}
	b, err := Marshal[sample](sampleCodec{}, in)
	require.NoError(t, err)

	out, err := Unmarshal[sample](sampleCodec{}, b)
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestMarshal_Deterministic(t *testing.T) {
	in := sample{ID: 1, Name: "x", Scores: []float32{1, 2}}
	a, err := Marshal[sample](sampleCodec{}, in)
	require.NoError(t, err)
	b, err := Marshal[sample](sampleCodec{}, in)
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestMarshal_EmptyRepeatedFieldsDecodeNonNil(t *testing.T) {
	b, err := Marshal[sample](sampleCodec{}, sample{ID: 3})
	require.NoError(t, err)
	out, err := Unmarshal[sample](sampleCodec{}, b)
	require.NoError(t, err)
	require.NotNil(t, out.Tags)
	require.NotNil(t, out.Scores)
	require.Empty(t, out.Scores)
}

func TestMarshal_RejectsOversizeRecord(t *testing.T) {
	_, err := Marshal[sample](sampleCodec{}, sample{Name: strings.Repeat("x", MaxRecordSize)})
	require.ErrorIs(t, err, ErrRecordTooLarge)

	_, err = Unmarshal[sample](sampleCodec{}, make([]byte, MaxRecordSize+1))
	require.ErrorIs(t, err, ErrRecordTooLarge)
}

func TestMarshal_AcceptsRecordAtBound(t *testing.T) {
	// id(9) + count(2) + live(2) are always present; the name costs tag(1) + length(2).
	name := strings.Repeat("y", MaxRecordSize-13-3)
	b, err := Marshal[sample](sampleCodec{}, sample{Name: name})
	require.NoError(t, err)
	require.Len(t, b, MaxRecordSize)
}

func TestReader_SkipsUnknownFields(t *testing.T) {
	b, err := sampleCodec{}.Encode(sample{ID: 9, Name: "n"})
	require.NoError(t, err)
	b = protowire.AppendTag(b, 99, protowire.BytesType)
	b = protowire.AppendString(b, "future")
	b = protowire.AppendTag(b, 100, protowire.VarintType)
	b = protowire.AppendVarint(b, 12345)

	out, err := sampleCodec{}.Decode(b)
	require.NoError(t, err)
	require.Equal(t, uint64(9), out.ID)
	require.Equal(t, "n", out.Name)
}

func TestReader_RejectsMalformedInput(t *testing.T) {
	t.Run("truncated", func(t *testing.T) {
		b, err := sampleCodec{}.Encode(sample{ID: 5, Name: "hello"})
		require.NoError(t, err)
		_, err = sampleCodec{}.Decode(b[:len(b)-2])
		require.ErrorIs(t, err, ErrMalformed)
	})
	t.Run("wrong wire type", func(t *testing.T) {
		b := protowire.AppendTag(nil, 1, protowire.VarintType)
		b = protowire.AppendVarint(b, 5)
		_, err := sampleCodec{}.Decode(b)
		require.ErrorIs(t, err, ErrMalformed)
	})
	t.Run("ragged packed floats", func(t *testing.T) {
		b := protowire.AppendTag(nil, 4, protowire.BytesType)
		b = protowire.AppendBytes(b, []byte{1, 2, 3})
		_, err := sampleCodec{}.Decode(b)
		require.ErrorIs(t, err, ErrMalformed)
	})
}

func TestReader_AcceptsUnpackedFloats(t *testing.T) {
	var b []byte
	for _, v := range []float32{1.5, 4} {
		b = protowire.AppendTag(b, 4, protowire.Fixed32Type)
		b = protowire.AppendFixed32(b, math.Float32bits(v))
	}
	out, err := sampleCodec{}.Decode(b)
	require.NoError(t, err)
	require.Equal(t, []float32{1.5, 4}, out.Scores)
}
