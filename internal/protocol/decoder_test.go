package protocol

import (
	"bytes"
	"errors"
	"reflect"
	"testing"
)

func encode(t *testing.T, v Value) []byte {
	t.Helper()
	data, err := NewPacketBuilder().WriteValue(v).Build()
	if err != nil {
		t.Fatalf("encode %s: %v", v.Type, err)
	}
	return append([]byte(nil), data...)
}

func TestDecodePrimitives(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want any
	}{
		{"byte", []byte{'b', 0x7F}, byte(0x7F)},
		{"bool true", []byte{'o', 1}, true},
		{"bool false", []byte{'o', 0}, false},
		{"short", []byte{'k', 0xFF, 0xFE}, int16(-2)},
		{"int", []byte{'i', 0x00, 0x00, 0x01, 0x00}, int32(256)},
		{"long", []byte{'l', 0, 0, 0, 0, 0, 0, 0, 42}, int64(42)},
		{"float", []byte{'f', 0x3F, 0x80, 0x00, 0x00}, float32(1)},
		{"double", []byte{'d', 0x40, 0x00, 0, 0, 0, 0, 0, 0}, float64(2)},
		{"string", []byte{'s', 0x00, 0x02, 'h', 'i'}, "hi"},
		{"null", []byte{'*'}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReader(tt.in)
			v, err := Decode(r)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got := v.Native(); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("expected %#v, got %#v", tt.want, got)
			}
			if r.Remaining() != 0 {
				t.Fatalf("expected input fully consumed, %d bytes left", r.Remaining())
			}
		})
	}
}

func TestDecodeArrays(t *testing.T) {
	in := []byte{
		'n', 0, 0, 0, 2, 0, 0, 0, 1, 0xFF, 0xFF, 0xFF, 0xFF,
	}
	v, err := Decode(NewReader(in))
	if err != nil {
		t.Fatalf("decode int[]: %v", err)
	}
	if got := v.Native().([]int32); !reflect.DeepEqual(got, []int32{1, -1}) {
		t.Fatalf("unexpected int[] %v", got)
	}

	in = []byte{'a', 0, 2, 0, 1, 'a', 0, 2, 'b', 'c'}
	v, err = Decode(NewReader(in))
	if err != nil {
		t.Fatalf("decode string[]: %v", err)
	}
	if got := v.Native().([]string); !reflect.DeepEqual(got, []string{"a", "bc"}) {
		t.Fatalf("unexpected string[] %v", got)
	}

	// object[] elements carry their own tags and may differ in type.
	in = []byte{'z', 0, 3, 'i', 0, 0, 0, 7, 's', 0, 1, 'x', '*'}
	v, err = Decode(NewReader(in))
	if err != nil {
		t.Fatalf("decode object[]: %v", err)
	}
	want := []any{int32(7), "x", nil}
	if got := v.Native(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %#v, got %#v", want, got)
	}
}

func TestDecodeHashtableIsFullyTagged(t *testing.T) {
	in := []byte{
		'h', 0, 2,
		'b', 1, 's', 0, 3, 'o', 'n', 'e',
		's', 0, 1, 'k', 'z', 0, 1, 'i', 0, 0, 0, 9,
	}
	v, err := Decode(NewReader(in))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	got := v.Native().(map[any]any)
	if got[byte(1)] != "one" {
		t.Fatalf("expected key 1 -> one, got %#v", got)
	}
	if !reflect.DeepEqual(got["k"], []any{int32(9)}) {
		t.Fatalf("expected key k -> [9], got %#v", got["k"])
	}
}

func TestDecodeDictionaryUsesDeclaredTags(t *testing.T) {
	// key-tag=int, value-tag=string, two entries, no per-entry tag bytes.
	in := []byte{
		'D', 'i', 's', 0, 2,
		0, 0, 0, 1, 0, 1, 'a',
		0, 0, 0, 2, 0, 1, 'b',
	}
	r := NewReader(in)
	v, err := Decode(r)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := map[any]any{int32(1): "a", int32(2): "b"}
	if got := v.Native(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %#v, got %#v", want, got)
	}
	if r.Remaining() != 0 {
		t.Fatalf("expected no trailing bytes, got %d", r.Remaining())
	}

	dict := v.Data.(*Dictionary)
	if dict.KeyType != TypeInteger || dict.ValueType != TypeString {
		t.Fatalf("unexpected declared types %s/%s", dict.KeyType, dict.ValueType)
	}
}

func TestDecodeDictionaryWithUntypedValues(t *testing.T) {
	// declared value type 0: every value brings its own tag.
	in := []byte{
		'D', 's', 0, 0, 2,
		0, 1, 'a', 'i', 0, 0, 0, 5,
		0, 1, 'b', 's', 0, 1, 'q',
	}
	v, err := Decode(NewReader(in))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := map[any]any{"a": int32(5), "b": "q"}
	if got := v.Native(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %#v, got %#v", want, got)
	}
}

func TestDecodeObjectTypedDictionary(t *testing.T) {
	// declared value type '*': object-typed, every value is tagged.
	in := []byte{
		'D', 'i', '*', 0, 1,
		0, 0, 0, 1, 's', 0, 1, 'a',
		'b', 9,
	}
	r := NewReader(in)
	v, err := Decode(r)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := map[any]any{int32(1): "a"}
	if got := v.Native(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %#v, got %#v", want, got)
	}
	if r.Remaining() != 2 {
		t.Fatalf("expected the trailing value untouched, %d bytes remain", r.Remaining())
	}
	next, err := Decode(r)
	if err != nil || next.Data != byte(9) {
		t.Fatalf("expected trailing byte 9, got %v (%v)", next, err)
	}
}

func TestDecodeTypedFloatArray(t *testing.T) {
	in := encode(t, FloatsValue(1.5, -2))
	v, err := Decode(NewReader(in))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := v.Native(); !reflect.DeepEqual(got, []any{float32(1.5), float32(-2)}) {
		t.Fatalf("unexpected array %#v", got)
	}
}

func TestDecodeUnknownTag(t *testing.T) {
	r := NewReader([]byte{'Q', 1, 2, 3})
	_, err := Decode(r)
	if !errors.Is(err, ErrUnknownTag) {
		t.Fatalf("expected ErrUnknownTag, got %v", err)
	}
	var de *DecodeError
	if !errors.As(err, &de) || de.Tag != 'Q' || de.Offset != 0 {
		t.Fatalf("expected DecodeError for tag Q at offset 0, got %#v", err)
	}
	if r.Valid() {
		t.Fatal("expected reader to be invalid after unknown tag")
	}
}

func TestDecodeUnknownTagInsideContainer(t *testing.T) {
	_, err := Decode(NewReader([]byte{'z', 0, 2, 'b', 1, 0xEE}))
	if !errors.Is(err, ErrUnknownTag) {
		t.Fatalf("expected ErrUnknownTag, got %v", err)
	}
}

func TestDecodeTruncatedByteArrayPoisonsReader(t *testing.T) {
	// declares 10 bytes, only 3 follow.
	r := NewReader([]byte{'x', 0, 0, 0, 10, 1, 2, 3})
	_, err := Decode(r)
	if !errors.Is(err, ErrTruncatedInput) {
		t.Fatalf("expected ErrTruncatedInput, got %v", err)
	}
	if r.Valid() || r.Remaining() != 0 {
		t.Fatalf("expected invalid reader with nothing remaining, valid=%v remaining=%d", r.Valid(), r.Remaining())
	}
	if _, err := r.ReadByte(); !errors.Is(err, ErrTruncatedInput) {
		t.Fatalf("expected later reads to fail with the same error, got %v", err)
	}
}

func TestDecodeTruncatedPrimitives(t *testing.T) {
	inputs := [][]byte{
		{},
		{'k', 0},
		{'i', 0, 0, 0},
		{'l', 0, 0, 0, 0},
		{'d', 0},
		{'s', 0, 5, 'a'},
		{'n', 0, 0, 0, 2, 0, 0, 0, 1},
		{'a', 0, 2, 0, 1, 'a'},
		{'h', 0, 1, 'b', 1},
		{'D', 'i', 's', 0, 1, 0, 0, 0, 1},
	}
	for _, in := range inputs {
		if _, err := Decode(NewReader(in)); !errors.Is(err, ErrTruncatedInput) {
			t.Fatalf("input %v: expected ErrTruncatedInput, got %v", in, err)
		}
	}
}

func TestDecodeRejectsDeepNesting(t *testing.T) {
	var in []byte
	for i := 0; i <= MaxDepth+1; i++ {
		in = append(in, 'z', 0, 1)
	}
	in = append(in, '*')
	if _, err := Decode(NewReader(in)); !errors.Is(err, ErrTooDeep) {
		t.Fatalf("expected ErrTooDeep, got %v", err)
	}
}

func TestRoundTrip(t *testing.T) {
	values := []Value{
		NullValue(),
		ByteValue(200),
		BoolValue(true),
		ShortValue(-300),
		IntValue(123456),
		LongValue(-1 << 40),
		FloatValue(3.25),
		DoubleValue(-0.5),
		StringValue("JohnDoe"),
		StringValue(""),
		BytesValue([]byte{1, 2, 3}),
		IntsValue(1, 2, -3),
		StringsValue("a", "", "ccc"),
		ObjectArrayValue(IntValue(1), StringValue("two"), NullValue()),
		FloatsValue(123.45, 67.89),
		HashtableValue(
			Entry{Key: ByteValue(1), Value: StringValue("a")},
			Entry{Key: StringValue("nested"), Value: ObjectArrayValue(LongValue(5))},
		),
		DictionaryValue(TypeInteger, TypeString,
			Entry{Key: IntValue(1), Value: StringValue("a")},
			Entry{Key: IntValue(2), Value: StringValue("b")},
		),
		DictionaryValue(TypeString, TypeUnknown,
			Entry{Key: StringValue("x"), Value: BoolValue(false)},
		),
		DictionaryValue(TypeInteger, TypeNull,
			Entry{Key: IntValue(1), Value: StringValue("a")},
			Entry{Key: IntValue(2), Value: FloatsValue(1, 2)},
		),
	}

	for _, v := range values {
		in := encode(t, v)
		r := NewReader(in)
		decoded, err := Decode(r)
		if err != nil {
			t.Fatalf("%s: decode: %v", v.Type, err)
		}
		out := encode(t, decoded)
		if !bytes.Equal(in, out) {
			t.Fatalf("%s: round trip mismatch\n in=%x\nout=%x", v.Type, in, out)
		}
	}
}

func TestRoundTripBooleanNormalises(t *testing.T) {
	v, err := Decode(NewReader([]byte{'o', 2}))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if v.Data != true {
		t.Fatalf("expected true, got %v", v)
	}
	if out := encode(t, v); !bytes.Equal(out, []byte{'o', 1}) {
		t.Fatalf("expected 6f01, got %x", out)
	}
}
