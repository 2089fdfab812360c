package protocol

import (
	"errors"
	"testing"
)

func buildParams(t *testing.T, params ...Param) []byte {
	t.Helper()
	data, err := NewPacketBuilder().WriteParameters(params).Build()
	if err != nil {
		t.Fatalf("build params: %v", err)
	}
	return append([]byte(nil), data...)
}

func TestReadParametersLastWriteWins(t *testing.T) {
	in := buildParams(t,
		Param{Key: 1, Value: IntValue(10)},
		Param{Key: 2, Value: StringValue("keep")},
		Param{Key: 1, Value: IntValue(20)},
	)
	r := NewReader(in)
	count, _ := r.ReadUint16()

	p, err := ReadParameters(r, int(count))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if p.Len() != 2 {
		t.Fatalf("expected 2 distinct keys, got %d", p.Len())
	}
	if v, _ := p.Int(1); v != 20 {
		t.Fatalf("expected last value 20 for key 1, got %d", v)
	}
	keys := p.Keys()
	if keys[0] != 1 || keys[1] != 2 {
		t.Fatalf("expected first-seen key order [1 2], got %v", keys)
	}
}

func TestReadParametersUntilEnd(t *testing.T) {
	in := []byte{
		1, 'b', 5,
		7, 's', 0, 2, 'o', 'k',
	}
	p, err := ReadParameters(NewReader(in), UntilEnd)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if s, ok := p.String(7); !ok || s != "ok" {
		t.Fatalf("expected key 7 = ok, got %q", s)
	}
	if v, ok := p.Int(1); !ok || v != 5 {
		t.Fatalf("expected key 1 = 5, got %d", v)
	}
}

func TestReadParametersFailsWholeTable(t *testing.T) {
	in := []byte{1, 'b', 5, 2, 'x', 0, 0, 0, 9}
	p, err := ReadParameters(NewReader(in), 2)
	if !errors.Is(err, ErrTruncatedInput) {
		t.Fatalf("expected ErrTruncatedInput, got %v", err)
	}
	if p != nil {
		t.Fatal("expected no partial table on error")
	}
}

func TestParameterAccessors(t *testing.T) {
	in := buildParams(t,
		Param{Key: 1, Value: ShortValue(-4)},
		Param{Key: 2, Value: FloatsValue(123.45, 67.89)},
		Param{Key: 3, Value: ObjectArrayValue(IntValue(3), DoubleValue(4.5))},
		Param{Key: 4, Value: BoolValue(true)},
		Param{Key: 5, Value: FloatsValue(1)},
	)
	r := NewReader(in)
	count, _ := r.ReadUint16()
	p, err := ReadParameters(r, int(count))
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if v, ok := p.Int(1); !ok || v != -4 {
		t.Fatalf("Int(1) = %d, %v", v, ok)
	}
	if f, ok := p.Float(1); !ok || f != -4 {
		t.Fatalf("Float(1) = %f, %v", f, ok)
	}
	pos, ok := p.Position(2)
	if !ok || pos.X != 123.45 || pos.Y != 67.89 {
		t.Fatalf("Position(2) = %+v, %v", pos, ok)
	}
	pos, ok = p.Position(3)
	if !ok || pos.X != 3 || pos.Y != 4.5 {
		t.Fatalf("Position(3) = %+v, %v", pos, ok)
	}
	if b, ok := p.Bool(4); !ok || !b {
		t.Fatalf("Bool(4) = %v, %v", b, ok)
	}
	if _, ok := p.Position(5); ok {
		t.Fatal("expected a one-element array not to be a position")
	}
	if _, ok := p.String(1); ok {
		t.Fatal("expected String on a short to fail")
	}
	if p.Has(9) {
		t.Fatal("expected key 9 to be absent")
	}
}
