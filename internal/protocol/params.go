package protocol

import "math"

// UntilEnd makes ReadParameters consume pairs until the input is exhausted, for
// bodies that carry no entry count.
const UntilEnd = -1

// Vec2 is a 2-D world coordinate.
type Vec2 struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
}

// Parameters is one packet's decoded key/value table. It is immutable once built.
type Parameters struct {
	keys   []byte
	values map[byte]any
}

// ReadParameters reads count (key byte, tagged value) pairs. A key seen twice keeps
// its first position and its last value. On error no table is returned.
func ReadParameters(r *Reader, count int) (*Parameters, error) {
	size := count
	if size < 0 {
		size = 8
	}
	p := &Parameters{
		keys:   make([]byte, 0, capacity(r, size, 2)),
		values: make(map[byte]any, capacity(r, size, 2)),
	}
	for i := 0; count < 0 || i < count; i++ {
		if count < 0 && r.Valid() && r.Remaining() == 0 {
			break
		}
		key, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		v, err := Decode(r)
		if err != nil {
			return nil, err
		}
		p.set(key, v.Native())
	}
	return p, nil
}

func (p *Parameters) set(key byte, v any) {
	if _, ok := p.values[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.values[key] = v
}

// Len returns the number of distinct keys.
func (p *Parameters) Len() int {
	return len(p.keys)
}

// Keys returns the keys in first-seen order.
func (p *Parameters) Keys() []byte {
	out := make([]byte, len(p.keys))
	copy(out, p.keys)
	return out
}

// Raw returns the native value stored under key.
func (p *Parameters) Raw(key byte) (any, bool) {
	v, ok := p.values[key]
	return v, ok
}

// Has reports whether key is present.
func (p *Parameters) Has(key byte) bool {
	_, ok := p.values[key]
	return ok
}

// Int returns any integer-typed value under key widened to int64.
func (p *Parameters) Int(key byte) (int64, bool) {
	v, ok := p.values[key]
	if !ok {
		return 0, false
	}
	return toInt(v)
}

// Float returns any numeric value under key as float64.
func (p *Parameters) Float(key byte) (float64, bool) {
	v, ok := p.values[key]
	if !ok {
		return 0, false
	}
	return toFloat(v)
}

// String returns a string value under key.
func (p *Parameters) String(key byte) (string, bool) {
	s, ok := p.values[key].(string)
	return s, ok
}

// Bool returns a boolean value under key.
func (p *Parameters) Bool(key byte) (bool, bool) {
	b, ok := p.values[key].(bool)
	return b, ok
}

// Position reads a coordinate pair. It accepts any array whose first two
// elements are numeric.
func (p *Parameters) Position(key byte) (Vec2, bool) {
	switch arr := p.values[key].(type) {
	case []any:
		if len(arr) < 2 {
			return Vec2{}, false
		}
		x, okX := toFloat(arr[0])
		y, okY := toFloat(arr[1])
		if !okX || !okY {
			return Vec2{}, false
		}
		return Vec2{X: float32(x), Y: float32(y)}, true
	case []int32:
		if len(arr) < 2 {
			return Vec2{}, false
		}
		return Vec2{X: float32(arr[0]), Y: float32(arr[1])}, true
	case []byte:
		if len(arr) < 8 {
			return Vec2{}, false
		}
		r := NewReader(arr)
		x, _ := r.ReadFloat32()
		y, _ := r.ReadFloat32()
		return Vec2{X: x, Y: y}, true
	}
	return Vec2{}, false
}

func toInt(v any) (int64, bool) {
	switch n := v.(type) {
	case byte:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float32:
		return float64(n), true
	case float64:
		if math.IsNaN(n) {
			return 0, false
		}
		return n, true
	}
	if i, ok := toInt(v); ok {
		return float64(i), true
	}
	return 0, false
}
