package protocol

// Decode reads one tag byte and the value it announces.
func Decode(r *Reader) (Value, error) {
	return decoder{r: r}.tagged()
}

// DecodeAs reads the payload of a value whose tag is already known.
func DecodeAs(r *Reader, t TypeCode) (Value, error) {
	return decoder{r: r}.payload(t)
}

type decoder struct {
	r     *Reader
	depth int
}

func (d decoder) tagged() (Value, error) {
	tag, err := d.r.ReadByte()
	if err != nil {
		return Value{}, err
	}
	return d.payload(TypeCode(tag))
}

func (d decoder) nested() (decoder, error) {
	if d.depth >= MaxDepth {
		err := &DecodeError{Offset: d.r.Offset(), Err: ErrTooDeep}
		d.r.fail(err)
		return d, err
	}
	return decoder{r: d.r, depth: d.depth + 1}, nil
}

func (d decoder) payload(t TypeCode) (Value, error) {
	r := d.r
	switch t {
	case TypeNull:
		return Value{Type: TypeNull}, r.Err()
	case TypeByte:
		b, err := r.ReadByte()
		return result(t, b, err)
	case TypeBoolean:
		b, err := r.ReadByte()
		return result(t, b != 0, err)
	case TypeShort:
		u, err := r.ReadUint16()
		return result(t, int16(u), err)
	case TypeInteger:
		u, err := r.ReadUint32()
		return result(t, int32(u), err)
	case TypeLong:
		u, err := r.ReadUint64()
		return result(t, int64(u), err)
	case TypeFloat:
		f, err := r.ReadFloat32()
		return result(t, f, err)
	case TypeDouble:
		f, err := r.ReadFloat64()
		return result(t, f, err)
	case TypeString:
		s, err := readString(r)
		return result(t, s, err)
	case TypeByteArray:
		n, err := r.ReadUint32()
		if err != nil {
			return Value{}, err
		}
		b, err := r.ReadBytes(int(n))
		return result(t, b, err)
	case TypeIntegerArray:
		return d.intArray()
	case TypeStringArray:
		return d.stringArray()
	case TypeObjectArray:
		return d.objectArray()
	case TypeArray:
		return d.typedArray()
	case TypeHashtable:
		return d.hashtable()
	case TypeDictionary:
		return d.dictionary()
	default:
		err := &DecodeError{Offset: r.Offset() - 1, Tag: t, Err: ErrUnknownTag}
		r.fail(err)
		return Value{}, err
	}
}

func result(t TypeCode, data any, err error) (Value, error) {
	if err != nil {
		return Value{}, err
	}
	return Value{Type: t, Data: data}, nil
}

func readString(r *Reader) (string, error) {
	n, err := r.ReadUint16()
	if err != nil {
		return "", err
	}
	b, err := r.take(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// capacity caps a declared element count by what the remaining input could hold,
// so a hostile count cannot force a huge allocation.
func capacity(r *Reader, count, minSize int) int {
	if minSize < 1 {
		minSize = 1
	}
	if limit := r.Remaining() / minSize; count > limit {
		return limit
	}
	return count
}

func (d decoder) intArray() (Value, error) {
	n, err := d.r.ReadUint32()
	if err != nil {
		return Value{}, err
	}
	raw, err := d.r.take(int(n) * 4)
	if err != nil {
		return Value{}, err
	}
	out := make([]int32, n)
	sub := NewReader(raw)
	for i := range out {
		u, _ := sub.ReadUint32()
		out[i] = int32(u)
	}
	return Value{Type: TypeIntegerArray, Data: out}, nil
}

func (d decoder) stringArray() (Value, error) {
	n, err := d.r.ReadUint16()
	if err != nil {
		return Value{}, err
	}
	out := make([]string, 0, capacity(d.r, int(n), 2))
	for i := 0; i < int(n); i++ {
		s, err := readString(d.r)
		if err != nil {
			return Value{}, err
		}
		out = append(out, s)
	}
	return Value{Type: TypeStringArray, Data: out}, nil
}

func (d decoder) objectArray() (Value, error) {
	n, err := d.r.ReadUint16()
	if err != nil {
		return Value{}, err
	}
	inner, err := d.nested()
	if err != nil {
		return Value{}, err
	}
	items := make([]Value, 0, capacity(d.r, int(n), 1))
	for i := 0; i < int(n); i++ {
		v, err := inner.tagged()
		if err != nil {
			return Value{}, err
		}
		items = append(items, v)
	}
	return Value{Type: TypeObjectArray, Data: items}, nil
}

func (d decoder) typedArray() (Value, error) {
	n, err := d.r.ReadUint16()
	if err != nil {
		return Value{}, err
	}
	elem, err := d.r.ReadByte()
	if err != nil {
		return Value{}, err
	}
	inner, err := d.nested()
	if err != nil {
		return Value{}, err
	}
	arr := &Array{ElementType: TypeCode(elem), Items: make([]Value, 0, capacity(d.r, int(n), 1))}
	for i := 0; i < int(n); i++ {
		v, err := inner.payload(arr.ElementType)
		if err != nil {
			return Value{}, err
		}
		arr.Items = append(arr.Items, v)
	}
	return Value{Type: TypeArray, Data: arr}, nil
}

func (d decoder) hashtable() (Value, error) {
	n, err := d.r.ReadUint16()
	if err != nil {
		return Value{}, err
	}
	inner, err := d.nested()
	if err != nil {
		return Value{}, err
	}
	h := &Hashtable{Entries: make([]Entry, 0, capacity(d.r, int(n), 2))}
	for i := 0; i < int(n); i++ {
		k, err := inner.tagged()
		if err != nil {
			return Value{}, err
		}
		v, err := inner.tagged()
		if err != nil {
			return Value{}, err
		}
		h.Entries = append(h.Entries, Entry{Key: k, Value: v})
	}
	return Value{Type: TypeHashtable, Data: h}, nil
}

func (d decoder) dictionary() (Value, error) {
	kt, err := d.r.ReadByte()
	if err != nil {
		return Value{}, err
	}
	vt, err := d.r.ReadByte()
	if err != nil {
		return Value{}, err
	}
	n, err := d.r.ReadUint16()
	if err != nil {
		return Value{}, err
	}
	inner, err := d.nested()
	if err != nil {
		return Value{}, err
	}
	dict := &Dictionary{KeyType: TypeCode(kt), ValueType: TypeCode(vt), Entries: make([]Entry, 0, capacity(d.r, int(n), 1))}
	for i := 0; i < int(n); i++ {
		k, err := inner.declared(dict.KeyType)
		if err != nil {
			return Value{}, err
		}
		v, err := inner.declared(dict.ValueType)
		if err != nil {
			return Value{}, err
		}
		dict.Entries = append(dict.Entries, Entry{Key: k, Value: v})
	}
	return Value{Type: TypeDictionary, Data: dict}, nil
}

// declared decodes a dictionary key or value: by the declared tag, or by a
// per-entry tag when the declaration is object-typed.
func (d decoder) declared(t TypeCode) (Value, error) {
	if t.PerEntry() {
		return d.tagged()
	}
	return d.payload(t)
}
