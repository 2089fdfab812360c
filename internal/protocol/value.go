package protocol

import "fmt"

// Value is one decoded tagged value. Data holds exactly one of:
//
//	byte, bool, int16, int32, int64, float32, float64, string,
//	[]byte, []int32, []string, []Value (object[]), *Array, *Hashtable, *Dictionary, nil
//
// depending on Type.
type Value struct {
	Type TypeCode
	Data any
}

// Entry is one key/value pair of a Hashtable or Dictionary, kept in wire order.
type Entry struct {
	Key   Value
	Value Value
}

// Array is a typed array: one element tag followed by untagged elements.
type Array struct {
	ElementType TypeCode
	Items       []Value
}

// Hashtable is a self-describing map where every key and value has its own tag.
type Hashtable struct {
	Entries []Entry
}

// Dictionary is a map whose key and value tags are declared once up front.
type Dictionary struct {
	KeyType   TypeCode
	ValueType TypeCode
	Entries   []Entry
}

// Native unwraps v into plain Go values. Containers become []any and map[any]any.
func (v Value) Native() any {
	switch d := v.Data.(type) {
	case []Value:
		return nativeSlice(d)
	case *Array:
		return nativeSlice(d.Items)
	case *Hashtable:
		return nativeMap(d.Entries)
	case *Dictionary:
		return nativeMap(d.Entries)
	default:
		return v.Data
	}
}

// IsNull reports whether v is the null value.
func (v Value) IsNull() bool {
	return v.Type == TypeNull
}

func (v Value) String() string {
	return fmt.Sprintf("%s(%v)", v.Type, v.Native())
}

func nativeSlice(items []Value) []any {
	out := make([]any, len(items))
	for i, item := range items {
		out[i] = item.Native()
	}
	return out
}

func nativeMap(entries []Entry) map[any]any {
	out := make(map[any]any, len(entries))
	for _, e := range entries {
		out[mapKey(e.Key)] = e.Value.Native()
	}
	return out
}

// mapKey turns slice-typed keys, which Go maps cannot hold, into their string form.
func mapKey(v Value) any {
	switch k := v.Native().(type) {
	case []byte, []int32, []string, []any, map[any]any:
		return fmt.Sprint(k)
	default:
		return k
	}
}

// Constructors used by the encoder, fixtures and tests.

func NullValue() Value               { return Value{Type: TypeNull} }
func ByteValue(b byte) Value         { return Value{Type: TypeByte, Data: b} }
func BoolValue(b bool) Value         { return Value{Type: TypeBoolean, Data: b} }
func ShortValue(v int16) Value       { return Value{Type: TypeShort, Data: v} }
func IntValue(v int32) Value         { return Value{Type: TypeInteger, Data: v} }
func LongValue(v int64) Value        { return Value{Type: TypeLong, Data: v} }
func FloatValue(v float32) Value     { return Value{Type: TypeFloat, Data: v} }
func DoubleValue(v float64) Value    { return Value{Type: TypeDouble, Data: v} }
func StringValue(s string) Value     { return Value{Type: TypeString, Data: s} }
func BytesValue(b []byte) Value      { return Value{Type: TypeByteArray, Data: b} }
func IntsValue(v ...int32) Value     { return Value{Type: TypeIntegerArray, Data: v} }
func StringsValue(v ...string) Value { return Value{Type: TypeStringArray, Data: v} }

func ObjectArrayValue(items ...Value) Value {
	return Value{Type: TypeObjectArray, Data: items}
}

func ArrayValue(elem TypeCode, items ...Value) Value {
	return Value{Type: TypeArray, Data: &Array{ElementType: elem, Items: items}}
}

// FloatsValue is the typed float array most games use for coordinates.
func FloatsValue(v ...float32) Value {
	items := make([]Value, len(v))
	for i, f := range v {
		items[i] = FloatValue(f)
	}
	return ArrayValue(TypeFloat, items...)
}

func HashtableValue(entries ...Entry) Value {
	return Value{Type: TypeHashtable, Data: &Hashtable{Entries: entries}}
}

func DictionaryValue(keyType, valueType TypeCode, entries ...Entry) Value {
	return Value{Type: TypeDictionary, Data: &Dictionary{KeyType: keyType, ValueType: valueType, Entries: entries}}
}
