// Package protocol implements the Photon-style binary wire format: the tagged value
// decoder, parameter tables and the envelope that classifies a packet as a request,
// response or event. All multi-byte fields are big-endian.
package protocol

import "fmt"

// TypeCode is the one-byte tag that precedes every self-describing value.
type TypeCode byte

// Tags understood by the decoder. Zero is only valid as a declared Dictionary
// key/value type and means "each entry carries its own tag"; a declared Null
// means the same (an object-typed dictionary side).
const (
	TypeUnknown      TypeCode = 0
	TypeNull         TypeCode = '*' // 42
	TypeDictionary   TypeCode = 'D' // 68
	TypeStringArray  TypeCode = 'a' // 97
	TypeByte         TypeCode = 'b' // 98
	TypeDouble       TypeCode = 'd' // 100
	TypeFloat        TypeCode = 'f' // 102
	TypeHashtable    TypeCode = 'h' // 104
	TypeInteger      TypeCode = 'i' // 105
	TypeShort        TypeCode = 'k' // 107
	TypeLong         TypeCode = 'l' // 108
	TypeIntegerArray TypeCode = 'n' // 110
	TypeBoolean      TypeCode = 'o' // 111
	TypeString       TypeCode = 's' // 115
	TypeByteArray    TypeCode = 'x' // 120
	TypeArray        TypeCode = 'y' // 121
	TypeObjectArray  TypeCode = 'z' // 122
)

var typeNames = map[TypeCode]string{
	TypeUnknown:      "unknown",
	TypeNull:         "null",
	TypeDictionary:   "dictionary",
	TypeStringArray:  "string[]",
	TypeByte:         "byte",
	TypeDouble:       "double",
	TypeFloat:        "float",
	TypeHashtable:    "hashtable",
	TypeInteger:      "int",
	TypeShort:        "short",
	TypeLong:         "long",
	TypeIntegerArray: "int[]",
	TypeBoolean:      "bool",
	TypeString:       "string",
	TypeByteArray:    "byte[]",
	TypeArray:        "array",
	TypeObjectArray:  "object[]",
}

// PerEntry reports whether a declared Dictionary key or value type leaves the
// tag to each entry.
func (t TypeCode) PerEntry() bool {
	return t == TypeUnknown || t == TypeNull
}

func (t TypeCode) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("tag(0x%02X)", byte(t))
}

// Signature is the first byte of every message body.
const Signature byte = 0xF3

// Message type bytes following the signature.
const (
	MsgOperationRequest          byte = 2
	MsgOperationResponse         byte = 3
	MsgEvent                     byte = 4
	MsgInternalOperationRequest  byte = 6
	MsgInternalOperationResponse byte = 7

	msgEncryptedFlag byte = 0x80
)

// MaxDepth bounds nesting of containers inside a single value.
const MaxDepth = 64

// Kind classifies an envelope.
type Kind byte

const (
	KindRequest Kind = iota + 1
	KindResponse
	KindEvent
)

var kindStrings = map[Kind]string{
	KindRequest:  "request",
	KindResponse: "response",
	KindEvent:    "event",
}

func (k Kind) String() string {
	if s, ok := kindStrings[k]; ok {
		return s
	}
	return "unknown"
}

// ParseKind maps "request", "response" or "event" to a Kind.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindStrings {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown envelope kind %q", s)
}

func kindFromMessageType(msgType byte) (Kind, bool) {
	switch msgType {
	case MsgOperationRequest, MsgInternalOperationRequest:
		return KindRequest, true
	case MsgOperationResponse, MsgInternalOperationResponse:
		return KindResponse, true
	case MsgEvent:
		return KindEvent, true
	}
	return 0, false
}
