package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// PacketBuilder writes values and message bodies in the same big-endian layout the
// decoder reads. Replay tooling and tests use it to produce fixtures.
type PacketBuilder struct {
	buf bytes.Buffer
	err error
}

// Param is one key/value pair of a parameter table being built.
type Param struct {
	Key   byte
	Value Value
}

// NewPacketBuilder creates a new PacketBuilder.
func NewPacketBuilder() *PacketBuilder {
	return &PacketBuilder{}
}

// Reset clears the builder for reuse.
func (b *PacketBuilder) Reset() {
	b.buf.Reset()
	b.err = nil
}

// WriteUint8 writes a single byte.
func (b *PacketBuilder) WriteUint8(v byte) *PacketBuilder {
	b.buf.WriteByte(v)
	return b
}

// WriteUint16 writes a uint16 in big-endian order.
func (b *PacketBuilder) WriteUint16(v uint16) *PacketBuilder {
	b.buf.Write(binary.BigEndian.AppendUint16(nil, v))
	return b
}

// WriteUint32 writes a uint32 in big-endian order.
func (b *PacketBuilder) WriteUint32(v uint32) *PacketBuilder {
	b.buf.Write(binary.BigEndian.AppendUint32(nil, v))
	return b
}

// WriteUint64 writes a uint64 in big-endian order.
func (b *PacketBuilder) WriteUint64(v uint64) *PacketBuilder {
	b.buf.Write(binary.BigEndian.AppendUint64(nil, v))
	return b
}

// WriteString writes a u16 length-prefixed UTF-8 string.
func (b *PacketBuilder) WriteString(s string) *PacketBuilder {
	if len(s) > math.MaxUint16 {
		b.setErr(fmt.Errorf("string of %d bytes exceeds u16 length prefix", len(s)))
		return b
	}
	b.WriteUint16(uint16(len(s)))
	b.buf.WriteString(s)
	return b
}

// WriteBytes writes raw bytes.
func (b *PacketBuilder) WriteBytes(data []byte) *PacketBuilder {
	b.buf.Write(data)
	return b
}

// WriteValue writes a tag byte followed by the value payload.
func (b *PacketBuilder) WriteValue(v Value) *PacketBuilder {
	b.WriteUint8(byte(v.Type))
	return b.WritePayload(v)
}

// WritePayload writes a value without its tag.
func (b *PacketBuilder) WritePayload(v Value) *PacketBuilder {
	switch d := v.Data.(type) {
	case nil:
		if v.Type != TypeNull {
			b.setErr(fmt.Errorf("nil data for %s", v.Type))
		}
	case byte:
		b.WriteUint8(d)
	case bool:
		if d {
			b.WriteUint8(1)
		} else {
			b.WriteUint8(0)
		}
	case int16:
		b.WriteUint16(uint16(d))
	case int32:
		b.WriteUint32(uint32(d))
	case int64:
		b.WriteUint64(uint64(d))
	case float32:
		b.WriteUint32(math.Float32bits(d))
	case float64:
		b.WriteUint64(math.Float64bits(d))
	case string:
		b.WriteString(d)
	case []byte:
		b.WriteUint32(uint32(len(d)))
		b.WriteBytes(d)
	case []int32:
		b.WriteUint32(uint32(len(d)))
		for _, n := range d {
			b.WriteUint32(uint32(n))
		}
	case []string:
		b.WriteUint16(uint16(len(d)))
		for _, s := range d {
			b.WriteString(s)
		}
	case []Value:
		b.WriteUint16(uint16(len(d)))
		for _, item := range d {
			b.WriteValue(item)
		}
	case *Array:
		b.WriteUint16(uint16(len(d.Items)))
		b.WriteUint8(byte(d.ElementType))
		for _, item := range d.Items {
			b.WritePayload(item)
		}
	case *Hashtable:
		b.WriteUint16(uint16(len(d.Entries)))
		for _, e := range d.Entries {
			b.WriteValue(e.Key)
			b.WriteValue(e.Value)
		}
	case *Dictionary:
		b.WriteUint8(byte(d.KeyType))
		b.WriteUint8(byte(d.ValueType))
		b.WriteUint16(uint16(len(d.Entries)))
		for _, e := range d.Entries {
			b.writeDeclared(d.KeyType, e.Key)
			b.writeDeclared(d.ValueType, e.Value)
		}
	default:
		b.setErr(fmt.Errorf("cannot encode %T as %s", v.Data, v.Type))
	}
	return b
}

func (b *PacketBuilder) writeDeclared(t TypeCode, v Value) {
	if t.PerEntry() {
		b.WriteValue(v)
		return
	}
	b.WritePayload(v)
}

// WriteParameters writes a u16 count followed by key/tagged-value pairs.
func (b *PacketBuilder) WriteParameters(params []Param) *PacketBuilder {
	b.WriteUint16(uint16(len(params)))
	for _, p := range params {
		b.WriteUint8(p.Key)
		b.WriteValue(p.Value)
	}
	return b
}

func (b *PacketBuilder) setErr(err error) {
	if b.err == nil {
		b.err = err
	}
}

// Err returns the first encoding error, if any.
func (b *PacketBuilder) Err() error {
	return b.err
}

// Build returns the constructed bytes, or the first encoding error.
func (b *PacketBuilder) Build() ([]byte, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.buf.Bytes(), nil
}

// Len returns the current size of the packet being built.
func (b *PacketBuilder) Len() int {
	return b.buf.Len()
}

// String returns a hex dump of the current packet for debugging.
func (b *PacketBuilder) String() string {
	data := b.buf.Bytes()
	return fmt.Sprintf("PacketBuilder[%d bytes]: %x", len(data), data)
}

// ---- Message constructors ----

// BuildEvent creates an event message body.
// Format: [0xF3][4][code:1][count:2][params...]
func BuildEvent(code byte, params ...Param) ([]byte, error) {
	b := NewPacketBuilder()
	b.WriteUint8(Signature).WriteUint8(MsgEvent).WriteUint8(code)
	b.WriteParameters(params)
	return b.Build()
}

// BuildRequest creates an operation request body.
// Format: [0xF3][2][code:1][count:2][params...]
func BuildRequest(code byte, params ...Param) ([]byte, error) {
	b := NewPacketBuilder()
	b.WriteUint8(Signature).WriteUint8(MsgOperationRequest).WriteUint8(code)
	b.WriteParameters(params)
	return b.Build()
}

// BuildResponse creates an operation response body.
// Format: [0xF3][3][code:1][return:2][debug:tagged][count:2][params...]
func BuildResponse(code byte, returnCode int16, debug string, params ...Param) ([]byte, error) {
	b := NewPacketBuilder()
	b.WriteUint8(Signature).WriteUint8(MsgOperationResponse).WriteUint8(code)
	b.WriteUint16(uint16(returnCode))
	if debug == "" {
		b.WriteValue(NullValue())
	} else {
		b.WriteValue(StringValue(debug))
	}
	b.WriteParameters(params)
	return b.Build()
}
