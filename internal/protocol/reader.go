package protocol

import (
	"encoding/binary"
	"math"
)

// Reader is a cursor over one packet body. The first short read poisons it: the
// offset moves to the end and every later read returns the same error, so a caller
// cannot accidentally resynchronise inside a broken packet.
type Reader struct {
	data []byte
	off  int
	err  error
}

// NewReader returns a cursor positioned at the start of data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Offset returns the number of bytes consumed so far.
func (r *Reader) Offset() int {
	return r.off
}

// Remaining returns the number of unread bytes, zero once the reader is invalid.
func (r *Reader) Remaining() int {
	if r.err != nil {
		return 0
	}
	return len(r.data) - r.off
}

// Err returns the error that invalidated the reader, if any.
func (r *Reader) Err() error {
	return r.err
}

// Valid reports whether further reads may succeed.
func (r *Reader) Valid() bool {
	return r.err == nil
}

func (r *Reader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
	r.off = len(r.data)
}

func (r *Reader) take(n int) ([]byte, error) {
	if r.err != nil {
		return nil, r.err
	}
	have := len(r.data) - r.off
	if n < 0 || n > have {
		r.fail(&DecodeError{Offset: r.off, Need: n, Have: have, Err: ErrTruncatedInput})
		return nil, r.err
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b, nil
}

// ReadByte reads one byte.
func (r *Reader) ReadByte() (byte, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadUint16 reads a big-endian uint16.
func (r *Reader) ReadUint16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

// ReadUint32 reads a big-endian uint32.
func (r *Reader) ReadUint32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

// ReadUint64 reads a big-endian uint64.
func (r *Reader) ReadUint64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

// ReadFloat32 reads a big-endian IEEE-754 float.
func (r *Reader) ReadFloat32() (float32, error) {
	u, err := r.ReadUint32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(u), nil
}

// ReadFloat64 reads a big-endian IEEE-754 double.
func (r *Reader) ReadFloat64() (float64, error) {
	u, err := r.ReadUint64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(u), nil
}

// ReadBytes reads n bytes into a fresh slice.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	b, err := r.take(n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, b)
	return out, nil
}
