package protocol

import (
	"errors"
	"fmt"
)

var (
	// ErrTruncatedInput means a field needed more bytes than the packet has left.
	ErrTruncatedInput = errors.New("truncated input")
	// ErrUnknownTag means a type tag the decoder does not know.
	ErrUnknownTag = errors.New("unknown type tag")
	// ErrTooDeep means containers were nested beyond MaxDepth.
	ErrTooDeep = errors.New("value nested too deeply")

	ErrInvalidSignature   = errors.New("invalid message signature")
	ErrUnknownMessageType = errors.New("unknown message type")
	ErrEncrypted          = errors.New("encrypted message")
)

// DecodeError carries the position of a decode failure. Both TruncatedInput and
// UnknownTag failures are reported through it; match with errors.Is.
type DecodeError struct {
	Offset int
	Tag    TypeCode
	Need   int
	Have   int
	Err    error
}

func (e *DecodeError) Error() string {
	switch {
	case errors.Is(e.Err, ErrTruncatedInput):
		return fmt.Sprintf("decode at offset %d: %v (need %d bytes, have %d)", e.Offset, e.Err, e.Need, e.Have)
	case errors.Is(e.Err, ErrUnknownTag):
		return fmt.Sprintf("decode at offset %d: %v 0x%02X", e.Offset, e.Err, byte(e.Tag))
	default:
		return fmt.Sprintf("decode at offset %d: %v", e.Offset, e.Err)
	}
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
