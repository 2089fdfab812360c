package protocol

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Envelope is one classified message: its kind, code and parameter table.
// It lives for the duration of a single dispatch.
type Envelope struct {
	Kind         Kind
	Code         int
	ReturnCode   int16
	DebugMessage string
	Parameters   *Parameters
}

// EnvelopeParser turns message bodies into envelopes.
type EnvelopeParser struct {
	codeParams map[Kind]byte
	logger     zerolog.Logger
}

// ParserOption configures an EnvelopeParser.
type ParserOption func(*EnvelopeParser)

// WithCodeParameter makes the parser take the code of kind messages from the
// parameter at key when it is present, instead of the header byte. Many Photon
// games multiplex every event through one header code this way.
func WithCodeParameter(kind Kind, key byte) ParserOption {
	return func(p *EnvelopeParser) {
		p.codeParams[kind] = key
	}
}

// NewEnvelopeParser creates a parser.
func NewEnvelopeParser(opts ...ParserOption) *EnvelopeParser {
	p := &EnvelopeParser{
		codeParams: make(map[Kind]byte),
		logger:     log.With().Str("component", "envelope_parser").Logger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParseEnvelope parses payload with the default parser.
func ParseEnvelope(payload []byte) (*Envelope, error) {
	return NewEnvelopeParser().Parse(payload)
}

// Parse classifies one message body and builds its parameter table.
func (p *EnvelopeParser) Parse(payload []byte) (*Envelope, error) {
	r := NewReader(payload)

	sig, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if sig != Signature {
		return nil, fmt.Errorf("%w: 0x%02X", ErrInvalidSignature, sig)
	}

	msgType, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if msgType&msgEncryptedFlag != 0 {
		return nil, ErrEncrypted
	}
	kind, ok := kindFromMessageType(msgType)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMessageType, msgType)
	}

	code, err := r.ReadByte()
	if err != nil {
		return nil, err
	}

	env := &Envelope{Kind: kind, Code: int(code)}

	if kind == KindResponse {
		rc, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		env.ReturnCode = int16(rc)

		debug, err := Decode(r)
		if err != nil {
			return nil, fmt.Errorf("failed to parse response debug message: %w", err)
		}
		if s, ok := debug.Data.(string); ok {
			env.DebugMessage = s
		}
	}

	count, err := r.ReadUint16()
	if err != nil {
		return nil, err
	}
	params, err := ReadParameters(r, int(count))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s %d parameters: %w", kind, code, err)
	}
	env.Parameters = params

	if key, ok := p.codeParams[kind]; ok {
		if c, ok := params.Int(key); ok {
			env.Code = int(c)
		}
	}

	if r.Remaining() > 0 {
		p.logger.Trace().
			Str("kind", kind.String()).
			Int("code", env.Code).
			Int("trailing", r.Remaining()).
			Msg("trailing bytes after parameters")
	}

	return env, nil
}
