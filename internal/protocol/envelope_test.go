package protocol

import (
	"errors"
	"testing"
)

func TestParseEnvelopeKinds(t *testing.T) {
	event, err := BuildEvent(52,
		Param{Key: 1, Value: IntValue(42)},
		Param{Key: 3, Value: StringValue("JohnDoe")},
	)
	if err != nil {
		t.Fatalf("build event: %v", err)
	}
	env, err := ParseEnvelope(event)
	if err != nil {
		t.Fatalf("parse event: %v", err)
	}
	if env.Kind != KindEvent || env.Code != 52 {
		t.Fatalf("expected event 52, got %s %d", env.Kind, env.Code)
	}
	if name, _ := env.Parameters.String(3); name != "JohnDoe" {
		t.Fatalf("expected name JohnDoe, got %q", name)
	}

	req, _ := BuildRequest(7, Param{Key: 0, Value: ByteValue(1)})
	env, err = ParseEnvelope(req)
	if err != nil || env.Kind != KindRequest || env.Code != 7 {
		t.Fatalf("expected request 7, got %+v, %v", env, err)
	}

	resp, _ := BuildResponse(9, -3, "denied", Param{Key: 1, Value: StringValue("c-1")})
	env, err = ParseEnvelope(resp)
	if err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if env.Kind != KindResponse || env.Code != 9 || env.ReturnCode != -3 || env.DebugMessage != "denied" {
		t.Fatalf("unexpected response envelope %+v", env)
	}
	if s, _ := env.Parameters.String(1); s != "c-1" {
		t.Fatalf("expected response param c-1, got %q", s)
	}
}

func TestParseEnvelopeCodeParameter(t *testing.T) {
	payload, _ := BuildEvent(1,
		Param{Key: 252, Value: ShortValue(310)},
		Param{Key: 0, Value: IntValue(5)},
	)

	env, err := NewEnvelopeParser(WithCodeParameter(KindEvent, 252)).Parse(payload)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if env.Code != 310 {
		t.Fatalf("expected code taken from parameter 252, got %d", env.Code)
	}

	env, _ = ParseEnvelope(payload)
	if env.Code != 1 {
		t.Fatalf("expected header code without option, got %d", env.Code)
	}
}

func TestParseEnvelopeErrors(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want error
	}{
		{"empty", nil, ErrTruncatedInput},
		{"bad signature", []byte{0x00, 4, 1, 0, 0}, ErrInvalidSignature},
		{"encrypted", []byte{Signature, MsgEvent | 0x80, 1}, ErrEncrypted},
		{"unknown type", []byte{Signature, 9, 1, 0, 0}, ErrUnknownMessageType},
		{"missing count", []byte{Signature, MsgEvent, 1}, ErrTruncatedInput},
		{"bad tag", []byte{Signature, MsgEvent, 1, 0, 1, 1, 0xEE}, ErrUnknownTag},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseEnvelope(tt.in); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestParseKind(t *testing.T) {
	for _, k := range []Kind{KindRequest, KindResponse, KindEvent} {
		got, err := ParseKind(k.String())
		if err != nil || got != k {
			t.Fatalf("ParseKind(%q) = %v, %v", k.String(), got, err)
		}
	}
	if _, err := ParseKind("notify"); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}
