package contracts

import (
	"encoding/json"
	"fmt"
)

// Codec serializes contracts for the broker.
type Codec interface {
	Name() string
	ContentType() string
	Encode(c Contract) ([]byte, error)
}

// NewCodec returns the codec registered under name: "json" or "protobuf".
func NewCodec(name string) (Codec, error) {
	switch name {
	case "", "json":
		return jsonCodec{}, nil
	case "protobuf", "proto":
		return protoCodec{}, nil
	}
	return nil, fmt.Errorf("unknown codec %q", name)
}

type jsonCodec struct{}

func (jsonCodec) Name() string        { return "json" }
func (jsonCodec) ContentType() string { return "application/json" }

func (jsonCodec) Encode(c Contract) ([]byte, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", c.ContractName(), err)
	}
	return data, nil
}

type protoCodec struct{}

func (protoCodec) Name() string        { return "protobuf" }
func (protoCodec) ContentType() string { return "application/x-protobuf" }

func (protoCodec) Encode(c Contract) ([]byte, error) {
	return c.AppendWire(nil), nil
}
