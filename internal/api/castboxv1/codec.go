package castboxv1

import (
	"encoding/json"

	"connectrpc.com/connect"
)

// Codec serializes messages as JSON. It is registered under the "json" name,
// which replaces Connect's protobuf JSON codec.
type Codec struct{}

var _ connect.Codec = Codec{}

// Name implements connect.Codec.
func (Codec) Name() string { return "json" }

// Marshal implements connect.Codec.
func (Codec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

// Unmarshal implements connect.Codec.
func (Codec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, msg)
}

// WithCodec returns the option that installs Codec on a client or handler.
func WithCodec() connect.Option {
	return connect.WithCodec(Codec{})
}
