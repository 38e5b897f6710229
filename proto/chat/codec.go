package v1

import (
	"fmt"
)

type wireMarshaler interface {
	Marshal() ([]byte, error)
}

type wireUnmarshaler interface {
	Unmarshal(b []byte) error
}

// Codec is the grpc codec of the chat.v1 messages.
// It is forced on both ends: grpc.ForceServerCodec on the server,
// grpc.ForceCodec on the client (see NewChatServiceClient).
type Codec struct{}

func (Codec) Marshal(v any) ([]byte, error) {
	m, ok := v.(wireMarshaler)
	if !ok {
		return nil, fmt.Errorf("chat codec: cannot marshal %T", v)
	}
	return m.Marshal()
}

func (Codec) Unmarshal(data []byte, v any) error {
	m, ok := v.(wireUnmarshaler)
	if !ok {
		return fmt.Errorf("chat codec: cannot unmarshal into %T", v)
	}
	return m.Unmarshal(data)
}

func (Codec) Name() string {
	return "proto"
}
