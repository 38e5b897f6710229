// Package v1 holds the chat.v1 wire types and the ChatService descriptors.
// Messages are encoded in protobuf wire format with protowire, following chat.proto.
package v1

import (
	"chat-sync/domain"
	"chat-sync/infrastructure/encoding"
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protowire"
)

// FromIDHeader is the Subscribe response header carrying the id the stream starts after.
const FromIDHeader = "x-from-id"

type Message struct {
	Id                uint64
	Sender            string
	Body              string
	CreatedAtUnixNano int64
}

func FromDomain(m domain.Message) *Message {
	return &Message{
		Id:                uint64(m.ID),
		Sender:            m.Sender,
		Body:              m.Body,
		CreatedAtUnixNano: m.CreatedAt.UnixNano(),
	}
}

func (m *Message) ToDomain() domain.Message {
	if m == nil {
		return domain.Message{}
	}
	return domain.Message{
		ID:        domain.MessageID(m.Id),
		Sender:    m.Sender,
		Body:      m.Body,
		CreatedAt: time.Unix(0, m.CreatedAtUnixNano).UTC(),
	}
}

func (m *Message) Marshal() ([]byte, error) {
	return encoding.MarshalMessage(m.ToDomain()), nil
}

func (m *Message) Unmarshal(b []byte) error {
	decoded, err := encoding.UnmarshalMessage(b)
	if err != nil {
		return err
	}
	*m = *FromDomain(decoded)
	return nil
}

type SendRequest struct {
	Sender string
	Body   string
}

func (r *SendRequest) Marshal() ([]byte, error) {
	var b []byte
	b = appendString(b, 1, r.Sender)
	b = appendString(b, 2, r.Body)
	return b, nil
}

func (r *SendRequest) Unmarshal(b []byte) error {
	*r = SendRequest{}
	return decodeFields("SendRequest", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.BytesType:
			return consumeString(b, &r.Sender), nil
		case num == 2 && typ == protowire.BytesType:
			return consumeString(b, &r.Body), nil
		}
		return 0, nil
	})
}

type SendResponse struct {
	Message *Message
}

func (r *SendResponse) Marshal() ([]byte, error) {
	return appendMessage(nil, 1, r.Message), nil
}

func (r *SendResponse) Unmarshal(b []byte) error {
	*r = SendResponse{}
	return decodeFields("SendResponse", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 && typ == protowire.BytesType {
			r.Message = &Message{}
			return consumeMessage(b, r.Message)
		}
		return 0, nil
	})
}

type SubscribeRequest struct {
	FromId   uint64
	HasFrom  bool
	ViewerId string
}

func (r *SubscribeRequest) Marshal() ([]byte, error) {
	var b []byte
	b = appendVarint(b, 1, r.FromId)
	if r.HasFrom {
		b = appendVarint(b, 2, 1)
	}
	b = appendString(b, 3, r.ViewerId)
	return b, nil
}

func (r *SubscribeRequest) Unmarshal(b []byte) error {
	*r = SubscribeRequest{}
	return decodeFields("SubscribeRequest", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.VarintType:
			return consumeVarint(b, &r.FromId), nil
		case num == 2 && typ == protowire.VarintType:
			var v uint64
			n := consumeVarint(b, &v)
			r.HasFrom = protowire.DecodeBool(v)
			return n, nil
		case num == 3 && typ == protowire.BytesType:
			return consumeString(b, &r.ViewerId), nil
		}
		return 0, nil
	})
}

type MessageEvent struct {
	Message *Message
}

func (e *MessageEvent) Marshal() ([]byte, error) {
	return appendMessage(nil, 1, e.Message), nil
}

func (e *MessageEvent) Unmarshal(b []byte) error {
	*e = MessageEvent{}
	return decodeFields("MessageEvent", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 && typ == protowire.BytesType {
			e.Message = &Message{}
			return consumeMessage(b, e.Message)
		}
		return 0, nil
	})
}

type HistoryRequest struct {
	AfterId uint64
	Limit   uint32
}

func (r *HistoryRequest) Marshal() ([]byte, error) {
	var b []byte
	b = appendVarint(b, 1, r.AfterId)
	b = appendVarint(b, 2, uint64(r.Limit))
	return b, nil
}

func (r *HistoryRequest) Unmarshal(b []byte) error {
	*r = HistoryRequest{}
	return decodeFields("HistoryRequest", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.VarintType:
			return consumeVarint(b, &r.AfterId), nil
		case num == 2 && typ == protowire.VarintType:
			var v uint64
			n := consumeVarint(b, &v)
			r.Limit = uint32(v)
			return n, nil
		}
		return 0, nil
	})
}

type HistoryResponse struct {
	Messages []*Message
}

func (r *HistoryResponse) Marshal() ([]byte, error) {
	var b []byte
	for _, m := range r.Messages {
		b = appendMessage(b, 1, m)
	}
	return b, nil
}

func (r *HistoryResponse) Unmarshal(b []byte) error {
	*r = HistoryResponse{}
	return decodeFields("HistoryResponse", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 && typ == protowire.BytesType {
			m := &Message{}
			n, err := consumeMessage(b, m)
			if err != nil {
				return n, err
			}
			r.Messages = append(r.Messages, m)
			return n, nil
		}
		return 0, nil
	})
}

// fieldDecoder returns the bytes consumed for a known field, 0 to skip it.
type fieldDecoder func(num protowire.Number, typ protowire.Type, b []byte) (int, error)

func decodeFields(name string, b []byte, decode fieldDecoder) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%s tag: %w", name, protowire.ParseError(n))
		}
		b = b[n:]
		n, err := decode(num, typ, b)
		if err != nil {
			return fmt.Errorf("%s field %d: %w", name, num, err)
		}
		if n == 0 {
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return fmt.Errorf("%s field %d: %w", name, num, protowire.ParseError(n))
		}
		b = b[n:]
	}
	return nil
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func appendMessage(b []byte, num protowire.Number, m *Message) []byte {
	if m == nil {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, encoding.MarshalMessage(m.ToDomain()))
}

func consumeVarint(b []byte, v *uint64) int {
	value, n := protowire.ConsumeVarint(b)
	if n >= 0 {
		*v = value
	}
	return n
}

func consumeString(b []byte, v *string) int {
	value, n := protowire.ConsumeString(b)
	if n >= 0 {
		*v = value
	}
	return n
}

func consumeMessage(b []byte, m *Message) (int, error) {
	raw, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return n, nil
	}
	if err := m.Unmarshal(raw); err != nil {
		return n, err
	}
	return n, nil
}
