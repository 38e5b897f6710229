// Package encoding writes and reads domain messages in protobuf wire format.
// The layout matches the following schema, so any protobuf runtime can decode it:
//
//	message Message {
//	  uint64 id = 1;
//	  string sender = 2;
//	  string body = 3;
//	  int64 created_at_unix_nano = 4;
//	}
package encoding

import (
	"chat-sync/domain"
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protowire"
)

const (
	fieldID        protowire.Number = 1
	fieldSender    protowire.Number = 2
	fieldBody      protowire.Number = 3
	fieldCreatedAt protowire.Number = 4
)

// AppendMessage appends the wire form of m to b.
func AppendMessage(b []byte, m domain.Message) []byte {
	b = protowire.AppendTag(b, fieldID, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.ID))
	b = protowire.AppendTag(b, fieldSender, protowire.BytesType)
	b = protowire.AppendString(b, m.Sender)
	b = protowire.AppendTag(b, fieldBody, protowire.BytesType)
	b = protowire.AppendString(b, m.Body)
	b = protowire.AppendTag(b, fieldCreatedAt, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.CreatedAt.UnixNano()))
	return b
}

func MarshalMessage(m domain.Message) []byte {
	return AppendMessage(nil, m)
}

// UnmarshalMessage decodes a message, skipping unknown fields.
func UnmarshalMessage(b []byte) (domain.Message, error) {
	var m domain.Message
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return domain.Message{}, fmt.Errorf("message tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch {
		case num == fieldID && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return domain.Message{}, fmt.Errorf("message id: %w", protowire.ParseError(n))
			}
			m.ID = domain.MessageID(v)
			b = b[n:]
		case num == fieldSender && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return domain.Message{}, fmt.Errorf("message sender: %w", protowire.ParseError(n))
			}
			m.Sender = v
			b = b[n:]
		case num == fieldBody && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return domain.Message{}, fmt.Errorf("message body: %w", protowire.ParseError(n))
			}
			m.Body = v
			b = b[n:]
		case num == fieldCreatedAt && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return domain.Message{}, fmt.Errorf("message created_at: %w", protowire.ParseError(n))
			}
			m.CreatedAt = time.Unix(0, int64(v)).UTC()
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return domain.Message{}, fmt.Errorf("message field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return m, nil
}
