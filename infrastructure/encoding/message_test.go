package encoding

import (
	"chat-sync/domain"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestMessage_RoundTrip(t *testing.T) {
	req := require.New(t)
	msg := domain.Message{
		ID:        42,
		Sender:    "alice@mail.com",
		Body:      "ünïcode body",
		CreatedAt: time.Date(2026, 3, 1, 10, 0, 0, 123, time.UTC),
	}

	decoded, err := UnmarshalMessage(MarshalMessage(msg))

	req.NoError(err)
	req.Equal(msg, decoded)
}

func TestUnmarshalMessage_SkipsUnknownFields(t *testing.T) {
	req := require.New(t)
	msg := domain.Message{ID: 7, Sender: "bob", Body: "hey", CreatedAt: time.Unix(0, 99).UTC()}

	// Given a payload written by a newer version carrying an extra field
	b := protowire.AppendTag(nil, 15, protowire.BytesType)
	b = protowire.AppendString(b, "room-1")
	b = AppendMessage(b, msg)

	// When decoding it
	decoded, err := UnmarshalMessage(b)

	// Then the unknown field is ignored
	req.NoError(err)
	req.Equal(msg, decoded)
}

func TestUnmarshalMessage_Truncated(t *testing.T) {
	req := require.New(t)
	b := MarshalMessage(domain.Message{ID: 1, Sender: "bob", Body: "a longer body"})

	_, err := UnmarshalMessage(b[:len(b)-15])

	req.Error(err)
}
