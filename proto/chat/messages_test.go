package v1

import (
	"chat-sync/domain"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestHistoryResponse_RoundTrip(t *testing.T) {
	req := require.New(t)
	createdAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	in := &HistoryResponse{Messages: []*Message{
		FromDomain(domain.Message{ID: 1, Sender: "alice", Body: "hi", CreatedAt: createdAt}),
		FromDomain(domain.Message{ID: 2, Sender: "bob", Body: "hey", CreatedAt: createdAt.Add(time.Second)}),
	}}

	b, err := Codec{}.Marshal(in)
	req.NoError(err)
	out := &HistoryResponse{}
	req.NoError(Codec{}.Unmarshal(b, out))

	req.Len(out.Messages, 2)
	req.Equal("hey", out.Messages[1].Body)
	req.Equal(createdAt.Add(time.Second), out.Messages[1].ToDomain().CreatedAt)
}

func TestSubscribeRequest_HasFromDistinguishesZero(t *testing.T) {
	req := require.New(t)

	b, err := (&SubscribeRequest{FromId: 0, HasFrom: true, ViewerId: "carol"}).Marshal()
	req.NoError(err)
	out := &SubscribeRequest{}
	req.NoError(out.Unmarshal(b))
	req.True(out.HasFrom)
	req.Equal(uint64(0), out.FromId)
	req.Equal("carol", out.ViewerId)

	b, err = (&SubscribeRequest{}).Marshal()
	req.NoError(err)
	req.Empty(b)
}

func TestSendRequest_SkipsUnknownFields(t *testing.T) {
	req := require.New(t)
	b, err := (&SendRequest{Sender: "alice", Body: "hi"}).Marshal()
	req.NoError(err)
	b = protowire.AppendTag(b, 9, protowire.VarintType)
	b = protowire.AppendVarint(b, 7)

	out := &SendRequest{}
	req.NoError(out.Unmarshal(b))
	req.Equal(SendRequest{Sender: "alice", Body: "hi"}, *out)
}

func TestCodec_RejectsForeignTypes(t *testing.T) {
	req := require.New(t)
	_, err := Codec{}.Marshal("not a message")
	req.Error(err)
	req.Error(Codec{}.Unmarshal([]byte{0x08, 0x01}, &struct{}{}))
}

func TestMessageEvent_TruncatedPayload(t *testing.T) {
	req := require.New(t)
	b, err := (&MessageEvent{Message: &Message{Id: 3, Sender: "alice", Body: "yo"}}).Marshal()
	req.NoError(err)

	req.Error((&MessageEvent{}).Unmarshal(b[:len(b)-2]))
}
