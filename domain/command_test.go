package domain

import (
	"chat-sync/errors"
	"strings"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func TestSendCommand_ToDraft_TrimsSenderAndBody(t *testing.T) {
	req := require.New(t)
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.FixedZone("CET", 3600))

	draft, err := SendCommand{Sender: " alice@mail.com ", Body: "\n  hi there \t"}.ToDraft(0, now)

	req.NoError(err)
	req.Equal("alice@mail.com", draft.Sender)
	req.Equal("hi there", draft.Body)
	req.Equal(now.UTC(), draft.CreatedAt)
}

func TestSendCommand_ToDraft_Rejects(t *testing.T) {
	testCases := []struct {
		name string
		cmd  SendCommand
		max  int
	}{
		{name: "empty sender", cmd: SendCommand{Sender: "", Body: "hi"}},
		{name: "blank sender", cmd: SendCommand{Sender: "  ", Body: "hi"}},
		{name: "empty body", cmd: SendCommand{Sender: "bob", Body: ""}},
		{name: "blank body", cmd: SendCommand{Sender: "bob", Body: "   \n\t"}},
		{name: "body too long", cmd: SendCommand{Sender: "bob", Body: strings.Repeat("é", 11)}, max: 10},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.cmd.ToDraft(tc.max, time.Now())
			require.ErrorIs(t, err, errors.ErrValidation)
		})
	}
}

func TestSendCommand_ToDraft_MaxLengthCountsRunesAfterTrim(t *testing.T) {
	req := require.New(t)

	_, err := SendCommand{Sender: "bob", Body: "  " + strings.Repeat("é", 10) + "  "}.ToDraft(10, time.Now())

	req.NoError(err)
}

func TestNewValidator_RegistersNotBlank(t *testing.T) {
	req := require.New(t)

	req.NotPanics(func() {
		v := newValidator()
		req.Error(v.Var(" \t", "notblank"))
		req.NoError(v.Var("hi", "notblank"))
	})
}

func TestSubscribeCommand_Validate(t *testing.T) {
	req := require.New(t)

	req.NoError(SubscribeCommand{ViewerID: "alice", FromID: lo.ToPtr(MessageID(3))}.Validate())
	req.ErrorIs(SubscribeCommand{ViewerID: " "}.Validate(), errors.ErrValidation)
}

func TestSessionState_String(t *testing.T) {
	req := require.New(t)

	req.Equal("CONNECTING", Connecting.String())
	req.Equal("REPLAYING", Replaying.String())
	req.Equal("LIVE", Live.String())
	req.Equal("DISCONNECTED", Disconnected.String())
}
