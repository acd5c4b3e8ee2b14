package access

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	telebot "gopkg.in/telebot.v3"
)

type fakeChatAPI struct {
	role    telebot.MemberStatus
	err     error
	delay   time.Duration
	gotChat string
	gotUser string
}

func (f *fakeChatAPI) ChatMemberOf(chat, user telebot.Recipient) (*telebot.ChatMember, error) {
	f.gotChat = chat.Recipient()
	f.gotUser = user.Recipient()
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &telebot.ChatMember{Role: f.role}, nil
}

func TestTelegramMembership_Roles(t *testing.T) {
	testCases := []struct {
		role telebot.MemberStatus
		want MembershipStatus
	}{
		{role: telebot.Member, want: Joined},
		{role: telebot.Administrator, want: Joined},
		{role: telebot.Creator, want: Joined},
		{role: telebot.Left, want: NotJoined},
		{role: telebot.Kicked, want: NotJoined},
		{role: telebot.Restricted, want: NotJoined},
	}

	for _, tc := range testCases {
		t.Run(string(tc.role), func(t *testing.T) {
			api := &fakeChatAPI{role: tc.role}
			checker := NewTelegramMembership(api, "gatechannel", time.Second)

			got := checker.Check(context.Background(), 42)
			assert.Equal(t, tc.want, got.Status)
			assert.NoError(t, got.Err)
			assert.Equal(t, "@gatechannel", api.gotChat)
			assert.Equal(t, "42", api.gotUser)
		})
	}
}

func TestTelegramMembership_APIErrorIsCheckFailed(t *testing.T) {
	checker := NewTelegramMembership(&fakeChatAPI{err: errors.New("bad request")}, "@gate", time.Second)

	got := checker.Check(context.Background(), 1)
	assert.Equal(t, CheckFailed, got.Status)
	require.Error(t, got.Err)
}

func TestTelegramMembership_Timeout(t *testing.T) {
	checker := NewTelegramMembership(&fakeChatAPI{role: telebot.Member, delay: 200 * time.Millisecond}, "@gate", 20*time.Millisecond)

	got := checker.Check(context.Background(), 1)
	assert.Equal(t, CheckFailed, got.Status)
	assert.ErrorIs(t, got.Err, context.DeadlineExceeded)
}

func TestTelegramMembership_NumericChannelKeepsID(t *testing.T) {
	api := &fakeChatAPI{role: telebot.Member}
	checker := NewTelegramMembership(api, "-1001234", 0)

	checker.Check(context.Background(), 1)
	assert.Equal(t, "-1001234", api.gotChat)
}

func TestMembershipStatus_String(t *testing.T) {
	assert.Equal(t, "joined", Joined.String())
	assert.Equal(t, "not_joined", NotJoined.String())
	assert.Equal(t, "check_failed", CheckFailed.String())
}
