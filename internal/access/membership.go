package access

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	telebot "gopkg.in/telebot.v3"
)

// MembershipStatus is the typed result of a channel-membership query.
type MembershipStatus int

const (
	// CheckFailed means the membership service could not answer.
	CheckFailed MembershipStatus = iota
	// Joined means the user is a member, administrator or creator of the channel.
	Joined
	// NotJoined means the user holds any other status.
	NotJoined
)

func (s MembershipStatus) String() string {
	switch s {
	case Joined:
		return "joined"
	case NotJoined:
		return "not_joined"
	default:
		return "check_failed"
	}
}

// Membership carries the status and, for CheckFailed, the cause.
type Membership struct {
	Status MembershipStatus
	Err    error
}

// MembershipChecker queries whether a user belongs to the required channel.
type MembershipChecker interface {
	Check(ctx context.Context, userID int64) Membership
}

// ChatMemberFetcher is the subset of *telebot.Bot used for membership queries.
type ChatMemberFetcher interface {
	ChatMemberOf(chat, user telebot.Recipient) (*telebot.ChatMember, error)
}

// channelRecipient addresses a channel by @username or numeric id.
type channelRecipient string

func (c channelRecipient) Recipient() string { return string(c) }

// TelegramMembership checks channel membership through the Bot API.
type TelegramMembership struct {
	api     ChatMemberFetcher
	channel channelRecipient
	timeout time.Duration
}

// NewTelegramMembership creates a checker for channel. A bare channel name gets an @ prefix.
func NewTelegramMembership(api ChatMemberFetcher, channel string, timeout time.Duration) *TelegramMembership {
	channel = strings.TrimSpace(channel)
	if channel != "" && !strings.HasPrefix(channel, "@") && !strings.HasPrefix(channel, "-") {
		channel = "@" + channel
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &TelegramMembership{
		api:     api,
		channel: channelRecipient(channel),
		timeout: timeout,
	}
}

// Check queries the user's status, bounded by the configured timeout. The Bot API
// client is not context aware, so the call runs in its own goroutine.
func (m *TelegramMembership) Check(ctx context.Context, userID int64) Membership {
	if m == nil || m.api == nil {
		return Membership{Status: CheckFailed, Err: errors.New("membership api not configured")}
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	type reply struct {
		member *telebot.ChatMember
		err    error
	}
	done := make(chan reply, 1)

	go func() {
		member, err := m.api.ChatMemberOf(m.channel, &telebot.User{ID: userID})
		done <- reply{member: member, err: err}
	}()

	select {
	case <-ctx.Done():
		return Membership{Status: CheckFailed, Err: fmt.Errorf("membership check: %w", ctx.Err())}
	case r := <-done:
		if r.err != nil {
			return Membership{Status: CheckFailed, Err: fmt.Errorf("membership check: %w", r.err)}
		}
		if r.member == nil {
			return Membership{Status: CheckFailed, Err: errors.New("membership check: empty response")}
		}
		return Membership{Status: statusFromRole(r.member.Role)}
	}
}

func statusFromRole(role telebot.MemberStatus) MembershipStatus {
	switch role {
	case telebot.Member, telebot.Administrator, telebot.Creator:
		return Joined
	default:
		return NotJoined
	}
}
