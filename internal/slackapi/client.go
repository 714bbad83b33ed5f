package slackapi

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"

	"github.com/relaygate/slackbridge/internal/subscription"
)

// webAPI is the subset of the Slack Web API client the bridge relies on.
// Kept as an interface so tests can run against a fake.
type webAPI interface {
	GetConversationsContext(ctx context.Context, params *slack.GetConversationsParameters) ([]slack.Channel, string, error)
	GetUsersContext(ctx context.Context, options ...slack.GetUsersOption) ([]slack.User, error)
	GetConversationInfoContext(ctx context.Context, input *slack.GetConversationInfoInput) (*slack.Channel, error)
	JoinConversationContext(ctx context.Context, channelID string) (*slack.Channel, string, []string, error)
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// Client adapts a slack-go Web API client to the capability set the
// subscription service needs: directory resolution, membership, join,
// message post, threaded reply.
type Client struct {
	api webAPI
}

var _ subscription.SlackClient = (*Client)(nil)

// NewClient wraps an authorized Slack Web API client.
func NewClient(api webAPI) *Client {
	return &Client{api: api}
}

// ResolveChannel finds a channel ID by exact name. The full directory is
// paged through on every call; there is no cache, so resolution cost is paid
// per operation in exchange for never serving a stale roster.
func (c *Client) ResolveChannel(ctx context.Context, name string) (string, error) {
	var cursor string
	for {
		params := &slack.GetConversationsParameters{
			Cursor:          cursor,
			ExcludeArchived: true,
			Limit:           200,
			Types:           []string{"public_channel", "private_channel"},
		}
		channels, nextCursor, err := c.api.GetConversationsContext(ctx, params)
		if err != nil {
			return "", fmt.Errorf("list conversations: %w", err)
		}
		for _, ch := range channels {
			if ch.Name == name {
				return ch.ID, nil
			}
		}
		if nextCursor == "" {
			return "", subscription.ErrChannelNotFound
		}
		cursor = nextCursor
	}
}

// ResolveUser finds a user ID by name via the user directory.
func (c *Client) ResolveUser(ctx context.Context, name string) (string, error) {
	users, err := c.api.GetUsersContext(ctx)
	if err != nil {
		return "", fmt.Errorf("list users: %w", err)
	}
	for _, u := range users {
		if u.Name == name {
			return u.ID, nil
		}
	}
	return "", subscription.ErrChannelNotFound
}

// IsMember reports whether the bot is already a member of the channel.
func (c *Client) IsMember(ctx context.Context, channelID string) (bool, error) {
	info, err := c.api.GetConversationInfoContext(ctx, &slack.GetConversationInfoInput{
		ChannelID: channelID,
	})
	if err != nil {
		return false, fmt.Errorf("conversation info: %w", err)
	}
	return info.IsMember, nil
}

// JoinChannel joins the bot to the channel.
func (c *Client) JoinChannel(ctx context.Context, channelID string) error {
	if _, _, _, err := c.api.JoinConversationContext(ctx, channelID); err != nil {
		return fmt.Errorf("join conversation: %w", err)
	}
	return nil
}

// PostMessage posts a new top-level message.
func (c *Client) PostMessage(ctx context.Context, channelID, text string) error {
	_, _, err := c.api.PostMessageContext(ctx, channelID, slack.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("post message: %w", err)
	}
	return nil
}

// PostThreadReply posts a reply into the thread anchored at threadTS.
func (c *Client) PostThreadReply(ctx context.Context, channelID, threadTS, text string) error {
	_, _, err := c.api.PostMessageContext(ctx, channelID,
		slack.MsgOptionText(text, false),
		slack.MsgOptionTS(threadTS),
	)
	if err != nil {
		return fmt.Errorf("post thread reply: %w", err)
	}
	return nil
}
