package subscription

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeSlackClient struct {
	channels map[string]string // name -> id
	users    map[string]string
	member   bool

	joined  []string
	posts   []postCall
	replies []replyCall

	postErr error
}

type postCall struct {
	channel string
	text    string
}

type replyCall struct {
	channel  string
	threadTS string
	text     string
}

func (f *fakeSlackClient) ResolveChannel(_ context.Context, name string) (string, error) {
	if id, ok := f.channels[name]; ok {
		return id, nil
	}
	return "", ErrChannelNotFound
}

func (f *fakeSlackClient) ResolveUser(_ context.Context, name string) (string, error) {
	if id, ok := f.users[name]; ok {
		return id, nil
	}
	return "", ErrChannelNotFound
}

func (f *fakeSlackClient) IsMember(_ context.Context, _ string) (bool, error) {
	return f.member, nil
}

func (f *fakeSlackClient) JoinChannel(_ context.Context, channelID string) error {
	f.joined = append(f.joined, channelID)
	return nil
}

func (f *fakeSlackClient) PostMessage(_ context.Context, channelID, text string) error {
	if f.postErr != nil {
		return f.postErr
	}
	f.posts = append(f.posts, postCall{channel: channelID, text: text})
	return nil
}

func (f *fakeSlackClient) PostThreadReply(_ context.Context, channelID, threadTS, text string) error {
	if f.postErr != nil {
		return f.postErr
	}
	f.replies = append(f.replies, replyCall{channel: channelID, threadTS: threadTS, text: text})
	return nil
}

type fakeFactory struct {
	client *fakeSlackClient
	appIDs []string
}

func (f *fakeFactory) ClientFor(_ context.Context, appID string) SlackClient {
	f.appIDs = append(f.appIDs, appID)
	return f.client
}

type notification struct {
	listener Listener
	event    Event
}

func newTestService(client *fakeSlackClient) (*Service, *fakeFactory, *[]notification) {
	factory := &fakeFactory{client: client}
	svc := NewService(factory, 0, log.New(io.Discard, "", 0))
	var notified []notification
	svc.SetNotifyFunc(func(l Listener, ev Event) {
		notified = append(notified, notification{listener: l, event: ev})
	})
	return svc, factory, &notified
}

func TestMentionListenerMatchAndNotify(t *testing.T) {
	svc, _, notified := newTestService(&fakeSlackClient{})
	ctx := context.Background()

	require.NoError(t, svc.AddMentionListener(ctx, "app1", "s1", "help"))

	ev := Event{Type: "app_mention", Text: "need help please", Ts: "100.1", Channel: "C1", User: "U1"}
	svc.HandleEvent(ctx, ev)

	require.Len(t, *notified, 1)
	require.Equal(t, "s1", (*notified)[0].listener.SubscriptionID)
	require.Equal(t, ev, (*notified)[0].event)

	// The matched event is retained under its timestamp.
	require.Error(t, svc.Reply(ctx, "app1", "999", "nope"))
	require.True(t, svc.RemoveEvent("100.1"))
}

func TestSubtypeDisqualifiesChannelListener(t *testing.T) {
	client := &fakeSlackClient{channels: map[string]string{"general": "C1"}, member: true}
	svc, _, notified := newTestService(client)
	ctx := context.Background()

	require.NoError(t, svc.AddMessageListener(ctx, "app1", "s2", "general", "deploy"))

	svc.HandleEvent(ctx, Event{Type: "message", SubType: "message_changed", Text: "deploy now", Channel: "C1", Ts: "100.2"})

	require.Empty(t, *notified, "subtyped messages must not match")
	require.False(t, svc.RemoveEvent("100.2"), "non-matching events must not be retained")
}

func TestAddMessageListenerJoinsWhenNotMember(t *testing.T) {
	client := &fakeSlackClient{channels: map[string]string{"general": "C1"}, member: false}
	svc, _, _ := newTestService(client)

	require.NoError(t, svc.AddMessageListener(context.Background(), "app1", "s1", "general", "deploy"))
	require.Equal(t, []string{"C1"}, client.joined)
}

func TestAddMessageListenerUnknownChannel(t *testing.T) {
	client := &fakeSlackClient{channels: map[string]string{}}
	svc, _, notified := newTestService(client)
	ctx := context.Background()

	err := svc.AddMessageListener(ctx, "app1", "s1", "nowhere", "deploy")
	require.ErrorIs(t, err, ErrChannelNotFound)

	// No listener was registered.
	svc.HandleEvent(ctx, Event{Type: "message", Text: "deploy", Channel: "C1", Ts: "100.3"})
	require.Empty(t, *notified)
}

func TestAddListenerRejectsInvalidPattern(t *testing.T) {
	svc, _, _ := newTestService(&fakeSlackClient{})
	require.Error(t, svc.AddMentionListener(context.Background(), "app1", "s1", "("))
}

func TestReplyAnchorsAtRetainedEvent(t *testing.T) {
	client := &fakeSlackClient{}
	svc, _, _ := newTestService(client)
	ctx := context.Background()

	require.NoError(t, svc.AddMentionListener(ctx, "app1", "s1", "help"))
	svc.HandleEvent(ctx, Event{Type: "app_mention", Text: "help me", Channel: "C1", Ts: "100.1"})

	require.NoError(t, svc.Reply(ctx, "app1", "100.1", "on it"))
	require.Equal(t, []replyCall{{channel: "C1", threadTS: "100.1", text: "on it"}}, client.replies)

	err := svc.Reply(ctx, "app1", "999", "nope")
	require.ErrorIs(t, err, ErrEventNotFound)
	require.Len(t, client.replies, 1, "no post may be issued for an unknown event")
}

func TestReplyKeepsEventRetained(t *testing.T) {
	client := &fakeSlackClient{}
	svc, _, _ := newTestService(client)
	ctx := context.Background()

	require.NoError(t, svc.AddMentionListener(ctx, "app1", "s1", ".*"))
	svc.HandleEvent(ctx, Event{Type: "app_mention", Text: "x", Channel: "C1", Ts: "7.0"})

	require.NoError(t, svc.Reply(ctx, "app1", "7.0", "first"))
	require.NoError(t, svc.Reply(ctx, "app1", "7.0", "second"), "reply must not close the event")
	require.True(t, svc.RemoveEvent("7.0"))
	require.ErrorIs(t, svc.Reply(ctx, "app1", "7.0", "third"), ErrEventNotFound)
}

func TestSendMessage(t *testing.T) {
	client := &fakeSlackClient{
		channels: map[string]string{"general": "C1"},
		users:    map[string]string{"ops": "U7"},
	}
	svc, factory, _ := newTestService(client)
	ctx := context.Background()

	require.NoError(t, svc.SendMessage(ctx, "app1", "general", "hello"))
	require.NoError(t, svc.SendMessage(ctx, "app1", "@ops", "hi ops"))
	require.Equal(t, []postCall{
		{channel: "C1", text: "hello"},
		{channel: "U7", text: "hi ops"},
	}, client.posts)
	require.Equal(t, []string{"app1", "app1"}, factory.appIDs, "credentials are resolved per call")

	require.ErrorIs(t, svc.SendMessage(ctx, "app1", "missing", "x"), ErrChannelNotFound)
}

func TestSendMessagePlatformFailure(t *testing.T) {
	platformErr := errors.New("invalid_auth")
	client := &fakeSlackClient{channels: map[string]string{"general": "C1"}, postErr: platformErr}
	svc, _, _ := newTestService(client)

	err := svc.SendMessage(context.Background(), "app1", "general", "hello")
	require.ErrorIs(t, err, platformErr)
}

func TestRemoveListenerIdempotence(t *testing.T) {
	svc, _, _ := newTestService(&fakeSlackClient{})
	ctx := context.Background()

	require.NoError(t, svc.AddMentionListener(ctx, "app1", "s1", "a"))
	require.True(t, svc.RemoveMentionListener("s1"))
	require.False(t, svc.RemoveMentionListener("s1"))
	require.False(t, svc.RemoveMessageListener("never-registered"))
}

func TestNotifyCallbackUnsetDoesNotPanic(t *testing.T) {
	factory := &fakeFactory{client: &fakeSlackClient{}}
	svc := NewService(factory, 0, log.New(io.Discard, "", 0))
	ctx := context.Background()

	require.NoError(t, svc.AddMentionListener(ctx, "app1", "s1", "help"))
	svc.HandleEvent(ctx, Event{Type: "app_mention", Text: "help", Channel: "C1", Ts: "5.0"})

	// Event is retained even when nobody is listening for matches.
	require.True(t, svc.RemoveEvent("5.0"))
}
