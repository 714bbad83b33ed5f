package subscription

import (
	"context"
	"fmt"
	"log"
	"os"
	"regexp"
	"strings"
	"sync"
)

// SlackClient is the subset of the Slack Web API the service depends on.
// Implementations carry the credentials of a single app; the ClientFactory
// below resolves those per call.
type SlackClient interface {
	ResolveChannel(ctx context.Context, name string) (string, error)
	ResolveUser(ctx context.Context, name string) (string, error)
	IsMember(ctx context.Context, channelID string) (bool, error)
	JoinChannel(ctx context.Context, channelID string) error
	PostMessage(ctx context.Context, channelID, text string) error
	PostThreadReply(ctx context.Context, channelID, threadTS, text string) error
}

// ClientFactory returns a SlackClient authorized for the given app. A failed
// credential fetch yields a client with an empty token rather than an error;
// subsequent Slack calls then fail with a platform auth error.
type ClientFactory interface {
	ClientFor(ctx context.Context, appID string) SlackClient
}

// NotifyFunc receives each matched (listener, event) pair. It must hand off
// quickly; forwarding over the network belongs in a goroutine owned by the
// callback, not in the matching path.
type NotifyFunc func(listener Listener, event Event)

// Service owns the listener registry and the retained-event set and exposes
// the bridge operations: listener add/remove, message send, threaded reply,
// event close, and the inbound event hook. Registry and event set are only
// touched under the service mutex; resolution and posting happen outside it.
type Service struct {
	mu       sync.Mutex
	registry *Registry
	events   *EventSet

	clients ClientFactory
	notify  NotifyFunc
	logger  *log.Logger
}

// NewService constructs a Service. maxRetained bounds the retention set
// (0 = unbounded, the default contract).
func NewService(clients ClientFactory, maxRetained int, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(os.Stdout, "subscription ", log.LstdFlags)
	}
	return &Service{
		registry: NewRegistry(),
		events:   NewEventSet(maxRetained),
		clients:  clients,
		logger:   logger,
	}
}

// SetNotifyFunc registers the match callback. Matches observed before a
// callback is set are retained but not delivered anywhere.
func (s *Service) SetNotifyFunc(fn NotifyFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notify = fn
}

// HandleEvent runs an inbound event through the matching engine. At most one
// listener matches (first registered wins); on match the event is retained
// and the notify callback fires. Non-matching events are discarded silently.
func (s *Service) HandleEvent(ctx context.Context, ev Event) {
	s.mu.Lock()
	listener := s.registry.FindMatch(ev)
	if listener == nil {
		s.mu.Unlock()
		return
	}
	matched := *listener
	s.events.Insert(ev)
	notify := s.notify
	s.mu.Unlock()

	if notify == nil {
		s.logger.Printf("event=match subscription=%s event_id=%s status=dropped reason=no_notify_callback", matched.SubscriptionID, ev.Ts)
		return
	}
	notify(matched, ev)
}

// AddMessageListener resolves the channel name, joins the channel when the
// bot is not yet a member, and registers a channel-scoped listener. When the
// name cannot be resolved no listener is added and the error is returned for
// the caller to log.
func (s *Service) AddMessageListener(ctx context.Context, appID, subscriptionID, channelName, pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("compile pattern %q: %w", pattern, err)
	}

	client := s.clients.ClientFor(ctx, appID)
	channelID, err := s.resolveTarget(ctx, client, channelName)
	if err != nil {
		return fmt.Errorf("resolve channel %q: %w", channelName, err)
	}

	member, err := client.IsMember(ctx, channelID)
	if err != nil {
		s.logger.Printf("event=membership_check channel=%s status=error err=%v", channelID, err)
	} else if !member {
		if err := client.JoinChannel(ctx, channelID); err != nil {
			// Matching still works for channels the bot can already read.
			s.logger.Printf("event=join_channel channel=%s status=error err=%v", channelID, err)
		}
	}

	s.mu.Lock()
	s.registry.Add(Listener{
		SubscriptionID: subscriptionID,
		Channel:        channelID,
		Pattern:        re,
	})
	s.mu.Unlock()
	return nil
}

// RemoveMessageListener removes the first listener registered under the
// subscription ID and reports whether one was present.
func (s *Service) RemoveMessageListener(subscriptionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.Remove(subscriptionID)
}

// AddMentionListener registers a mention-scoped listener. No channel
// resolution is needed, so no Slack call is made.
func (s *Service) AddMentionListener(ctx context.Context, appID, subscriptionID, pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("compile pattern %q: %w", pattern, err)
	}

	s.mu.Lock()
	s.registry.Add(Listener{
		SubscriptionID: subscriptionID,
		Mention:        true,
		Pattern:        re,
	})
	s.mu.Unlock()
	return nil
}

// RemoveMentionListener removes the first listener registered under the
// subscription ID and reports whether one was present.
func (s *Service) RemoveMentionListener(subscriptionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.Remove(subscriptionID)
}

// RemoveEvent closes a retained event and reports whether it was present.
func (s *Service) RemoveEvent(eventID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events.Remove(eventID)
}

// SendMessage resolves the channel name and posts a new message.
func (s *Service) SendMessage(ctx context.Context, appID, channelName, text string) error {
	client := s.clients.ClientFor(ctx, appID)
	channelID, err := s.resolveTarget(ctx, client, channelName)
	if err != nil {
		return fmt.Errorf("resolve channel %q: %w", channelName, err)
	}
	if err := client.PostMessage(ctx, channelID, text); err != nil {
		return fmt.Errorf("post message: %w", err)
	}
	return nil
}

// Reply posts a threaded reply anchored at the retained event's timestamp.
// The event stays retained; only RemoveEvent closes it.
func (s *Service) Reply(ctx context.Context, appID, eventID, text string) error {
	s.mu.Lock()
	ev, ok := s.events.Find(eventID)
	s.mu.Unlock()
	if !ok {
		return ErrEventNotFound
	}

	client := s.clients.ClientFor(ctx, appID)
	if err := client.PostThreadReply(ctx, ev.Channel, ev.Ts, text); err != nil {
		return fmt.Errorf("post thread reply: %w", err)
	}
	return nil
}

// resolveTarget translates a human-readable name into a platform identifier.
// Names prefixed with @ resolve via the user directory; everything else via
// the channel directory by exact name.
func (s *Service) resolveTarget(ctx context.Context, client SlackClient, name string) (string, error) {
	if rest, ok := strings.CutPrefix(name, "@"); ok {
		return client.ResolveUser(ctx, rest)
	}
	return client.ResolveChannel(ctx, name)
}
