package httpapi

import (
	"io"
	"net/http"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"

	"github.com/relaygate/slackbridge/internal/metrics"
	"github.com/relaygate/slackbridge/internal/subscription"
)

// handleSlackEvents receives Events API deliveries. Signature verification
// happens before any parsing; an unverifiable request is rejected with 401
// so Slack retries against a correctly configured endpoint.
func (s *Server) handleSlackEvents(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.logger.Printf("event=webhook status=error reason=read_body err=%v", err)
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	if err := verifySignature(r.Header, s.cfg.SlackSigningKey, body); err != nil {
		s.logger.Printf("event=webhook status=rejected reason=bad_signature err=%v", err)
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	event, err := slackevents.ParseEvent(body, slackevents.OptionNoVerifyToken())
	if err != nil {
		s.logger.Printf("event=webhook status=error reason=parse err=%v", err)
		http.Error(w, "failed to parse event", http.StatusBadRequest)
		return
	}

	switch event.Type {
	case slackevents.URLVerification:
		ev, ok := event.Data.(*slackevents.EventsAPIURLVerificationEvent)
		if !ok {
			http.Error(w, "malformed url_verification event", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(ev.Challenge))

	case slackevents.CallbackEvent:
		s.dispatchCallback(w, r, event.InnerEvent)

	default:
		// Unknown outer types are acknowledged so Slack does not retry them.
		w.WriteHeader(http.StatusOK)
	}
}

// dispatchCallback maps the inner event into the bridge's event shape and
// hands it to the service. Slack expects a 200 within 3 seconds regardless
// of what matching does with the event.
func (s *Server) dispatchCallback(w http.ResponseWriter, r *http.Request, inner slackevents.EventsAPIInnerEvent) {
	var ev subscription.Event

	switch data := inner.Data.(type) {
	case *slackevents.MessageEvent:
		if data.BotID != "" {
			w.WriteHeader(http.StatusOK)
			return
		}
		ev = subscription.Event{
			Type:    subscription.EventTypeMessage,
			SubType: data.SubType,
			Channel: data.Channel,
			User:    data.User,
			Text:    data.Text,
			Ts:      data.TimeStamp,
		}
		if data.IsEdited() {
			ev.Edited = &subscription.Edited{
				User: data.Message.Edited.User,
				Ts:   data.Message.Edited.Timestamp,
			}
		}

	case *slackevents.AppMentionEvent:
		ev = subscription.Event{
			Type:    subscription.EventTypeAppMention,
			Channel: data.Channel,
			User:    data.User,
			Text:    data.Text,
			Ts:      data.TimeStamp,
		}

	default:
		w.WriteHeader(http.StatusOK)
		return
	}

	if s.limiter != nil && !s.limiter.Allow(ev.User, ev.Channel) {
		s.logger.Printf("event=webhook status=dropped reason=rate_limited user=%s channel=%s", ev.User, ev.Channel)
		w.WriteHeader(http.StatusOK)
		return
	}

	metrics.RecordEventReceived(r.Context(), ev.Type)
	s.service.HandleEvent(r.Context(), ev)
	w.WriteHeader(http.StatusOK)
}

// verifySignature checks the request against Slack's signing secret scheme
// (v0 HMAC over "v0:{timestamp}:{body}").
func verifySignature(header http.Header, signingSecret string, body []byte) error {
	verifier, err := slack.NewSecretsVerifier(header, signingSecret)
	if err != nil {
		return err
	}
	if _, err := verifier.Write(body); err != nil {
		return err
	}
	return verifier.Ensure()
}
