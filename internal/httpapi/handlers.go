package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/relaygate/slackbridge/internal/metrics"
)

// The subscription API always answers 200 once a request decodes: inner
// failures are logged and counted but never surfaced to the caller. The
// runtime treats these calls as fire-and-forget, so a changed status code
// would be a contract break.

type hearsRequest struct {
	AppID          string `json:"appID"`
	SubscriptionID string `json:"subscriptionID"`
	Channel        string `json:"channel"`
	Pattern        string `json:"pattern"`
}

type unhearsRequest struct {
	SubscriptionID string `json:"subscriptionID"`
}

type replyRequest struct {
	AppID   string `json:"appID"`
	EventID string `json:"eventID"`
	Text    string `json:"text"`
}

type closeRequest struct {
	EventID string `json:"eventID"`
}

type sendRequest struct {
	AppID   string `json:"appID"`
	Channel string `json:"channel"`
	Text    string `json:"text"`
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return false
	}
	return true
}

func (s *Server) handleHears(w http.ResponseWriter, r *http.Request) {
	var req hearsRequest
	if !decode(w, r, &req) {
		return
	}

	if err := s.service.AddMessageListener(r.Context(), req.AppID, req.SubscriptionID, req.Channel, req.Pattern); err != nil {
		s.logger.Printf("event=add_message_listener subscription=%s channel=%s status=error err=%v", req.SubscriptionID, req.Channel, err)
		metrics.RecordOperationError(r.Context(), "hears")
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleUnhears(w http.ResponseWriter, r *http.Request) {
	var req unhearsRequest
	if !decode(w, r, &req) {
		return
	}

	if !s.service.RemoveMessageListener(req.SubscriptionID) {
		s.logger.Printf("event=remove_message_listener subscription=%s status=not_found", req.SubscriptionID)
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleReceives(w http.ResponseWriter, r *http.Request) {
	var req hearsRequest
	if !decode(w, r, &req) {
		return
	}

	if err := s.service.AddMentionListener(r.Context(), req.AppID, req.SubscriptionID, req.Pattern); err != nil {
		s.logger.Printf("event=add_mention_listener subscription=%s status=error err=%v", req.SubscriptionID, err)
		metrics.RecordOperationError(r.Context(), "receives")
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleUnreceives(w http.ResponseWriter, r *http.Request) {
	var req unhearsRequest
	if !decode(w, r, &req) {
		return
	}

	if !s.service.RemoveMentionListener(req.SubscriptionID) {
		s.logger.Printf("event=remove_mention_listener subscription=%s status=not_found", req.SubscriptionID)
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleReply(w http.ResponseWriter, r *http.Request) {
	var req replyRequest
	if !decode(w, r, &req) {
		return
	}

	if err := s.service.Reply(r.Context(), req.AppID, req.EventID, req.Text); err != nil {
		s.logger.Printf("event=reply event_id=%s status=error err=%v", req.EventID, err)
		metrics.RecordOperationError(r.Context(), "reply")
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	var req closeRequest
	if !decode(w, r, &req) {
		return
	}

	if !s.service.RemoveEvent(req.EventID) {
		s.logger.Printf("event=close event_id=%s status=not_found", req.EventID)
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if !decode(w, r, &req) {
		return
	}

	if err := s.service.SendMessage(r.Context(), req.AppID, req.Channel, req.Text); err != nil {
		s.logger.Printf("event=send channel=%s status=error err=%v", req.Channel, err)
		metrics.RecordOperationError(r.Context(), "send")
	}
	w.WriteHeader(http.StatusOK)
}
