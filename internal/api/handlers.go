// Package api provides HTTP handlers for ClinicFlow endpoints.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/clinicflow/clinicflow/internal/models"
	"github.com/clinicflow/clinicflow/internal/util"
)

// EventDispatcher consumes parsed webhook events.
type EventDispatcher interface {
	Handle(ctx context.Context, event models.Event, sender models.SenderInfo)
}

// EventCanceler removes a booked appointment from the calendar.
type EventCanceler interface {
	CancelEvent(ctx context.Context, eventID string) error
}

// webhookObject is the only webhook object type this server subscribes to.
const webhookObject = "whatsapp_business_account"

// webhookHandler serves the Cloud API webhook endpoint: GET performs the
// subscription verification handshake, POST delivers inbound messages.
func (s *Server) webhookHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	switch r.Method {
	case http.MethodGet:
		s.verifyWebhook(w, r)
	case http.MethodPost:
		s.receiveWebhook(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		slog.Warn("Server.webhookHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// verifyWebhook answers Meta's subscription handshake: echo hub.challenge
// when the mode and token match, 403 otherwise.
func (s *Server) verifyWebhook(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode := q.Get("hub.mode")
	token := q.Get("hub.verify_token")
	challenge := q.Get("hub.challenge")

	if mode != "subscribe" || token != s.verifyToken {
		slog.Warn("Server.verifyWebhook: verification rejected", "mode", mode)
		w.WriteHeader(http.StatusForbidden)
		return
	}

	slog.Info("Server.verifyWebhook: webhook verified")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(challenge)); err != nil {
		slog.Error("Server.verifyWebhook: failed to write challenge", "error", err)
	}
}

// receiveWebhook parses the delivery payload, acks immediately and dispatches
// each supported message asynchronously. Unsupported message types are
// acknowledged and dropped so Meta does not retry them.
func (s *Server) receiveWebhook(w http.ResponseWriter, r *http.Request) {
	deliveryID := util.GenerateDeliveryID()
	slog.Debug("Server.receiveWebhook: processing delivery", "delivery_id", deliveryID, "path", r.URL.Path)

	var payload models.WebhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		slog.Warn("Server.receiveWebhook: failed to decode JSON", "error", err, "delivery_id", deliveryID)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if payload.Object != webhookObject {
		slog.Warn("Server.receiveWebhook: unexpected object", "object", payload.Object, "delivery_id", deliveryID)
		writeJSONResponse(w, http.StatusNotFound, models.Error("Unsupported webhook object"))
		return
	}

	dispatched := 0
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			value := change.Value
			for _, msg := range value.Messages {
				event, ok := msg.ToEvent()
				if !ok {
					slog.Debug("Server.receiveWebhook: skipping unsupported message", "type", msg.Type, "from", msg.From, "delivery_id", deliveryID)
					continue
				}
				sender := value.SenderFor(event.From)
				go s.dispatcher.Handle(context.Background(), event, sender)
				dispatched++
			}
		}
	}

	slog.Info("Server.receiveWebhook: delivery accepted", "delivery_id", deliveryID, "dispatched", dispatched)
	writeJSONResponse(w, http.StatusOK, models.Success(nil))
}

// eventsHandler serves the admin appointment-cancel endpoint:
// DELETE /events/{id} removes the calendar event.
func (s *Server) eventsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		w.Header().Set("Allow", http.MethodDelete)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.canceler == nil {
		slog.Warn("Server.eventsHandler: no canceler configured")
		writeJSONResponse(w, http.StatusNotImplemented, models.Error("Event cancellation not configured"))
		return
	}
	eventID := strings.TrimPrefix(r.URL.Path, "/events/")
	if eventID == "" || strings.Contains(eventID, "/") {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Missing event id"))
		return
	}

	if err := s.canceler.CancelEvent(r.Context(), eventID); err != nil {
		slog.Error("Server.eventsHandler: cancel failed", "error", err, "event_id", eventID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to cancel event"))
		return
	}
	slog.Info("Server.eventsHandler: event cancelled", "event_id", eventID)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Event cancelled", nil))
}

// healthHandler reports liveness.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	uptime := time.Since(s.startedAt).Round(time.Second)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("ClinicFlow is running", map[string]string{"uptime": uptime.String()}))
}

// rootHandler answers platform reachability probes on the bare root path.
func (s *Server) rootHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("ClinicFlow webhook bridge", nil))
}
