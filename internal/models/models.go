// Package models defines core data structures and enums shared across ClinicFlow components.
package models

import "time"

// EventKind classifies an inbound webhook event.
type EventKind string

// Event kinds understood by the dispatcher.
const (
	EventKindText   EventKind = "text"
	EventKindButton EventKind = "button"
)

// Event is an inbound chat event, already parsed from the webhook wire format.
type Event struct {
	Kind      EventKind `json:"kind"`
	From      string    `json:"from"`                 // sender phone number
	Body      string    `json:"body,omitempty"`       // text body for EventKindText
	ButtonID  string    `json:"button_id,omitempty"`  // reply id for EventKindButton
	MessageID string    `json:"message_id,omitempty"` // wamid, used for read receipts and threading
}

// SenderInfo carries optional profile data delivered alongside a webhook event.
type SenderInfo struct {
	WAID        string `json:"wa_id,omitempty"`
	ProfileName string `json:"profile_name,omitempty"`
}

// DisplayName returns the sender's profile name, falling back to the WhatsApp
// id and finally to a generic label.
func (s SenderInfo) DisplayName() string {
	if s.ProfileName != "" {
		return s.ProfileName
	}
	if s.WAID != "" {
		return s.WAID
	}
	return "Cliente"
}

// Button is one interactive reply option in an outbound menu message.
type Button struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// MediaKind identifies the media type of an outbound attachment.
type MediaKind string

// Supported outbound media kinds.
const (
	MediaKindAudio    MediaKind = "audio"
	MediaKindImage    MediaKind = "image"
	MediaKindVideo    MediaKind = "video"
	MediaKindDocument MediaKind = "document"
)

// Location is a geographic point shared with a user.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Name      string  `json:"name,omitempty"`
	Address   string  `json:"address,omitempty"`
}

// Contact is a contact card shared with a user.
type Contact struct {
	Name         string `json:"name"`
	Organization string `json:"organization,omitempty"`
	Phone        string `json:"phone"`
}

// CalendarEvent is an existing event read back from the calendar backend.
type CalendarEvent struct {
	ID      string    `json:"id"`
	Summary string    `json:"summary"`
	Link    string    `json:"link,omitempty"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
}

// CreatedEvent is the result of creating a calendar event.
type CreatedEvent struct {
	ID   string `json:"id"`
	Link string `json:"link,omitempty"`
}
