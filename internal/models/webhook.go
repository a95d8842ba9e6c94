// Package models defines the WhatsApp Cloud API webhook wire format.
package models

// WebhookPayload is the top-level body Meta posts to the webhook endpoint.
type WebhookPayload struct {
	Object string         `json:"object"` // "whatsapp_business_account"
	Entry  []WebhookEntry `json:"entry"`
}

// WebhookEntry groups changes for one business account.
type WebhookEntry struct {
	ID      string          `json:"id"`
	Changes []WebhookChange `json:"changes"`
}

// WebhookChange wraps one change notification.
type WebhookChange struct {
	Field string       `json:"field"`
	Value WebhookValue `json:"value"`
}

// WebhookValue carries the messages and sender contacts of a change.
type WebhookValue struct {
	MessagingProduct string           `json:"messaging_product"`
	Messages         []WebhookMessage `json:"messages"`
	Contacts         []WebhookContact `json:"contacts"`
}

// WebhookMessage is one inbound message as delivered on the wire.
type WebhookMessage struct {
	From        string              `json:"from"`
	ID          string              `json:"id"` // wamid
	Type        string              `json:"type"`
	Text        *WebhookText        `json:"text,omitempty"`
	Interactive *WebhookInteractive `json:"interactive,omitempty"`
}

// WebhookText is the body of a text message.
type WebhookText struct {
	Body string `json:"body"`
}

// WebhookInteractive is the payload of an interactive message reply.
type WebhookInteractive struct {
	Type        string              `json:"type"` // "button_reply"
	ButtonReply *WebhookButtonReply `json:"button_reply,omitempty"`
}

// WebhookButtonReply identifies which button the user tapped.
type WebhookButtonReply struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// WebhookContact carries sender profile info delivered with a message.
type WebhookContact struct {
	WAID    string         `json:"wa_id"`
	Profile WebhookProfile `json:"profile"`
}

// WebhookProfile holds the sender's display name.
type WebhookProfile struct {
	Name string `json:"name"`
}

// SenderFor resolves the profile info delivered alongside a message, matching
// the sender's wa_id. Falls back to an id-only SenderInfo.
func (v WebhookValue) SenderFor(from string) SenderInfo {
	for _, c := range v.Contacts {
		if c.WAID == from {
			return SenderInfo{WAID: c.WAID, ProfileName: c.Profile.Name}
		}
	}
	return SenderInfo{WAID: from}
}

// ToEvent converts a wire message into a dispatcher Event. It returns false
// for message types the dispatcher does not handle.
func (m WebhookMessage) ToEvent() (Event, bool) {
	switch m.Type {
	case "text":
		if m.Text == nil {
			return Event{}, false
		}
		return Event{Kind: EventKindText, From: m.From, Body: m.Text.Body, MessageID: m.ID}, true
	case "interactive":
		if m.Interactive == nil || m.Interactive.Type != "button_reply" || m.Interactive.ButtonReply == nil {
			return Event{}, false
		}
		return Event{Kind: EventKindButton, From: m.From, ButtonID: m.Interactive.ButtonReply.ID, MessageID: m.ID}, true
	default:
		return Event{}, false
	}
}
