// Package twiliowhatsapp provides an alternate gateway backend on the Twilio
// WhatsApp API.
//
// Twilio's API has no interactive reply buttons, read receipts or contact
// cards, so those degrade to plain text renderings; the flows behave the same
// either way.
package twiliowhatsapp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/clinicflow/clinicflow/internal/models"
)

// Opts holds configuration options for the Twilio WhatsApp client.
type Opts struct {
	AccountSID string
	AuthToken  string
	FromNumber string
	Location   models.Location
	Contact    models.Contact
}

// Option defines a configuration option for the Twilio WhatsApp client.
type Option func(*Opts)

// WithAccountSID sets the Twilio account SID.
func WithAccountSID(sid string) Option {
	return func(o *Opts) { o.AccountSID = sid }
}

// WithAuthToken sets the Twilio auth token.
func WithAuthToken(token string) Option {
	return func(o *Opts) { o.AuthToken = token }
}

// WithFromNumber sets the sending number, in "whatsapp:+1234567890" form.
func WithFromNumber(from string) Option {
	return func(o *Opts) { o.FromNumber = from }
}

// WithLocation sets the clinic location rendered by SendLocation.
func WithLocation(loc models.Location) Option {
	return func(o *Opts) { o.Location = loc }
}

// WithContact sets the emergency contact rendered by SendContact.
func WithContact(contact models.Contact) Option {
	return func(o *Opts) { o.Contact = contact }
}

// Client wraps the Twilio REST API for WhatsApp delivery.
type Client struct {
	client     *twilio.RestClient
	fromNumber string
	location   models.Location
	contact    models.Contact
}

// NewClient creates a Twilio-backed gateway, falling back to environment
// variables for any option not provided.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.AccountSID == "" {
		cfg.AccountSID = os.Getenv("TWILIO_ACCOUNT_SID")
	}
	if cfg.AuthToken == "" {
		cfg.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	}
	if cfg.FromNumber == "" {
		cfg.FromNumber = os.Getenv("TWILIO_FROM_NUMBER")
	}

	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, fmt.Errorf("account SID and auth token must be provided")
	}
	if cfg.FromNumber == "" {
		return nil, fmt.Errorf("from number must be provided")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})

	slog.Debug("Twilio WhatsApp client created", "from", cfg.FromNumber)
	return &Client{
		client:     client,
		fromNumber: cfg.FromNumber,
		location:   cfg.Location,
		contact:    cfg.Contact,
	}, nil
}

func (c *Client) send(to, body string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo("whatsapp:" + to)
	params.SetFrom(c.fromNumber)
	params.SetBody(body)

	if _, err := c.client.Api.CreateMessage(params); err != nil {
		slog.Error("Twilio send failed", "to", to, "error", err)
		return fmt.Errorf("failed to send message to %s: %w", to, err)
	}
	slog.Debug("Twilio message sent", "to", to)
	return nil
}

// SendText sends a plain text message. Twilio has no reply threading, so
// replyTo is ignored.
func (c *Client) SendText(ctx context.Context, to, body, replyTo string) error {
	return c.send(to, body)
}

// SendButtons renders the options as a numbered text menu.
func (c *Client) SendButtons(ctx context.Context, to, body string, buttons []models.Button, replyTo string) error {
	return c.send(to, renderMenu(body, buttons))
}

func renderMenu(body string, buttons []models.Button) string {
	var b strings.Builder
	b.WriteString(body)
	for i, button := range buttons {
		fmt.Fprintf(&b, "\n%d. %s", i+1, button.Label)
	}
	return b.String()
}

// SendMedia sends a media attachment by URL.
func (c *Client) SendMedia(ctx context.Context, to string, kind models.MediaKind, url, caption string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo("whatsapp:" + to)
	params.SetFrom(c.fromNumber)
	params.SetMediaUrl([]string{url})
	if caption != "" {
		params.SetBody(caption)
	}

	if _, err := c.client.Api.CreateMessage(params); err != nil {
		slog.Error("Twilio media send failed", "to", to, "error", err)
		return fmt.Errorf("failed to send media to %s: %w", to, err)
	}
	return nil
}

// SendLocation renders the clinic location as text.
func (c *Client) SendLocation(ctx context.Context, to string) error {
	body := fmt.Sprintf("📍 %s\n%s\nhttps://maps.google.com/?q=%f,%f",
		c.location.Name, c.location.Address, c.location.Latitude, c.location.Longitude)
	return c.send(to, body)
}

// SendContact renders the emergency contact as text.
func (c *Client) SendContact(ctx context.Context, to string) error {
	body := fmt.Sprintf("🚑 %s (%s)\n📞 %s", c.contact.Name, c.contact.Organization, c.contact.Phone)
	return c.send(to, body)
}

// MarkRead is unsupported on the Twilio API.
func (c *Client) MarkRead(ctx context.Context, messageID string) error {
	slog.Debug("Twilio MarkRead ignored (unsupported)", "messageID", messageID)
	return nil
}
