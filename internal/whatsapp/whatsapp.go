// Package whatsapp wraps the WhatsApp Cloud API for outbound message delivery.
//
// It implements the gateway capability the flows call: text, interactive
// buttons, media, location, contact cards and read receipts.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/clinicflow/clinicflow/internal/models"
	"github.com/clinicflow/clinicflow/internal/util"
)

// Defaults for the Cloud API client.
const (
	DefaultBaseURL    = "https://graph.facebook.com"
	DefaultAPIVersion = "v21.0"
	DefaultTimeout    = 30 * time.Second
)

// GatewayError is returned when the Cloud API rejects a request.
type GatewayError struct {
	StatusCode int
	Body       string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("whatsapp api error: status %d: %s", e.StatusCode, e.Body)
}

// Opts holds configuration options for the Cloud API client.
type Opts struct {
	APIToken      string
	PhoneNumberID string
	APIVersion    string
	BaseURL       string
	HTTPClient    *http.Client
	Location      models.Location
	Contact       models.Contact
	ReadReceipts  *bool
}

// Option defines a configuration option for the Cloud API client.
type Option func(*Opts)

// WithAPIToken sets the bearer token used for Cloud API requests.
func WithAPIToken(token string) Option {
	return func(o *Opts) { o.APIToken = token }
}

// WithPhoneNumberID sets the business phone number id messages are sent from.
func WithPhoneNumberID(id string) Option {
	return func(o *Opts) { o.PhoneNumberID = id }
}

// WithAPIVersion overrides the Graph API version.
func WithAPIVersion(version string) Option {
	return func(o *Opts) { o.APIVersion = version }
}

// WithBaseURL overrides the Graph API base URL, mainly for tests.
func WithBaseURL(url string) Option {
	return func(o *Opts) { o.BaseURL = url }
}

// WithHTTPClient injects a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(o *Opts) { o.HTTPClient = client }
}

// WithLocation sets the clinic location shared by SendLocation.
func WithLocation(loc models.Location) Option {
	return func(o *Opts) { o.Location = loc }
}

// WithContact sets the emergency contact shared by SendContact.
func WithContact(contact models.Contact) Option {
	return func(o *Opts) { o.Contact = contact }
}

// WithReadReceipts toggles outbound read receipts.
func WithReadReceipts(enabled bool) Option {
	return func(o *Opts) { o.ReadReceipts = &enabled }
}

// Client is a WhatsApp Cloud API client.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	apiVersion    string
	apiToken      string
	phoneNumberID string
	location      models.Location
	contact       models.Contact
	readReceipts  bool
}

// NewClient creates a Cloud API client, falling back to environment variables
// for any option not provided.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIToken == "" {
		cfg.APIToken = os.Getenv("WHATSAPP_API_TOKEN")
	}
	if cfg.PhoneNumberID == "" {
		cfg.PhoneNumberID = os.Getenv("WHATSAPP_PHONE_NUMBER_ID")
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = os.Getenv("WHATSAPP_API_VERSION")
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: DefaultTimeout}
	}
	readReceipts := util.ParseBoolEnv("WHATSAPP_READ_RECEIPTS", true)
	if cfg.ReadReceipts != nil {
		readReceipts = *cfg.ReadReceipts
	}

	if cfg.APIToken == "" {
		return nil, fmt.Errorf("whatsapp api token must be provided")
	}
	if cfg.PhoneNumberID == "" {
		return nil, fmt.Errorf("whatsapp phone number id must be provided")
	}

	slog.Debug("WhatsApp Cloud API client created", "apiVersion", cfg.APIVersion, "phoneNumberID", cfg.PhoneNumberID)
	return &Client{
		httpClient:    cfg.HTTPClient,
		baseURL:       cfg.BaseURL,
		apiVersion:    cfg.APIVersion,
		apiToken:      cfg.APIToken,
		phoneNumberID: cfg.PhoneNumberID,
		location:      cfg.Location,
		contact:       cfg.Contact,
		readReceipts:  readReceipts,
	}, nil
}

// outbound wire format
type textPayload struct {
	Body string `json:"body"`
}

type messageContext struct {
	MessageID string `json:"message_id"`
}

type replyButton struct {
	Type  string      `json:"type"`
	Reply buttonReply `json:"reply"`
}

type buttonReply struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type interactivePayload struct {
	Type   string            `json:"type"`
	Body   textPayload       `json:"body"`
	Action interactiveAction `json:"action"`
}

type interactiveAction struct {
	Buttons []replyButton `json:"buttons"`
}

type mediaPayload struct {
	Link    string `json:"link"`
	Caption string `json:"caption,omitempty"`
}

type locationPayload struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Name      string  `json:"name,omitempty"`
	Address   string  `json:"address,omitempty"`
}

type contactName struct {
	FormattedName string `json:"formatted_name"`
	FirstName     string `json:"first_name,omitempty"`
}

type contactOrg struct {
	Company string `json:"company,omitempty"`
}

type contactPhone struct {
	Phone string `json:"phone"`
	Type  string `json:"type,omitempty"`
}

type contactPayload struct {
	Name   contactName    `json:"name"`
	Org    *contactOrg    `json:"org,omitempty"`
	Phones []contactPhone `json:"phones"`
}

type messageRequest struct {
	MessagingProduct string              `json:"messaging_product"`
	To               string              `json:"to,omitempty"`
	Type             string              `json:"type,omitempty"`
	Text             *textPayload        `json:"text,omitempty"`
	Interactive      *interactivePayload `json:"interactive,omitempty"`
	Audio            *mediaPayload       `json:"audio,omitempty"`
	Image            *mediaPayload       `json:"image,omitempty"`
	Video            *mediaPayload       `json:"video,omitempty"`
	Document         *mediaPayload       `json:"document,omitempty"`
	Location         *locationPayload    `json:"location,omitempty"`
	Contacts         []contactPayload    `json:"contacts,omitempty"`
	Context          *messageContext     `json:"context,omitempty"`
	Status           string              `json:"status,omitempty"`
	MessageID        string              `json:"message_id,omitempty"`
}

// SendText sends a plain text message, optionally threaded onto replyTo.
func (c *Client) SendText(ctx context.Context, to, body, replyTo string) error {
	req := messageRequest{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
		Text:             &textPayload{Body: body},
	}
	if replyTo != "" {
		req.Context = &messageContext{MessageID: replyTo}
	}
	return c.post(ctx, req)
}

// SendButtons sends a text message with interactive reply buttons.
func (c *Client) SendButtons(ctx context.Context, to, body string, buttons []models.Button, replyTo string) error {
	wireButtons := make([]replyButton, 0, len(buttons))
	for _, b := range buttons {
		wireButtons = append(wireButtons, replyButton{Type: "reply", Reply: buttonReply{ID: b.ID, Title: b.Label}})
	}
	req := messageRequest{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "interactive",
		Interactive: &interactivePayload{
			Type:   "button",
			Body:   textPayload{Body: body},
			Action: interactiveAction{Buttons: wireButtons},
		},
	}
	if replyTo != "" {
		req.Context = &messageContext{MessageID: replyTo}
	}
	return c.post(ctx, req)
}

// SendMedia sends a media attachment by URL.
func (c *Client) SendMedia(ctx context.Context, to string, kind models.MediaKind, url, caption string) error {
	req := messageRequest{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             string(kind),
	}
	payload := &mediaPayload{Link: url, Caption: caption}
	switch kind {
	case models.MediaKindAudio:
		// audio messages do not carry captions on the Cloud API
		payload.Caption = ""
		req.Audio = payload
	case models.MediaKindImage:
		req.Image = payload
	case models.MediaKindVideo:
		req.Video = payload
	case models.MediaKindDocument:
		req.Document = payload
	default:
		return fmt.Errorf("unsupported media kind %q", kind)
	}
	return c.post(ctx, req)
}

// SendLocation shares the configured clinic location.
func (c *Client) SendLocation(ctx context.Context, to string) error {
	req := messageRequest{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "location",
		Location: &locationPayload{
			Latitude:  c.location.Latitude,
			Longitude: c.location.Longitude,
			Name:      c.location.Name,
			Address:   c.location.Address,
		},
	}
	return c.post(ctx, req)
}

// SendContact shares the configured emergency contact card.
func (c *Client) SendContact(ctx context.Context, to string) error {
	contact := contactPayload{
		Name:   contactName{FormattedName: c.contact.Name, FirstName: c.contact.Name},
		Phones: []contactPhone{{Phone: c.contact.Phone, Type: "WORK"}},
	}
	if c.contact.Organization != "" {
		contact.Org = &contactOrg{Company: c.contact.Organization}
	}
	req := messageRequest{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "contacts",
		Contacts:         []contactPayload{contact},
	}
	return c.post(ctx, req)
}

// MarkRead marks an inbound message as read. When read receipts are disabled
// it is a no-op.
func (c *Client) MarkRead(ctx context.Context, messageID string) error {
	if !c.readReceipts {
		slog.Debug("WhatsAppClient.MarkRead: read receipts disabled, skipping", "messageID", messageID)
		return nil
	}
	req := messageRequest{
		MessagingProduct: "whatsapp",
		Status:           "read",
		MessageID:        messageID,
	}
	return c.post(ctx, req)
}

func (c *Client) post(ctx context.Context, payload messageRequest) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/%s/messages", c.baseURL, c.apiVersion, c.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp api request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		slog.Error("WhatsApp Cloud API request rejected", "status", resp.StatusCode, "type", payload.Type)
		return &GatewayError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	slog.Debug("WhatsApp Cloud API request sent", "type", payload.Type, "to", payload.To)
	return nil
}
