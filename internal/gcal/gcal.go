// Package gcal books and lists appointment events on Google Calendar.
package gcal

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/clinicflow/clinicflow/internal/flow"
	"github.com/clinicflow/clinicflow/internal/models"
)

// DefaultCalendarID targets the service account's primary calendar.
const DefaultCalendarID = "primary"

const appointmentDuration = time.Hour

// CalendarError wraps failures talking to the Calendar API.
type CalendarError struct {
	Op  string
	Err error
}

func (e *CalendarError) Error() string {
	return fmt.Sprintf("calendar %s failed: %v", e.Op, e.Err)
}

func (e *CalendarError) Unwrap() error { return e.Err }

// eventService is the slice of the Calendar API used by the client.
type eventService interface {
	Insert(ctx context.Context, calendarID string, event *calendar.Event) (*calendar.Event, error)
	List(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]*calendar.Event, error)
	Delete(ctx context.Context, calendarID, eventID string) error
}

type googleEventService struct {
	svc *calendar.Service
}

func (g *googleEventService) Insert(ctx context.Context, calendarID string, event *calendar.Event) (*calendar.Event, error) {
	return g.svc.Events.Insert(calendarID, event).Context(ctx).Do()
}

func (g *googleEventService) List(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]*calendar.Event, error) {
	res, err := g.svc.Events.List(calendarID).
		TimeMin(timeMin.Format(time.RFC3339)).
		TimeMax(timeMax.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return res.Items, nil
}

func (g *googleEventService) Delete(ctx context.Context, calendarID, eventID string) error {
	return g.svc.Events.Delete(calendarID, eventID).Context(ctx).Do()
}

// Opts holds configuration options for the calendar client.
type Opts struct {
	CredentialsFile string
	CalendarID      string
	Location        *time.Location
}

// Option defines a configuration option for the calendar client.
type Option func(*Opts)

// WithCredentialsFile sets the service account credentials path.
func WithCredentialsFile(path string) Option {
	return func(o *Opts) { o.CredentialsFile = path }
}

// WithCalendarID targets a specific calendar.
func WithCalendarID(id string) Option {
	return func(o *Opts) { o.CalendarID = id }
}

// WithLocation sets the timezone appointments are booked in.
func WithLocation(loc *time.Location) Option {
	return func(o *Opts) { o.Location = loc }
}

// Client books appointments as calendar events.
type Client struct {
	events     eventService
	calendarID string
	loc        *time.Location
}

// NewClient initializes a calendar client, falling back to the
// GOOGLE_APPLICATION_CREDENTIALS and GOOGLE_CALENDAR_ID environment variables.
func NewClient(ctx context.Context, opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.CredentialsFile == "" {
		cfg.CredentialsFile = os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
	}
	if cfg.CredentialsFile == "" {
		return nil, fmt.Errorf("GOOGLE_APPLICATION_CREDENTIALS not set")
	}
	if cfg.CalendarID == "" {
		cfg.CalendarID = os.Getenv("GOOGLE_CALENDAR_ID")
	}
	if cfg.CalendarID == "" {
		cfg.CalendarID = DefaultCalendarID
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}

	svc, err := calendar.NewService(ctx, option.WithCredentialsFile(cfg.CredentialsFile), option.WithScopes(calendar.CalendarScope))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	slog.Debug("Calendar client created", "calendar_id", cfg.CalendarID)
	return &Client{events: &googleEventService{svc: svc}, calendarID: cfg.CalendarID, loc: cfg.Location}, nil
}

// CreateEvent books a one-hour appointment from a completed draft and returns
// the created event's id and browser link.
func (c *Client) CreateEvent(ctx context.Context, draft models.AppointmentDraft) (models.CreatedEvent, error) {
	start, err := flow.ParseDateTime(draft.Date, draft.Time, c.loc)
	if err != nil {
		return models.CreatedEvent{}, &CalendarError{Op: "insert", Err: err}
	}

	event := &calendar.Event{
		Summary:     fmt.Sprintf("📅 Cita: %s - %s", draft.Name, draft.Consulta),
		Description: eventDescription(draft),
		Start: &calendar.EventDateTime{
			DateTime: start.Format(time.RFC3339),
			TimeZone: c.loc.String(),
		},
		End: &calendar.EventDateTime{
			DateTime: start.Add(appointmentDuration).Format(time.RFC3339),
			TimeZone: c.loc.String(),
		},
		Reminders: &calendar.EventReminders{
			UseDefault: false,
			Overrides: []*calendar.EventReminder{
				{Method: "email", Minutes: 24 * 60},
				{Method: "popup", Minutes: 60},
			},
			ForceSendFields: []string{"UseDefault"},
		},
	}

	created, err := c.events.Insert(ctx, c.calendarID, event)
	if err != nil {
		slog.Error("Calendar.CreateEvent: insert failed", "error", err, "patient", draft.Name)
		return models.CreatedEvent{}, &CalendarError{Op: "insert", Err: err}
	}
	slog.Info("Calendar.CreateEvent: event booked", "event_id", created.Id, "start", start)
	return models.CreatedEvent{ID: created.Id, Link: created.HtmlLink}, nil
}

// EventsForDate lists the appointments scheduled on the given day, ordered by
// start time. Events without a concrete start time (all-day entries) are skipped.
func (c *Client) EventsForDate(ctx context.Context, day time.Time) ([]models.CalendarEvent, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, c.loc)
	dayEnd := dayStart.AddDate(0, 0, 1)

	items, err := c.events.List(ctx, c.calendarID, dayStart, dayEnd)
	if err != nil {
		slog.Error("Calendar.EventsForDate: list failed", "error", err, "day", dayStart.Format("2006-01-02"))
		return nil, &CalendarError{Op: "list", Err: err}
	}

	events := make([]models.CalendarEvent, 0, len(items))
	for _, item := range items {
		if item.Start == nil || item.Start.DateTime == "" {
			continue
		}
		startAt, err := time.Parse(time.RFC3339, item.Start.DateTime)
		if err != nil {
			slog.Warn("Calendar.EventsForDate: skipping unparseable start", "event_id", item.Id, "start", item.Start.DateTime)
			continue
		}
		ev := models.CalendarEvent{
			ID:      item.Id,
			Summary: item.Summary,
			Link:    item.HtmlLink,
			Start:   startAt.In(c.loc),
		}
		if item.End != nil && item.End.DateTime != "" {
			if endAt, err := time.Parse(time.RFC3339, item.End.DateTime); err == nil {
				ev.End = endAt.In(c.loc)
			}
		}
		events = append(events, ev)
	}
	return events, nil
}

// CancelEvent removes a booked appointment.
func (c *Client) CancelEvent(ctx context.Context, eventID string) error {
	if err := c.events.Delete(ctx, c.calendarID, eventID); err != nil {
		slog.Error("Calendar.CancelEvent: delete failed", "error", err, "event_id", eventID)
		return &CalendarError{Op: "delete", Err: err}
	}
	slog.Info("Calendar.CancelEvent: event removed", "event_id", eventID)
	return nil
}

func eventDescription(draft models.AppointmentDraft) string {
	return fmt.Sprintf("Paciente: %s\nConsulta: %s\nMonto: %s\nProveedor: %s\nRIF: %s\nMétodo de pago: %s",
		draft.Name, draft.Consulta, draft.Monto, draft.Proveedor, draft.RIF, draft.Pago)
}
