// Package flow implements the conversation state machine and message-dispatch
// engine: it classifies inbound events, advances per-user flows, and
// coordinates the outbound gateway, knowledge and persistence adapters.
package flow

import (
	"context"
	"time"

	"github.com/clinicflow/clinicflow/internal/models"
)

// Gateway defines the outbound message-delivery capability the flows call.
type Gateway interface {
	// SendText sends a plain text message. replyTo optionally threads the
	// message onto an earlier inbound message id.
	SendText(ctx context.Context, to, body, replyTo string) error

	// SendButtons sends a text message with interactive reply buttons.
	SendButtons(ctx context.Context, to, body string, buttons []models.Button, replyTo string) error

	// SendMedia sends a media attachment by URL.
	SendMedia(ctx context.Context, to string, kind models.MediaKind, url, caption string) error

	// SendLocation shares the clinic's location.
	SendLocation(ctx context.Context, to string) error

	// SendContact shares the clinic's emergency contact card.
	SendContact(ctx context.Context, to string) error

	// MarkRead marks an inbound message as read. Best-effort; callers swallow errors.
	MarkRead(ctx context.Context, messageID string) error
}

// Knowledge defines the generative question-answering capability.
type Knowledge interface {
	// Ask returns an AI-generated answer to the user's question, constrained
	// by the given system prompt.
	Ask(ctx context.Context, question, userName, systemPrompt string) (string, error)
}

// Persistence defines the calendar and spreadsheet storage capability.
type Persistence interface {
	// CreateEvent creates a calendar event for a completed appointment draft.
	CreateEvent(ctx context.Context, draft models.AppointmentDraft) (models.CreatedEvent, error)

	// EventsForDate lists the calendar events on the given day.
	EventsForDate(ctx context.Context, day time.Time) ([]models.CalendarEvent, error)

	// AppendRow appends one ordered row of values to the spreadsheet.
	AppendRow(ctx context.Context, values []string) error
}

// StateStore holds the single conversation state slot per user. It is owned
// exclusively by the Dispatcher.
type StateStore interface {
	// Get retrieves the current state for a user, if any.
	Get(userID string) (models.ConversationState, bool)

	// Set replaces the user's state (last write wins).
	Set(userID string, state models.ConversationState)

	// Clear removes the user's state.
	Clear(userID string)

	// WithUser runs fn while holding the user's mutual-exclusion lock, so at
	// most one state mutation is in flight per user id.
	WithUser(userID string, fn func())
}

// Timer schedules cancellable delayed actions keyed by user id. Scheduling a
// new action for a key replaces any pending one.
type Timer interface {
	ScheduleAfter(key string, delay time.Duration, fn func())
	Cancel(key string)
	Stop()
}
