// Package flow provides the Dispatcher, the entry point for all inbound events.
package flow

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/clinicflow/clinicflow/internal/models"
)

// DefaultMenuFollowUpDelay is the pause before the main menu is resent after
// a flow finishes.
const DefaultMenuFollowUpDelay = time.Second

// Dispatcher classifies inbound events, routes them into per-user flows, and
// coordinates the adapters. It is the only component that mutates the
// conversation state store.
type Dispatcher struct {
	gateway       Gateway
	knowledge     Knowledge
	persistence   Persistence
	states        StateStore
	timer         Timer
	loc           *time.Location
	minSeparation time.Duration
	menuDelay     time.Duration
	now           func() time.Time
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLocation sets the booking timezone used for date parsing and rendering.
func WithLocation(loc *time.Location) Option {
	return func(d *Dispatcher) { d.loc = loc }
}

// WithMinSeparation sets the minimum distance between appointment start times.
func WithMinSeparation(sep time.Duration) Option {
	return func(d *Dispatcher) { d.minSeparation = sep }
}

// WithMenuFollowUpDelay sets the pause before delayed menu resends.
func WithMenuFollowUpDelay(delay time.Duration) Option {
	return func(d *Dispatcher) { d.menuDelay = delay }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// NewDispatcher creates a Dispatcher with the given adapters.
func NewDispatcher(gateway Gateway, knowledge Knowledge, persistence Persistence, states StateStore, timer Timer, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		gateway:       gateway,
		knowledge:     knowledge,
		persistence:   persistence,
		states:        states,
		timer:         timer,
		loc:           time.Local,
		minSeparation: DefaultMinSeparation,
		menuDelay:     DefaultMenuFollowUpDelay,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Handle processes one inbound event to completion. Events for the same user
// are serialized; no adapter error or panic escapes to the caller.
func (d *Dispatcher) Handle(ctx context.Context, event models.Event, sender models.SenderInfo) {
	d.states.WithUser(event.From, func() {
		d.handleLocked(ctx, event, sender)
	})
}

func (d *Dispatcher) handleLocked(ctx context.Context, event models.Event, sender models.SenderInfo) {
	// Backstop: whatever goes wrong downstream, the user must never be left
	// stuck in a broken flow.
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Dispatcher.Handle: panic recovered, resetting user state", "userID", event.From, "panic", r)
			d.resetUser(event.From)
			d.sendText(ctx, event.From, msgGenericApology, "")
		}
	}()

	slog.Debug("Dispatcher.Handle: processing event", "userID", event.From, "kind", event.Kind, "messageID", event.MessageID)
	d.markRead(ctx, event.MessageID)

	switch event.Kind {
	case models.EventKindText:
		d.handleText(ctx, event, sender)
	case models.EventKindButton:
		d.handleButton(ctx, event)
	default:
		slog.Warn("Dispatcher.Handle: unclassified event kind", "userID", event.From, "kind", event.Kind)
	}
}

// handleText applies the classification order: cancel, agenda, greeting,
// media sample, active assistant flow, active appointment flow, menu resend.
func (d *Dispatcher) handleText(ctx context.Context, event models.Event, sender models.SenderInfo) {
	normalized := strings.ToLower(strings.TrimSpace(event.Body))

	if containsKeyword(cancelKeywords, normalized) {
		d.handleCancel(ctx, event)
		return
	}

	if containsKeyword(agendaKeywords, normalized) {
		d.showTodayAppointments(ctx, event.From, event.MessageID)
		return
	}

	if isGreeting(normalized) {
		slog.Info("Dispatcher.handleText: greeting received", "userID", event.From)
		d.resetUser(event.From)
		d.sendText(ctx, event.From, welcomeMessage(sender.DisplayName()), event.MessageID)
		d.sendMainMenu(ctx, event.From, event.MessageID)
		return
	}

	if normalized == mediaSampleWord {
		d.sendSampleMedia(ctx, event)
		return
	}

	state, ok := d.states.Get(event.From)
	if ok && state.Kind == models.FlowKindAssistant {
		d.handleAssistantFlow(ctx, event, sender)
		return
	}
	if ok && state.Kind == models.FlowKindAppointment {
		d.handleAppointmentFlow(ctx, event, state)
		return
	}

	slog.Debug("Dispatcher.handleText: unclassified text, resending menu", "userID", event.From)
	d.sendMainMenu(ctx, event.From, event.MessageID)
}

// handleButton maps a button reply to its action. Any prior flow is discarded
// first: tapping a menu button always starts fresh.
func (d *Dispatcher) handleButton(ctx context.Context, event models.Event) {
	d.resetUser(event.From)

	switch event.ButtonID {
	case buttonSchedule:
		d.startAppointmentFlow(ctx, event.From, event.MessageID)
	case buttonServices:
		d.startAssistantFlow(ctx, event.From, event.MessageID)
	case buttonLocation:
		d.sendLocationInfo(ctx, event.From, event.MessageID)
	case buttonEmergency:
		d.sendEmergencyContact(ctx, event.From, event.MessageID)
	default:
		slog.Warn("Dispatcher.handleButton: unknown button id", "userID", event.From, "buttonID", event.ButtonID)
		d.sendMainMenu(ctx, event.From, event.MessageID)
	}
}

func (d *Dispatcher) handleCancel(ctx context.Context, event models.Event) {
	if _, ok := d.states.Get(event.From); ok {
		slog.Info("Dispatcher.handleCancel: flow cancelled", "userID", event.From)
		d.resetUser(event.From)
		d.sendText(ctx, event.From, msgCancelAck, event.MessageID)
	} else {
		slog.Debug("Dispatcher.handleCancel: nothing to cancel", "userID", event.From)
		d.sendText(ctx, event.From, msgNothingToCancel, event.MessageID)
	}
	d.sendMainMenu(ctx, event.From, "")
}

func (d *Dispatcher) showTodayAppointments(ctx context.Context, to, replyTo string) {
	today := d.now().In(d.loc)
	events, err := d.persistence.EventsForDate(ctx, today)
	if err != nil {
		slog.Error("Dispatcher.showTodayAppointments: listing failed", "error", err, "userID", to)
		d.sendText(ctx, to, msgAgendaError, replyTo)
		return
	}
	if len(events) == 0 {
		d.sendText(ctx, to, msgAgendaEmpty, replyTo)
		return
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Start.Before(events[j].Start) })
	d.sendText(ctx, to, agendaMessage(today, events), replyTo)
}

func (d *Dispatcher) sendSampleMedia(ctx context.Context, event models.Event) {
	if err := d.gateway.SendMedia(ctx, event.From, models.MediaKindAudio, sampleMediaURL, sampleMediaCaption); err != nil {
		slog.Error("Dispatcher.sendSampleMedia: send failed", "error", err, "userID", event.From)
		d.sendText(ctx, event.From, msgMediaError, event.MessageID)
	}
}

func (d *Dispatcher) sendLocationInfo(ctx context.Context, to, replyTo string) {
	d.sendText(ctx, to, msgLocationIntro, replyTo)
	if err := d.gateway.SendLocation(ctx, to); err != nil {
		slog.Error("Dispatcher.sendLocationInfo: location send failed", "error", err, "userID", to)
		d.sendText(ctx, to, msgLocationFallback, replyTo)
		return
	}
	d.sendText(ctx, to, msgLocationHours, "")
	d.sendButtons(ctx, to, msgFollowUpMenuPrompt, locationMenuButtons(), "")
}

func (d *Dispatcher) sendEmergencyContact(ctx context.Context, to, replyTo string) {
	d.sendText(ctx, to, msgEmergencyIntro, replyTo)
	if err := d.gateway.SendContact(ctx, to); err != nil {
		slog.Error("Dispatcher.sendEmergencyContact: contact send failed", "error", err, "userID", to)
		d.sendText(ctx, to, msgEmergencyFallback, replyTo)
	}
}

func (d *Dispatcher) sendMainMenu(ctx context.Context, to, replyTo string) {
	d.sendButtons(ctx, to, msgMenuPrompt, mainMenuButtons(), replyTo)
}

// resetUser clears the user's state and any pending delayed follow-up.
func (d *Dispatcher) resetUser(userID string) {
	d.states.Clear(userID)
	d.timer.Cancel(userID)
}

// sendText delivers a text message, logging and swallowing gateway errors.
// A lost reply is degraded behavior, not a flow failure.
func (d *Dispatcher) sendText(ctx context.Context, to, body, replyTo string) {
	if err := d.gateway.SendText(ctx, to, body, replyTo); err != nil {
		slog.Error("Dispatcher.sendText: delivery failed", "error", err, "userID", to)
	}
}

func (d *Dispatcher) sendButtons(ctx context.Context, to, body string, buttons []models.Button, replyTo string) {
	if err := d.gateway.SendButtons(ctx, to, body, buttons, replyTo); err != nil {
		slog.Error("Dispatcher.sendButtons: delivery failed", "error", err, "userID", to)
	}
}

// markRead marks the inbound message as read, best-effort.
func (d *Dispatcher) markRead(ctx context.Context, messageID string) {
	if messageID == "" {
		return
	}
	if err := d.gateway.MarkRead(ctx, messageID); err != nil {
		slog.Debug("Dispatcher.markRead: failed", "error", err, "messageID", messageID)
	}
}

func containsKeyword(keywords []string, normalized string) bool {
	for _, kw := range keywords {
		if normalized == kw {
			return true
		}
	}
	return false
}

func trimmed(s string) string {
	return strings.TrimSpace(s)
}

func isGreeting(normalized string) bool {
	for _, greeting := range greetingWords {
		if strings.Contains(normalized, greeting) {
			return true
		}
	}
	return false
}
