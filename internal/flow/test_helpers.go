package flow

import (
	"context"
	"time"

	"github.com/clinicflow/clinicflow/internal/models"
)

// sentText records one SendText call.
type sentText struct {
	To      string
	Body    string
	ReplyTo string
}

// sentButtons records one SendButtons call.
type sentButtons struct {
	To      string
	Body    string
	Buttons []models.Button
}

// mockGateway captures outbound sends for assertions.
type mockGateway struct {
	Texts       []sentText
	ButtonSends []sentButtons
	MediaURLs   []string
	Locations   []string
	Contacts    []string
	ReadIDs     []string

	TextErr     error
	MediaErr    error
	LocationErr error
	ContactErr  error
}

func (g *mockGateway) SendText(ctx context.Context, to, body, replyTo string) error {
	if g.TextErr != nil {
		return g.TextErr
	}
	g.Texts = append(g.Texts, sentText{To: to, Body: body, ReplyTo: replyTo})
	return nil
}

func (g *mockGateway) SendButtons(ctx context.Context, to, body string, buttons []models.Button, replyTo string) error {
	g.ButtonSends = append(g.ButtonSends, sentButtons{To: to, Body: body, Buttons: buttons})
	return nil
}

func (g *mockGateway) SendMedia(ctx context.Context, to string, kind models.MediaKind, url, caption string) error {
	if g.MediaErr != nil {
		return g.MediaErr
	}
	g.MediaURLs = append(g.MediaURLs, url)
	return nil
}

func (g *mockGateway) SendLocation(ctx context.Context, to string) error {
	if g.LocationErr != nil {
		return g.LocationErr
	}
	g.Locations = append(g.Locations, to)
	return nil
}

func (g *mockGateway) SendContact(ctx context.Context, to string) error {
	if g.ContactErr != nil {
		return g.ContactErr
	}
	g.Contacts = append(g.Contacts, to)
	return nil
}

func (g *mockGateway) MarkRead(ctx context.Context, messageID string) error {
	g.ReadIDs = append(g.ReadIDs, messageID)
	return nil
}

// lastText returns the most recent text body sent, or "".
func (g *mockGateway) lastText() string {
	if len(g.Texts) == 0 {
		return ""
	}
	return g.Texts[len(g.Texts)-1].Body
}

// mockKnowledge returns a canned answer or error.
type mockKnowledge struct {
	Answer string
	Err    error
	Panic  bool

	LastQuestion     string
	LastUserName     string
	LastSystemPrompt string
}

func (k *mockKnowledge) Ask(ctx context.Context, question, userName, systemPrompt string) (string, error) {
	if k.Panic {
		panic("knowledge adapter exploded")
	}
	k.LastQuestion = question
	k.LastUserName = userName
	k.LastSystemPrompt = systemPrompt
	if k.Err != nil {
		return "", k.Err
	}
	return k.Answer, nil
}

// mockPersistence fakes the calendar and spreadsheet backends.
type mockPersistence struct {
	Events  []models.CalendarEvent
	ListErr error

	Created   models.CreatedEvent
	CreateErr error
	Drafts    []models.AppointmentDraft

	Rows      [][]string
	AppendErr error
}

func (p *mockPersistence) CreateEvent(ctx context.Context, draft models.AppointmentDraft) (models.CreatedEvent, error) {
	p.Drafts = append(p.Drafts, draft)
	if p.CreateErr != nil {
		return models.CreatedEvent{}, p.CreateErr
	}
	return p.Created, nil
}

func (p *mockPersistence) EventsForDate(ctx context.Context, day time.Time) ([]models.CalendarEvent, error) {
	if p.ListErr != nil {
		return nil, p.ListErr
	}
	return p.Events, nil
}

func (p *mockPersistence) AppendRow(ctx context.Context, values []string) error {
	if p.AppendErr != nil {
		return p.AppendErr
	}
	p.Rows = append(p.Rows, values)
	return nil
}

// fakeTimer captures scheduled callbacks so tests can fire them synchronously.
type fakeTimer struct {
	Scheduled map[string]func()
	Cancelled []string
}

func newFakeTimer() *fakeTimer {
	return &fakeTimer{Scheduled: make(map[string]func())}
}

func (t *fakeTimer) ScheduleAfter(key string, delay time.Duration, fn func()) {
	t.Scheduled[key] = fn
}

func (t *fakeTimer) Cancel(key string) {
	t.Cancelled = append(t.Cancelled, key)
	delete(t.Scheduled, key)
}

func (t *fakeTimer) Stop() {}

// Fire runs and discards the pending callback for a key, if any.
func (t *fakeTimer) Fire(key string) {
	if fn, ok := t.Scheduled[key]; ok {
		delete(t.Scheduled, key)
		fn()
	}
}

// testEnv bundles a dispatcher with its mocks.
type testEnv struct {
	dispatcher  *Dispatcher
	gateway     *mockGateway
	knowledge   *mockKnowledge
	persistence *mockPersistence
	states      *InMemoryStateStore
	timer       *fakeTimer
}

// flowTestNow is a fixed clock inside the allowed booking year range.
var flowTestNow = time.Date(2025, time.June, 15, 9, 0, 0, 0, time.UTC)

func newTestEnv() *testEnv {
	gateway := &mockGateway{}
	knowledge := &mockKnowledge{Answer: "Toma agua y descansa."}
	persistence := &mockPersistence{Created: models.CreatedEvent{ID: "evt_1", Link: "https://calendar.example/evt_1"}}
	states := NewInMemoryStateStore(0)
	timer := newFakeTimer()

	dispatcher := NewDispatcher(gateway, knowledge, persistence, states, timer,
		WithLocation(time.UTC),
		WithClock(func() time.Time { return flowTestNow }),
	)
	return &testEnv{
		dispatcher:  dispatcher,
		gateway:     gateway,
		knowledge:   knowledge,
		persistence: persistence,
		states:      states,
		timer:       timer,
	}
}

func textEvent(from, body string) models.Event {
	return models.Event{Kind: models.EventKindText, From: from, Body: body, MessageID: "wamid.test"}
}

func buttonEvent(from, buttonID string) models.Event {
	return models.Event{Kind: models.EventKindButton, From: from, ButtonID: buttonID, MessageID: "wamid.button"}
}
