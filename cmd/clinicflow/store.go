package main

import (
	"context"
	"time"

	"github.com/clinicflow/clinicflow/internal/gcal"
	"github.com/clinicflow/clinicflow/internal/gsheets"
	"github.com/clinicflow/clinicflow/internal/models"
)

// bookingStore combines the calendar and spreadsheet clients into the single
// persistence surface the dispatcher consumes.
type bookingStore struct {
	calendar *gcal.Client
	sheet    *gsheets.Client
}

func (b *bookingStore) CreateEvent(ctx context.Context, draft models.AppointmentDraft) (models.CreatedEvent, error) {
	return b.calendar.CreateEvent(ctx, draft)
}

func (b *bookingStore) EventsForDate(ctx context.Context, day time.Time) ([]models.CalendarEvent, error) {
	return b.calendar.EventsForDate(ctx, day)
}

func (b *bookingStore) AppendRow(ctx context.Context, values []string) error {
	return b.sheet.AppendRow(ctx, values)
}
