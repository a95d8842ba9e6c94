// Package flow implements the step-wise appointment booking state machine.
package flow

import (
	"context"
	"log/slog"
	"time"

	"github.com/clinicflow/clinicflow/internal/models"
	"github.com/clinicflow/clinicflow/internal/validate"
)

// Marker written to the spreadsheet when calendar creation failed.
const calendarErrorMarker = "Error"

// startAppointmentFlow opens a fresh appointment draft at the name step.
func (d *Dispatcher) startAppointmentFlow(ctx context.Context, to, replyTo string) {
	slog.Info("Dispatcher.startAppointmentFlow: starting", "userID", to)
	d.states.Set(to, models.ConversationState{
		Kind:        models.FlowKindAppointment,
		Appointment: &models.AppointmentDraft{Step: models.StepName, UpdatedAt: d.now()},
	})
	d.sendText(ctx, to, msgAppointmentStart, replyTo)
}

// handleAppointmentFlow advances the draft one step per inbound message.
// Invalid input re-prompts and leaves the step unchanged.
func (d *Dispatcher) handleAppointmentFlow(ctx context.Context, event models.Event, state models.ConversationState) {
	draft := state.Appointment
	if draft == nil {
		slog.Error("Dispatcher.handleAppointmentFlow: appointment state without draft", "userID", event.From)
		d.resetUser(event.From)
		d.sendMainMenu(ctx, event.From, event.MessageID)
		return
	}

	input := event.Body
	slog.Debug("Dispatcher.handleAppointmentFlow: advancing", "userID", event.From, "step", draft.Step)

	var response string
	switch draft.Step {
	case models.StepName:
		if !validate.Name(input) {
			response = msgInvalidName
			break
		}
		draft.Name = trimmed(input)
		draft.Step = models.StepDate
		response = namePrompt(draft.Name)

	case models.StepDate:
		if !validate.Date(input, d.now().In(d.loc)) {
			response = msgInvalidDate
			break
		}
		draft.Date = trimmed(input)
		draft.Step = models.StepTime
		response = datePrompt(draft.Date)

	case models.StepTime:
		if !validate.ClockTime(input) {
			response = msgInvalidTime
			break
		}
		if d.slotTaken(ctx, draft.Date, trimmed(input)) {
			response = conflictMessage(draft.Date)
			break
		}
		draft.Time = trimmed(input)
		draft.Step = models.StepConsulta
		response = timePrompt(draft.Time)

	case models.StepConsulta:
		if !validate.MinLen(input, 3) {
			response = msgInvalidText
			break
		}
		draft.Consulta = trimmed(input)
		draft.Step = models.StepMonto
		response = consultaPrompt(draft.Consulta)

	case models.StepMonto:
		monto, ok := validate.Amount(input)
		if !ok {
			response = msgInvalidMonto
			break
		}
		draft.Monto = monto
		draft.Step = models.StepProveedor
		response = montoPrompt(draft.Monto)

	case models.StepProveedor:
		if !validate.MinLen(input, 2) {
			response = msgInvalidText
			break
		}
		draft.Proveedor = trimmed(input)
		draft.Step = models.StepRIF
		response = proveedorPrompt(draft.Proveedor)

	case models.StepRIF:
		rif, ok := validate.RIF(input)
		if !ok {
			response = msgInvalidRIF
			break
		}
		draft.RIF = rif
		draft.Step = models.StepPago
		response = rifPrompt(draft.RIF)

	case models.StepPago:
		if !validate.MinLen(input, 2) {
			response = msgInvalidPago
			break
		}
		draft.Pago = trimmed(input)
		draft.Step = models.StepCompleted

	default:
		slog.Error("Dispatcher.handleAppointmentFlow: unknown step, restarting", "userID", event.From, "step", draft.Step)
		draft.Step = models.StepName
		response = msgAppointmentStart
	}

	if draft.Step == models.StepCompleted {
		d.completeAppointmentFlow(ctx, event.From, *draft)
		return
	}

	draft.UpdatedAt = d.now()
	d.states.Set(event.From, models.ConversationState{Kind: models.FlowKindAppointment, Appointment: draft})
	d.sendText(ctx, event.From, response, event.MessageID)
}

// slotTaken checks the candidate date+time against existing calendar events.
// Unparseable input or a calendar read failure counts as available: the user
// already passed format validation and availability here is advisory.
func (d *Dispatcher) slotTaken(ctx context.Context, dateStr, timeStr string) bool {
	candidate, err := ParseDateTime(dateStr, timeStr, d.loc)
	if err != nil {
		slog.Warn("Dispatcher.slotTaken: unparseable candidate", "error", err, "date", dateStr, "time", timeStr)
		return false
	}
	events, err := d.persistence.EventsForDate(ctx, candidate)
	if err != nil {
		slog.Error("Dispatcher.slotTaken: calendar lookup failed", "error", err, "date", dateStr)
		return false
	}
	taken := HasConflict(candidate, events, d.minSeparation)
	slog.Debug("Dispatcher.slotTaken: availability checked", "candidate", candidate, "existing", len(events), "taken", taken)
	return taken
}

// completeAppointmentFlow runs the one-shot completion transaction: calendar
// event, spreadsheet row, confirmation, follow-up info, delayed menu. The
// draft is cleared unconditionally, whatever the sub-steps do.
func (d *Dispatcher) completeAppointmentFlow(ctx context.Context, to string, draft models.AppointmentDraft) {
	defer d.states.Clear(to)

	slog.Info("Dispatcher.completeAppointmentFlow: completing", "userID", to, "date", draft.Date, "time", draft.Time)

	created, calErr := d.persistence.CreateEvent(ctx, draft)
	if calErr != nil {
		slog.Error("Dispatcher.completeAppointmentFlow: calendar creation failed", "error", calErr, "userID", to)
	}

	eventRef := created.ID
	if calErr != nil {
		eventRef = calendarErrorMarker
	}
	row := sheetRow(draft, eventRef, d.now().In(d.loc))
	if err := d.persistence.AppendRow(ctx, row); err != nil {
		slog.Error("Dispatcher.completeAppointmentFlow: sheet append failed", "error", err, "userID", to)
	}

	if calErr == nil {
		d.sendText(ctx, to, confirmationMessage(draft, created.Link), "")
	} else {
		d.sendText(ctx, to, degradedConfirmationMessage(draft), "")
	}
	d.sendText(ctx, to, msgArrivalInfo, "")

	d.timer.ScheduleAfter(to, d.menuDelay, func() {
		d.sendMainMenu(context.Background(), to, "")
	})
}

// sheetRow builds the ordered spreadsheet row for a completed draft.
func sheetRow(draft models.AppointmentDraft, eventRef string, createdAt time.Time) []string {
	return []string{
		draft.Name,
		draft.Date,
		draft.Time,
		createdAt.Format("02/01/2006 15:04:05"),
		draft.Consulta,
		draft.Monto,
		draft.Proveedor,
		draft.RIF,
		draft.Pago,
		eventRef,
	}
}
