// Package flow implements the AI assistant flow.
package flow

import (
	"context"
	"log/slog"

	"github.com/clinicflow/clinicflow/internal/models"
	"github.com/clinicflow/clinicflow/internal/validate"
)

// startAssistantFlow puts the user into the single question state.
func (d *Dispatcher) startAssistantFlow(ctx context.Context, to, replyTo string) {
	slog.Info("Dispatcher.startAssistantFlow: starting", "userID", to)
	d.states.Set(to, models.ConversationState{
		Kind:      models.FlowKindAssistant,
		Assistant: &models.AssistantDraft{Step: models.StepQuestion, UpdatedAt: d.now()},
	})
	d.sendText(ctx, to, msgAssistantStart, replyTo)
}

// handleAssistantFlow answers one question and ends the flow. Whatever the
// knowledge adapter does, the user never stays stuck in the question state
// after an error.
func (d *Dispatcher) handleAssistantFlow(ctx context.Context, event models.Event, sender models.SenderInfo) {
	question := trimmed(event.Body)
	if !validate.MinLen(question, 2) {
		d.sendText(ctx, event.From, msgAssistantTooShort, event.MessageID)
		return
	}

	slog.Debug("Dispatcher.handleAssistantFlow: asking knowledge adapter", "userID", event.From, "question_length", len(question))
	answer, err := d.knowledge.Ask(ctx, question, sender.DisplayName(), assistantSystemPrompt)
	if err != nil {
		slog.Error("Dispatcher.handleAssistantFlow: knowledge request failed", "error", err, "userID", event.From)
		d.sendText(ctx, event.From, msgAssistantApology, event.MessageID)
		d.resetUser(event.From)
		d.sendMainMenu(ctx, event.From, "")
		return
	}

	d.sendText(ctx, event.From, "🤖 "+answer, event.MessageID)
	d.resetUser(event.From)

	d.timer.ScheduleAfter(event.From, d.menuDelay, func() {
		d.sendButtons(context.Background(), event.From, msgFollowUpMenuPrompt, followUpMenuButtons(), "")
	})
}
