package flow

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/clinicflow/clinicflow/internal/models"
)

const testUser = "584121234567"

func TestGreetingSendsWelcomeAndMenu(t *testing.T) {
	env := newTestEnv()
	sender := models.SenderInfo{ProfileName: "Maria"}

	env.dispatcher.Handle(context.Background(), textEvent(testUser, "Hola"), sender)

	if len(env.gateway.Texts) != 1 {
		t.Fatalf("expected 1 text, got %d", len(env.gateway.Texts))
	}
	if !strings.Contains(env.gateway.Texts[0].Body, "Maria") {
		t.Errorf("welcome should use profile name, got %q", env.gateway.Texts[0].Body)
	}
	if len(env.gateway.ButtonSends) != 1 {
		t.Fatalf("expected main menu, got %d button sends", len(env.gateway.ButtonSends))
	}
	if got := len(env.gateway.ButtonSends[0].Buttons); got != 3 {
		t.Errorf("main menu should have 3 options, got %d", got)
	}
}

func TestGreetingResetsActiveFlow(t *testing.T) {
	env := newTestEnv()
	env.dispatcher.Handle(context.Background(), buttonEvent(testUser, buttonSchedule), models.SenderInfo{})
	if state, ok := env.states.Get(testUser); !ok || state.Kind != models.FlowKindAppointment {
		t.Fatal("expected appointment flow to be active")
	}

	env.dispatcher.Handle(context.Background(), textEvent(testUser, "buenas"), models.SenderInfo{})

	if _, ok := env.states.Get(testUser); ok {
		t.Error("greeting should discard any prior draft")
	}
}

func TestGreetingSubstringMatch(t *testing.T) {
	env := newTestEnv()
	env.dispatcher.Handle(context.Background(), textEvent(testUser, "hola, quiero una cita"), models.SenderInfo{WAID: testUser})

	if len(env.gateway.Texts) == 0 || !strings.Contains(env.gateway.Texts[0].Body, "bienvenido") {
		t.Error("greeting inside a longer message should still trigger the welcome")
	}
}

func TestCancelIdempotentWithNoFlow(t *testing.T) {
	env := newTestEnv()

	for i := 0; i < 2; i++ {
		env.dispatcher.Handle(context.Background(), textEvent(testUser, "cancelar"), models.SenderInfo{})
	}

	if len(env.gateway.Texts) != 2 {
		t.Fatalf("expected 2 replies, got %d", len(env.gateway.Texts))
	}
	for _, sent := range env.gateway.Texts {
		if sent.Body != msgNothingToCancel {
			t.Errorf("expected nothing-to-cancel reply, got %q", sent.Body)
		}
	}
	if len(env.gateway.ButtonSends) != 2 {
		t.Errorf("menu should follow each cancel, got %d", len(env.gateway.ButtonSends))
	}
}

func TestCancelClearsActiveFlow(t *testing.T) {
	env := newTestEnv()
	env.dispatcher.Handle(context.Background(), buttonEvent(testUser, buttonSchedule), models.SenderInfo{})

	env.dispatcher.Handle(context.Background(), textEvent(testUser, "CANCEL"), models.SenderInfo{})

	if _, ok := env.states.Get(testUser); ok {
		t.Error("cancel should clear the draft")
	}
	if got := env.gateway.lastText(); got != msgCancelAck {
		t.Errorf("expected cancel acknowledgement, got %q", got)
	}
}

func TestCancelInterruptsMidFlow(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	env.dispatcher.Handle(ctx, buttonEvent(testUser, buttonSchedule), models.SenderInfo{})
	env.dispatcher.Handle(ctx, textEvent(testUser, "Maria Gomez"), models.SenderInfo{})

	// "cancelar" must win over the active date step
	env.dispatcher.Handle(ctx, textEvent(testUser, "cancelar"), models.SenderInfo{})

	if _, ok := env.states.Get(testUser); ok {
		t.Error("cancel mid-flow should clear the draft")
	}
}

func TestButtonRouting(t *testing.T) {
	ctx := context.Background()

	t.Run("schedule starts appointment", func(t *testing.T) {
		env := newTestEnv()
		env.dispatcher.Handle(ctx, buttonEvent(testUser, buttonSchedule), models.SenderInfo{})
		state, ok := env.states.Get(testUser)
		if !ok || state.Kind != models.FlowKindAppointment || state.Appointment.Step != models.StepName {
			t.Fatalf("expected appointment flow at name step, got %+v", state)
		}
		if env.gateway.lastText() != msgAppointmentStart {
			t.Errorf("expected appointment prompt, got %q", env.gateway.lastText())
		}
	})

	t.Run("services starts assistant", func(t *testing.T) {
		env := newTestEnv()
		env.dispatcher.Handle(ctx, buttonEvent(testUser, buttonServices), models.SenderInfo{})
		state, ok := env.states.Get(testUser)
		if !ok || state.Kind != models.FlowKindAssistant {
			t.Fatalf("expected assistant flow, got %+v", state)
		}
	})

	t.Run("location sends location and hours", func(t *testing.T) {
		env := newTestEnv()
		env.dispatcher.Handle(ctx, buttonEvent(testUser, buttonLocation), models.SenderInfo{})
		if len(env.gateway.Locations) != 1 {
			t.Fatal("expected a location share")
		}
		if env.gateway.lastText() != msgLocationHours {
			t.Errorf("expected business hours follow-up, got %q", env.gateway.lastText())
		}
		if len(env.gateway.ButtonSends) != 1 {
			t.Fatal("expected a follow-up menu")
		}
		menu := env.gateway.ButtonSends[0].Buttons
		if len(menu) != 3 || menu[2].ID != buttonEmergency {
			t.Errorf("expected emergency option in the location menu, got %+v", menu)
		}
	})

	t.Run("location failure falls back to address text", func(t *testing.T) {
		env := newTestEnv()
		env.gateway.LocationErr = context.DeadlineExceeded
		env.dispatcher.Handle(ctx, buttonEvent(testUser, buttonLocation), models.SenderInfo{})
		if env.gateway.lastText() != msgLocationFallback {
			t.Errorf("expected address fallback, got %q", env.gateway.lastText())
		}
	})

	t.Run("emergency sends contact card", func(t *testing.T) {
		env := newTestEnv()
		env.dispatcher.Handle(ctx, buttonEvent(testUser, buttonEmergency), models.SenderInfo{})
		if len(env.gateway.Contacts) != 1 {
			t.Fatal("expected a contact card share")
		}
	})

	t.Run("unknown id resends menu", func(t *testing.T) {
		env := newTestEnv()
		env.dispatcher.Handle(ctx, buttonEvent(testUser, "mystery"), models.SenderInfo{})
		if len(env.gateway.ButtonSends) != 1 {
			t.Fatalf("expected menu resend, got %d button sends", len(env.gateway.ButtonSends))
		}
	})

	t.Run("button replaces active flow", func(t *testing.T) {
		env := newTestEnv()
		env.dispatcher.Handle(ctx, buttonEvent(testUser, buttonSchedule), models.SenderInfo{})
		env.dispatcher.Handle(ctx, buttonEvent(testUser, buttonServices), models.SenderInfo{})
		state, _ := env.states.Get(testUser)
		if state.Kind != models.FlowKindAssistant {
			t.Errorf("new flow should fully replace the prior draft, got %v", state.Kind)
		}
		if state.Appointment != nil {
			t.Error("stale appointment draft survived a flow switch")
		}
	})
}

func TestAgenda(t *testing.T) {
	ctx := context.Background()

	t.Run("empty day", func(t *testing.T) {
		env := newTestEnv()
		env.dispatcher.Handle(ctx, textEvent(testUser, "citas hoy"), models.SenderInfo{})
		if env.gateway.lastText() != msgAgendaEmpty {
			t.Errorf("expected empty-agenda message, got %q", env.gateway.lastText())
		}
	})

	t.Run("events listed sorted by start", func(t *testing.T) {
		env := newTestEnv()
		env.persistence.Events = []models.CalendarEvent{
			{Summary: "Cita: Pedro", Start: flowTestNow.Add(5 * time.Hour)},
			{Summary: "Cita: Ana", Start: flowTestNow.Add(time.Hour)},
		}
		env.dispatcher.Handle(ctx, textEvent(testUser, "agenda"), models.SenderInfo{})
		body := env.gateway.lastText()
		if !strings.Contains(body, "1. ") || !strings.Contains(body, "2. ") {
			t.Fatalf("expected numbered list, got %q", body)
		}
		if strings.Index(body, "Ana") > strings.Index(body, "Pedro") {
			t.Errorf("events should be sorted by start time, got %q", body)
		}
	})

	t.Run("listing failure reported", func(t *testing.T) {
		env := newTestEnv()
		env.persistence.ListErr = context.DeadlineExceeded
		env.dispatcher.Handle(ctx, textEvent(testUser, "agenda"), models.SenderInfo{})
		if env.gateway.lastText() != msgAgendaError {
			t.Errorf("expected agenda error message, got %q", env.gateway.lastText())
		}
	})
}

func TestUnclassifiedTextResendsMenu(t *testing.T) {
	env := newTestEnv()
	env.dispatcher.Handle(context.Background(), textEvent(testUser, "quiero informacion"), models.SenderInfo{})

	if len(env.gateway.ButtonSends) != 1 {
		t.Fatalf("expected main menu for unclassified text, got %d sends", len(env.gateway.ButtonSends))
	}
}

func TestSendMediaCommand(t *testing.T) {
	env := newTestEnv()
	env.dispatcher.Handle(context.Background(), textEvent(testUser, "send media"), models.SenderInfo{})

	if len(env.gateway.MediaURLs) != 1 || env.gateway.MediaURLs[0] != sampleMediaURL {
		t.Errorf("expected sample media send, got %v", env.gateway.MediaURLs)
	}

	env.gateway.MediaErr = context.DeadlineExceeded
	env.dispatcher.Handle(context.Background(), textEvent(testUser, "send media"), models.SenderInfo{})
	if env.gateway.lastText() != msgMediaError {
		t.Errorf("expected media error apology, got %q", env.gateway.lastText())
	}
}

func TestMarkReadBestEffort(t *testing.T) {
	env := newTestEnv()
	env.dispatcher.Handle(context.Background(), textEvent(testUser, "hola"), models.SenderInfo{})

	if len(env.gateway.ReadIDs) != 1 || env.gateway.ReadIDs[0] != "wamid.test" {
		t.Errorf("inbound message should be marked read, got %v", env.gateway.ReadIDs)
	}
}

func TestBackstopResetsStateOnPanic(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	env.dispatcher.Handle(ctx, buttonEvent(testUser, buttonServices), models.SenderInfo{})
	env.knowledge.Panic = true

	env.dispatcher.Handle(ctx, textEvent(testUser, "que es la gripe"), models.SenderInfo{})

	if _, ok := env.states.Get(testUser); ok {
		t.Error("backstop should clear the user's state")
	}
	if env.gateway.lastText() != msgGenericApology {
		t.Errorf("expected generic apology, got %q", env.gateway.lastText())
	}
}
