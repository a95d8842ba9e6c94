package flow

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/clinicflow/clinicflow/internal/models"
)

func startAssistant(t *testing.T, env *testEnv) {
	t.Helper()
	env.dispatcher.Handle(context.Background(), buttonEvent(testUser, buttonServices), models.SenderInfo{})
	if state, ok := env.states.Get(testUser); !ok || state.Kind != models.FlowKindAssistant {
		t.Fatal("assistant flow should be active")
	}
}

func TestAssistantAnswersAndClearsDraft(t *testing.T) {
	env := newTestEnv()
	startAssistant(t, env)

	env.dispatcher.Handle(context.Background(), textEvent(testUser, "que sirve para la fiebre"), models.SenderInfo{ProfileName: "Maria"})

	if got := env.gateway.lastText(); got != "🤖 "+env.knowledge.Answer {
		t.Errorf("expected prefixed answer, got %q", got)
	}
	if _, ok := env.states.Get(testUser); ok {
		t.Error("assistant draft should be cleared after one answer")
	}
	if env.knowledge.LastUserName != "Maria" {
		t.Errorf("sender name should be passed through, got %q", env.knowledge.LastUserName)
	}
	if !strings.Contains(env.knowledge.LastSystemPrompt, "asistente médico") {
		t.Errorf("persona prompt missing, got %q", env.knowledge.LastSystemPrompt)
	}

	// follow-up menu is deferred
	if len(env.gateway.ButtonSends) != 0 {
		t.Fatal("follow-up menu should not be sent immediately")
	}
	env.timer.Fire(testUser)
	if len(env.gateway.ButtonSends) != 1 || env.gateway.ButtonSends[0].Body != msgFollowUpMenuPrompt {
		t.Error("firing the timer should send the follow-up menu")
	}
}

func TestAssistantFailureFallback(t *testing.T) {
	env := newTestEnv()
	startAssistant(t, env)
	env.knowledge.Err = errors.New("request timed out")

	env.dispatcher.Handle(context.Background(), textEvent(testUser, "que sirve para la fiebre"), models.SenderInfo{})

	if _, ok := env.states.Get(testUser); ok {
		t.Error("draft must be cleared after a knowledge failure")
	}
	var apologized bool
	for _, sent := range env.gateway.Texts {
		if sent.Body == msgAssistantApology {
			apologized = true
		}
	}
	if !apologized {
		t.Error("expected the fixed apology message")
	}
	if len(env.gateway.ButtonSends) != 1 {
		t.Error("menu should be resent immediately after a failure")
	}
}

func TestAssistantShortQuestionReprompts(t *testing.T) {
	env := newTestEnv()
	startAssistant(t, env)

	env.dispatcher.Handle(context.Background(), textEvent(testUser, "a"), models.SenderInfo{})

	if env.gateway.lastText() != msgAssistantTooShort {
		t.Errorf("expected re-prompt, got %q", env.gateway.lastText())
	}
	if state, ok := env.states.Get(testUser); !ok || state.Kind != models.FlowKindAssistant {
		t.Error("short question should leave the flow active")
	}
	if env.knowledge.LastQuestion != "" {
		t.Error("knowledge adapter should not be called for a short question")
	}
}
