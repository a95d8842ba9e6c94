package whatsapp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/clinicflow/clinicflow/internal/models"
)

// newTestClient returns a client pointed at a capture server.
func newTestClient(t *testing.T, status int) (*Client, *[]map[string]any) {
	t.Helper()
	var captured []map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v21.0/12345/messages" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("unexpected auth header %q", got)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("invalid request body: %v", err)
		}
		captured = append(captured, body)
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(
		WithAPIToken("test-token"),
		WithPhoneNumberID("12345"),
		WithBaseURL(server.URL),
	)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client, &captured
}

func TestSendTextWithReplyContext(t *testing.T) {
	client, captured := newTestClient(t, http.StatusOK)

	if err := client.SendText(context.Background(), "584121234567", "hola", "wamid.123"); err != nil {
		t.Fatalf("SendText: %v", err)
	}

	body := (*captured)[0]
	if body["messaging_product"] != "whatsapp" || body["to"] != "584121234567" {
		t.Errorf("unexpected envelope: %v", body)
	}
	text := body["text"].(map[string]any)
	if text["body"] != "hola" {
		t.Errorf("unexpected text payload: %v", text)
	}
	contextField := body["context"].(map[string]any)
	if contextField["message_id"] != "wamid.123" {
		t.Errorf("reply context missing: %v", body)
	}
}

func TestSendTextWithoutReplyOmitsContext(t *testing.T) {
	client, captured := newTestClient(t, http.StatusOK)

	if err := client.SendText(context.Background(), "584121234567", "hola", ""); err != nil {
		t.Fatalf("SendText: %v", err)
	}
	if _, ok := (*captured)[0]["context"]; ok {
		t.Error("context should be omitted without a replyTo id")
	}
}

func TestSendButtons(t *testing.T) {
	client, captured := newTestClient(t, http.StatusOK)

	buttons := []models.Button{{ID: "schedule", Label: "📅 Agendar Cita"}}
	if err := client.SendButtons(context.Background(), "584121234567", "Selecciona:", buttons, ""); err != nil {
		t.Fatalf("SendButtons: %v", err)
	}

	body := (*captured)[0]
	if body["type"] != "interactive" {
		t.Fatalf("expected interactive type, got %v", body["type"])
	}
	interactive := body["interactive"].(map[string]any)
	if interactive["type"] != "button" {
		t.Errorf("unexpected interactive type: %v", interactive)
	}
	action := interactive["action"].(map[string]any)
	wireButtons := action["buttons"].([]any)
	if len(wireButtons) != 1 {
		t.Fatalf("expected 1 button, got %d", len(wireButtons))
	}
	reply := wireButtons[0].(map[string]any)["reply"].(map[string]any)
	if reply["id"] != "schedule" || reply["title"] != "📅 Agendar Cita" {
		t.Errorf("unexpected button payload: %v", reply)
	}
}

func TestMarkRead(t *testing.T) {
	client, captured := newTestClient(t, http.StatusOK)

	if err := client.MarkRead(context.Background(), "wamid.abc"); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	body := (*captured)[0]
	if body["status"] != "read" || body["message_id"] != "wamid.abc" {
		t.Errorf("unexpected mark-read payload: %v", body)
	}
}

func TestMarkReadDisabledSkipsRequest(t *testing.T) {
	client, captured := newTestClient(t, http.StatusOK)
	client.readReceipts = false

	if err := client.MarkRead(context.Background(), "wamid.abc"); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	if len(*captured) != 0 {
		t.Errorf("expected no request when read receipts are disabled, got %d", len(*captured))
	}
}

func TestAudioCaptionStripped(t *testing.T) {
	client, captured := newTestClient(t, http.StatusOK)

	if err := client.SendMedia(context.Background(), "584121234567", models.MediaKindAudio, "https://example.com/a.aac", "caption"); err != nil {
		t.Fatalf("SendMedia: %v", err)
	}
	audio := (*captured)[0]["audio"].(map[string]any)
	if _, ok := audio["caption"]; ok {
		t.Error("audio messages must not carry captions")
	}
}

func TestAPIErrorSurfacedAsGatewayError(t *testing.T) {
	client, _ := newTestClient(t, http.StatusUnauthorized)

	err := client.SendText(context.Background(), "584121234567", "hola", "")
	var gatewayErr *GatewayError
	if !errors.As(err, &gatewayErr) {
		t.Fatalf("expected GatewayError, got %v", err)
	}
	if gatewayErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("unexpected status %d", gatewayErr.StatusCode)
	}
}

func TestNewClientRequiresCredentials(t *testing.T) {
	t.Setenv("WHATSAPP_API_TOKEN", "")
	t.Setenv("WHATSAPP_PHONE_NUMBER_ID", "")
	if _, err := NewClient(); err == nil {
		t.Error("expected error without credentials")
	}
}
