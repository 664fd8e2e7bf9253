package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"terminwatch/internal/domain"
)

func TestTelegramNotifier_SendsToChatEndpoint(t *testing.T) {
	var gotPath string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n, err := NewTelegramNotifier(TelegramConfig{Token: "123:abc", APIBase: srv.URL})
	if err != nil {
		t.Fatalf("NewTelegramNotifier error: %v", err)
	}

	err = n.AppointmentFound(context.Background(), "42", AppointmentDetails{
		ServiceID:  "passport",
		LocationID: "office-12",
		Slot:       domain.Slot{Date: "2026-09-14", Time: "10:30"},
	})
	if err != nil {
		t.Fatalf("AppointmentFound error: %v", err)
	}

	if gotPath != "/bot123:abc/sendMessage" {
		t.Fatalf("path = %q, want /bot123:abc/sendMessage", gotPath)
	}
	if gotBody["chat_id"] != "42" {
		t.Fatalf("chat_id = %q, want 42", gotBody["chat_id"])
	}
	if !strings.Contains(gotBody["text"], "2026-09-14") || !strings.Contains(gotBody["text"], "10:30") {
		t.Fatalf("text = %q, expected slot details", gotBody["text"])
	}
}

func TestTelegramNotifier_BookedMessageCarriesConfirmation(t *testing.T) {
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n, err := NewTelegramNotifier(TelegramConfig{Token: "123:abc", APIBase: srv.URL})
	if err != nil {
		t.Fatalf("NewTelegramNotifier error: %v", err)
	}

	err = n.AppointmentBooked(context.Background(), "42", BookingDetails{
		ServiceID: "passport",
		Slot:      domain.Slot{Date: "2026-09-14", Time: "10:30"},
		BookingID: "BK-77",
	})
	if err != nil {
		t.Fatalf("AppointmentBooked error: %v", err)
	}
	if !strings.Contains(gotBody["text"], "BK-77") {
		t.Fatalf("text = %q, expected confirmation id", gotBody["text"])
	}
}

func TestTelegramNotifier_Non200IsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"ok":false,"description":"bot was blocked by the user"}`))
	}))
	defer srv.Close()

	n, err := NewTelegramNotifier(TelegramConfig{Token: "123:abc", APIBase: srv.URL})
	if err != nil {
		t.Fatalf("NewTelegramNotifier error: %v", err)
	}

	if err := n.AppointmentFound(context.Background(), "42", AppointmentDetails{}); err == nil {
		t.Fatalf("expected error for non-200 response")
	}
}

func TestNewTelegramNotifier_RequiresToken(t *testing.T) {
	if _, err := NewTelegramNotifier(TelegramConfig{}); err == nil {
		t.Fatalf("expected error for missing token")
	}
}
