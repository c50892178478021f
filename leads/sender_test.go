package leads

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func leadFixture() Lead {
	return Lead{
		Name:             "Анна",
		Phone:            "+79001234567",
		Language:         "English",
		Level:            "Средний (B1–B2) 🟡",
		Goal:             "Разговорный 🗣️",
		Format:           "Онлайн",
		Expectations:     "Обратную связь 💬",
		StartDate:        "Прямо сейчас 🚀",
		TelegramID:       42,
		TelegramUsername: "student",
		CreatedAt:        time.Date(2025, 9, 1, 12, 30, 0, 0, time.UTC),
	}
}

func testSender(t *testing.T, handler http.HandlerFunc, retries int) (*Sender, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	s := NewSender(Config{Token: "test-token", ChatID: -100500, Retries: retries}, srv.Client())
	s.apiHost = srv.URL
	return s, srv
}

func TestSendPostsLeadCard(t *testing.T) {
	var got struct {
		path string
		chat string
		text string
	}
	s, _ := testSender(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		got.path = r.URL.Path
		got.chat = r.FormValue("chat_id")
		got.text = r.FormValue("text")
		w.WriteHeader(http.StatusOK)
	}, 0)

	if err := s.Send(context.Background(), leadFixture()); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got.path != "/bottest-token/sendMessage" {
		t.Fatalf("path = %q", got.path)
	}
	if got.chat != "-100500" {
		t.Fatalf("chat_id = %q", got.chat)
	}
	if !strings.Contains(got.text, "Новая заявка: KingSpeech") {
		t.Fatalf("card header missing: %q", got.text)
	}
	if !strings.Contains(got.text, "+79001234567") {
		t.Fatalf("phone missing: %q", got.text)
	}
}

func TestSendHonorsRetryAfter(t *testing.T) {
	attempts := 0
	s, _ := testSender(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"ok":false,"parameters":{"retry_after":1}}`))
			return
		}
		w.WriteHeader(http.StatusOK)
	}, 2)

	start := time.Now()
	if err := s.Send(context.Background(), leadFixture()); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if attempts != 2 {
		t.Fatalf("attempts = %d", attempts)
	}
	if waited := time.Since(start); waited < time.Second {
		t.Fatalf("retry_after not honored, waited %v", waited)
	}
}

func TestSendGivesUpOnPermanentError(t *testing.T) {
	attempts := 0
	s, _ := testSender(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadRequest)
	}, 3)

	if err := s.Send(context.Background(), leadFixture()); err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Fatalf("permanent failure retried: %d attempts", attempts)
	}
}

func TestSendRequiresConfiguration(t *testing.T) {
	s := NewSender(Config{}, nil)
	if s.Configured() {
		t.Fatal("empty config reported configured")
	}
	if err := s.Send(context.Background(), leadFixture()); err == nil {
		t.Fatal("expected error from unconfigured sender")
	}
}

func TestFormatMessageFillsMissingFields(t *testing.T) {
	lead := leadFixture()
	lead.Expectations = ""
	msg := FormatMessage(lead)
	if !strings.Contains(msg, "Ожидания:* Не указано") {
		t.Fatalf("placeholder missing: %q", msg)
	}
	if !strings.Contains(msg, "🕐 *Время:* 01.09.2025 12:30") {
		t.Fatalf("timestamp missing: %q", msg)
	}
}

func TestSheetRowOrder(t *testing.T) {
	row := leadFixture().SheetRow()
	want := []string{
		"42", "student", "+79001234567", "Анна", "English",
		"Средний (B1–B2) 🟡", "Разговорный 🗣️", "Онлайн",
		"Обратную связь 💬", "Прямо сейчас 🚀",
	}
	if len(row) != len(want) {
		t.Fatalf("row length = %d", len(row))
	}
	for i := range want {
		if row[i] != want[i] {
			t.Fatalf("column %d = %q, want %q", i, row[i], want[i])
		}
	}
}
