package bot

import (
	"errors"
	"strconv"
	"testing"
)

func newTestApp() *App {
	return &App{lastOptions: make(map[int64][]string)}
}

func TestOptionLabelRoundTrip(t *testing.T) {
	a := newTestApp()
	options := []string{"С нуля 🆕", "Средний (B1–B2) 🟡", "Готово ✔️"}
	a.rememberOptions(1, options)

	for i, want := range options {
		got, ok := a.optionLabel(1, strconv.Itoa(i))
		if !ok || got != want {
			t.Fatalf("optionLabel(%d) = %q, %v", i, got, ok)
		}
	}
}

func TestOptionLabelRejectsStalePayloads(t *testing.T) {
	a := newTestApp()
	a.rememberOptions(1, []string{"one"})

	if _, ok := a.optionLabel(1, "5"); ok {
		t.Fatal("out-of-range index resolved")
	}
	if _, ok := a.optionLabel(1, "x"); ok {
		t.Fatal("non-numeric payload resolved")
	}
	if _, ok := a.optionLabel(2, "0"); ok {
		t.Fatal("unknown user resolved")
	}

	a.forgetOptions(1)
	if _, ok := a.optionLabel(1, "0"); ok {
		t.Fatal("forgotten options resolved")
	}
}

func TestOptionKeyboardUsesIndexes(t *testing.T) {
	markup := optionKeyboard([]string{"a", "b"})
	if len(markup.InlineKeyboard) != 2 {
		t.Fatalf("rows = %d", len(markup.InlineKeyboard))
	}
	for i, row := range markup.InlineKeyboard {
		if len(row) != 1 {
			t.Fatalf("row %d buttons = %d", i, len(row))
		}
		if row[0].Data != strconv.Itoa(i) {
			t.Fatalf("row %d data = %q", i, row[0].Data)
		}
	}
}

func TestIsNotModified(t *testing.T) {
	if !isNotModified(errors.New("telegram: Bad Request: message is not modified (400)")) {
		t.Fatal("not-modified error missed")
	}
	if isNotModified(errors.New("telegram: Bad Request: message to edit not found")) {
		t.Fatal("unrelated error matched")
	}
	if isNotModified(nil) {
		t.Fatal("nil matched")
	}
}
