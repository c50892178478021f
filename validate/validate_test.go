package validate

import (
	"strings"
	"testing"
)

func TestNameAccepts(t *testing.T) {
	cases := []string{"Анна", "John", "Anna-Maria", "O'Neil", "Мария Ивановна"}
	for _, raw := range cases {
		res := Name(raw)
		if !res.OK {
			t.Fatalf("Name(%q) rejected with %s", raw, res.ErrorKey)
		}
		if res.Value != raw {
			t.Fatalf("Name(%q) stored %q", raw, res.Value)
		}
	}
}

func TestNameRejects(t *testing.T) {
	cases := []struct {
		raw string
		key string
	}{
		{"", "err_name_required"},
		{"   ", "err_name_required"},
		{"A", "err_name_too_short"},
		{strings.Repeat("а", 51), "err_name_too_long"},
		{"John123", "err_name_charset"},
		{"<script>alert(1)</script>", "err_name_charset"},
		{"Анна!", "err_name_charset"},
	}
	for _, tc := range cases {
		res := Name(tc.raw)
		if res.OK {
			t.Fatalf("Name(%q) accepted, want %s", tc.raw, tc.key)
		}
		if res.ErrorKey != tc.key {
			t.Fatalf("Name(%q) = %s, want %s", tc.raw, res.ErrorKey, tc.key)
		}
	}
}

func TestPhoneNormalization(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"89001234567", "+79001234567"},
		{"79001234567", "+79001234567"},
		{"+79001234567", "+79001234567"},
		{"8 (900) 123-45-67", "+79001234567"},
		{"+7 900 123 45 67", "+79001234567"},
	}
	for _, tc := range cases {
		res := Phone(tc.raw)
		if !res.OK {
			t.Fatalf("Phone(%q) rejected with %s", tc.raw, res.ErrorKey)
		}
		if res.Value != tc.want {
			t.Fatalf("Phone(%q) = %q, want %q", tc.raw, res.Value, tc.want)
		}
	}
}

func TestPhoneRejects(t *testing.T) {
	cases := []struct {
		raw string
		key string
	}{
		{"", "err_phone_required"},
		{"12345", "err_phone_format"},
		{"900123456", "err_phone_format"},
		{"+1 202 555 0100", "err_phone_format"},
		{"abc", "err_phone_format"},
	}
	for _, tc := range cases {
		res := Phone(tc.raw)
		if res.OK {
			t.Fatalf("Phone(%q) accepted as %q", tc.raw, res.Value)
		}
		if res.ErrorKey != tc.key {
			t.Fatalf("Phone(%q) = %s, want %s", tc.raw, res.ErrorKey, tc.key)
		}
	}
}

func TestEmail(t *testing.T) {
	res := Email("Student@Example.COM")
	if !res.OK || res.Value != "student@example.com" {
		t.Fatalf("Email lowercase: %+v", res)
	}
	if res := Email("not-an-email"); res.OK || res.ErrorKey != "err_email_format" {
		t.Fatalf("Email(not-an-email) = %+v", res)
	}
	long := strings.Repeat("a", 95) + "@example.com"
	if res := Email(long); res.OK || res.ErrorKey != "err_email_too_long" {
		t.Fatalf("Email(long) = %+v", res)
	}
}

func TestTextLimitsAndCharset(t *testing.T) {
	if res := Text("Хочу говорить свободно!", 0); !res.OK {
		t.Fatalf("Text rejected: %s", res.ErrorKey)
	}
	if res := Text("привет", 3); res.OK || res.ErrorKey != "err_text_too_long" {
		t.Fatalf("Text over limit: %+v", res)
	}
	if res := Text("", 0); res.OK || res.ErrorKey != "err_text_required" {
		t.Fatalf("Text empty: %+v", res)
	}
}

func TestChoice(t *testing.T) {
	allowed := []string{"Beginner", "Intermediate"}
	if res := Choice("Intermediate", allowed); !res.OK || res.Value != "Intermediate" {
		t.Fatalf("Choice valid: %+v", res)
	}
	if res := Choice("Expert", allowed); res.OK || res.ErrorKey != "err_choice_invalid" {
		t.Fatalf("Choice invalid: %+v", res)
	}
	if res := Choice("  ", allowed); res.OK || res.ErrorKey != "err_choice_required" {
		t.Fatalf("Choice empty: %+v", res)
	}
}

func TestSanitize(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"обычный текст", "обычный текст"},
		{"до <script>alert('x')</script> после", "до после"},
		{"<b>жирный</b>", "жирный"},
		{"табы\tи   пробелы", "табы и пробелы"},
		{"строка\x00с нулём", "строка с нулём"},
		{"  края  ", "края"},
	}
	for _, tc := range cases {
		if got := Sanitize(tc.raw); got != tc.want {
			t.Fatalf("Sanitize(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}
