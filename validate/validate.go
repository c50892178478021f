// Package validate checks and normalizes free-text survey answers.
// All checks are pure: failures produce a localized message key, never an error.
package validate

import (
	"regexp"
	"strings"
	"unicode/utf8"

	playground "github.com/go-playground/validator/v10"
)

// Result is the outcome of a field check. When OK is false, ErrorKey names
// an i18n message; when OK is true, Value holds the sanitized input that
// must be stored instead of the raw one.
type Result struct {
	OK       bool
	ErrorKey string
	Value    string
}

const (
	// MaxNameLen bounds names in runes after trimming.
	MaxNameLen = 50
	// MaxEmailLen bounds email addresses in bytes.
	MaxEmailLen = 100
	// MaxTextLen bounds generic free text in runes.
	MaxTextLen = 1000
)

var (
	namePattern = regexp.MustCompile(`^[а-яёА-ЯЁa-zA-Z\s\-']{2,50}$`)
	// Normalized numbers only: +7 followed by exactly 10 digits.
	phonePattern = regexp.MustCompile(`^(\+7|8)\d{10}$`)
	safeText     = regexp.MustCompile(`^[а-яёА-ЯЁa-zA-Z0-9\s\-_.,!?()@#$%&*+=:;"'<>\[\]{}|\\/]{1,1000}$`)

	scriptTags = regexp.MustCompile(`(?is)<script.*?</script>`)
	htmlTags   = regexp.MustCompile(`<[^>]+>`)
	spaces     = regexp.MustCompile(`[ \t]+`)
	newlines   = regexp.MustCompile(`\n+`)
	nonDigits  = regexp.MustCompile(`[^\d+]`)

	structural = playground.New(playground.WithRequiredStructEnabled())
)

func reject(key string) Result { return Result{ErrorKey: key} }
func accept(v string) Result   { return Result{OK: true, Value: v} }

// Name validates a person's name: 2-50 runes, Cyrillic or Latin letters,
// spaces, hyphens and apostrophes. The accepted value is sanitized.
func Name(raw string) Result {
	name := strings.TrimSpace(raw)
	if name == "" {
		return reject("err_name_required")
	}
	if utf8.RuneCountInString(name) < 2 {
		return reject("err_name_too_short")
	}
	if utf8.RuneCountInString(name) > MaxNameLen {
		return reject("err_name_too_long")
	}
	if !namePattern.MatchString(name) {
		return reject("err_name_charset")
	}
	return accept(Sanitize(name))
}

// Phone normalizes a Russian number to +7XXXXXXXXXX form and validates it.
// A leading trunk 8 in an 11-digit number is rewritten to +7; a bare
// leading 7 gains the plus.
func Phone(raw string) Result {
	phone := strings.TrimSpace(raw)
	if phone == "" {
		return reject("err_phone_required")
	}
	cleaned := nonDigits.ReplaceAllString(phone, "")
	switch {
	case strings.HasPrefix(cleaned, "8") && len(cleaned) == 11:
		cleaned = "+7" + cleaned[1:]
	case strings.HasPrefix(cleaned, "7") && len(cleaned) == 11:
		cleaned = "+" + cleaned
	}
	if !phonePattern.MatchString(cleaned) {
		return reject("err_phone_format")
	}
	return accept(cleaned)
}

// Email validates and lowercases an email address.
func Email(raw string) Result {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return reject("err_email_required")
	}
	if len(email) > MaxEmailLen {
		return reject("err_email_too_long")
	}
	if err := structural.Var(email, "email"); err != nil {
		return reject("err_email_format")
	}
	return accept(email)
}

// Text validates generic free text against the two-script whitelist.
// maxLen <= 0 means the default cap of MaxTextLen runes.
func Text(raw string, maxLen int) Result {
	text := strings.TrimSpace(raw)
	if text == "" {
		return reject("err_text_required")
	}
	if maxLen <= 0 {
		maxLen = MaxTextLen
	}
	if utf8.RuneCountInString(text) > maxLen {
		return reject("err_text_too_long")
	}
	if !safeText.MatchString(text) {
		return reject("err_text_charset")
	}
	return accept(Sanitize(text))
}

// Choice validates that the answer is one of the offered options.
func Choice(raw string, allowed []string) Result {
	choice := strings.TrimSpace(raw)
	if choice == "" {
		return reject("err_choice_required")
	}
	for _, opt := range allowed {
		if choice == opt {
			return accept(choice)
		}
	}
	return reject("err_choice_invalid")
}

// Sanitize strips markup-like tags, replaces control characters with spaces
// to preserve word boundaries, and collapses whitespace runs. It runs on
// otherwise-valid input too; callers must store its output, not the raw value.
func Sanitize(text string) string {
	text = scriptTags.ReplaceAllString(text, "")
	text = htmlTags.ReplaceAllString(text, "")

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if r == '\n' {
			b.WriteRune(r)
			continue
		}
		if r < 0x20 || r == 0x7F || (r >= 0x80 && r <= 0x9F) {
			b.WriteRune(' ')
			continue
		}
		b.WriteRune(r)
	}
	text = spaces.ReplaceAllString(b.String(), " ")
	text = newlines.ReplaceAllString(text, "\n")
	return strings.TrimSpace(text)
}
