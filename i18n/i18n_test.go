package i18n

import (
	"os"
	"path/filepath"
	"testing"
)

func catalogBundle() *Bundle {
	return NewBundle("ru", map[string]map[string]string{
		"ru": {
			"greeting": "Привет, {name}!",
			"ru_only":  "только по-русски",
		},
		"en": {
			"greeting": "Hello, {name}!",
			"en_only":  "english only",
		},
	})
}

func TestTResolvesLocale(t *testing.T) {
	b := catalogBundle()
	if got := b.T("greeting", "en", "name", "Anna"); got != "Hello, Anna!" {
		t.Fatalf("T(en) = %q", got)
	}
	if got := b.T("greeting", "ru", "name", "Анна"); got != "Привет, Анна!" {
		t.Fatalf("T(ru) = %q", got)
	}
}

func TestTFallsBackToDefaultLocale(t *testing.T) {
	b := catalogBundle()
	if got := b.T("ru_only", "en"); got != "только по-русски" {
		t.Fatalf("default fallback = %q", got)
	}
	// Unknown locale falls back through the whole chain.
	if got := b.T("greeting", "de", "name", "X"); got != "Привет, X!" {
		t.Fatalf("unknown locale = %q", got)
	}
}

func TestTFallsBackToAnyLocale(t *testing.T) {
	b := catalogBundle()
	if got := b.T("en_only", "ru"); got != "english only" {
		t.Fatalf("any-locale fallback = %q", got)
	}
}

func TestTMissingKeyReturnsKey(t *testing.T) {
	b := catalogBundle()
	if got := b.T("nope", "ru"); got != "nope" {
		t.Fatalf("missing key = %q", got)
	}
}

func TestLoadReadsLocaleFiles(t *testing.T) {
	dir := t.TempDir()
	writeLocale(t, dir, "ru.json", `{"hello": "привет"}`)
	writeLocale(t, dir, "en.json", `{"hello": "hello"}`)
	writeLocale(t, dir, "notes.txt", "ignored")

	b, err := Load(dir, "ru")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := b.T("hello", "en"); got != "hello" {
		t.Fatalf("loaded en = %q", got)
	}
	if locales := b.Locales(); len(locales) != 2 {
		t.Fatalf("locales = %v", locales)
	}
	if b.DefaultLocale() != "ru" {
		t.Fatalf("default locale = %q", b.DefaultLocale())
	}
}

func TestLoadRejectsBrokenCatalog(t *testing.T) {
	dir := t.TempDir()
	writeLocale(t, dir, "ru.json", `{broken`)
	if _, err := Load(dir, "ru"); err == nil {
		t.Fatal("expected parse error")
	}
}

func writeLocale(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}
