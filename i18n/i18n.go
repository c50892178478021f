// Package i18n loads JSON locale catalogs and resolves message keys with
// a locale -> default -> any -> raw key fallback chain.
package i18n

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kingspeech/leadbot/core/logger"
	"log/slog"
)

// Bundle holds translations for all known locales.
type Bundle struct {
	defaultLocale string
	locales       map[string]map[string]string
}

// Load reads every *.json file in dir as a locale catalog named after the
// file (ru.json -> "ru").
func Load(dir, defaultLocale string) (*Bundle, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("i18n: read locales dir: %w", err)
	}

	b := &Bundle{
		defaultLocale: defaultLocale,
		locales:       make(map[string]map[string]string),
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		lang := strings.TrimSuffix(e.Name(), ".json")
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("i18n: read %s: %w", e.Name(), err)
		}
		catalog := make(map[string]string)
		if err := json.Unmarshal(data, &catalog); err != nil {
			return nil, fmt.Errorf("i18n: parse %s: %w", e.Name(), err)
		}
		b.locales[lang] = catalog
	}
	if len(b.locales) == 0 {
		return nil, fmt.Errorf("i18n: no locale files in %s", dir)
	}

	logger.Info(context.Background(), "i18n", "locales.loaded",
		slog.Int("count", len(b.locales)),
		slog.String("default", defaultLocale),
	)
	return b, nil
}

// NewBundle builds a bundle from in-memory catalogs, used by tests.
func NewBundle(defaultLocale string, locales map[string]map[string]string) *Bundle {
	return &Bundle{defaultLocale: defaultLocale, locales: locales}
}

// DefaultLocale returns the configured fallback locale tag.
func (b *Bundle) DefaultLocale() string {
	return b.defaultLocale
}

// Locales returns the loaded locale tags in sorted order.
func (b *Bundle) Locales() []string {
	tags := make([]string, 0, len(b.locales))
	for tag := range b.locales {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// T resolves key for the locale, substituting {name} placeholders from args
// given as alternating name/value pairs. Missing keys fall back through the
// default locale, then any available locale, then the key itself.
func (b *Bundle) T(key, locale string, args ...string) string {
	text, ok := b.lookup(key, locale)
	if !ok {
		text = key
	}
	for i := 0; i+1 < len(args); i += 2 {
		text = strings.ReplaceAll(text, "{"+args[i]+"}", args[i+1])
	}
	return text
}

func (b *Bundle) lookup(key, locale string) (string, bool) {
	if catalog, ok := b.locales[locale]; ok {
		if text, ok := catalog[key]; ok {
			return text, true
		}
	}
	if catalog, ok := b.locales[b.defaultLocale]; ok {
		if text, ok := catalog[key]; ok {
			return text, true
		}
	}
	for _, tag := range b.Locales() {
		if text, ok := b.locales[tag][key]; ok {
			return text, true
		}
	}
	return "", false
}
