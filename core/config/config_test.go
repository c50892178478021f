package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	cfg := &Config{}
	cfg.Telegram.Token = "token"
	cfg.Sheets.SpreadsheetID = "sheet-id"
	cfg.Leads.ChatID = -100500
	return cfg
}

func TestNormalizeAppliesDefaults(t *testing.T) {
	cfg := validConfig()
	if err := Normalize(cfg); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if cfg.Telegram.RunMode != RunModeLongpoll {
		t.Fatalf("run mode = %q", cfg.Telegram.RunMode)
	}
	if cfg.RateLimit.Messages.MaxRequests != 20 || cfg.RateLimit.Commands.MaxRequests != 5 {
		t.Fatalf("limit defaults = %+v", cfg.RateLimit)
	}
	if cfg.Survey.DefaultLocale != "ru" || cfg.Survey.LocalesDir != "locales" {
		t.Fatalf("survey defaults = %+v", cfg.Survey)
	}
	if cfg.Leads.Token != "token" {
		t.Fatalf("leads token not inherited: %q", cfg.Leads.Token)
	}
}

func TestNormalizeRequiresToken(t *testing.T) {
	cfg := validConfig()
	cfg.Telegram.Token = ""
	if err := Normalize(cfg); err == nil {
		t.Fatal("expected token error")
	}
}

func TestNormalizeRequiresSpreadsheet(t *testing.T) {
	cfg := validConfig()
	cfg.Sheets.SpreadsheetID = " "
	if err := Normalize(cfg); err == nil || !strings.Contains(err.Error(), "spreadsheet_id") {
		t.Fatalf("err = %v", err)
	}
}

func TestNormalizeWebhookValidation(t *testing.T) {
	cfg := validConfig()
	cfg.Telegram.RunMode = "webhook"
	if err := Normalize(cfg); err == nil {
		t.Fatal("expected webhook.url error")
	}

	cfg = validConfig()
	cfg.Telegram.RunMode = "Webhook"
	cfg.Webhook.URL = "https://bot.example.com/hook"
	cfg.Webhook.Listen = "0.0.0.0"
	cfg.Webhook.Port = 8443
	if err := Normalize(cfg); err != nil {
		t.Fatalf("Normalize webhook: %v", err)
	}
	if cfg.Telegram.RunMode != RunModeWebhook {
		t.Fatalf("run mode not lowered: %q", cfg.Telegram.RunMode)
	}
}

func TestNormalizeDatabaseRequirements(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Enabled = true
	if err := Normalize(cfg); err == nil {
		t.Fatal("expected database field error")
	}

	cfg = validConfig()
	cfg.Database.Enabled = true
	cfg.Database.Host = "localhost"
	cfg.Database.Name = "leadbot"
	cfg.Database.User = "leadbot"
	if err := Normalize(cfg); err != nil {
		t.Fatalf("Normalize db: %v", err)
	}
	if cfg.Database.SSLMode != "disable" || cfg.Database.MaxConnections != 4 {
		t.Fatalf("db defaults = %+v", cfg.Database)
	}
}
