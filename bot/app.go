// Package bot wires the lead-qualification survey against the Telegram
// transport: configuration, sinks, dialog engine, limiters and handlers.
package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kingspeech/leadbot/core/bootstrap"
	corecmd "github.com/kingspeech/leadbot/core/cmd"
	coreconfig "github.com/kingspeech/leadbot/core/config"
	coredatabase "github.com/kingspeech/leadbot/core/database"
	coretelegram "github.com/kingspeech/leadbot/core/telegram"
	"github.com/kingspeech/leadbot/core/telegram/router"
	"github.com/kingspeech/leadbot/dialog"
	"github.com/kingspeech/leadbot/dialog/survey"
	"github.com/kingspeech/leadbot/i18n"
	"github.com/kingspeech/leadbot/leads"
	"github.com/kingspeech/leadbot/sheets"
	"github.com/kingspeech/leadbot/storage/leadstore"
)

// App holds the assembled application graph.
type App struct {
	cfg      *coreconfig.Config
	msgs     *i18n.Bundle
	dialogs  *dialog.Manager
	limiters *coretelegram.Limiters
	registry *coretelegram.Registry
	archive  *leadstore.Store

	// Option buttons carry indexes, not labels: Telegram caps callback
	// data at 64 bytes and the localized labels do not fit. The labels
	// of the last rendered step are kept here per user.
	optMu       sync.Mutex
	lastOptions map[int64][]string
}

// AppConfig carries the loaded configuration into the generic runner.
type AppConfig struct {
	core *coreconfig.Config
}

// CoreConfig exposes the embedded core configuration.
func (c *AppConfig) CoreConfig() *coreconfig.Config { return c.core }

// LoadConfig loads and validates the YAML configuration.
func LoadConfig(path string) (corecmd.ConfigCarrier, error) {
	cfg, err := coreconfig.Load(path)
	if err != nil {
		return nil, err
	}
	return &AppConfig{core: cfg}, nil
}

// Bootstrap initializes infrastructure and assembles the application.
func Bootstrap(carrier corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
	cfg := carrier.CoreConfig()

	res, err := bootstrap.Run(bootstrap.Options{
		Config:          cfg,
		DatabaseEnabled: cfg.Database.Enabled,
		Database: coredatabase.Config{
			Host:           cfg.Database.Host,
			Port:           cfg.Database.Port,
			User:           cfg.Database.User,
			Password:       cfg.Database.Password,
			Name:           cfg.Database.Name,
			SSLMode:        cfg.Database.SSLMode,
			MaxConnections: cfg.Database.MaxConnections,
		},
	})
	if err != nil {
		return nil, err
	}

	msgs, err := i18n.Load(cfg.Survey.LocalesDir, cfg.Survey.DefaultLocale)
	if err != nil {
		return nil, fmt.Errorf("bot: load locales: %w", err)
	}

	sheet, err := sheets.NewClient(context.Background(), sheets.Config{
		SpreadsheetID:   cfg.Sheets.SpreadsheetID,
		CredentialsFile: cfg.Sheets.CredentialsFile,
		TimeoutSeconds:  cfg.Sheets.TimeoutSeconds,
	})
	if err != nil {
		return nil, fmt.Errorf("bot: sheets client: %w", err)
	}

	notifier := leads.NewSender(leads.Config{
		Token:          cfg.Leads.Token,
		ChatID:         cfg.Leads.ChatID,
		TimeoutSeconds: cfg.Leads.TimeoutSeconds,
		Retries:        cfg.Leads.Retries,
	}, nil)

	opts := []survey.Option{}
	var archive *leadstore.Store
	if res.DB != nil {
		archive = leadstore.New(res.DB)
		opts = append(opts, survey.WithArchive(archive))
	}
	sv := survey.New(msgs, sheet, notifier, opts...)

	mgr := dialog.NewManager(dialog.Options{
		DefaultLang: cfg.Survey.DefaultLocale,
		SessionTTL:  time.Duration(cfg.Survey.SessionTTLSeconds) * time.Second,
	})
	if err := mgr.RegisterBranch(sv.Branch()); err != nil {
		return nil, fmt.Errorf("bot: register survey: %w", err)
	}

	app := &App{
		cfg:         cfg,
		msgs:        msgs,
		dialogs:     mgr,
		limiters:    coretelegram.NewLimiters(cfg),
		registry:    coretelegram.NewRegistry(),
		archive:     archive,
		lastOptions: make(map[int64][]string),
	}
	app.registerHandlers()
	return app, nil
}

// TelegramRunOptions composes routes, middlewares and lifecycle hooks.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	gw := &dialogGateway{app: a}

	routes := router.TextRoutes(gw, a.registry, router.TextOptions{
		UnknownText:    a.handleUnknown,
		UnknownContact: a.handleUnknown,
	})
	routes = append(routes, router.CallbackRoute(a.registry, router.CallbackOptions{
		NotFound: a.handleUnknown,
	}))
	routes = append(routes, router.CommandRoutes(a.registry, router.CommandRouteOptions{
		AdminID: a.cfg.Telegram.AdminID,
	})...)

	return coretelegram.RunOptions{
		Config:      a.cfg,
		Registry:    a.registry,
		Middlewares: coretelegram.DefaultMiddlewares(a.limiters, a.onLimited),
		Routes:      routes,
		OnStart: func(ctx context.Context, _ coretelegram.Runtime) error {
			cleanup := time.Duration(a.cfg.RateLimit.CleanupIntervalSeconds) * time.Second
			go a.limiters.Messages.RunCleanup(ctx, cleanup)
			go a.limiters.Callbacks.RunCleanup(ctx, cleanup)
			go a.limiters.Commands.RunCleanup(ctx, cleanup)
			go a.dialogs.RunExpiry(ctx, time.Duration(a.cfg.Survey.ExpiryIntervalSeconds)*time.Second)
			return nil
		},
	}, nil
}

// dialogGateway adapts the dialog manager to the message router.
type dialogGateway struct {
	app *App
}

func (g *dialogGateway) InProgress(userID int64) bool {
	return g.app.dialogs.GetActiveBranch(userID) != ""
}
