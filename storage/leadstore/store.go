// Package leadstore keeps a queryable Postgres copy of completed leads,
// alongside the spreadsheet the managers work from.
package leadstore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/kingspeech/leadbot/core/logger"
	"github.com/kingspeech/leadbot/leads"
)

// Store persists leads through a sqlx connection pool.
type Store struct {
	db *sqlx.DB
}

// New wraps an open connection pool.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

type leadRow struct {
	ID               int64     `db:"id"`
	TelegramID       int64     `db:"telegram_id"`
	TelegramUsername string    `db:"telegram_username"`
	Phone            string    `db:"phone"`
	Name             string    `db:"name"`
	Language         string    `db:"language"`
	Level            string    `db:"level"`
	Goal             string    `db:"goal"`
	Format           string    `db:"format"`
	Expectations     string    `db:"expectations"`
	StartDate        string    `db:"start_date"`
	CreatedAt        time.Time `db:"created_at"`
}

const insertLead = `
	INSERT INTO leads (
		telegram_id, telegram_username, phone, name, language,
		level, goal, format, expectations, start_date, created_at
	) VALUES (
		:telegram_id, :telegram_username, :phone, :name, :language,
		:level, :goal, :format, :expectations, :start_date, :created_at
	)`

// Save archives one completed lead.
func (s *Store) Save(ctx context.Context, lead leads.Lead) error {
	row := leadRow{
		TelegramID:       lead.TelegramID,
		TelegramUsername: lead.TelegramUsername,
		Phone:            lead.Phone,
		Name:             lead.Name,
		Language:         lead.Language,
		Level:            lead.Level,
		Goal:             lead.Goal,
		Format:           lead.Format,
		Expectations:     lead.Expectations,
		StartDate:        lead.StartDate,
		CreatedAt:        lead.CreatedAt,
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now()
	}

	start := time.Now()
	if _, err := s.db.NamedExecContext(ctx, insertLead, row); err != nil {
		logger.Error(ctx, "db.leads", "lead.save_failed",
			slog.Int64("user_id", lead.TelegramID),
			slog.String("err", err.Error()),
			slog.Duration("duration", logger.Took(start)),
		)
		return fmt.Errorf("leadstore: save: %w", err)
	}
	logger.Debug(ctx, "db.leads", "lead.saved",
		slog.Int64("user_id", lead.TelegramID),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}

// CountSince reports how many leads arrived after the given moment,
// used by the admin stats command.
func (s *Store) CountSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM leads WHERE created_at >= $1`, since)
	if err != nil {
		return 0, fmt.Errorf("leadstore: count: %w", err)
	}
	return count, nil
}

// Recent returns the newest leads, capped by limit.
func (s *Store) Recent(ctx context.Context, limit int) ([]leads.Lead, error) {
	if limit <= 0 {
		limit = 10
	}
	var rows []leadRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT * FROM leads ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("leadstore: recent: %w", err)
	}
	out := make([]leads.Lead, len(rows))
	for i, r := range rows {
		out[i] = leads.Lead{
			Name:             r.Name,
			Phone:            r.Phone,
			Language:         r.Language,
			Level:            r.Level,
			Goal:             r.Goal,
			Format:           r.Format,
			Expectations:     r.Expectations,
			StartDate:        r.StartDate,
			TelegramID:       r.TelegramID,
			TelegramUsername: r.TelegramUsername,
			CreatedAt:        r.CreatedAt,
		}
	}
	return out, nil
}
