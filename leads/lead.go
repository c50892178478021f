// Package leads forwards completed survey leads to the school's workgroup
// chat through the Bot API of a dedicated notification bot.
package leads

import "time"

// Lead is a completed questionnaire ready for human follow-up.
type Lead struct {
	Name         string
	Phone        string
	Language     string
	Level        string
	Goal         string
	Format       string
	Expectations string
	StartDate    string

	TelegramID       int64
	TelegramUsername string
	CreatedAt        time.Time
}

// SheetRow returns the values in the fixed spreadsheet column order:
// telegram_id, telegram_username, phone, name, language, level, goal,
// format, expectations, start_date.
func (l Lead) SheetRow() []string {
	return []string{
		formatID(l.TelegramID),
		l.TelegramUsername,
		l.Phone,
		l.Name,
		l.Language,
		l.Level,
		l.Goal,
		l.Format,
		l.Expectations,
		l.StartDate,
	}
}
