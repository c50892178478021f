package leads

import (
	"fmt"
	"strings"

	"github.com/kingspeech/leadbot/core/telegram/format"
)

// FormatMessage renders the human-readable lead card posted to the
// workgroup chat. Field values are markdown-escaped; layout follows the
// card the school's managers already know.
func FormatMessage(l Lead) string {
	var b strings.Builder
	b.WriteString("🎯 *Новая заявка: KingSpeech*\n\n")
	writeField(&b, "👤 *Имя:*", l.Name)
	writeField(&b, "📱 *Телефон:*", l.Phone)
	b.WriteString("💬 *Мессенджер:* Telegram\n\n")
	b.WriteString("📊 *Детали заявки:*\n")
	writeField(&b, "• *Язык:*", l.Language)
	writeField(&b, "• *Уровень:*", l.Level)
	writeField(&b, "• *Цель:*", l.Goal)
	writeField(&b, "• *Формат:*", l.Format)
	writeField(&b, "• *Ожидания:*", l.Expectations)
	writeField(&b, "• *Дата начала:*", l.StartDate)
	b.WriteString("\n")
	writeField(&b, "🆔 *Telegram ID:*", formatID(l.TelegramID))
	writeField(&b, "👤 *Username:*", l.TelegramUsername)
	if !l.CreatedAt.IsZero() {
		writeField(&b, "🕐 *Время:*", l.CreatedAt.Format("02.01.2006 15:04"))
	}
	return strings.TrimRight(b.String(), "\n")
}

func writeField(b *strings.Builder, label, value string) {
	if value == "" {
		value = "Не указано"
	} else {
		escaped, err := format.EscapeMarkdown(value, format.MarkdownV1, "")
		if err == nil {
			value = escaped
		}
	}
	fmt.Fprintf(b, "%s %s\n", label, value)
}
