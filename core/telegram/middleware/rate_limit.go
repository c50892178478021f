package middleware

import (
	"strings"
	"time"

	coreconfig "github.com/kingspeech/leadbot/core/config"
	"github.com/kingspeech/leadbot/core/logger"
	"github.com/kingspeech/leadbot/ratelimit"
	"log/slog"

	tele "gopkg.in/telebot.v4"
)

// RateLimitOptions wires per-class limiters into the middleware. Nil limiters
// disable limiting for that class.
type RateLimitOptions struct {
	Messages  *ratelimit.Limiter
	Callbacks *ratelimit.Limiter
	Commands  *ratelimit.Limiter
	// OnLimited is invoked once per denied update with the remaining cooldown.
	OnLimited func(c tele.Context, retryIn time.Duration) error
}

// RateLimitMiddleware enforces per-user sliding-window limits, classifying
// each update as a command, callback or plain message.
func RateLimitMiddleware(opts RateLimitOptions) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil {
				return next(c)
			}

			kind, limiter := classify(c, opts)
			if limiter == nil {
				return next(c)
			}
			if limiter.Allow(user.ID) {
				return next(c)
			}

			retryIn := limiter.CooldownRemaining(user.ID)
			attrs := []slog.Attr{
				slog.String("event", "tg.rate_limit"),
				slog.String("class", kind),
				slog.Int64("user_id", user.ID),
				slog.Duration("retry_in", logger.RoundMS(retryIn)),
			}
			if chat := c.Chat(); chat != nil {
				attrs = append(attrs, slog.Int64("chat_id", chat.ID))
			}
			logger.TG.LogAttrs(logger.Background(), slog.LevelWarn, "rate limit", attrs...)

			if opts.OnLimited != nil {
				_ = opts.OnLimited(c, retryIn)
			}
			return nil
		}
	}
}

func classify(c tele.Context, opts RateLimitOptions) (string, *ratelimit.Limiter) {
	upd := c.Update()
	switch {
	case upd.Callback != nil:
		return coreconfig.UpdateCallback, opts.Callbacks
	case upd.Message != nil:
		if strings.HasPrefix(strings.TrimSpace(upd.Message.Text), "/") {
			return coreconfig.UpdateCommand, opts.Commands
		}
		return coreconfig.UpdateMessage, opts.Messages
	}
	return "other", nil
}
