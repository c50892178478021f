package telegram

import (
	"time"

	coreconfig "github.com/kingspeech/leadbot/core/config"
	"github.com/kingspeech/leadbot/core/telegram/middleware"
	"github.com/kingspeech/leadbot/ratelimit"

	tele "gopkg.in/telebot.v4"
)

// Limiters holds the per-class rate limiters shared between the middleware
// chain and command handlers (so /restart can reset them).
type Limiters struct {
	Messages  *ratelimit.Limiter
	Callbacks *ratelimit.Limiter
	Commands  *ratelimit.Limiter
}

// NewLimiters constructs the three traffic-class limiters from config.
func NewLimiters(cfg *coreconfig.Config) *Limiters {
	return &Limiters{
		Messages:  ratelimit.New(coreconfig.UpdateMessage, classConfig(cfg.RateLimit.Messages)),
		Callbacks: ratelimit.New(coreconfig.UpdateCallback, classConfig(cfg.RateLimit.Callbacks)),
		Commands:  ratelimit.New(coreconfig.UpdateCommand, classConfig(cfg.RateLimit.Commands)),
	}
}

// Reset clears limiter state for a user across all classes.
func (l *Limiters) Reset(userID int64) {
	if l == nil {
		return
	}
	l.Messages.Reset(userID)
	l.Callbacks.Reset(userID)
	l.Commands.Reset(userID)
}

func classConfig(c coreconfig.RateLimitClassConfig) ratelimit.Config {
	return ratelimit.Config{
		MaxRequests: c.MaxRequests,
		Window:      time.Duration(c.WindowSeconds) * time.Second,
		Cooldown:    time.Duration(c.CooldownSeconds) * time.Second,
	}
}

// DefaultMiddlewares builds the shared middleware chain for bots.
func DefaultMiddlewares(limiters *Limiters, onLimited func(tele.Context, time.Duration) error) []Middleware {
	mws := []Middleware{
		{Name: "recover", Use: middleware.RecoverMiddleware},
	}

	if limiters != nil {
		opts := middleware.RateLimitOptions{
			Messages:  limiters.Messages,
			Callbacks: limiters.Callbacks,
			Commands:  limiters.Commands,
			OnLimited: onLimited,
		}
		mws = append(mws, Middleware{
			Name: "rate_limit",
			Use:  middleware.RateLimitMiddleware(opts),
		})
	}

	mws = append(mws,
		Middleware{Name: "logger", Use: middleware.LoggerMiddleware},
		Middleware{Name: "metrics", Use: middleware.MessageMetricsMiddleware},
	)

	return mws
}
