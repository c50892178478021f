package leads

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kingspeech/leadbot/core/logger"
	"github.com/kingspeech/leadbot/core/telegram/netutil"
	"log/slog"
)

const defaultAPIHost = "https://api.telegram.org"

// Config identifies the notification bot and target chat.
type Config struct {
	Token          string `yaml:"token" envconfig:"LEADS_BOT_TOKEN"`
	ChatID         int64  `yaml:"chat_id" envconfig:"LEADS_CHAT_ID"`
	TimeoutSeconds int    `yaml:"timeout_seconds" envconfig:"LEADS_TIMEOUT_SECONDS"`
	Retries        int    `yaml:"retries" envconfig:"LEADS_RETRIES"`
}

func (c Config) timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Sender posts lead cards via the Bot API sendMessage endpoint.
type Sender struct {
	cfg     Config
	apiHost string
	client  *http.Client
}

// NewSender builds a sender; a nil client falls back to a timeout-bounded default.
func NewSender(cfg Config, client *http.Client) *Sender {
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.timeout()}
	}
	return &Sender{cfg: cfg, apiHost: defaultAPIHost, client: client}
}

// Configured reports whether token and chat are both present.
func (s *Sender) Configured() bool {
	return s.cfg.Token != "" && s.cfg.ChatID != 0
}

// Send posts the formatted lead card. Transient transport failures are
// retried a bounded number of times; a flood response waits for the
// duration Telegram specifies instead of a fixed backoff.
func (s *Sender) Send(ctx context.Context, lead Lead) error {
	if !s.Configured() {
		return errors.New("leads: sender not configured")
	}

	start := time.Now()
	var lastErr error
	attempts := s.cfg.Retries + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		retryAfter, err := s.post(ctx, FormatMessage(lead))
		if err == nil {
			logger.Info(ctx, "leads", "lead.sent",
				slog.Int64("user_id", lead.TelegramID),
				slog.Int("attempt", attempt),
				slog.Duration("duration", logger.Took(start)),
			)
			return nil
		}
		lastErr = err

		delay := retryAfter
		if delay <= 0 {
			if !netutil.ShouldRetry(err) || attempt == attempts {
				break
			}
			delay = time.Duration(attempt) * 2 * time.Second
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("leads: send cancelled: %w", ctx.Err())
		case <-timer.C:
		}
	}

	logger.Error(ctx, "leads", "lead.send_failed",
		slog.Int64("user_id", lead.TelegramID),
		slog.String("err", lastErr.Error()),
		slog.Duration("duration", logger.Took(start)),
	)
	return fmt.Errorf("leads: send: %w", lastErr)
}

// post performs one sendMessage call. On HTTP 429 it returns the
// retry_after duration reported by Telegram.
func (s *Sender) post(ctx context.Context, text string) (time.Duration, error) {
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", s.apiHost, s.cfg.Token)
	form := url.Values{
		"chat_id":    {strconv.FormatInt(s.cfg.ChatID, 10)},
		"text":       {text},
		"parse_mode": {"Markdown"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode == http.StatusOK {
		return 0, nil
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		var payload struct {
			Parameters struct {
				RetryAfter int `json:"retry_after"`
			} `json:"parameters"`
		}
		_ = json.Unmarshal(body, &payload)
		wait := time.Duration(payload.Parameters.RetryAfter) * time.Second
		if wait <= 0 {
			wait = time.Second
		}
		return wait, fmt.Errorf("leads: rate limited by transport")
	}
	return 0, fmt.Errorf("leads: sendMessage status %s", resp.Status)
}

func formatID(id int64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}
