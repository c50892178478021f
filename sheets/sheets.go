// Package sheets appends completed leads to the school's Google Sheets
// workbook. Rows land on a worksheet named after the current month,
// created on demand.
package sheets

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/kingspeech/leadbot/core/logger"
	"log/slog"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

// RowAppender is the single operation the dialog core consumes.
type RowAppender interface {
	AppendLead(ctx context.Context, row []string) error
}

// Config locates the workbook and its service-account credentials.
type Config struct {
	SpreadsheetID   string `yaml:"spreadsheet_id" envconfig:"SHEETS_SPREADSHEET_ID"`
	CredentialsFile string `yaml:"credentials_file" envconfig:"SHEETS_CREDENTIALS_FILE"`
	TimeoutSeconds  int    `yaml:"timeout_seconds" envconfig:"SHEETS_TIMEOUT_SECONDS"`
}

func (c Config) timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

var monthSheets = []string{
	"Январь", "Февраль", "Март", "Апрель", "Май", "Июнь",
	"Июль", "Август", "Сентябрь", "Октябрь", "Ноябрь", "Декабрь",
}

// Client talks to the Sheets API with service-account credentials.
type Client struct {
	cfg Config
	svc *sheetsapi.Service
	now func() time.Time
}

// NewClient reads the credentials file and builds the API service.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.SpreadsheetID == "" {
		return nil, fmt.Errorf("sheets: spreadsheet id is required")
	}

	data, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("sheets: read credentials: %w", err)
	}
	jwt, err := google.JWTConfigFromJSON(data, sheetsapi.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("sheets: parse credentials: %w", err)
	}
	svc, err := sheetsapi.NewService(ctx, option.WithHTTPClient(jwt.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("sheets: build service: %w", err)
	}

	logger.Info(ctx, "sheets", "client.ready",
		slog.String("spreadsheet", cfg.SpreadsheetID),
	)
	return &Client{cfg: cfg, svc: svc, now: time.Now}, nil
}

// AppendLead appends one row to the current month's worksheet.
func (c *Client) AppendLead(ctx context.Context, row []string) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.timeout())
	defer cancel()

	sheet := MonthSheet(c.now())
	if err := c.ensureSheet(ctx, sheet); err != nil {
		return err
	}

	values := make([]interface{}, len(row))
	for i, v := range row {
		values[i] = v
	}
	body := &sheetsapi.ValueRange{Values: [][]interface{}{values}}

	start := time.Now()
	_, err := c.svc.Spreadsheets.Values.
		Append(c.cfg.SpreadsheetID, sheet+"!A1", body).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		logger.Error(ctx, "sheets", "append.failed",
			slog.String("sheet", sheet),
			slog.String("err", err.Error()),
			slog.Duration("duration", logger.Took(start)),
		)
		return fmt.Errorf("sheets: append row: %w", err)
	}

	logger.Info(ctx, "sheets", "append.ok",
		slog.String("sheet", sheet),
		slog.Int("columns", len(row)),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}

// ensureSheet creates the month worksheet when it does not exist yet.
func (c *Client) ensureSheet(ctx context.Context, name string) error {
	meta, err := c.svc.Spreadsheets.Get(c.cfg.SpreadsheetID).
		Fields("sheets.properties.title").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("sheets: read workbook: %w", err)
	}
	for _, s := range meta.Sheets {
		if s.Properties != nil && s.Properties.Title == name {
			return nil
		}
	}

	req := &sheetsapi.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsapi.Request{{
			AddSheet: &sheetsapi.AddSheetRequest{
				Properties: &sheetsapi.SheetProperties{Title: name},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.cfg.SpreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("sheets: create sheet %s: %w", name, err)
	}
	logger.Info(ctx, "sheets", "sheet.created", slog.String("sheet", name))
	return nil
}

// MonthSheet names the worksheet for the given moment.
func MonthSheet(t time.Time) string {
	return monthSheets[int(t.Month())-1]
}
