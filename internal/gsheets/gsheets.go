// Package gsheets appends appointment records to a Google Sheets log.
package gsheets

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// DefaultRange targets the first sheet of the spreadsheet; the API locates
// the next empty row below it.
const DefaultRange = "'Hoja 1'!A1"

// SheetError wraps failures talking to the Sheets API.
type SheetError struct {
	Err error
}

func (e *SheetError) Error() string {
	return fmt.Sprintf("sheet append failed: %v", e.Err)
}

func (e *SheetError) Unwrap() error { return e.Err }

// appendService is the slice of the Sheets API used by the client.
type appendService interface {
	Append(ctx context.Context, spreadsheetID, rangeName string, values []any) error
}

type googleAppendService struct {
	svc *sheets.Service
}

func (g *googleAppendService) Append(ctx context.Context, spreadsheetID, rangeName string, values []any) error {
	vr := &sheets.ValueRange{Values: [][]any{values}}
	_, err := g.svc.Spreadsheets.Values.Append(spreadsheetID, rangeName, vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	return err
}

// Opts holds configuration options for the sheets client.
type Opts struct {
	CredentialsFile string
	SpreadsheetID   string
	Range           string
}

// Option defines a configuration option for the sheets client.
type Option func(*Opts)

// WithCredentialsFile sets the service account credentials path.
func WithCredentialsFile(path string) Option {
	return func(o *Opts) { o.CredentialsFile = path }
}

// WithSpreadsheetID targets a specific spreadsheet.
func WithSpreadsheetID(id string) Option {
	return func(o *Opts) { o.SpreadsheetID = id }
}

// WithRange overrides the append range.
func WithRange(r string) Option {
	return func(o *Opts) { o.Range = r }
}

// Client appends rows to the appointment spreadsheet.
type Client struct {
	append        appendService
	spreadsheetID string
	rangeName     string
}

// NewClient initializes a sheets client, falling back to the
// GOOGLE_APPLICATION_CREDENTIALS and GOOGLE_SHEET_ID environment variables.
func NewClient(ctx context.Context, opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.CredentialsFile == "" {
		cfg.CredentialsFile = os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
	}
	if cfg.CredentialsFile == "" {
		return nil, fmt.Errorf("GOOGLE_APPLICATION_CREDENTIALS not set")
	}
	if cfg.SpreadsheetID == "" {
		cfg.SpreadsheetID = os.Getenv("GOOGLE_SHEET_ID")
	}
	if cfg.SpreadsheetID == "" {
		return nil, fmt.Errorf("GOOGLE_SHEET_ID not set")
	}
	if cfg.Range == "" {
		cfg.Range = DefaultRange
	}

	svc, err := sheets.NewService(ctx, option.WithCredentialsFile(cfg.CredentialsFile), option.WithScopes(sheets.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	slog.Debug("Sheets client created", "spreadsheet_id", cfg.SpreadsheetID, "range", cfg.Range)
	return &Client{append: &googleAppendService{svc: svc}, spreadsheetID: cfg.SpreadsheetID, rangeName: cfg.Range}, nil
}

// AppendRow appends one ordered row of values below the configured range.
func (c *Client) AppendRow(ctx context.Context, values []string) error {
	row := make([]any, len(values))
	for i, v := range values {
		row[i] = v
	}
	if err := c.append.Append(ctx, c.spreadsheetID, c.rangeName, row); err != nil {
		slog.Error("Sheets.AppendRow: append failed", "error", err, "columns", len(values))
		return &SheetError{Err: err}
	}
	slog.Info("Sheets.AppendRow: row appended", "columns", len(values))
	return nil
}
