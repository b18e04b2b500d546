// Package sheets writes exported ledger rows to a Google spreadsheet.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"parishledger/internal/export"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	baseName      string
}

var _ export.Writer = (*Client)(nil)

// Credentials holds a service account key, inline or as a file path.
type Credentials struct {
	JSON string
	File string
}

func (c Credentials) load() ([]byte, error) {
	switch {
	case strings.TrimSpace(c.JSON) != "":
		return []byte(c.JSON), nil
	case c.File != "":
		b, err := os.ReadFile(c.File)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	}
	return nil, errors.New("missing service account credentials")
}

// New creates a client authenticated with a service account key.
func New(ctx context.Context, spreadsheetID, baseName string, creds Credentials) (*Client, error) {
	key, err := creds.load()
	if err != nil {
		return nil, err
	}
	return NewWithOptions(ctx, spreadsheetID, baseName,
		goption.WithCredentialsJSON(key),
		goption.WithScopes(gsheet.SpreadsheetsScope))
}

// NewWithOptions creates a client with explicit API options.
func NewWithOptions(ctx context.Context, spreadsheetID, baseName string, opts ...goption.ClientOption) (*Client, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID, baseName: baseName}, nil
}

// SheetTitle prefixes the configured base name to a selection title,
// e.g. "장부 2024년".
func (c *Client) SheetTitle(selection string) string {
	if c.baseName == "" {
		return selection
	}
	return c.baseName + " " + selection
}

// Write replaces the contents of the named tab with a header and rows,
// creating the tab when it does not exist yet.
func (c *Client) Write(ctx context.Context, sheet string, rows []export.Row) error {
	if err := c.ensureSheet(ctx, sheet); err != nil {
		return err
	}

	quoted := quoteSheet(sheet)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, quoted, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear sheet %q: %w", sheet, err)
	}

	values := make([][]interface{}, 0, len(rows)+1)
	header := make([]interface{}, len(export.Header))
	for i, h := range export.Header {
		header[i] = h
	}
	values = append(values, header)
	for _, r := range rows {
		values = append(values, r.Values())
	}

	vr := &gsheet.ValueRange{Values: values}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, quoted+"!A1", vr).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do(); err != nil {
		return fmt.Errorf("write sheet %q: %w", sheet, err)
	}

	slog.InfoContext(ctx, "Ledger rows exported to Google Sheets",
		"sheet", sheet,
		"rows", len(rows))
	return nil
}

func (c *Client) ensureSheet(ctx context.Context, sheet string) error {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read spreadsheet: %w", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == sheet {
			return nil
		}
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: sheet}},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %q: %w", sheet, err)
	}
	slog.InfoContext(ctx, "Created sheet tab", "sheet", sheet)
	return nil
}

// quoteSheet quotes a tab name for A1 notation.
func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}
