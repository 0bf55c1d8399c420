// Package google exports ledger transactions to a Google spreadsheet.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"balansim/internal/core"
	"balansim/internal/sheets"
)

// Columns A..F hold one transaction.
const lastColumn = "F"

type Options struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsFile string
	CredentialsJSON string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

var _ sheets.Exporter = (*Client)(nil)

// New creates a Sheets client authenticated with a service account. Inline
// JSON wins over the file. With neither, the library falls back to
// application default credentials. Extra client options are applied last.
func New(ctx context.Context, o Options, extra ...goption.ClientOption) (*Client, error) {
	o.SpreadsheetID = strings.TrimSpace(o.SpreadsheetID)
	o.SheetName = strings.TrimSpace(o.SheetName)
	if o.SpreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if o.SheetName == "" {
		o.SheetName = "Transactions"
	}

	opts, err := credentialOptions(ctx, o)
	if err != nil {
		return nil, err
	}
	opts = append(opts, extra...)

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Client{svc: svc, spreadsheetID: o.SpreadsheetID, sheetName: o.SheetName}, nil
}

func credentialOptions(ctx context.Context, o Options) ([]goption.ClientOption, error) {
	var credentialsJSON []byte
	switch {
	case strings.TrimSpace(o.CredentialsJSON) != "":
		slog.DebugContext(ctx, "Using inline service account credentials")
		credentialsJSON = []byte(o.CredentialsJSON)
	case strings.TrimSpace(o.CredentialsFile) != "":
		data, err := os.ReadFile(o.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		slog.DebugContext(ctx, "Read service account file", "path", o.CredentialsFile, "size", len(data))
		credentialsJSON = data
	default:
		return []goption.ClientOption{goption.WithScopes(gsheet.SpreadsheetsScope)}, nil
	}
	return []goption.ClientOption{
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope),
	}, nil
}

// AppendRow adds r after the last non-empty row of the sheet.
func (c *Client) AppendRow(ctx context.Context, r sheets.Row) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A:%s", c.sheetName, lastColumn)
	vr := &gsheet.ValueRange{Values: [][]any{r.Values()}}

	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%w: append to %s: %w", core.ErrExternalService, c.sheetName, err)
	}
	return nil
}

// DeleteRow clears the row whose column A equals id. Rows are cleared rather
// than removed so the references of later rows stay stable.
func (c *Client) DeleteRow(ctx context.Context, id string) (bool, error) {
	if c.svc == nil {
		return false, errors.New("sheets service not initialized")
	}
	row, err := c.findRow(ctx, id)
	if err != nil {
		return false, err
	}
	if row == 0 {
		return false, nil
	}

	rng := fmt.Sprintf("%s!A%d:%s%d", c.sheetName, row, lastColumn, row)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return false, fmt.Errorf("%w: clear %s: %w", core.ErrExternalService, rng, err)
	}
	return true, nil
}

// findRow returns the 1-based row holding id in column A, or 0.
func (c *Client) findRow(ctx context.Context, id string) (int, error) {
	rng := fmt.Sprintf("%s!A:A", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("%w: read %s: %w", core.ErrExternalService, rng, err)
	}
	for i, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) == id {
			return i + 1, nil
		}
	}
	return 0, nil
}
