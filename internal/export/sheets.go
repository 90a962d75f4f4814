package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	sheets "google.golang.org/api/sheets/v4"
)

// SheetsCredentials selects how the Sheets client authenticates. A service
// account (inline JSON or file) wins over an OAuth client plus saved token.
type SheetsCredentials struct {
	ServiceAccountJSON string
	ServiceAccountFile string
	OAuthClientFile    string
	OAuthTokenFile     string
}

// SheetsWriter writes reports into a Google spreadsheet, one tab per table
// prefixed with the year ("2025 Bills").
type SheetsWriter struct {
	spreadsheetID string
	svc           *sheets.Service
}

func NewSheetsWriter(ctx context.Context, spreadsheetID string, creds SheetsCredentials) (*SheetsWriter, error) {
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	opt, err := clientOption(ctx, creds)
	if err != nil {
		return nil, err
	}
	svc, err := sheets.NewService(ctx, opt)
	if err != nil {
		return nil, fmt.Errorf("creating sheets service: %w", err)
	}
	return &SheetsWriter{spreadsheetID: spreadsheetID, svc: svc}, nil
}

func clientOption(ctx context.Context, c SheetsCredentials) (option.ClientOption, error) {
	switch {
	case c.ServiceAccountJSON != "" || c.ServiceAccountFile != "":
		data := []byte(c.ServiceAccountJSON)
		if len(data) == 0 {
			var err error
			if data, err = os.ReadFile(c.ServiceAccountFile); err != nil {
				return nil, fmt.Errorf("read service account file: %w", err)
			}
		}
		creds, err := google.CredentialsFromJSON(ctx, data, sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("parsing google credentials: %w", err)
		}
		return option.WithCredentials(creds), nil

	case c.OAuthClientFile != "" && c.OAuthTokenFile != "":
		cfg, err := OAuthConfig(c.OAuthClientFile)
		if err != nil {
			return nil, err
		}
		tok, err := LoadToken(c.OAuthTokenFile)
		if err != nil {
			return nil, err
		}
		return option.WithTokenSource(cfg.TokenSource(ctx, tok)), nil
	}
	return nil, errors.New("missing google credentials (service account or OAuth client and token)")
}

// OAuthConfig reads an installed-app OAuth client file for the Sheets scope.
func OAuthConfig(clientFile string) (*oauth2.Config, error) {
	data, err := os.ReadFile(clientFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth client file: %w", err)
	}
	cfg, err := google.ConfigFromJSON(data, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}
	return cfg, nil
}

func LoadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read oauth token: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("parse oauth token: %w", err)
	}
	return &tok, nil
}

// SaveToken writes tok with owner-only permissions.
func SaveToken(path string, tok *oauth2.Token) error {
	data, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write oauth token: %w", err)
	}
	return nil
}

// Write ensures the year tabs exist, then clears and rewrites them.
func (w *SheetsWriter) Write(ctx context.Context, report Report) error {
	names := make([]string, 0, len(report.Tables))
	for _, t := range report.Tables {
		names = append(names, SheetTitle(report.Year, t.Name))
	}
	if err := w.ensureSheets(ctx, names...); err != nil {
		return err
	}

	ranges := make([]string, 0, len(names))
	data := make([]*sheets.ValueRange, 0, len(names))
	for i, t := range report.Tables {
		ranges = append(ranges, fmt.Sprintf("'%s'!A:Z", names[i]))
		data = append(data, &sheets.ValueRange{Range: fmt.Sprintf("'%s'!A1", names[i]), Values: t.Rows})
	}

	_, err := w.svc.Spreadsheets.Values.BatchClear(
		w.spreadsheetID,
		&sheets.BatchClearValuesRequest{Ranges: ranges},
	).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clearing sheets: %w", err)
	}

	_, err = w.svc.Spreadsheets.Values.BatchUpdate(
		w.spreadsheetID,
		&sheets.BatchUpdateValuesRequest{
			ValueInputOption: "USER_ENTERED",
			Data:             data,
		},
	).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("writing sheets: %w", err)
	}
	return nil
}

// SheetTitle is the tab name for a table in a given year.
func SheetTitle(year int, table string) string {
	return fmt.Sprintf("%d %s", year, table)
}

// ensureSheets creates any of the named sheets that do not already exist.
func (w *SheetsWriter) ensureSheets(ctx context.Context, names ...string) error {
	spreadsheet, err := w.svc.Spreadsheets.Get(w.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("getting spreadsheet metadata: %w", err)
	}

	existing := make(map[string]bool, len(spreadsheet.Sheets))
	for _, s := range spreadsheet.Sheets {
		existing[s.Properties.Title] = true
	}

	var requests []*sheets.Request
	for _, name := range names {
		if !existing[name] {
			requests = append(requests, &sheets.Request{
				AddSheet: &sheets.AddSheetRequest{
					Properties: &sheets.SheetProperties{Title: name},
				},
			})
		}
	}
	if len(requests) == 0 {
		return nil
	}

	_, err = w.svc.Spreadsheets.BatchUpdate(
		w.spreadsheetID,
		&sheets.BatchUpdateSpreadsheetRequest{Requests: requests},
	).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("creating sheets: %w", err)
	}
	return nil
}
