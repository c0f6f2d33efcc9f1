package googleapi

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"golang.org/x/oauth2"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/steipete/sheetpeek/internal/googleauth"
)

var spreadsheetURLRe = regexp.MustCompile(`^https://docs\.google\.com/spreadsheets/d/([^/?#]+)`)

// NewSheets builds a read-only Sheets service from service-account key
// material. The first access token is fetched before returning so a
// malformed key or rejected scope fails here rather than on the first call.
func NewSheets(ctx context.Context, key []byte, opts ...option.ClientOption) (*sheets.Service, error) {
	cfg, err := googleauth.JWTConfig(key, googleauth.ServiceSheets)
	if err != nil {
		return nil, err
	}
	slog.Debug("creating sheets service", "email", cfg.Email)

	ts := cfg.TokenSource(ctx)
	tok, err := ts.Token()
	if err != nil {
		return nil, fmt.Errorf("fetch access token for %s: %w", cfg.Email, err)
	}

	client := oauth2.NewClient(ctx, oauth2.ReuseTokenSource(tok, ts))
	svc, err := sheets.NewService(ctx, append([]option.ClientOption{option.WithHTTPClient(client)}, opts...)...)
	if err != nil {
		slog.Error("failed to create sheets service", "email", cfg.Email, "error", err)
		return nil, err
	}

	slog.Debug("sheets service created successfully", "email", cfg.Email)
	return svc, nil
}

// SheetsClient narrows the generated Sheets client to the two reads the
// reader needs.
type SheetsClient struct {
	svc *sheets.Service
}

func NewSheetsClient(svc *sheets.Service) *SheetsClient {
	return &SheetsClient{svc: svc}
}

func (c *SheetsClient) ListTitles(ctx context.Context, spreadsheetID string) ([]string, error) {
	resp, err := c.svc.Spreadsheets.Get(spreadsheetID).
		Fields("sheets.properties.title").
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}

	titles := make([]string, 0, len(resp.Sheets))
	for _, sheet := range resp.Sheets {
		if sheet.Properties == nil {
			continue
		}
		titles = append(titles, sheet.Properties.Title)
	}
	return titles, nil
}

func (c *SheetsClient) GetValues(ctx context.Context, spreadsheetID, rangeExpr string) ([][]string, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(spreadsheetID, rangeExpr).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return StringValues(resp.Values), nil
}

// StringValues renders API cell values as strings, keeping row and cell order.
func StringValues(values [][]interface{}) [][]string {
	out := make([][]string, len(values))
	for i, row := range values {
		cells := make([]string, len(row))
		for j, cell := range row {
			cells[j] = fmt.Sprintf("%v", cell)
		}
		out[i] = cells
	}
	return out
}

// ParseSpreadsheetID accepts a bare spreadsheet ID or a docs.google.com
// spreadsheet URL.
func ParseSpreadsheetID(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("empty spreadsheet ID")
	}
	if strings.HasPrefix(s, "https://") {
		m := spreadsheetURLRe.FindStringSubmatch(s)
		if m == nil {
			return "", fmt.Errorf("invalid spreadsheet URL %q - expected something like 'https://docs.google.com/spreadsheets/d/<id>'", s)
		}
		return m[1], nil
	}
	if strings.ContainsAny(s, "/ ") {
		return "", fmt.Errorf("invalid spreadsheet ID %q", s)
	}
	return s, nil
}
