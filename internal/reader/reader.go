// Package reader locates a worksheet by title substring and fetches a cell
// range from it, retrying once under an alternate worksheet name.
package reader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/steipete/sheetpeek/internal/a1"
)

// Service is the remote spreadsheet API.
type Service interface {
	ListTitles(ctx context.Context, spreadsheetID string) ([]string, error)
	GetValues(ctx context.Context, spreadsheetID, rangeExpr string) ([][]string, error)
}

// Connector authenticates and returns a ready Service.
type Connector func(ctx context.Context) (Service, error)

// Diagnostics receives the match warning, the recovered fetch error and the
// retry notice. The CLI points it at the same stream as Out.
type Diagnostics interface {
	Println(msg string)
	Warn(msg string)
	Error(msg string)
}

type Config struct {
	SpreadsheetID        string
	TargetTitleSubstring string
	DefaultSheetName     string
	FallbackSheetName    string
	Range                string
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.SpreadsheetID) == "" {
		return errors.New("missing spreadsheet ID")
	}
	// An empty substring is contained in every title.
	if c.TargetTitleSubstring == "" {
		return errors.New("missing target title substring")
	}
	if strings.TrimSpace(c.DefaultSheetName) == "" {
		return errors.New("missing default sheet name")
	}
	if strings.TrimSpace(c.FallbackSheetName) == "" {
		return errors.New("missing fallback sheet name")
	}
	r, err := a1.Parse(c.Range)
	if err != nil {
		return fmt.Errorf("range: %w", err)
	}
	if r.SheetName != "" {
		return fmt.Errorf("range %q must not name a sheet", c.Range)
	}
	return nil
}

type Result struct {
	SpreadsheetID string     `json:"spreadsheet_id"`
	Titles        []string   `json:"sheets"`
	Sheet         string     `json:"sheet"`
	Range         string     `json:"range"`
	Matched       bool       `json:"matched"`
	UsedFallback  bool       `json:"fallback"`
	Values        [][]string `json:"values"`
}

type Reader struct {
	Connect Connector
	Config  Config
	Out     io.Writer
	Diag    Diagnostics
}

// Run authenticates, lists worksheets, resolves the target worksheet and
// prints the configured range from it.
func (r *Reader) Run(ctx context.Context) (*Result, error) {
	cfg := r.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	out := r.Out
	if out == nil {
		out = io.Discard
	}
	diag := r.Diag
	if diag == nil {
		diag = discardDiagnostics{}
	}

	svc, err := r.Connect(ctx)
	if err != nil {
		var authErr *AuthError
		if errors.As(err, &authErr) {
			return nil, err
		}
		return nil, &AuthError{Cause: err}
	}

	slog.Debug("listing worksheets", "spreadsheet", cfg.SpreadsheetID)
	titles, err := svc.ListTitles(ctx, cfg.SpreadsheetID)
	if err != nil {
		return nil, &RemoteError{Op: OpListWorksheets, Cause: err}
	}

	fmt.Fprintln(out, "Available sheets:")
	for _, title := range titles {
		fmt.Fprintf(out, "- %s\n", title)
	}

	sheet, matched := ResolveTitle(titles, cfg.TargetTitleSubstring, cfg.DefaultSheetName)
	if matched {
		fmt.Fprintf(out, "\nFound matching sheet: %s\n", sheet)
	} else {
		diag.Warn(fmt.Sprintf("Could not find sheet with %q in the name. Using default name %q.", cfg.TargetTitleSubstring, sheet))
	}

	res := &Result{
		SpreadsheetID: cfg.SpreadsheetID,
		Titles:        titles,
		Matched:       matched,
	}

	sheet, values, usedFallback, err := r.fetchWithFallback(ctx, svc, diag, sheet)
	if err != nil {
		return nil, err
	}
	res.Sheet = sheet
	res.Range = a1.Expr(sheet, cfg.Range)
	res.UsedFallback = usedFallback
	res.Values = values

	if len(values) > 0 {
		fmt.Fprintf(out, "\nData from %s!%s:\n", sheet, cfg.Range)
	}
	if err := Report(out, values); err != nil {
		return nil, err
	}
	return res, nil
}

// fetchWithFallback makes at most two fetches: the resolved sheet, then
// the configured fallback spelling.
func (r *Reader) fetchWithFallback(ctx context.Context, svc Service, diag Diagnostics, sheet string) (string, [][]string, bool, error) {
	values, err := r.fetch(ctx, svc, sheet)
	if err == nil {
		return sheet, values, false, nil
	}

	diag.Error(fmt.Sprintf("Error accessing sheet data: %v", err))
	diag.Println("\nTrying with a different sheet name variation...")

	fallback := r.Config.FallbackSheetName
	slog.Debug("retrying with fallback sheet name", "sheet", sheet, "fallback", fallback)
	values, err = r.fetch(ctx, svc, fallback)
	if err != nil {
		return "", nil, true, err
	}
	return fallback, values, true, nil
}

func (r *Reader) fetch(ctx context.Context, svc Service, sheet string) ([][]string, error) {
	expr := a1.Expr(sheet, r.Config.Range)
	slog.Debug("fetching range", "spreadsheet", r.Config.SpreadsheetID, "range", expr)
	values, err := svc.GetValues(ctx, r.Config.SpreadsheetID, expr)
	if err != nil {
		return nil, &RemoteError{Op: OpFetchRange, Sheet: sheet, Cause: err}
	}
	return values, nil
}

type discardDiagnostics struct{}

func (discardDiagnostics) Println(string) {}
func (discardDiagnostics) Warn(string)    {}
func (discardDiagnostics) Error(string)   {}
