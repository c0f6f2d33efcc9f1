package cmd

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/steipete/sheetpeek/internal/config"
	"github.com/steipete/sheetpeek/internal/reader"
)

const matchedTitle = "PROMT Temp: UX Researcher v2"

func TestRead_MatchedSheet(t *testing.T) {
	isolateEnv(t)

	f := &fakeSheets{
		titles: []string{"Summary", matchedTitle},
		values: map[string][][]any{
			"'" + matchedTitle + "'!A1:Z100": {{"Name", "Score"}, {"Ann", "5"}},
		},
	}
	key := f.serve(t)

	var out string
	errText := captureStderr(t, func() {
		out = captureStdout(t, func() {
			if err := Execute([]string{"--credentials", key, "read", "--spreadsheet", "sid"}); err != nil {
				t.Fatalf("Execute: %v", err)
			}
		})
	})

	want := "Available sheets:\n- Summary\n- " + matchedTitle + "\n" +
		"\nFound matching sheet: " + matchedTitle + "\n" +
		"\nData from " + matchedTitle + "!A1:Z100:\n" +
		"[Name Score]\n[Ann 5]\n"
	if out != want {
		t.Fatalf("unexpected stdout:\n%q\nwant:\n%q", out, want)
	}
	if errText != "" {
		t.Fatalf("unexpected stderr: %q", errText)
	}
	if f.listCalls != 1 || f.valuesCalls != 1 {
		t.Fatalf("expected 1 list + 1 values call, got %d + %d", f.listCalls, f.valuesCalls)
	}
}

func TestRead_NoData(t *testing.T) {
	isolateEnv(t)

	f := &fakeSheets{
		titles: []string{matchedTitle},
		values: map[string][][]any{
			"'" + matchedTitle + "'!A1:Z100": {},
		},
	}
	key := f.serve(t)

	var out string
	_ = captureStderr(t, func() {
		out = captureStdout(t, func() {
			if err := Execute([]string{"--credentials", key, "read", "--spreadsheet", "sid"}); err != nil {
				t.Fatalf("Execute: %v", err)
			}
		})
	})
	if !strings.HasSuffix(out, "No data found in the specified range.\n") {
		t.Fatalf("expected no-data notice, got %q", out)
	}
	if strings.Contains(out, "Data from") {
		t.Fatalf("unexpected data header: %q", out)
	}
}

func TestRead_FallbackJSON(t *testing.T) {
	isolateEnv(t)

	fallbackExpr := "'" + config.DefaultFallbackSheetName + "'!A1:Z100"
	f := &fakeSheets{
		titles: []string{"Other"},
		values: map[string][][]any{
			fallbackExpr: {{"x", "y"}},
		},
	}
	key := f.serve(t)

	var out string
	errText := captureStderr(t, func() {
		out = captureStdout(t, func() {
			if err := Execute([]string{"--json", "--credentials", key, "read", "--spreadsheet", "sid"}); err != nil {
				t.Fatalf("Execute: %v", err)
			}
		})
	})

	var parsed struct {
		SpreadsheetID string     `json:"spreadsheet_id"`
		Sheets        []string   `json:"sheets"`
		Sheet         string     `json:"sheet"`
		Range         string     `json:"range"`
		Matched       bool       `json:"matched"`
		Fallback      bool       `json:"fallback"`
		Values        [][]string `json:"values"`
	}
	if err := json.Unmarshal([]byte(out), &parsed); err != nil {
		t.Fatalf("json parse: %v\nout=%q", err, out)
	}
	if parsed.SpreadsheetID != "sid" || parsed.Matched || !parsed.Fallback {
		t.Fatalf("unexpected result: %#v", parsed)
	}
	if parsed.Sheet != config.DefaultFallbackSheetName || parsed.Range != fallbackExpr {
		t.Fatalf("unexpected sheet/range: %#v", parsed)
	}
	if len(parsed.Values) != 1 || parsed.Values[0][1] != "y" {
		t.Fatalf("unexpected values: %#v", parsed.Values)
	}
	if len(parsed.Sheets) != 1 || parsed.Sheets[0] != "Other" {
		t.Fatalf("unexpected sheets: %#v", parsed.Sheets)
	}

	for _, want := range []string{
		"Could not find sheet",
		"Error accessing sheet data",
		"Trying with a different sheet name variation...",
	} {
		if !strings.Contains(errText, want) {
			t.Fatalf("expected %q on stderr, got %q", want, errText)
		}
	}
	if f.valuesCalls != 2 {
		t.Fatalf("expected 2 values calls, got %d", f.valuesCalls)
	}
	if f.fetched[0] != "'"+config.DefaultSheetName+"'!A1:Z100" {
		t.Fatalf("expected default sheet first, got %q", f.fetched[0])
	}
}

func TestRead_DiagnosticsOnStdout(t *testing.T) {
	isolateEnv(t)

	fallbackExpr := "'" + config.DefaultFallbackSheetName + "'!A1:Z100"
	f := &fakeSheets{
		titles: []string{"Other"},
		values: map[string][][]any{fallbackExpr: {{"x"}}},
	}
	key := f.serve(t)

	var out string
	errText := captureStderr(t, func() {
		out = captureStdout(t, func() {
			if err := Execute([]string{"--color", "never", "--credentials", key, "read", "--spreadsheet", "sid"}); err != nil {
				t.Fatalf("Execute: %v", err)
			}
		})
	})
	if errText != "" {
		t.Fatalf("expected empty stderr, got %q", errText)
	}

	lines := strings.Split(out, "\n")
	want := []string{
		"Available sheets:",
		"- Other",
		`Warning: Could not find sheet with "PROMT Temp: UX" in the name. Using default name "` + config.DefaultSheetName + `".`,
	}
	for i, w := range want {
		if lines[i] != w {
			t.Fatalf("line %d = %q, want %q\nout=%q", i, lines[i], w, out)
		}
	}
	if !strings.HasPrefix(lines[3], "Error accessing sheet data: ") {
		t.Fatalf("expected error line, got %q", lines[3])
	}
	wantTail := "\nTrying with a different sheet name variation...\n" +
		"\nData from " + config.DefaultFallbackSheetName + "!A1:Z100:\n[x]\n"
	if !strings.HasSuffix(out, wantTail) {
		t.Fatalf("unexpected tail: %q", out)
	}
}

func TestRead_Timeout(t *testing.T) {
	isolateEnv(t)

	f := &fakeSheets{titles: []string{matchedTitle}, stallValues: 5 * time.Second}
	key := f.serve(t)

	start := time.Now()
	var err error
	_ = captureStderr(t, func() {
		_ = captureStdout(t, func() {
			err = Execute([]string{"--credentials", key, "read", "--spreadsheet", "sid", "--timeout", "300ms"})
		})
	})
	if elapsed := time.Since(start); elapsed > 4*time.Second {
		t.Fatalf("timeout not applied, run took %s", elapsed)
	}

	var remoteErr *reader.RemoteError
	if !errors.As(err, &remoteErr) || remoteErr.Op != reader.OpFetchRange {
		t.Fatalf("expected fetch RemoteError, got %v", err)
	}
	if got := ExitCode(err); got != 1 {
		t.Fatalf("expected exit 1, got %d", got)
	}
	if n := atomic.LoadInt32(&f.valuesCalls); n < 1 || n > 2 {
		t.Fatalf("expected 1-2 values calls, got %d", n)
	}
}

func TestRead_FallbackFails(t *testing.T) {
	isolateEnv(t)

	f := &fakeSheets{titles: []string{"Other"}}
	key := f.serve(t)

	var err error
	var out string
	errText := captureStderr(t, func() {
		out = captureStdout(t, func() {
			err = Execute([]string{"--color", "never", "--credentials", key, "read", "--spreadsheet", "sid"})
		})
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if got := ExitCode(err); got != 1 {
		t.Fatalf("expected exit 1, got %d", got)
	}
	if f.valuesCalls != 2 {
		t.Fatalf("expected exactly 2 values calls, got %d", f.valuesCalls)
	}
	if strings.Count(out, "Error accessing sheet data") != 1 ||
		!strings.Contains(out, "\nTrying with a different sheet name variation...\n") ||
		strings.Contains(out, "Warning: Trying") {
		t.Fatalf("unexpected stdout: %q", out)
	}
	if strings.Contains(errText, "Trying with a different sheet name variation") {
		t.Fatalf("retry notice leaked to stderr: %q", errText)
	}
	if len(f.fetched) != 2 || f.fetched[1] != "'"+config.DefaultFallbackSheetName+"'!A1:Z100" {
		t.Fatalf("unexpected fetches: %#v", f.fetched)
	}
	if !strings.Contains(errText, "Google API error (400") {
		t.Fatalf("expected API error on stderr, got %q", errText)
	}
}

func TestRead_AuthFailureMakesNoAPICalls(t *testing.T) {
	isolateEnv(t)

	f := &fakeSheets{titles: []string{matchedTitle}, rejectToken: true}
	key := f.serve(t)

	var err error
	var out string
	errText := captureStderr(t, func() {
		out = captureStdout(t, func() {
			err = Execute([]string{"--credentials", key, "read", "--spreadsheet", "sid"})
		})
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if got := ExitCode(err); got != 1 {
		t.Fatalf("expected exit 1, got %d", got)
	}
	if f.tokenCalls == 0 {
		t.Fatalf("expected a token request")
	}
	if f.listCalls != 0 || f.valuesCalls != 0 {
		t.Fatalf("expected no API calls, got %d list + %d values", f.listCalls, f.valuesCalls)
	}
	if out != "" {
		t.Fatalf("expected no stdout, got %q", out)
	}
	if !strings.Contains(errText, "Authentication failed") {
		t.Fatalf("unexpected stderr: %q", errText)
	}
}

func TestRead_MissingCredentials(t *testing.T) {
	isolateEnv(t)

	var err error
	errText := captureStderr(t, func() {
		_ = captureStdout(t, func() {
			err = Execute([]string{"read", "--spreadsheet", "sid"})
		})
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(errText, "Service account key not found") {
		t.Fatalf("unexpected stderr: %q", errText)
	}
}

func TestRead_InvalidRangeIsUsageError(t *testing.T) {
	isolateEnv(t)

	f := &fakeSheets{titles: []string{matchedTitle}}
	key := f.serve(t)

	var err error
	_ = captureStderr(t, func() {
		_ = captureStdout(t, func() {
			err = Execute([]string{"--credentials", key, "read", "--spreadsheet", "sid", "--range", "Sheet1!A1:B2"})
		})
	})
	if got := ExitCode(err); got != 2 {
		t.Fatalf("expected exit 2, got %d (%v)", got, err)
	}
	if f.tokenCalls != 0 {
		t.Fatalf("expected no token request, got %d", f.tokenCalls)
	}
}

func TestRead_WritesCSV(t *testing.T) {
	isolateEnv(t)

	f := &fakeSheets{
		titles: []string{matchedTitle},
		values: map[string][][]any{
			"'" + matchedTitle + "'!A1:Z100": {{"Name", "Score"}, {"Ann", "5"}},
		},
	}
	key := f.serve(t)
	outPath := filepath.Join(t.TempDir(), "rows.csv")

	errText := captureStderr(t, func() {
		_ = captureStdout(t, func() {
			if err := Execute([]string{"--credentials", key, "read", "--spreadsheet", "sid", "--out", outPath}); err != nil {
				t.Fatalf("Execute: %v", err)
			}
		})
	})
	if !strings.Contains(errText, "Wrote 2 rows to "+outPath) {
		t.Fatalf("unexpected stderr: %q", errText)
	}
	b, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(b) != "Name,Score\nAnn,5\n" {
		t.Fatalf("unexpected csv: %q", string(b))
	}

	var runErr error
	_ = captureStderr(t, func() {
		_ = captureStdout(t, func() {
			runErr = Execute([]string{"--credentials", key, "read", "--spreadsheet", "sid", "--out", outPath})
		})
	})
	if got := ExitCode(runErr); got != 2 {
		t.Fatalf("expected exit 2 without --force, got %d", got)
	}
}

func TestRead_ConfigFileAndEnv(t *testing.T) {
	isolateEnv(t)

	f := &fakeSheets{
		titles: []string{"Q1 Plan", "2024 Budget"},
		values: map[string][][]any{
			"'2024 Budget'!A1:C3": {{"a"}},
		},
	}
	key := f.serve(t)

	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := config.WriteConfig(cfgPath, config.File{
		SpreadsheetID:        "sid",
		TargetTitleSubstring: "Budget",
		Range:                "A1:B2",
	}); err != nil {
		t.Fatalf("WriteConfig: %v", err)
	}
	t.Setenv("SHEETPEEK_RANGE", "A1:C3")
	t.Setenv("SHEETPEEK_CREDENTIALS", key)

	var out string
	_ = captureStderr(t, func() {
		out = captureStdout(t, func() {
			if err := Execute([]string{"--config", cfgPath, "read"}); err != nil {
				t.Fatalf("Execute: %v", err)
			}
		})
	})
	if !strings.Contains(out, "Found matching sheet: 2024 Budget") || !strings.Contains(out, "[a]") {
		t.Fatalf("unexpected stdout: %q", out)
	}
	if len(f.fetched) != 1 || f.fetched[0] != "'2024 Budget'!A1:C3" {
		t.Fatalf("unexpected fetches: %#v", f.fetched)
	}
}
