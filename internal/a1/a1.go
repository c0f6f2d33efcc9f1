// Package a1 parses and builds A1-notation range expressions.
package a1

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Range is a parsed A1 range. Columns and rows are 1-based. Zero rows mean
// whole columns ("A:Z"); a zero EndRow alone means the range runs to the
// last row ("A2:Z").
type Range struct {
	SheetName        string
	StartRow, EndRow int
	StartCol, EndCol int
}

var (
	cellRe   = regexp.MustCompile(`^([A-Za-z]+)([0-9]+)$`)
	columnRe = regexp.MustCompile(`^([A-Za-z]+)$`)
)

func Parse(a1 string) (Range, error) {
	raw := strings.TrimSpace(a1)
	if raw == "" {
		return Range{}, fmt.Errorf("empty A1 range")
	}

	sheetName, rangePart, err := splitSheet(raw)
	if err != nil {
		return Range{}, err
	}
	if strings.TrimSpace(rangePart) == "" {
		return Range{}, fmt.Errorf("missing range in %q", raw)
	}

	rangePart = strings.ReplaceAll(rangePart, "$", "")
	parts := strings.Split(rangePart, ":")
	if len(parts) > 2 {
		return Range{}, fmt.Errorf("invalid A1 range %q", raw)
	}

	startRef := strings.TrimSpace(parts[0])
	endRef := startRef
	if len(parts) == 2 {
		endRef = strings.TrimSpace(parts[1])
	}

	startCol, startRow, err := parseRef(startRef)
	if err != nil {
		return Range{}, err
	}
	endCol, endRow, err := parseRef(endRef)
	if err != nil {
		return Range{}, err
	}
	if startRow == 0 && endRow != 0 {
		return Range{}, fmt.Errorf("invalid A1 range %q: column start with a row-bounded end", raw)
	}

	if endRow != 0 && endRow < startRow {
		startRow, endRow = endRow, startRow
	}
	if endCol < startCol {
		startCol, endCol = endCol, startCol
	}

	return Range{
		SheetName: sheetName,
		StartRow:  startRow,
		EndRow:    endRow,
		StartCol:  startCol,
		EndCol:    endCol,
	}, nil
}

// Expr joins a worksheet name and a sheet-less range into the quoted form
// the Sheets API expects, e.g. 'My Sheet'!A1:B2.
func Expr(sheetName, rangePart string) string {
	return QuoteSheetName(sheetName) + "!" + strings.TrimSpace(rangePart)
}

func QuoteSheetName(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

func splitSheet(a1 string) (string, string, error) {
	idx := strings.LastIndex(a1, "!")
	if idx == -1 {
		return "", a1, nil
	}

	sheetPart := strings.TrimSpace(a1[:idx])
	rangePart := strings.TrimSpace(a1[idx+1:])
	if sheetPart == "" || rangePart == "" {
		return "", "", fmt.Errorf("invalid A1 range %q", a1)
	}

	sheetName, err := unquoteSheetName(sheetPart)
	if err != nil {
		return "", "", err
	}
	return sheetName, rangePart, nil
}

func unquoteSheetName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("empty sheet name")
	}
	if strings.HasPrefix(name, "'") {
		if !strings.HasSuffix(name, "'") || len(name) < 2 {
			return "", fmt.Errorf("invalid sheet name %q", name)
		}
		inner := name[1 : len(name)-1]
		return strings.ReplaceAll(inner, "''", "'"), nil
	}
	return name, nil
}

func parseRef(ref string) (int, int, error) {
	if m := columnRe.FindStringSubmatch(ref); m != nil {
		col, err := ColumnIndex(m[1])
		return col, 0, err
	}

	matches := cellRe.FindStringSubmatch(ref)
	if matches == nil {
		return 0, 0, fmt.Errorf("invalid A1 cell %q", ref)
	}

	col, err := ColumnIndex(matches[1])
	if err != nil {
		return 0, 0, err
	}
	row, err := strconv.Atoi(matches[2])
	if err != nil || row <= 0 {
		return 0, 0, fmt.Errorf("invalid row in %q", ref)
	}
	return col, row, nil
}

// ColumnIndex converts column letters to a 1-based index ("A" -> 1, "AA" -> 27).
func ColumnIndex(letters string) (int, error) {
	letters = strings.ToUpper(strings.TrimSpace(letters))
	if letters == "" {
		return 0, fmt.Errorf("empty column")
	}

	col := 0
	for i := 0; i < len(letters); i++ {
		ch := letters[i]
		if ch < 'A' || ch > 'Z' {
			return 0, fmt.Errorf("invalid column %q", letters)
		}
		col = col*26 + int(ch-'A'+1)
	}
	return col, nil
}
