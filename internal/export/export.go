// Package export writes a fetched cell range to a local .xlsx, .csv or .tsv file.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/steipete/sheetpeek/internal/a1"
)

type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
	FormatTSV  Format = "tsv"
)

const maxSheetNameLen = 31

func FormatFromPath(path string) (Format, error) {
	switch ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")); ext {
	case "xlsx":
		return FormatXLSX, nil
	case "csv":
		return FormatCSV, nil
	case "tsv", "tab":
		return FormatTSV, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (expected .xlsx, .csv or .tsv)", filepath.Ext(path))
	}
}

// Write stores values at path. For .xlsx the rows keep their position from
// rangePart (e.g. "C3:D4" places the first value in C3) on a worksheet
// named after sheetName. The file is written to a temp file first and
// renamed into place.
func Write(path, sheetName, rangePart string, values [][]string) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o770); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".sheetpeek-*")
	if err != nil {
		return err
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()

	switch format {
	case FormatXLSX:
		err = writeXLSX(tmp, sheetName, rangePart, values)
	case FormatTSV:
		err = writeDelimited(tmp, '\t', values)
	default:
		err = writeDelimited(tmp, ',', values)
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", format, err)
	}

	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func writeDelimited(w io.Writer, comma rune, values [][]string) error {
	cw := csv.NewWriter(w)
	cw.Comma = comma
	if err := cw.WriteAll(values); err != nil {
		return err
	}
	return cw.Error()
}

func writeXLSX(w io.Writer, sheetName, rangePart string, values [][]string) error {
	origin, err := a1.Parse(rangePart)
	if err != nil {
		return err
	}
	startCol, startRow := origin.StartCol, origin.StartRow
	if startRow == 0 {
		startRow = 1
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	name := SheetName(sheetName)
	if err := f.SetSheetName("Sheet1", name); err != nil {
		return err
	}

	for i, row := range values {
		for j, v := range row {
			cell, err := excelize.CoordinatesToCellName(startCol+j, startRow+i)
			if err != nil {
				return err
			}
			if err := f.SetCellStr(name, cell, v); err != nil {
				return err
			}
		}
	}

	_, err = f.WriteTo(w)
	return err
}

// SheetName makes name usable as an Excel worksheet name: no []:*?/\
// characters and at most 31 runes.
func SheetName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '[', ']', ':', '*', '?', '/', '\\':
			return '_'
		}
		return r
	}, strings.Trim(strings.TrimSpace(name), "'"))

	if name == "" {
		return "Sheet1"
	}
	if runes := []rune(name); len(runes) > maxSheetNameLen {
		name = string(runes[:maxSheetNameLen])
	}
	return name
}
