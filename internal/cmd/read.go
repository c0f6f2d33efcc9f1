package cmd

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/steipete/sheetpeek/internal/config"
	"github.com/steipete/sheetpeek/internal/export"
	"github.com/steipete/sheetpeek/internal/googleapi"
	"github.com/steipete/sheetpeek/internal/outfmt"
	"github.com/steipete/sheetpeek/internal/reader"
	"github.com/steipete/sheetpeek/internal/ui"
)

func newReadCmd(flags *rootFlags) *cobra.Command {
	var over config.File
	var outPath string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "read",
		Short: "Find the target worksheet and print a range from it",
		Long: `Lists the worksheets of a spreadsheet, picks the first one whose title contains
the target text (or the default sheet name when none does), and prints the
configured range from it. If that fetch fails, the fallback sheet name is tried once.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			u := ui.FromContext(cmd.Context())

			settings, err := loadSettings(flags)
			if err != nil {
				return err
			}
			settings = config.Merge(settings, over)

			spreadsheetID, err := googleapi.ParseSpreadsheetID(settings.SpreadsheetID)
			if err != nil {
				return newUsageError(err)
			}
			if outPath != "" {
				if _, err := export.FormatFromPath(outPath); err != nil {
					return newUsageError(err)
				}
				if !flags.Force {
					if _, err := os.Stat(outPath); err == nil {
						return newUsageError(&fileExistsError{Path: outPath})
					}
				}
			}

			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			r := &reader.Reader{
				Connect: sheetsConnector(settings),
				Config: reader.Config{
					SpreadsheetID:        spreadsheetID,
					TargetTitleSubstring: settings.TargetTitleSubstring,
					DefaultSheetName:     settings.DefaultSheetName,
					FallbackSheetName:    settings.FallbackSheetName,
					Range:                settings.Range,
				},
				Out:  u.Out().Writer(),
				Diag: u.Out(),
			}
			if err := r.Config.Validate(); err != nil {
				return newUsageError(err)
			}
			if outfmt.IsJSON(cmd.Context()) {
				// stdout carries only the result document.
				r.Out = io.Discard
				r.Diag = u.Err()
			}

			res, err := r.Run(ctx)
			if err != nil {
				return err
			}

			if outPath != "" {
				if err := export.Write(outPath, res.Sheet, settings.Range, res.Values); err != nil {
					return err
				}
				u.Err().Successf("Wrote %d rows to %s", len(res.Values), outPath)
			}

			if outfmt.IsJSON(cmd.Context()) {
				if res.Values == nil {
					res.Values = [][]string{}
				}
				return outfmt.WriteJSON(os.Stdout, res)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&over.SpreadsheetID, "spreadsheet", "", "Spreadsheet ID or URL (default: config spreadsheet_id)")
	cmd.Flags().StringVar(&over.TargetTitleSubstring, "target", "", "Text the worksheet title must contain (case-sensitive)")
	cmd.Flags().StringVar(&over.DefaultSheetName, "default-sheet", "", "Worksheet used when no title matches")
	cmd.Flags().StringVar(&over.FallbackSheetName, "fallback-sheet", "", "Worksheet retried once when the first fetch fails")
	cmd.Flags().StringVar(&over.Range, "range", "", "Cell range without sheet name, e.g. A1:Z100")
	cmd.Flags().StringVar(&outPath, "out", "", "Also write the rows to a .xlsx, .csv or .tsv file")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Give up after this long (0 = no limit)")
	return cmd
}

type fileExistsError struct {
	Path string
}

func (e *fileExistsError) Error() string {
	return e.Path + " already exists (use --force to overwrite)"
}
