package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/steipete/sheetpeek/internal/a1"
	"github.com/steipete/sheetpeek/internal/googleapi"
	"github.com/steipete/sheetpeek/internal/outfmt"
	"github.com/steipete/sheetpeek/internal/reader"
	"github.com/steipete/sheetpeek/internal/ui"
)

func newSheetsCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sheets",
		Short: "Raw worksheet access",
	}
	cmd.AddCommand(newSheetsListCmd(flags))
	cmd.AddCommand(newSheetsGetCmd(flags))
	return cmd
}

func newSheetsListCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list <spreadsheet>",
		Short: "List worksheet titles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u := ui.FromContext(cmd.Context())

			spreadsheetID, err := googleapi.ParseSpreadsheetID(args[0])
			if err != nil {
				return newUsageError(err)
			}
			settings, err := loadSettings(flags)
			if err != nil {
				return err
			}

			svc, err := authenticate(cmd.Context(), settings)
			if err != nil {
				return err
			}

			titles, err := googleapi.NewSheetsClient(svc).ListTitles(cmd.Context(), spreadsheetID)
			if err != nil {
				return &reader.RemoteError{Op: reader.OpListWorksheets, Cause: err}
			}

			if outfmt.IsJSON(cmd.Context()) {
				if titles == nil {
					titles = []string{}
				}
				return outfmt.WriteJSON(os.Stdout, map[string]any{
					"spreadsheet_id": spreadsheetID,
					"sheets":         titles,
				})
			}

			if len(titles) == 0 {
				u.Err().Println("No worksheets found")
				return nil
			}
			for _, title := range titles {
				u.Out().Println(title)
			}
			return nil
		},
	}
}

func newSheetsGetCmd(flags *rootFlags) *cobra.Command {
	var majorDimension string
	var valueRenderOption string

	cmd := &cobra.Command{
		Use:   "get <spreadsheet> <range>",
		Short: "Get values from a range",
		Long:  "Get values from a specified range in a Google Sheets spreadsheet.\nExample: sheetpeek sheets get 1BxiMVs0XRA5nFMdKvBdBZjgmUUqptlbs74OgvE2upms 'Sheet1!A1:B10'",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			u := ui.FromContext(cmd.Context())

			spreadsheetID, err := googleapi.ParseSpreadsheetID(args[0])
			if err != nil {
				return newUsageError(err)
			}
			rangeSpec := strings.TrimSpace(args[1])
			parsed, err := a1.Parse(rangeSpec)
			if err != nil {
				return newUsageError(err)
			}
			if parsed.SheetName != "" {
				// Re-quote so names with spaces or punctuation need no shell gymnastics.
				rangeSpec = a1.Expr(parsed.SheetName, rangeSpec[strings.LastIndex(rangeSpec, "!")+1:])
			}

			settings, err := loadSettings(flags)
			if err != nil {
				return err
			}
			svc, err := authenticate(cmd.Context(), settings)
			if err != nil {
				return err
			}

			call := svc.Spreadsheets.Values.Get(spreadsheetID, rangeSpec)
			if majorDimension != "" {
				call = call.MajorDimension(strings.ToUpper(majorDimension))
			}
			if valueRenderOption != "" {
				call = call.ValueRenderOption(strings.ToUpper(valueRenderOption))
			}

			resp, err := call.Context(cmd.Context()).Do()
			if err != nil {
				return &reader.RemoteError{Op: reader.OpFetchRange, Sheet: parsed.SheetName, Cause: err}
			}
			values := googleapi.StringValues(resp.Values)

			if outfmt.IsJSON(cmd.Context()) {
				return outfmt.WriteJSON(os.Stdout, map[string]any{
					"range":  resp.Range,
					"values": values,
				})
			}

			if len(values) == 0 {
				u.Err().Println("No data found")
				return nil
			}

			if outfmt.IsPlain(cmd.Context()) {
				for _, row := range values {
					fmt.Fprintln(os.Stdout, strings.Join(row, "\t"))
				}
				return nil
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			for _, row := range values {
				fmt.Fprintln(tw, strings.Join(row, "\t"))
			}
			_ = tw.Flush()
			return nil
		},
	}

	cmd.Flags().StringVar(&majorDimension, "dimension", "", "Major dimension: ROWS or COLUMNS")
	cmd.Flags().StringVar(&valueRenderOption, "render", "", "Value render option: FORMATTED_VALUE, UNFORMATTED_VALUE, or FORMULA")
	return cmd
}
