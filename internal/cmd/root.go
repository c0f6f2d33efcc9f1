package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/steipete/sheetpeek/internal/config"
	"github.com/steipete/sheetpeek/internal/errfmt"
	"github.com/steipete/sheetpeek/internal/outfmt"
	"github.com/steipete/sheetpeek/internal/ui"
)

type rootFlags struct {
	Color       string
	Account     string
	Credentials string
	Config      string
	JSON        bool
	Plain       bool
	Force       bool
	Verbose     bool
}

func Execute(args []string) error {
	flags := rootFlags{Color: envOr("SHEETPEEK_COLOR", "auto")}
	envMode := outfmt.FromEnv()
	flags.JSON = envMode.JSON
	flags.Plain = envMode.Plain

	// Avoid dangerous prefix-matching for commands (future-proofing).
	cobra.EnablePrefixMatching = false

	if hasExactArg(args, "--version") {
		fmt.Fprintln(os.Stdout, VersionString())
		return nil
	}

	root := &cobra.Command{
		Use:           "sheetpeek",
		Short:         "Google Sheets reader for service accounts",
		Long:          rootLong(),
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		Example: strings.TrimSpace(`
  # One-time setup
  sheetpeek auth import ~/Downloads/service-account-key.json
  export SHEETPEEK_ACCOUNT=reader@project.iam.gserviceaccount.com

  # Or point at a key file directly
  sheetpeek --credentials ./service-account-key.json read

  # Find the worksheet whose title contains "Temp: UX" and print A1:Z100
  sheetpeek read --spreadsheet <spreadsheetId> --target 'Temp: UX' --range A1:Z100

  # Save the same range locally
  sheetpeek read --out ./ux.xlsx

  # Raw access
  sheetpeek sheets list <spreadsheetId>
  sheetpeek sheets get <spreadsheetId> 'Sheet1!A1:C10'

  # Parseable output
  sheetpeek --json read | jq .values
`),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logLevel := slog.LevelWarn
			if flags.Verbose {
				logLevel = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: logLevel,
			})))

			mode, err := outfmt.FromFlags(flags.JSON, flags.Plain)
			if err != nil {
				return err
			}
			cmd.SetContext(outfmt.WithMode(cmd.Context(), mode))

			u, err := ui.New(ui.Options{
				Stdout: os.Stdout,
				Stderr: os.Stderr,
				Color: func() string {
					if outfmt.IsJSON(cmd.Context()) || outfmt.IsPlain(cmd.Context()) {
						return "never"
					}
					return flags.Color
				}(),
			})
			if err != nil {
				return err
			}
			cmd.SetContext(ui.WithUI(cmd.Context(), u))
			return nil
		},
	}

	root.SetArgs(args)
	root.PersistentFlags().StringVar(&flags.Color, "color", flags.Color, "Color output: auto|always|never")
	root.PersistentFlags().StringVar(&flags.Account, "account", "", "Service account email of a key stored with 'auth import'")
	root.PersistentFlags().StringVar(&flags.Credentials, "credentials", "", "Path to a service account key file (overrides --account)")
	root.PersistentFlags().StringVar(&flags.Config, "config", "", "Config file (default: "+configPathHint()+")")
	root.PersistentFlags().BoolVar(&flags.JSON, "json", flags.JSON, "Output JSON to stdout (best for scripting)")
	root.PersistentFlags().BoolVar(&flags.Plain, "plain", flags.Plain, "Output stable, parseable text to stdout (TSV; no colors)")
	root.PersistentFlags().BoolVar(&flags.Force, "force", false, "Overwrite existing files")
	root.PersistentFlags().BoolVar(&flags.Verbose, "verbose", false, "Enable verbose logging")

	root.AddCommand(newReadCmd(&flags))
	root.AddCommand(newSheetsCmd(&flags))
	root.AddCommand(newAuthCmd(&flags))
	root.AddCommand(newConfigCmd(&flags))
	root.AddCommand(newVersionCmd())

	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		// pflag already includes helpful context ("unknown flag", "invalid argument", ...).
		return newUsageError(err)
	})
	root.AddCommand(newCompletionCmd())

	err := root.Execute()
	if err == nil {
		return nil
	}
	if errors.Is(err, pflag.ErrHelp) {
		return nil
	}

	if ExitCode(err) == 1 && isUsageError(err) {
		err = &ExitError{Code: 2, Err: err}
	}

	if u := ui.FromContext(root.Context()); u != nil {
		u.Err().Error(errfmt.Format(err))
		return err
	}
	_, _ = fmt.Fprintln(os.Stderr, errfmt.Format(err))
	return err
}

func rootLong() string {
	backend := envOr("SHEETPEEK_KEYRING_BACKEND", "auto")
	return strings.TrimSpace(fmt.Sprintf(`
Reads a range of cells from a Google Sheets worksheet using a service account.

Config file: %s
Keyring backend: %s (set keyring_backend in config.yaml or SHEETPEEK_KEYRING_BACKEND)
`, configPathHint(), backend))
}

func configPathHint() string {
	path, err := config.ConfigPath()
	if err != nil {
		return "config.yaml"
	}
	return path
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func hasExactArg(args []string, target string) bool {
	for _, a := range args {
		if a == target {
			return true
		}
	}
	return false
}

// newUsageError wraps errors in a way main() can map to exit code 2.
func newUsageError(err error) error {
	if err == nil {
		return nil
	}
	// Preserve pflag.ErrHelp (should not be treated as failure).
	if errors.Is(err, pflag.ErrHelp) {
		return err
	}
	return &ExitError{Code: 2, Err: err}
}

func isUsageError(err error) bool {
	var outErr *outfmt.ParseError
	if errors.As(err, &outErr) {
		return true
	}
	var uiErr *ui.ParseError
	if errors.As(err, &uiErr) {
		return true
	}
	msg := strings.TrimSpace(err.Error())
	switch {
	case strings.HasPrefix(msg, "accepts "),
		strings.HasPrefix(msg, "requires "),
		strings.HasPrefix(msg, "unknown command"),
		strings.HasPrefix(msg, "invalid argument"),
		strings.HasPrefix(msg, "unknown flag"),
		strings.HasPrefix(msg, "unknown shorthand flag"):
		return true
	default:
		return false
	}
}
