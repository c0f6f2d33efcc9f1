package cmd

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/steipete/sheetpeek/internal/config"
	"github.com/steipete/sheetpeek/internal/outfmt"
	"github.com/steipete/sheetpeek/internal/ui"
)

func newConfigCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and create the config file",
	}
	cmd.AddCommand(newConfigPathCmd(flags))
	cmd.AddCommand(newConfigShowCmd(flags))
	cmd.AddCommand(newConfigInitCmd(flags))
	return cmd
}

func configFilePath(flags *rootFlags) (string, error) {
	if p := strings.TrimSpace(flags.Config); p != "" {
		return p, nil
	}
	return config.ConfigPath()
}

func newConfigPathCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := configFilePath(flags)
			if err != nil {
				return err
			}
			if outfmt.IsJSON(cmd.Context()) {
				return outfmt.WriteJSON(os.Stdout, map[string]string{"path": path})
			}
			ui.FromContext(cmd.Context()).Out().Println(path)
			return nil
		},
	}
}

func newConfigShowCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration (defaults, file, environment, flags)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := loadSettings(flags)
			if err != nil {
				return err
			}
			if outfmt.IsJSON(cmd.Context()) {
				return outfmt.WriteJSON(os.Stdout, map[string]string{
					"spreadsheet_id":  settings.SpreadsheetID,
					"target":          settings.TargetTitleSubstring,
					"default_sheet":   settings.DefaultSheetName,
					"fallback_sheet":  settings.FallbackSheetName,
					"range":           settings.Range,
					"credentials":     settings.Credentials,
					"account":         settings.Account,
					"keyring_backend": settings.KeyringBackend,
				})
			}
			enc := yaml.NewEncoder(os.Stdout)
			enc.SetIndent(2)
			if err := enc.Encode(settings); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}

func newConfigInitCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a config file populated with the defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			u := ui.FromContext(cmd.Context())

			path, err := configFilePath(flags)
			if err != nil {
				return err
			}
			if !flags.Force {
				if _, err := os.Stat(path); err == nil {
					return newUsageError(&fileExistsError{Path: path})
				}
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
				return err
			}
			if err := config.WriteConfig(path, config.Defaults()); err != nil {
				return err
			}

			if outfmt.IsJSON(cmd.Context()) {
				return outfmt.WriteJSON(os.Stdout, map[string]any{"written": true, "path": path})
			}
			u.Out().Successf("Wrote %s", path)
			return nil
		},
	}
}
