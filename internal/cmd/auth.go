package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/steipete/sheetpeek/internal/googleauth"
	"github.com/steipete/sheetpeek/internal/outfmt"
	"github.com/steipete/sheetpeek/internal/secrets"
	"github.com/steipete/sheetpeek/internal/ui"
)

func newAuthCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage service account credentials",
	}
	cmd.AddCommand(newAuthImportCmd(flags))
	cmd.AddCommand(newAuthListCmd(flags))
	cmd.AddCommand(newAuthRemoveCmd(flags))
	cmd.AddCommand(newAuthStatusCmd(flags))
	return cmd
}

func newAuthImportCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "import <key.json>",
		Short: "Store a service account key in the keyring",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u := ui.FromContext(cmd.Context())

			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if _, err := googleauth.ParseServiceAccountKey(data); err != nil {
				return err
			}

			settings, err := loadSettings(flags)
			if err != nil {
				return err
			}
			if err := ensureKeychainAccess(settings.KeyringBackend); err != nil {
				return fmt.Errorf("keychain access: %w", err)
			}
			store, err := openSecretsStore(settings.KeyringBackend)
			if err != nil {
				return err
			}

			sa, err := store.SetServiceAccount(data)
			if err != nil {
				if secrets.IsKeychainLockedError(err) {
					return fmt.Errorf("store service account: keychain is locked: %w", err)
				}
				return fmt.Errorf("store service account: %w", err)
			}

			if outfmt.IsJSON(cmd.Context()) {
				return outfmt.WriteJSON(os.Stdout, map[string]any{
					"stored":     true,
					"email":      sa.Email,
					"project_id": sa.ProjectID,
				})
			}
			u.Out().Successf("Stored service account %s", sa.Email)
			u.Err().Printf("Use it with --account %s or SHEETPEEK_ACCOUNT=%s", sa.Email, sa.Email)
			return nil
		},
	}
}

func newAuthListCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored service accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			u := ui.FromContext(cmd.Context())

			settings, err := loadSettings(flags)
			if err != nil {
				return err
			}
			store, err := openSecretsStore(settings.KeyringBackend)
			if err != nil {
				return err
			}
			accounts, err := store.ListServiceAccounts()
			if err != nil {
				return err
			}

			if outfmt.IsJSON(cmd.Context()) {
				return outfmt.WriteJSON(os.Stdout, map[string]any{"accounts": accounts})
			}
			if len(accounts) == 0 {
				u.Err().Println("No service accounts stored. Run: sheetpeek auth import <key.json>")
				return nil
			}

			if outfmt.IsPlain(cmd.Context()) {
				for _, sa := range accounts {
					fmt.Fprintf(os.Stdout, "%s\t%s\t%s\n", sa.Email, sa.ProjectID, formatCreated(sa.CreatedAt))
				}
				return nil
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "EMAIL\tPROJECT\tSTORED")
			for _, sa := range accounts {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", sa.Email, sa.ProjectID, formatCreated(sa.CreatedAt))
			}
			_ = tw.Flush()
			return nil
		},
	}
}

func newAuthRemoveCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <email>",
		Short: "Remove a stored service account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u := ui.FromContext(cmd.Context())

			settings, err := loadSettings(flags)
			if err != nil {
				return err
			}
			store, err := openSecretsStore(settings.KeyringBackend)
			if err != nil {
				return err
			}
			email := strings.TrimSpace(args[0])
			if err := store.DeleteServiceAccount(email); err != nil {
				return err
			}

			if outfmt.IsJSON(cmd.Context()) {
				return outfmt.WriteJSON(os.Stdout, map[string]any{"removed": true, "email": email})
			}
			u.Out().Successf("Removed %s", email)
			return nil
		},
	}
}

func newAuthStatusCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show which credential would be used",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			u := ui.FromContext(cmd.Context())

			settings, err := loadSettings(flags)
			if err != nil {
				return err
			}
			key, src, err := loadServiceAccountKey(settings)
			if err != nil {
				return err
			}
			parsed, err := googleauth.ParseServiceAccountKey(key)
			if err != nil {
				return err
			}
			scopes, err := googleauth.Scopes(googleauth.ServiceSheets)
			if err != nil {
				return err
			}

			if outfmt.IsJSON(cmd.Context()) {
				return outfmt.WriteJSON(os.Stdout, map[string]any{
					"source":     src,
					"email":      parsed.ClientEmail,
					"project_id": parsed.ProjectID,
					"scopes":     scopes,
				})
			}

			where := src.Path
			if src.Kind == "keyring" {
				where = "keyring"
			}
			u.Out().Printf("source\t%s", where)
			u.Out().Printf("email\t%s", parsed.ClientEmail)
			u.Out().Printf("project\t%s", parsed.ProjectID)
			u.Out().Printf("scopes\t%s", strings.Join(scopes, ","))
			return nil
		},
	}
}

func formatCreated(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
