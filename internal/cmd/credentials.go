package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"google.golang.org/api/sheets/v4"

	"github.com/steipete/sheetpeek/internal/config"
	"github.com/steipete/sheetpeek/internal/googleapi"
	"github.com/steipete/sheetpeek/internal/reader"
	"github.com/steipete/sheetpeek/internal/secrets"
)

var (
	newSheetsService = func(ctx context.Context, key []byte) (*sheets.Service, error) {
		return googleapi.NewSheets(ctx, key)
	}
	openSecretsStore     = secrets.OpenDefault
	ensureKeychainAccess = secrets.EnsureKeychainAccess
)

// loadSettings layers defaults, the config file, SHEETPEEK_* variables
// (after loading ./.env) and the global flags.
func loadSettings(flags *rootFlags) (config.File, error) {
	if err := config.LoadDotEnv(); err != nil {
		return config.File{}, err
	}

	var (
		file config.File
		err  error
	)
	if strings.TrimSpace(flags.Config) != "" {
		file, err = config.ReadConfigFrom(flags.Config)
	} else {
		file, err = config.ReadConfig()
	}
	if err != nil {
		return config.File{}, err
	}

	return config.Merge(config.Defaults(), file, config.FromEnv(), config.File{
		Credentials: flags.Credentials,
		Account:     flags.Account,
	}), nil
}

type credentialSource struct {
	Kind  string `json:"kind"` // file|keyring
	Path  string `json:"path,omitempty"`
	Email string `json:"email,omitempty"`
}

// resolveCredentialSource picks, in order: an explicit key file, a keyring
// account, the key file in the config directory.
func resolveCredentialSource(settings config.File) (credentialSource, error) {
	if path := strings.TrimSpace(settings.Credentials); path != "" {
		return credentialSource{Kind: "file", Path: path}, nil
	}
	if email := strings.TrimSpace(settings.Account); email != "" {
		return credentialSource{Kind: "keyring", Email: email}, nil
	}
	path, err := config.DefaultCredentialsPath()
	if err != nil {
		return credentialSource{}, err
	}
	return credentialSource{Kind: "file", Path: path}, nil
}

func loadServiceAccountKey(settings config.File) ([]byte, credentialSource, error) {
	src, err := resolveCredentialSource(settings)
	if err != nil {
		return nil, src, err
	}

	if src.Kind == "keyring" {
		store, err := openSecretsStore(settings.KeyringBackend)
		if err != nil {
			return nil, src, fmt.Errorf("open keyring: %w", err)
		}
		sa, err := store.GetServiceAccount(src.Email)
		if err != nil {
			return nil, src, fmt.Errorf("load service account %s: %w", src.Email, err)
		}
		slog.Debug("using service account from keyring", "email", sa.Email)
		return sa.Key, src, nil
	}

	b, err := os.ReadFile(src.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, src, &config.CredentialsMissingError{Path: src.Path, Cause: err}
		}
		return nil, src, err
	}
	slog.Debug("using service account key file", "path", src.Path)
	return b, src, nil
}

func authenticate(ctx context.Context, settings config.File) (*sheets.Service, error) {
	key, _, err := loadServiceAccountKey(settings)
	if err != nil {
		return nil, &reader.AuthError{Cause: err}
	}
	svc, err := newSheetsService(ctx, key)
	if err != nil {
		return nil, &reader.AuthError{Cause: err}
	}
	return svc, nil
}

func sheetsConnector(settings config.File) reader.Connector {
	return func(ctx context.Context) (reader.Service, error) {
		svc, err := authenticate(ctx, settings)
		if err != nil {
			return nil, err
		}
		return googleapi.NewSheetsClient(svc), nil
	}
}
