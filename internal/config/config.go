package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const envPrefix = "SHEETPEEK_"

// Historical defaults; every one of them can be overridden.
const (
	DefaultSpreadsheetID        = "10Ro4U_7M0w3bEw_5nunNcy6hTB64oba4q5MAwjNNJPM"
	DefaultTargetTitleSubstring = "PROMT Temp: UX"
	DefaultSheetName            = "PROMT Temp: UX Researсher" // Cyrillic "с" in "Researсher"
	DefaultFallbackSheetName    = "PROMT Temp: UX Researcher"
	DefaultRange                = "A1:Z100"
)

// File is the on-disk configuration. Empty fields mean "not set".
type File struct {
	SpreadsheetID        string `yaml:"spreadsheet_id,omitempty"`
	TargetTitleSubstring string `yaml:"target,omitempty"`
	DefaultSheetName     string `yaml:"default_sheet,omitempty"`
	FallbackSheetName    string `yaml:"fallback_sheet,omitempty"`
	Range                string `yaml:"range,omitempty"`
	Credentials          string `yaml:"credentials,omitempty"`
	Account              string `yaml:"account,omitempty"`
	KeyringBackend       string `yaml:"keyring_backend,omitempty"`
}

type CredentialsMissingError struct {
	Path  string
	Cause error
}

func (e *CredentialsMissingError) Error() string {
	return fmt.Sprintf("service account credentials missing at %s: %v", e.Path, e.Cause)
}

func (e *CredentialsMissingError) Unwrap() error {
	return e.Cause
}

func Defaults() File {
	return File{
		SpreadsheetID:        DefaultSpreadsheetID,
		TargetTitleSubstring: DefaultTargetTitleSubstring,
		DefaultSheetName:     DefaultSheetName,
		FallbackSheetName:    DefaultFallbackSheetName,
		Range:                DefaultRange,
	}
}

// ReadConfig reads the config file at the default path. A missing file is
// not an error.
func ReadConfig() (File, error) {
	path, err := ConfigPath()
	if err != nil {
		return File{}, err
	}
	cfg, err := ReadConfigFrom(path)
	if errors.Is(err, os.ErrNotExist) {
		return File{}, nil
	}
	return cfg, err
}

func ReadConfigFrom(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, err
	}
	var cfg File
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return File{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func WriteConfig(path string, cfg File) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// LoadDotEnv loads KEY=VALUE pairs from the given files (default ".env")
// into the process environment without overriding variables already set.
// Missing files are skipped.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// FromEnv reads SHEETPEEK_* variables.
func FromEnv() File {
	return File{
		SpreadsheetID:        env("SPREADSHEET"),
		TargetTitleSubstring: env("TARGET"),
		DefaultSheetName:     env("DEFAULT_SHEET"),
		FallbackSheetName:    env("FALLBACK_SHEET"),
		Range:                env("RANGE"),
		Credentials:          env("CREDENTIALS"),
		Account:              env("ACCOUNT"),
		KeyringBackend:       env("KEYRING_BACKEND"),
	}
}

// Merge returns base with every non-empty field of over applied on top.
func Merge(base File, over ...File) File {
	out := base
	for _, o := range over {
		out.SpreadsheetID = pick(out.SpreadsheetID, o.SpreadsheetID)
		out.TargetTitleSubstring = pick(out.TargetTitleSubstring, o.TargetTitleSubstring)
		out.DefaultSheetName = pick(out.DefaultSheetName, o.DefaultSheetName)
		out.FallbackSheetName = pick(out.FallbackSheetName, o.FallbackSheetName)
		out.Range = pick(out.Range, o.Range)
		out.Credentials = pick(out.Credentials, o.Credentials)
		out.Account = pick(out.Account, o.Account)
		out.KeyringBackend = pick(out.KeyringBackend, o.KeyringBackend)
	}
	return out
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(envPrefix + key))
}

func pick(cur, next string) string {
	if strings.TrimSpace(next) == "" {
		return cur
	}
	return next
}
