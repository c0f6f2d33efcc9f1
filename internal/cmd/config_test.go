package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/steipete/sheetpeek/internal/config"
)

func TestConfigInitAndShow(t *testing.T) {
	isolateEnv(t)

	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	_ = captureStdout(t, func() {
		_ = captureStderr(t, func() {
			if err := Execute([]string{"--config", path, "config", "init"}); err != nil {
				t.Fatalf("init: %v", err)
			}
		})
	})
	cfg, err := config.ReadConfigFrom(path)
	if err != nil {
		t.Fatalf("ReadConfigFrom: %v", err)
	}
	if cfg != config.Defaults() {
		t.Fatalf("unexpected config: %#v", cfg)
	}

	var initErr error
	_ = captureStdout(t, func() {
		_ = captureStderr(t, func() {
			initErr = Execute([]string{"--config", path, "config", "init"})
		})
	})
	if ExitCode(initErr) != 2 {
		t.Fatalf("expected exit 2 for existing file, got %v", initErr)
	}

	t.Setenv("SHEETPEEK_TARGET", "Budget")
	out := captureStdout(t, func() {
		_ = captureStderr(t, func() {
			if err := Execute([]string{"--config", path, "config", "show"}); err != nil {
				t.Fatalf("show: %v", err)
			}
		})
	})
	if !strings.Contains(out, "target: Budget") || !strings.Contains(out, "A1:Z100") {
		t.Fatalf("unexpected show output: %q", out)
	}
}

func TestConfigPath(t *testing.T) {
	home := isolateEnv(t)

	out := captureStdout(t, func() {
		_ = captureStderr(t, func() {
			if err := Execute([]string{"config", "path"}); err != nil {
				t.Fatalf("path: %v", err)
			}
		})
	})
	want := filepath.Join(home, "xdg-config", config.AppName, "config.yaml")
	if strings.TrimSpace(out) != want {
		t.Fatalf("unexpected path: %q want %q", out, want)
	}
	if _, err := os.Stat(want); err == nil {
		t.Fatalf("path should not create the file")
	}
}
