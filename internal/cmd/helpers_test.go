package cmd

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/99designs/keyring"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/steipete/sheetpeek/internal/googleapi"
	"github.com/steipete/sheetpeek/internal/secrets"
	"github.com/steipete/sheetpeek/internal/testutil"
)

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	return captureFile(t, &os.Stdout, fn)
}

func captureStderr(t *testing.T, fn func()) string {
	t.Helper()
	return captureFile(t, &os.Stderr, fn)
}

func captureFile(t *testing.T, target **os.File, fn func()) string {
	t.Helper()

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	orig := *target
	*target = w

	done := make(chan string)
	go func() {
		b, _ := io.ReadAll(r)
		done <- string(b)
	}()

	defer func() {
		*target = orig
	}()
	fn()
	_ = w.Close()
	return <-done
}

// isolateEnv points config lookups at an empty temp dir and clears
// SHEETPEEK_* variables that would leak into a run.
func isolateEnv(t *testing.T) string {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, "xdg-config"))
	for _, k := range []string{
		"SPREADSHEET", "TARGET", "DEFAULT_SHEET", "FALLBACK_SHEET", "RANGE",
		"CREDENTIALS", "ACCOUNT", "KEYRING_BACKEND", "JSON", "PLAIN", "COLOR",
	} {
		t.Setenv("SHEETPEEK_"+k, "")
	}
	return home
}

type fakeSheets struct {
	titles      []string
	values      map[string][][]any
	rejectToken bool
	stallValues time.Duration

	tokenCalls  int32
	listCalls   int32
	valuesCalls int32
	fetched     []string
}

// serve starts a fake OAuth token endpoint + Sheets API and routes
// newSheetsService to it. It returns the path of a matching key file.
func (f *fakeSheets) serve(t *testing.T) string {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if r.URL.Path == "/token" {
			atomic.AddInt32(&f.tokenCalls, 1)
			if f.rejectToken {
				w.WriteHeader(http.StatusBadRequest)
				_ = json.NewEncoder(w).Encode(map[string]any{"error": "invalid_grant", "error_description": "Invalid JWT Signature."})
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "token_type": "Bearer", "expires_in": 3600})
			return
		}

		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"code": 401, "message": "unauthenticated"}})
			return
		}

		const prefix = "/v4/spreadsheets/sid"
		switch {
		case r.URL.Path == prefix:
			atomic.AddInt32(&f.listCalls, 1)
			sheetsList := make([]map[string]any, 0, len(f.titles))
			for _, title := range f.titles {
				sheetsList = append(sheetsList, map[string]any{"properties": map[string]any{"title": title}})
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"sheets": sheetsList})
		case strings.HasPrefix(r.URL.Path, prefix+"/values/"):
			atomic.AddInt32(&f.valuesCalls, 1)
			if f.stallValues > 0 {
				select {
				case <-r.Context().Done():
				case <-time.After(f.stallValues):
				}
				w.WriteHeader(http.StatusGatewayTimeout)
				return
			}
			rng := strings.TrimPrefix(r.URL.Path, prefix+"/values/")
			f.fetched = append(f.fetched, rng)
			values, ok := f.values[rng]
			if !ok {
				w.WriteHeader(http.StatusBadRequest)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"error": map[string]any{
						"code":    400,
						"message": "Unable to parse range: " + rng,
						"errors":  []map[string]any{{"reason": "badRequest", "message": "Unable to parse range"}},
					},
				})
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"range": rng, "values": values})
		default:
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"code": 404, "message": "Requested entity was not found."}})
		}
	}))
	t.Cleanup(srv.Close)

	origNew := newSheetsService
	t.Cleanup(func() { newSheetsService = origNew })
	newSheetsService = func(ctx context.Context, key []byte) (*sheets.Service, error) {
		return googleapi.NewSheets(ctx, key, option.WithEndpoint(srv.URL+"/"))
	}

	return testutil.WriteServiceAccount(t, srv.URL+"/token")
}

func useMemSecretsStore(t *testing.T) secrets.Store {
	t.Helper()

	origOpen := openSecretsStore
	origKeychain := ensureKeychainAccess
	t.Cleanup(func() {
		openSecretsStore = origOpen
		ensureKeychainAccess = origKeychain
	})

	store := secrets.NewKeyringStore(keyring.NewArrayKeyring(nil))
	openSecretsStore = func(string) (secrets.Store, error) { return store, nil }
	ensureKeychainAccess = func(string) error { return nil }
	return store
}

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
