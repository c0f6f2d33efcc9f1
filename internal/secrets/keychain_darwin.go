//go:build darwin

package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"

	"golang.org/x/term"
)

// errSecInteractionNotAllowed (-25308) is what the Security framework
// returns when the login keychain is locked and cannot prompt.
const errSecInteractionNotAllowed = "-25308"

var (
	errNoLoginKeychain = errors.New("cannot determine login keychain path")
	errLockedNoTTY     = errors.New("login keychain is locked and stdin is not a terminal")
	errUnlockFailed    = errors.New("unlock login keychain: wrong password or keychain error")
)

// IsKeychainLockedError reports whether err came from a locked login keychain.
func IsKeychainLockedError(err error) bool {
	return err != nil && strings.Contains(err.Error(), errSecInteractionNotAllowed)
}

// EnsureKeychainAccess unlocks the login keychain before a write when the
// configured backend may resolve to it. Other backends are left alone.
func EnsureKeychainAccess(backend string) error {
	switch normalize(backend) {
	case "", "auto", "keychain":
	default:
		return nil
	}

	path := loginKeychainPath()
	if path == "" {
		return errNoLoginKeychain
	}
	if !keychainLocked(path) {
		return nil
	}
	if !term.IsTerminal(int(syscall.Stdin)) {
		return fmt.Errorf("%w; run: security unlock-keychain %s", errLockedNoTTY, path)
	}

	fmt.Fprint(os.Stderr, "Login keychain is locked. macOS password: ")
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}
	return unlockKeychain(path, password)
}

func loginKeychainPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, "Library", "Keychains", "login.keychain-db")
}

// keychainLocked treats any failure of show-keychain-info as locked.
func keychainLocked(path string) bool {
	return exec.CommandContext(context.Background(), "security", "show-keychain-info", path).Run() != nil //nolint:gosec // path derives from the home dir
}

func unlockKeychain(path string, password []byte) error {
	// stdin keeps the password out of the process list.
	cmd := exec.CommandContext(context.Background(), "security", "unlock-keychain", path) //nolint:gosec // path derives from the home dir
	cmd.Stdin = strings.NewReader(string(password) + "\n")
	if err := cmd.Run(); err != nil {
		return errUnlockFailed
	}
	return nil
}
