//go:build !darwin

package secrets

// IsKeychainLockedError is always false off macOS.
func IsKeychainLockedError(error) bool { return false }

// EnsureKeychainAccess has nothing to unlock off macOS.
func EnsureKeychainAccess(string) error { return nil }
