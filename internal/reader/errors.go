package reader

import (
	"fmt"
)

const (
	OpListWorksheets = "list worksheets"
	OpFetchRange     = "fetch range"
)

// AuthError means the credential could not be loaded or was rejected.
// It is never retried.
type AuthError struct {
	Cause error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed: %v", e.Cause)
}

func (e *AuthError) Unwrap() error {
	return e.Cause
}

// RemoteError is any failure reported by the spreadsheet service.
type RemoteError struct {
	Op    string
	Sheet string
	Cause error
}

func (e *RemoteError) Error() string {
	if e.Sheet == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Cause)
	}
	return fmt.Sprintf("%s %q: %v", e.Op, e.Sheet, e.Cause)
}

func (e *RemoteError) Unwrap() error {
	return e.Cause
}
