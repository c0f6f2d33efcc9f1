package errfmt

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/99designs/keyring"
	"golang.org/x/oauth2"
	ggoogleapi "google.golang.org/api/googleapi"

	"github.com/steipete/sheetpeek/internal/config"
	"github.com/steipete/sheetpeek/internal/reader"
)

func Format(err error) string {
	if err == nil {
		return ""
	}

	var credErr *config.CredentialsMissingError
	if errors.As(err, &credErr) {
		return fmt.Sprintf("Service account key not found at %s. Pass --credentials <key.json>, or run: sheetpeek auth import <key.json>", credErr.Path)
	}

	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "Service account not found in keyring. Run: sheetpeek auth import <key.json>"
	}

	var authErr *reader.AuthError
	if errors.As(err, &authErr) {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			reason := retrieveErr.ErrorCode
			if reason == "" {
				reason = strings.TrimSpace(string(retrieveErr.Body))
			}
			return fmt.Sprintf("Authentication failed: token request rejected (%s)", reason)
		}
		return fmt.Sprintf("Authentication failed: %s", authErr.Cause)
	}

	if errors.Is(err, os.ErrNotExist) {
		return err.Error()
	}

	var gerr *ggoogleapi.Error
	if errors.As(err, &gerr) {
		prefix := ""
		var remoteErr *reader.RemoteError
		if errors.As(err, &remoteErr) {
			prefix = remoteErr.Op
			if remoteErr.Sheet != "" {
				prefix += fmt.Sprintf(" %q", remoteErr.Sheet)
			}
			prefix += ": "
		}

		reason := ""
		if len(gerr.Errors) > 0 && gerr.Errors[0].Reason != "" {
			reason = gerr.Errors[0].Reason
		}

		if reason != "" {
			return fmt.Sprintf("%sGoogle API error (%d %s): %s", prefix, gerr.Code, reason, gerr.Message)
		}

		return fmt.Sprintf("%sGoogle API error (%d): %s", prefix, gerr.Code, gerr.Message)
	}

	return err.Error()
}
