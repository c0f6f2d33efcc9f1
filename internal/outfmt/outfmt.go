package outfmt

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"
)

type Mode struct {
	JSON  bool
	Plain bool
}

type ParseError struct {
	msg string
}

func (e *ParseError) Error() string { return e.msg }

type ctxKey struct{}

func FromFlags(jsonOut bool, plain bool) (Mode, error) {
	if jsonOut && plain {
		return Mode{}, &ParseError{msg: "--json and --plain are mutually exclusive"}
	}
	return Mode{JSON: jsonOut, Plain: plain}, nil
}

// FromEnv reads SHEETPEEK_JSON / SHEETPEEK_PLAIN (1/true/yes).
func FromEnv() Mode {
	return Mode{
		JSON:  envBool("SHEETPEEK_JSON"),
		Plain: envBool("SHEETPEEK_PLAIN"),
	}
}

func WithMode(ctx context.Context, mode Mode) context.Context {
	return context.WithValue(ctx, ctxKey{}, mode)
}

func FromContext(ctx context.Context) Mode {
	if ctx == nil {
		return Mode{}
	}
	if m, ok := ctx.Value(ctxKey{}).(Mode); ok {
		return m
	}
	return Mode{}
}

func IsJSON(ctx context.Context) bool  { return FromContext(ctx).JSON }
func IsPlain(ctx context.Context) bool { return FromContext(ctx).Plain }

func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envBool(key string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}
