package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/muesli/termenv"
)

type Options struct {
	Stdout io.Writer
	Stderr io.Writer
	Color  string // auto|always|never
}

type ParseError struct {
	msg string
}

func (e *ParseError) Error() string { return e.msg }

type UI struct {
	out *Printer
	err *Printer
}

// Printer writes lines to one stream, colorizing status messages according
// to the stream's color profile.
type Printer struct {
	w       io.Writer
	profile termenv.Profile
}

type ctxKey struct{}

func New(opts Options) (*UI, error) {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	mode := strings.ToLower(strings.TrimSpace(opts.Color))
	switch mode {
	case "", "auto", "always", "never":
	default:
		return nil, &ParseError{msg: fmt.Sprintf("invalid --color %q (expected auto|always|never)", opts.Color)}
	}

	return &UI{
		out: newPrinter(opts.Stdout, mode),
		err: newPrinter(opts.Stderr, mode),
	}, nil
}

func newPrinter(w io.Writer, mode string) *Printer {
	var profile termenv.Profile
	switch mode {
	case "never":
		profile = termenv.Ascii
	case "always":
		profile = termenv.ANSI
	default:
		profile = termenv.NewOutput(w).EnvColorProfile()
	}
	return &Printer{w: w, profile: profile}
}

func (u *UI) Out() *Printer { return u.out }
func (u *UI) Err() *Printer { return u.err }

func WithUI(ctx context.Context, u *UI) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

func FromContext(ctx context.Context) *UI {
	if ctx == nil {
		return nil
	}
	u, _ := ctx.Value(ctxKey{}).(*UI)
	return u
}

func (p *Printer) Writer() io.Writer { return p.w }

func (p *Printer) Println(msg string) {
	_, _ = fmt.Fprintln(p.w, msg)
}

func (p *Printer) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(p.w, format+"\n", args...)
}

func (p *Printer) Successf(format string, args ...any) {
	p.Println(p.colorize(fmt.Sprintf(format, args...), "2"))
}

func (p *Printer) Warn(msg string) {
	p.Println(p.colorize("Warning: "+msg, "3"))
}

func (p *Printer) Error(msg string) {
	p.Println(p.colorize(msg, "1"))
}

func (p *Printer) colorize(s, ansi string) string {
	if p.profile == termenv.Ascii {
		return s
	}
	return p.profile.String(s).Foreground(p.profile.Color(ansi)).String()
}
