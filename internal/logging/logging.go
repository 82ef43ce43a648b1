// Package logging builds the zap logger devrun uses for its own diagnostics.
// Relayed child output never goes through it.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

// DefaultLevel keeps plain runs quiet apart from the supervisor's own lines.
const DefaultLevel = "warn"

// Options controls logger construction.
type Options struct {
	Level  string
	Output io.Writer
	// Color enables ANSI level colours. Ignored when Output is not a file.
	Color bool
}

// ParseLevel converts a textual level into a zap level. Empty selects
// DefaultLevel.
func ParseLevel(s string) (zapcore.Level, error) {
	if strings.TrimSpace(s) == "" {
		s = DefaultLevel
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(s)))); err != nil {
		return lvl, fmt.Errorf("parse log level %q: %w", s, err)
	}
	return lvl, nil
}

// New constructs a console logger named "devrun".
func New(opts Options) (*zap.Logger, error) {
	lvl, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	if opts.Color && isTerminal(out) {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.Lock(zapcore.AddSync(out)),
		zap.NewAtomicLevelAt(lvl),
	)
	return zap.New(core).Named("devrun"), nil
}

// NewStderr constructs the default stderr logger, colouring levels when
// stderr is attached to a terminal.
func NewStderr(level string) (*zap.Logger, error) {
	return New(Options{Level: level, Output: os.Stderr, Color: true})
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
