package logutils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// Options configures New.
type Options struct {
	// Level is one of: trace, debug, info, warn, error, fatal.
	Level string
	// File receives JSON lines, appended across runs. Empty means stdout.
	File string
	// Version is attached to every entry when set.
	Version string
}

// New returns a logger for opts and a func that releases the log file.
// Stdout output switches to the human readable console format when stdout
// is a terminal.
func New(opts Options) (zerolog.Logger, func(), error) {
	closer := func() {}

	level := opts.Level
	if level == "" {
		level = zerolog.InfoLevel.String()
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Logger{}, closer, fmt.Errorf("parse log level: %w", err)
	}

	var writer io.Writer
	switch {
	case opts.File != "":
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return zerolog.Logger{}, closer, fmt.Errorf("create logs dir: %w", err)
		}

		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return zerolog.Logger{}, closer, fmt.Errorf("open log file: %w", err)
		}
		closer = func() { _ = f.Close() }
		writer = f
	case term.IsTerminal(int(os.Stdout.Fd())):
		writer = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	default:
		writer = os.Stdout
	}

	lc := zerolog.New(writer).With().Timestamp()
	if opts.Version != "" {
		lc = lc.Str("version", opts.Version)
	}

	return lc.Logger().Level(lvl), closer, nil
}
