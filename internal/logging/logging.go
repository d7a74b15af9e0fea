// Package logging configures the process-wide structured logger. It keeps
// the singleton Init/L() shape the rest of this codebase's ancestry uses,
// backed by zerolog instead of a hand-rolled log.Logger wrapper.
package logging

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	once   sync.Once
	logger zerolog.Logger
)

// Options configures Init.
type Options struct {
	// Level is one of zerolog's level strings: "debug", "info", "warn",
	// "error". Defaults to "info" if empty or unrecognised.
	Level string
	// FilePath, if non-empty, additionally writes JSON lines to that
	// file alongside the console writer on stdout.
	FilePath string
	// Pretty selects the human-readable console writer. Production
	// binaries should leave this false to emit plain JSON.
	Pretty bool
}

// Init configures the package-level logger. Safe to call once per
// process; subsequent calls are no-ops, matching the teacher's
// InitLogger/L() singleton convention.
func Init(component string, opts Options) {
	once.Do(func() {
		level, err := zerolog.ParseLevel(opts.Level)
		if err != nil {
			level = zerolog.InfoLevel
		}
		zerolog.SetGlobalLevel(level)

		var writers []io.Writer
		if opts.Pretty {
			writers = append(writers, zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
		} else {
			writers = append(writers, os.Stdout)
		}

		if opts.FilePath != "" {
			f, err := os.OpenFile(opts.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if err == nil {
				writers = append(writers, f)
			}
		}

		var out io.Writer
		if len(writers) == 1 {
			out = writers[0]
		} else {
			out = zerolog.MultiLevelWriter(writers...)
		}

		logger = zerolog.New(out).With().
			Timestamp().
			Str("component", component).
			Int("pid", os.Getpid()).
			Logger()
	})
}

// L returns the configured logger. If Init was never called, it falls
// back to a bare stdout JSON logger at info level so library code never
// has to guard against a nil logger.
func L() *zerolog.Logger {
	once.Do(func() {
		logger = zerolog.New(os.Stdout).Level(zerolog.InfoLevel).With().Timestamp().Logger()
	})
	return &logger
}
