// Package logging configures the global slog logger for sharedclip binaries.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/pwntr/tinter"
)

// Format selects the log output format.
type Format string

const (
	FormatAuto Format = "auto"
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Options controls Setup.
type Options struct {
	Format Format
	Level  slog.Level
	// File, when set, receives a copy of every record. Colors are disabled
	// while a file is attached.
	File string
}

// ParseFormat converts a string to a Format, returning FormatAuto for unknown values.
func ParseFormat(s string) Format {
	switch strings.ToLower(s) {
	case "text", "tint", "human":
		return FormatText
	case "json":
		return FormatJSON
	default:
		return FormatAuto
	}
}

// ParseLevel converts a string to a slog.Level, defaulting to Info.
func ParseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// IsTTY reports whether w is a terminal.
func IsTTY(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// Setup configures the global slog logger writing to stderr. Call once after
// flag/viper parsing. The returned closer releases the log file, if any.
func Setup(opts Options) (io.Closer, error) {
	var (
		w      io.Writer = os.Stderr
		closer io.Closer = nopCloser{}
	)
	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		w = io.MultiWriter(os.Stderr, f)
		closer = f
	}
	slog.SetDefault(slog.New(NewHandler(w, opts.Format, opts.Level, opts.File == "" && IsTTY(os.Stderr))))
	return closer, nil
}

// NewHandler builds the handler Setup installs. tty selects the tinted
// handler for FormatAuto.
func NewHandler(w io.Writer, format Format, level slog.Level, tty bool) slog.Handler {
	useTint := format == FormatText || (format == FormatAuto && tty)
	if useTint {
		return tinter.NewHandler(w, &tinter.Options{
			Level:      level,
			TimeFormat: "15:04:05.000",
			NoColor:    !tty,
		})
	}
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
