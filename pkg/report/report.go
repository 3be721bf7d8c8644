// Package report prints operator-facing progress messages and the run
// summary. Every message is also logged through zerolog so the log file
// holds the full transcript of a run.
package report

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
	"github.com/pterm/pterm"
	"github.com/rs/zerolog"

	"github.com/ngc-omeka/omeka-dist/pkg/logging"
)

// Level classifies a message
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelNote
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelNote:
		return "note"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Reporter receives progress messages from the pipeline stages
type Reporter interface {
	Info(format string, args ...interface{})
	Success(format string, args ...interface{})
	Note(format string, args ...interface{})
	Warning(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// Console writes messages to a terminal using pterm prefix printers, or as
// plain lines when color is disabled
type Console struct {
	w       io.Writer
	noColor bool
	logger  zerolog.Logger

	info    *pterm.PrefixPrinter
	success *pterm.PrefixPrinter
	note    *pterm.PrefixPrinter
	warning *pterm.PrefixPrinter
	err     *pterm.PrefixPrinter
}

// NewConsole creates a console reporter writing to w
func NewConsole(w io.Writer, noColor bool) *Console {
	notePrinter := pterm.PrefixPrinter{
		MessageStyle: &pterm.ThemeDefault.DefaultText,
		Prefix: pterm.Prefix{
			Text:  " NOTE  ",
			Style: pterm.NewStyle(pterm.BgGray, pterm.FgLightWhite),
		},
	}

	return &Console{
		w:       w,
		noColor: noColor,
		logger:  logging.GetLogger("report"),
		info:    pterm.Info.WithWriter(w),
		success: pterm.Success.WithWriter(w),
		note:    notePrinter.WithWriter(w),
		warning: pterm.Warning.WithWriter(w),
		err:     pterm.Error.WithWriter(w),
	}
}

// NewStdout creates a console on stdout with color detected from the
// terminal and NO_COLOR
func NewStdout() *Console {
	return NewConsole(os.Stdout, !ColorEnabled(os.Stdout))
}

// ColorEnabled reports whether styled output should be written to f
func ColorEnabled(f *os.File) bool {
	if termenv.EnvNoColor() {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (c *Console) Info(format string, args ...interface{}) {
	c.emit(LevelInfo, c.info, format, args...)
}

func (c *Console) Success(format string, args ...interface{}) {
	c.emit(LevelSuccess, c.success, format, args...)
}

func (c *Console) Note(format string, args ...interface{}) {
	c.emit(LevelNote, c.note, format, args...)
}

func (c *Console) Warning(format string, args ...interface{}) {
	c.emit(LevelWarning, c.warning, format, args...)
}

func (c *Console) Error(format string, args ...interface{}) {
	c.emit(LevelError, c.err, format, args...)
}

func (c *Console) emit(level Level, printer *pterm.PrefixPrinter, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	logMessage(c.logger, level, msg)

	if c.noColor {
		if level == LevelInfo {
			fmt.Fprintln(c.w, msg)
			return
		}
		fmt.Fprintf(c.w, "%s: %s\n", strings.ToUpper(level.String()), msg)
		return
	}
	printer.Println(msg)
}

func logMessage(logger zerolog.Logger, level Level, msg string) {
	switch level {
	case LevelWarning:
		logger.Warn().Msg(msg)
	case LevelError:
		logger.Error().Msg(msg)
	default:
		logger.Info().Str("level_hint", level.String()).Msg(msg)
	}
}

// Message is one recorded report line
type Message struct {
	Level Level
	Text  string
}

// Recorder keeps messages in memory. It is used by tests and by callers
// that render messages later.
type Recorder struct {
	Messages []Message
}

func (r *Recorder) add(level Level, format string, args ...interface{}) {
	r.Messages = append(r.Messages, Message{Level: level, Text: fmt.Sprintf(format, args...)})
}

func (r *Recorder) Info(format string, args ...interface{})    { r.add(LevelInfo, format, args...) }
func (r *Recorder) Success(format string, args ...interface{}) { r.add(LevelSuccess, format, args...) }
func (r *Recorder) Note(format string, args ...interface{})    { r.add(LevelNote, format, args...) }
func (r *Recorder) Warning(format string, args ...interface{}) { r.add(LevelWarning, format, args...) }
func (r *Recorder) Error(format string, args ...interface{})   { r.add(LevelError, format, args...) }

// Texts returns the text of every message at level
func (r *Recorder) Texts(level Level) []string {
	var out []string
	for _, m := range r.Messages {
		if m.Level == level {
			out = append(out, m.Text)
		}
	}
	return out
}

// Discard drops every message
type Discard struct{}

func (Discard) Info(string, ...interface{})    {}
func (Discard) Success(string, ...interface{}) {}
func (Discard) Note(string, ...interface{})    {}
func (Discard) Warning(string, ...interface{}) {}
func (Discard) Error(string, ...interface{})   {}
