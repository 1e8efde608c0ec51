/*
Copyright © 2026 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

// Package logger provides the CLI implementation of the Logger interfaces
// accepted by cartero's library packages.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
)

// Logger writes colored diagnostics. It is safe for concurrent use.
type Logger struct {
	mu      sync.Mutex
	w       io.Writer
	verbose bool

	warn  *color.Color
	debug *color.Color
	info  *color.Color
	fail  *color.Color
}

// New creates a Logger writing to stderr.
func New(verbose bool) *Logger {
	return NewWriter(os.Stderr, verbose)
}

// NewWriter creates a Logger writing to w.
func NewWriter(w io.Writer, verbose bool) *Logger {
	return &Logger{
		w:       w,
		verbose: verbose,
		warn:    color.New(color.FgYellow),
		debug:   color.New(color.FgHiBlack),
		info:    color.New(color.FgCyan),
		fail:    color.New(color.FgRed, color.Bold),
	}
}

// Warning logs a recoverable problem.
func (l *Logger) Warning(format string, args ...any) {
	l.print(l.warn, "Warning: ", format, args...)
}

// Debug logs detail shown only in verbose mode.
func (l *Logger) Debug(format string, args ...any) {
	if !l.verbose {
		return
	}
	l.print(l.debug, "", format, args...)
}

// Info logs progress.
func (l *Logger) Info(format string, args ...any) {
	l.print(l.info, "", format, args...)
}

// Error logs a fatal problem that did not stop the process, such as a
// failed rebuild in watch mode.
func (l *Logger) Error(format string, args ...any) {
	l.print(l.fail, "Error: ", format, args...)
}

func (l *Logger) print(c *color.Color, prefix, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = c.Fprintln(l.w, prefix+fmt.Sprintf(format, args...))
}
