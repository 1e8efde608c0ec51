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

// Package watch rebuilds a project as its sources change. Events are
// handed to the build one at a time; a failed rebuild is reported and the
// watcher keeps listening so that the next change can fix it.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/rotundasoftware/cartero/build"
)

// Logger reports watch progress.
type Logger interface {
	Info(format string, args ...any)
	Warning(format string, args ...any)
	Debug(format string, args ...any)
}

// Handler applies one change. *build.Builder implements it.
type Handler interface {
	HandleEvent(ctx context.Context, c build.Change) (*build.Result, error)
}

// Options configures Run.
type Options struct {
	// Ignore lists directories whose events are dropped, typically the
	// output directory.
	Ignore []string
	Logger Logger
}

// Run watches dirs recursively and feeds every change to h until ctx is
// done. It only returns early when the watcher cannot be set up.
func Run(ctx context.Context, h Handler, dirs []string, opts Options) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer w.Close()

	l := &loop{h: h, watcher: w, opts: opts}
	for _, dir := range dirs {
		if err := l.addTree(dir); err != nil {
			return err
		}
	}
	return l.run(ctx, w.Events, w.Errors)
}

type loop struct {
	h       Handler
	watcher *fsnotify.Watcher
	opts    Options
}

func (l *loop) run(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			l.handle(ctx, ev)
		case err, ok := <-errs:
			if !ok {
				return nil
			}
			l.warn("Watcher error: %v", err)
		}
	}
}

func (l *loop) handle(ctx context.Context, ev fsnotify.Event) {
	if l.ignored(ev.Name) {
		return
	}
	c, ok := translate(ev)
	if !ok {
		return
	}
	if c.Op == build.Create && l.watcher != nil {
		if info, err := os.Stat(c.Path); err == nil && info.IsDir() {
			if err := l.addTree(c.Path); err != nil {
				l.warn("%v", err)
			}
		}
	}

	l.debug("%s %s", c.Op, c.Path)
	res, err := l.h.HandleEvent(ctx, c)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		l.warn("Rebuild after %s failed: %v", c.Path, err)
		return
	}
	for _, e := range res.Events {
		l.info("%s", e)
	}
}

// translate maps a watcher event to a build change. Permission changes
// are dropped.
func translate(ev fsnotify.Event) (build.Change, bool) {
	c := build.Change{Path: filepath.Clean(ev.Name)}
	switch {
	case ev.Has(fsnotify.Remove):
		c.Op = build.Remove
	case ev.Has(fsnotify.Rename):
		c.Op = build.Rename
	case ev.Has(fsnotify.Create):
		c.Op = build.Create
	case ev.Has(fsnotify.Write):
		c.Op = build.Write
	default:
		return c, false
	}
	return c, true
}

func (l *loop) ignored(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") {
		return true
	}
	for _, dir := range l.opts.Ignore {
		if path == dir || strings.HasPrefix(path, dir+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// addTree watches dir and every directory below it. fsnotify does not
// watch recursively.
func (l *loop) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && l.ignored(path) {
			return filepath.SkipDir
		}
		if err := l.watcher.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}

func (l *loop) info(format string, args ...any) {
	if l.opts.Logger != nil {
		l.opts.Logger.Info(format, args...)
	}
}

func (l *loop) warn(format string, args ...any) {
	if l.opts.Logger != nil {
		l.opts.Logger.Warning(format, args...)
	}
}

func (l *loop) debug(format string, args ...any) {
	if l.opts.Logger != nil {
		l.opts.Logger.Debug(format, args...)
	}
}
