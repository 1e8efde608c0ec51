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

// Package merge concatenates the resolved files of kept-separate bundles
// into one content-addressed output file per asset type.
//
// Merging happens in two stages. MergeFiles decides membership and names
// each merged file with a hash of its ordered source paths. That name is a
// placeholder: BuildCombinedFiles reads the sources, hashes the
// concatenated content and writes the file under its final name. Records
// are cached by path-set hash for the lifetime of the Engine, so a bundle
// whose membership is unchanged is never concatenated twice unless one of
// its sources was invalidated.
package merge

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rotundasoftware/cartero/asset"
	"github.com/rotundasoftware/cartero/bundle"
	"github.com/rotundasoftware/cartero/fs"
)

// ReadFunc returns the content of a constituent source file, after any
// pre-processing or rewriting.
type ReadFunc func(ctx context.Context, path string) ([]byte, error)

// Record is one cached merged file.
type Record struct {
	// Bundle is the key of the bundle the record was merged for.
	Bundle string
	Type   asset.Type
	// Key is the SHA-1 of the ordered source path list.
	Key string
	// Sources are the constituent paths in concatenation order.
	Sources []string
	// Placeholder is the output path carrying Key.
	Placeholder string
}

// buildEntry coordinates one materialization of a record.
type buildEntry struct {
	once sync.Once
	path string
	err  error
}

// Stats counts cache activity.
type Stats struct {
	// Merges is the number of MergeFiles groups served.
	Merges int64
	// Builds is the number of concatenations performed.
	Builds int64
}

// Engine merges files and caches the results. It is safe for concurrent
// use and is meant to outlive individual builds.
type Engine struct {
	fs         fs.FileSystem
	classifier *asset.Classifier
	outDir     string

	mu      sync.RWMutex
	records map[string]*Record // placeholder path -> record
	built   sync.Map           // placeholder path -> *buildEntry

	merges atomic.Int64
	builds atomic.Int64
}

// New creates an Engine writing merged files below outDir.
func New(fsys fs.FileSystem, classifier *asset.Classifier, outDir string) *Engine {
	return &Engine{
		fs:         fsys,
		classifier: classifier,
		outDir:     outDir,
		records:    make(map[string]*Record),
	}
}

// MergeFiles groups every file that is not already a merged artifact by
// asset type and returns one merged file per type in first-seen order,
// after the merged artifacts that were passed through. Files of types that
// are never merged pass through unchanged.
func (e *Engine) MergeFiles(b *bundle.Bundle, files []*asset.File) []*asset.File {
	var out []*asset.File
	groups := make(map[asset.Type][]string)
	var order []asset.Type

	for _, f := range files {
		t := f.Type
		if t == asset.Unknown && e.classifier != nil {
			t = e.classifier.TypeOf(f.Path)
		}
		if f.KeepSeparate || !t.Mergeable() {
			out = append(out, f)
			continue
		}
		if _, ok := groups[t]; !ok {
			order = append(order, t)
		}
		groups[t] = append(groups[t], f.Path)
	}

	for _, t := range order {
		rec := e.record(b, t, groups[t])
		out = append(out, &asset.File{
			Path:         rec.Placeholder,
			Type:         t,
			KeepSeparate: true,
			Sources:      rec.Sources,
		})
	}
	return out
}

func (e *Engine) record(b *bundle.Bundle, t asset.Type, sources []string) *Record {
	e.merges.Add(1)
	key := PathSetHash(sources)
	base := path.Base(b.Name)
	if b.IsParcel() {
		base = strings.TrimSuffix(base, path.Ext(base))
	}
	name := fmt.Sprintf("%s_%s%s", base, key, t.Ext())
	placeholder := filepath.Join(e.outDir, b.OutputID(), name)

	e.mu.Lock()
	defer e.mu.Unlock()
	if rec, ok := e.records[placeholder]; ok {
		return rec
	}
	rec := &Record{
		Bundle:      b.Key(),
		Type:        t,
		Key:         key,
		Sources:     sources,
		Placeholder: placeholder,
	}
	e.records[placeholder] = rec
	return rec
}

// Record returns the cached record for a placeholder path.
func (e *Engine) Record(placeholder string) (*Record, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	rec, ok := e.records[placeholder]
	return rec, ok
}

// BuildCombinedFiles materializes every merged file in files and returns
// files with each placeholder replaced by its content-addressed output.
// Other files are returned unchanged. A record already built is reused
// without reading its sources again. If read is nil, sources are read
// from the file system as is.
func (e *Engine) BuildCombinedFiles(ctx context.Context, files []*asset.File, read ReadFunc) ([]*asset.File, error) {
	if read == nil {
		read = func(_ context.Context, p string) ([]byte, error) {
			return e.fs.ReadFile(p)
		}
	}

	out := make([]*asset.File, 0, len(files))
	for _, f := range files {
		rec, ok := e.Record(f.Path)
		if !ok {
			out = append(out, f)
			continue
		}
		final, err := e.build(ctx, rec, read)
		if err != nil {
			return nil, err
		}
		out = append(out, &asset.File{
			Path:         final,
			Type:         f.Type,
			KeepSeparate: true,
			Sources:      rec.Sources,
		})
	}
	return out, nil
}

// build concatenates a record once. Concurrent callers for the same record
// wait for the first.
func (e *Engine) build(ctx context.Context, rec *Record, read ReadFunc) (string, error) {
	actual, _ := e.built.LoadOrStore(rec.Placeholder, &buildEntry{})
	entry := actual.(*buildEntry)

	entry.once.Do(func() {
		entry.path, entry.err = e.concat(ctx, rec, read)
	})
	if entry.err != nil {
		// Failed builds are retried by the next caller.
		e.built.CompareAndDelete(rec.Placeholder, entry)
	}
	return entry.path, entry.err
}

func (e *Engine) concat(ctx context.Context, rec *Record, read ReadFunc) (string, error) {
	e.builds.Add(1)

	parts := make([][]byte, 0, len(rec.Sources))
	for _, src := range rec.Sources {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		content, err := read(ctx, src)
		if err != nil {
			return "", fmt.Errorf("reading %s for %s: %w", src, rec.Bundle, err)
		}
		parts = append(parts, content)
	}

	var sb strings.Builder
	for i, p := range parts {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.Write(p)
	}
	content := []byte(sb.String())

	final := ContentPath(rec.Placeholder, rec.Key, content)
	if err := fs.WriteFileAtomic(e.fs, final, content, 0644); err != nil {
		return "", fmt.Errorf("writing %s: %w", final, err)
	}
	return final, nil
}

// Invalidate marks every record containing source as needing a rebuild.
// It reports whether any record was affected.
func (e *Engine) Invalidate(source string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	affected := false
	for placeholder, rec := range e.records {
		for _, src := range rec.Sources {
			if src == source {
				e.built.Delete(placeholder)
				affected = true
				break
			}
		}
	}
	return affected
}

// Stats returns the cache counters.
func (e *Engine) Stats() Stats {
	return Stats{Merges: e.merges.Load(), Builds: e.builds.Load()}
}

// PathSetHash returns the SHA-1 of an ordered path list.
func PathSetHash(paths []string) string {
	sum := sha1.Sum([]byte(strings.Join(paths, "\n")))
	return hex.EncodeToString(sum[:])
}

// ContentPath replaces the path-set hash in the placeholder's file name
// with the SHA-1 of content.
func ContentPath(placeholder, key string, content []byte) string {
	sum := sha1.Sum(content)
	dir, name := filepath.Split(placeholder)
	return dir + strings.Replace(name, key, hex.EncodeToString(sum[:]), 1)
}
