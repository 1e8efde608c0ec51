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

// Package inject writes an entry point's tags into static HTML documents.
// Stylesheets go before </head> and scripts before </body>, each inside a
// marked block that later runs replace.
package inject

import (
	"bytes"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/rotundasoftware/cartero/fs"
	"github.com/rotundasoftware/cartero/manifest"
)

// Options configures injection.
type Options struct {
	// ViewsDir is the directory view names are relative to.
	ViewsDir string
	// BaseURL prefixes every output path.
	BaseURL string
	// OutputDir, when set, inlines template outputs read from it as
	// <script type="text/template"> elements.
	OutputDir string
	// Parallel is the number of parallel workers for batch mode.
	Parallel int
	// DryRun prevents writing files when true.
	DryRun bool
}

// Result holds the result of injecting into a single file.
type Result struct {
	File     string `json:"file"`
	View     string `json:"view,omitempty"`
	Modified bool   `json:"modified"`
	Inserted bool   `json:"inserted,omitempty"` // true if no block existed before
	Error    string `json:"error,omitempty"`
}

// Stats holds aggregate statistics from an inject operation.
type Stats struct {
	Total    int   `json:"total"`
	Updated  int   `json:"updated"`
	Inserted int   `json:"inserted"`
	Skipped  int   `json:"skipped"`
	Errors   int   `json:"errors"`
	Duration int64 `json:"duration_ms"`
}

// Add counts r into the statistics.
func (s *Stats) Add(r Result) {
	s.Total++
	switch {
	case r.Error != "":
		s.Errors++
	case r.Inserted:
		s.Inserted++
	case r.Modified:
		s.Updated++
	default:
		s.Skipped++
	}
}

// InjectBatch injects tags into multiple HTML files in parallel.
func InjectBatch(fsys fs.FileSystem, files []string, m *manifest.Manifest, opts Options) <-chan Result {
	results := make(chan Result, len(files))

	go func() {
		defer close(results)

		parallel := opts.Parallel
		if parallel <= 0 {
			parallel = runtime.NumCPU()
		}

		// Create jobs channel
		jobs := make(chan string, len(files))

		// Start worker goroutines
		var wg sync.WaitGroup
		for range parallel {
			wg.Go(func() {
				for file := range jobs {
					results <- InjectFile(fsys, file, m, opts)
				}
			})
		}

		// Send jobs
		for _, file := range files {
			jobs <- file
		}
		close(jobs)

		wg.Wait()
	}()

	return results
}

// InjectFile injects the tags of the entry point file renders.
func InjectFile(fsys fs.FileSystem, file string, m *manifest.Manifest, opts Options) Result {
	result := Result{File: file}

	view, err := filepath.Rel(opts.ViewsDir, file)
	if err != nil || strings.HasPrefix(view, "..") {
		result.Error = fmt.Sprintf("%s is not below %s", file, opts.ViewsDir)
		return result
	}
	result.View = filepath.ToSlash(view)

	content, err := fsys.ReadFile(file)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	tags, err := m.Tags(result.View, opts.BaseURL)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	body := tags.Body()
	if opts.OutputDir != "" {
		inlined, err := inlineTemplates(fsys, opts.OutputDir, tags.TemplatePaths)
		if err != nil {
			result.Error = err.Error()
			return result
		}
		body += inlined
	}

	newContent, inserted, err := Apply(content, tags.Head(), body)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	// Check if content actually changed
	if bytes.Equal(newContent, content) {
		return result // No changes needed
	}

	result.Modified = true
	result.Inserted = inserted

	// Write file if not dry-run
	if !opts.DryRun {
		if err := fs.WriteFileAtomic(fsys, file, newContent, 0644); err != nil {
			result.Error = err.Error()
			return result
		}
	}

	return result
}

func inlineTemplates(fsys fs.FileSystem, outDir string, paths []string) (string, error) {
	var sb strings.Builder
	for _, rel := range paths {
		content, err := fsys.ReadFile(filepath.Join(outDir, filepath.FromSlash(rel)))
		if err != nil {
			return "", fmt.Errorf("reading template %s: %w", rel, err)
		}
		fmt.Fprintf(&sb, "<script type=\"text/template\" data-cartero=\"%s\">\n%s\n</script>\n",
			strings.TrimSuffix(filepath.Base(rel), filepath.Ext(rel)), bytes.TrimSpace(content))
	}
	return sb.String(), nil
}
