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

// Package trace is the default script bundler. It parses scripts with
// tree-sitter, follows their relative ES module and CommonJS imports, and
// concatenates each entry point's scripts in dependency order. Scripts
// shared by several entry points are moved to one common artifact.
package trace

import (
	"bytes"
	"context"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/rotundasoftware/cartero/build"
	"github.com/rotundasoftware/cartero/fs"
)

// Logger is an interface for reporting tracing problems.
type Logger interface {
	Warning(format string, args ...any)
	Debug(format string, args ...any)
}

// Options configures a Bundler.
type Options struct {
	// RootDir resolves web-style absolute import specifiers.
	RootDir string
	// Prune drops listed module scripts that no root of the entry
	// imports. Scripts without module syntax are always kept.
	Prune bool
	// CommonThreshold is the number of entries that must include a script
	// before it moves to the common artifact. Zero means two; a negative
	// value disables common extraction.
	CommonThreshold int
	// Jobs bounds concurrent entry tracing. Zero means unbounded.
	Jobs   int
	Logger Logger
}

// Bundler implements build.ModuleBundler.
type Bundler struct {
	tracer *Tracer
	opts   Options
}

var _ build.ModuleBundler = (*Bundler)(nil)

// NewBundler creates a Bundler reading imports through fsys.
func NewBundler(fsys fs.FileSystem, opts Options) *Bundler {
	if opts.CommonThreshold == 0 {
		opts.CommonThreshold = 2
	}
	return &Bundler{
		tracer: NewTracer(fsys, opts.RootDir),
		opts:   opts,
	}
}

type traced struct {
	scripts []string
	modules map[string]*Module
}

// Bundle implements build.ModuleBundler.
func (b *Bundler) Bundle(ctx context.Context, req *build.BundleRequest) (*build.BundleOutput, error) {
	results := make([]*traced, len(req.Entries))

	g, ctx := errgroup.WithContext(ctx)
	if b.opts.Jobs > 0 {
		g.SetLimit(b.opts.Jobs)
	}
	for i, entry := range req.Entries {
		g.Go(func() error {
			t, err := b.traceEntry(ctx, entry, req)
			results[i] = t
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &build.BundleOutput{Entries: make(map[string]*build.Artifact)}
	common := req.Common
	if common == nil {
		common = b.commonSources(results)
		if len(common) > 0 {
			out.Common = b.artifact(common, results)
		}
	}

	for i, entry := range req.Entries {
		var own []string
		for _, src := range results[i].scripts {
			if !slices.Contains(common, src) {
				own = append(own, src)
			}
		}
		if len(own) == 0 {
			continue
		}
		out.Entries[entry.Name] = b.artifact(own, results[i:i+1])
	}
	return out, nil
}

// traceEntry returns the scripts an entry requires, dependencies first.
func (b *Bundler) traceEntry(ctx context.Context, entry build.Entry, req *build.BundleRequest) (*traced, error) {
	modules := make(map[string]*Module, len(entry.Scripts))
	for _, src := range entry.Scripts {
		mod, err := b.tracer.Module(ctx, src, req.Read)
		if err != nil {
			return nil, err
		}
		modules[src] = mod
	}

	var roots []string
	for _, src := range entry.Scripts {
		if !b.opts.Prune || !modules[src].IsModule || slices.Contains(entry.Roots, src) {
			roots = append(roots, src)
		}
	}

	graph, err := b.tracer.Trace(ctx, roots, req.Read)
	if err != nil {
		return nil, err
	}
	b.report(entry.Name, graph)

	if b.opts.Prune {
		for _, src := range entry.Scripts {
			if _, ok := graph.Modules[src]; !ok {
				b.debug("%s: pruned %s", entry.Name, src)
			}
		}
	}
	return &traced{scripts: graph.Order, modules: graph.Modules}, nil
}

// commonSources returns the scripts included by at least CommonThreshold
// entries, in first-occurrence order.
func (b *Bundler) commonSources(results []*traced) []string {
	if b.opts.CommonThreshold < 0 || len(results) < 2 {
		return nil
	}
	counts := make(map[string]int)
	var order []string
	for _, r := range results {
		for _, src := range r.scripts {
			if counts[src] == 0 {
				order = append(order, src)
			}
			counts[src]++
		}
	}
	var common []string
	for _, src := range order {
		if counts[src] >= b.opts.CommonThreshold {
			common = append(common, src)
		}
	}
	return common
}

// artifact concatenates sources using content already read while tracing.
func (b *Bundler) artifact(sources []string, results []*traced) *build.Artifact {
	parts := make([][]byte, 0, len(sources))
	for _, src := range sources {
		for _, r := range results {
			if mod, ok := r.modules[src]; ok {
				parts = append(parts, mod.Content())
				break
			}
		}
	}
	return &build.Artifact{
		Content: bytes.Join(parts, []byte("\n")),
		Sources: slices.Clone(sources),
	}
}

func (b *Bundler) report(entry string, graph *ModuleGraph) {
	if b.opts.Logger == nil {
		return
	}
	for _, err := range graph.Errors {
		b.opts.Logger.Warning("%s: %v", entry, err)
	}
	for _, spec := range graph.BareSpecifiers() {
		b.opts.Logger.Debug("%s: bare import %q is not bundled", entry, spec)
	}
}

func (b *Bundler) debug(format string, args ...any) {
	if b.opts.Logger != nil {
		b.opts.Logger.Debug(format, args...)
	}
}
