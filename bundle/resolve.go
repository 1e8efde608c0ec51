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

package bundle

import (
	"github.com/rotundasoftware/cartero/asset"
)

// Mode selects development or production resolution.
type Mode int

const (
	// Development never merges; files stay individually addressable.
	Development Mode = iota
	// Production merges every kept-separate bundle.
	Production
)

func (m Mode) String() string {
	if m == Production {
		return "production"
	}
	return "development"
}

// Merger compacts the resolved files of a kept-separate bundle.
// Files already marked KeepSeparate must pass through unchanged.
type Merger interface {
	MergeFiles(b *Bundle, files []*asset.File) []*asset.File
}

// Resolution is the outcome of resolving every parcel in a registry.
type Resolution struct {
	// Parcels maps parcel name to its ordered files to serve.
	Parcels map[string][]*asset.File
	// Unresolved lists references that named no known node.
	Unresolved []UnresolvedReference
}

// Resolver computes files to serve. A Resolver memoizes completed nodes and
// is scoped to one build invocation; create a new one after the registry
// changes.
type Resolver struct {
	reg    *Registry
	mode   Mode
	merger Merger
	logger Logger

	names      []string
	memo       map[string][]*asset.File
	parcelMemo map[string][]*asset.File
	unresolved []UnresolvedReference
	reported   map[UnresolvedReference]bool
}

// NewResolver creates a development-mode Resolver over reg.
func NewResolver(reg *Registry, logger Logger) *Resolver {
	return &Resolver{
		reg:        reg,
		logger:     logger,
		names:      reg.BundleNames(),
		memo:       make(map[string][]*asset.File),
		parcelMemo: make(map[string][]*asset.File),
		reported:   make(map[UnresolvedReference]bool),
	}
}

// WithMode returns a new Resolver using the given mode.
func (r *Resolver) WithMode(mode Mode) *Resolver {
	next := NewResolver(r.reg, r.logger)
	next.mode = mode
	next.merger = r.merger
	return next
}

// WithMerger returns a new Resolver that compacts kept-separate bundles
// with m in production mode.
func (r *Resolver) WithMerger(m Merger) *Resolver {
	next := NewResolver(r.reg, r.logger)
	next.mode = r.mode
	next.merger = m
	return next
}

// Unresolved returns the unresolved references seen so far.
func (r *Resolver) Unresolved() []UnresolvedReference {
	return r.unresolved
}

// keepSeparate reports whether b is merged into its own output.
// Development mode never keeps anything separate.
func (r *Resolver) keepSeparate(b *Bundle) bool {
	return r.mode == Production && b.KeepSeparate
}

// ResolveAll resolves every parcel in the registry.
func (r *Resolver) ResolveAll() (*Resolution, error) {
	res := &Resolution{Parcels: make(map[string][]*asset.File)}
	for _, name := range r.reg.ParcelNames() {
		files, err := r.ResolveParcel(name)
		if err != nil {
			return nil, err
		}
		res.Parcels[name] = files
	}
	res.Unresolved = r.unresolved
	return res, nil
}

// FilesToServe resolves a library bundle: its dependencies' files first,
// then its own, deduplicated, merged if kept separate in production.
func (r *Resolver) FilesToServe(name string) ([]*asset.File, error) {
	b, ok := r.reg.Bundle(name)
	if !ok {
		r.warnUnresolved(UnresolvedReference{From: "build", Name: name})
		return nil, nil
	}
	return r.resolve(b, nil)
}

// ResolveParcel resolves a parcel including the chain of parcels it
// extends. Inherited files come first; the parcel's own files follow
// without repeating anything inherited.
func (r *Resolver) ResolveParcel(name string) ([]*asset.File, error) {
	if files, ok := r.parcelMemo[name]; ok {
		return files, nil
	}

	chain, err := r.extensionChain(name)
	if err != nil {
		return nil, err
	}

	var inherited []*asset.File
	for _, p := range chain {
		if files, ok := r.parcelMemo[p.Name]; ok {
			inherited = files
			continue
		}
		own, err := r.resolve(p, inherited)
		if err != nil {
			return nil, err
		}
		inherited = asset.Union(inherited, own)
		r.parcelMemo[p.Name] = inherited
	}
	return inherited, nil
}

// extensionChain walks extends references top-down and returns the chain
// from the root ancestor to the named parcel. A parcel recurring on the
// chain is a fatal cycle.
func (r *Resolver) extensionChain(name string) ([]*Bundle, error) {
	p, ok := r.reg.Parcel(name)
	if !ok {
		r.warnUnresolved(UnresolvedReference{From: "build", Name: name})
		return nil, nil
	}

	onChain := map[string]bool{p.Name: true}
	path := []string{p.Name}
	chain := []*Bundle{p}
	for p.Extends != "" {
		if onChain[p.Extends] {
			cycle := append(path[indexOf(path, p.Extends):], p.Extends)
			return nil, &CycleError{Kind: KindParcel, Name: p.Extends, Path: cycle}
		}
		parent, ok := r.reg.Parcel(p.Extends)
		if !ok {
			r.warnUnresolved(UnresolvedReference{From: p.Key(), Name: p.Extends})
			break
		}
		onChain[parent.Name] = true
		path = append(path, parent.Name)
		chain = append(chain, parent)
		p = parent
	}

	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// frame is one node on the explicit resolution stack.
type frame struct {
	b    *Bundle
	deps []string
	next int
	// separate collects merged units from kept-separate dependencies;
	// inline collects files that are folded into this node.
	separate []*asset.File
	inline   []*asset.File
}

// resolve walks the dependency graph below root with an explicit stack.
// A node is "on path" while its frame is on the stack and "completed" once
// memoized. Meeting an on-path node is a true cycle; meeting a completed
// node is ordinary reconvergence and reuses the memoized files.
// Files listed in exclude are not repeated in root's own output.
func (r *Resolver) resolve(root *Bundle, exclude []*asset.File) ([]*asset.File, error) {
	if files, ok := r.memo[root.Key()]; ok && exclude == nil {
		return files, nil
	}

	onPath := map[string]bool{root.Key(): true}
	stack := []*frame{r.newFrame(root)}

	for len(stack) > 0 {
		top := stack[len(stack)-1]

		if top.next < len(top.deps) {
			name := top.deps[top.next]
			top.next++

			dep, ok := r.reg.Bundle(name)
			if !ok {
				r.warnUnresolved(UnresolvedReference{From: top.b.Key(), Name: name})
				continue
			}
			key := dep.Key()
			if onPath[key] {
				return nil, cycleError(stack, dep)
			}
			if files, done := r.memo[key]; done {
				r.collect(top, dep, files)
				continue
			}
			onPath[key] = true
			stack = append(stack, r.newFrame(dep))
			continue
		}

		stack = stack[:len(stack)-1]
		delete(onPath, top.b.Key())

		var files []*asset.File
		if len(stack) == 0 && exclude != nil {
			files = r.finish(top, exclude)
		} else {
			files = r.finish(top, nil)
			r.memo[top.b.Key()] = files
		}

		if len(stack) == 0 {
			return files, nil
		}
		r.collect(stack[len(stack)-1], top.b, files)
	}
	return nil, nil
}

func (r *Resolver) newFrame(b *Bundle) *frame {
	for _, pattern := range UnmatchedPatterns(b.Dependencies, r.names, b.bundleName()) {
		r.warnUnresolved(UnresolvedReference{From: b.Key(), Name: pattern})
	}
	return &frame{b: b, deps: ExpandDependencies(b.Dependencies, r.names, b.bundleName())}
}

// collect adds a resolved dependency's files to the parent frame.
func (r *Resolver) collect(parent *frame, dep *Bundle, files []*asset.File) {
	if r.keepSeparate(dep) {
		parent.separate = asset.Union(parent.separate, files)
		return
	}
	parent.inline = asset.Union(parent.inline, files)
}

// finish assembles a node's files: separate units, then inlined
// dependency files, then local files. Sources already contained in a
// separate unit, or listed in exclude, are dropped. Kept-separate nodes
// are merged in production mode.
func (r *Resolver) finish(f *frame, exclude []*asset.File) []*asset.File {
	excluded := coveredPaths(exclude)
	covered := coveredPaths(f.separate)

	var separate []*asset.File
	for _, file := range f.separate {
		if !excluded[file.Path] {
			separate = append(separate, file)
		}
	}
	var rest []*asset.File
	for _, file := range asset.Union(f.inline, f.b.Files) {
		if !covered[file.Path] && !excluded[file.Path] {
			rest = append(rest, file)
		}
	}

	files := asset.Union(separate, rest)
	if r.keepSeparate(f.b) && r.merger != nil {
		files = r.merger.MergeFiles(f.b, files)
	}
	return files
}

func coveredPaths(files []*asset.File) map[string]bool {
	covered := make(map[string]bool)
	for _, f := range files {
		covered[f.Path] = true
		for _, src := range f.Sources {
			covered[src] = true
		}
	}
	return covered
}

func cycleError(stack []*frame, dep *Bundle) *CycleError {
	var path []string
	start := -1
	for i, f := range stack {
		if f.b.Key() == dep.Key() {
			start = i
		}
		if start >= 0 {
			path = append(path, f.b.Name)
		}
	}
	path = append(path, dep.Name)
	return &CycleError{Kind: KindBundle, Name: dep.Name, Path: path}
}

func (r *Resolver) warnUnresolved(ref UnresolvedReference) {
	if r.reported[ref] {
		return
	}
	r.reported[ref] = true
	r.unresolved = append(r.unresolved, ref)
	if r.logger != nil {
		r.logger.Warning("Unresolved reference: %s (treated as empty)", ref)
	}
}

func indexOf(items []string, item string) int {
	for i, it := range items {
		if it == item {
			return i
		}
	}
	return 0
}
