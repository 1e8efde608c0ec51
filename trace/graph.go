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

package trace

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rotundasoftware/cartero/fingerprint"
	"github.com/rotundasoftware/cartero/fs"
	"github.com/rotundasoftware/cartero/merge"
)

// ModuleGraph is the import graph reachable from a set of scripts.
type ModuleGraph struct {
	// Order lists every traced script, dependencies before dependents.
	Order []string

	// Modules maps script paths to their parsed information
	Modules map[string]*Module

	// Errors collects non-fatal errors encountered during tracing
	Errors []error

	// bareSpecifiers collects bare import specifiers, which are not bundled
	bareSpecifiers map[string]bool
}

// Module is a parsed script.
type Module struct {
	Path     string
	Imports  []ModuleImport
	IsModule bool
	// Deps are the resolved paths of relative imports, in source order.
	Deps []string

	content []byte
}

// Content returns the processed content the module was parsed from.
func (m *Module) Content() []byte {
	return m.content
}

// Tracer parses scripts and follows their relative imports.
type Tracer struct {
	fs      fs.FileSystem
	rootDir string

	// moduleCache holds parsed modules by path and content hash, so
	// unchanged scripts are not re-parsed across builds.
	moduleCache *sync.Map // map[string]*Module
}

// NewTracer creates a new Tracer. Web-style absolute specifiers are
// resolved against rootDir.
func NewTracer(fsys fs.FileSystem, rootDir string) *Tracer {
	return &Tracer{
		fs:          fsys,
		rootDir:     rootDir,
		moduleCache: &sync.Map{},
	}
}

// Module reads and parses a single script.
func (t *Tracer) Module(ctx context.Context, modulePath string, read merge.ReadFunc) (*Module, error) {
	content, err := read(ctx, modulePath)
	if err != nil {
		return nil, err
	}

	key := modulePath + "@" + fingerprint.Hash(content)
	if cached, ok := t.moduleCache.Load(key); ok {
		return cached.(*Module), nil
	}

	imports, err := ExtractImports(content)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", modulePath, err)
	}

	mod := &Module{
		Path:     modulePath,
		Imports:  imports.Imports,
		IsModule: imports.IsModule,
		content:  content,
	}
	dir := filepath.Dir(modulePath)
	for _, imp := range mod.Imports {
		if isBareSpecifier(imp.Specifier) {
			continue
		}
		if dep, ok := t.resolveFile(t.resolvePath(dir, imp.Specifier)); ok {
			mod.Deps = append(mod.Deps, dep)
		}
	}

	actual, _ := t.moduleCache.LoadOrStore(key, mod)
	return actual.(*Module), nil
}

// Trace builds the graph reachable from roots. Missing imports are
// recorded in Errors; read failures of roots are returned.
func (t *Tracer) Trace(ctx context.Context, roots []string, read merge.ReadFunc) (*ModuleGraph, error) {
	graph := &ModuleGraph{
		Modules:        make(map[string]*Module),
		bareSpecifiers: make(map[string]bool),
	}
	for _, root := range roots {
		if err := t.traceModule(ctx, graph, root, read); err != nil {
			return nil, err
		}
	}
	return graph, nil
}

// traceModule visits a module after its dependencies. Import cycles are
// legal in scripts; a module on the current path is not revisited.
func (t *Tracer) traceModule(ctx context.Context, graph *ModuleGraph, modulePath string, read merge.ReadFunc) error {
	if _, exists := graph.Modules[modulePath]; exists {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	mod, err := t.Module(ctx, modulePath, read)
	if err != nil {
		return err
	}
	graph.Modules[modulePath] = mod

	dir := filepath.Dir(modulePath)
	for _, imp := range mod.Imports {
		if isBareSpecifier(imp.Specifier) {
			graph.bareSpecifiers[imp.Specifier] = true
			continue
		}
		if _, ok := t.resolveFile(t.resolvePath(dir, imp.Specifier)); !ok {
			graph.Errors = append(graph.Errors, fmt.Errorf("%s:%d: cannot resolve %q", modulePath, imp.Line, imp.Specifier))
		}
	}
	for _, dep := range mod.Deps {
		if err := t.traceModule(ctx, graph, dep, read); err != nil {
			graph.Errors = append(graph.Errors, fmt.Errorf("tracing %s: %w", dep, err))
		}
	}

	graph.Order = append(graph.Order, modulePath)
	return nil
}

// resolveFile finds the file a resolved specifier refers to, trying
// script extensions and index files for extensionless specifiers.
func (t *Tracer) resolveFile(p string) (string, bool) {
	candidates := []string{p}
	if path.Ext(p) == "" {
		for _, ext := range []string{".js", ".mjs", ".cjs", ".ts"} {
			candidates = append(candidates, p+ext)
		}
		candidates = append(candidates, filepath.Join(p, "index.js"))
	}
	for _, c := range candidates {
		if info, err := t.fs.Stat(c); err == nil && !info.IsDir() {
			return c, true
		}
	}
	return "", false
}

// resolvePath resolves a specifier relative to a base directory.
// For web-style paths:
// - "./foo" and "../foo" are resolved relative to baseDir
// - "/foo" is resolved relative to rootDir (web-style absolute)
func (t *Tracer) resolvePath(baseDir, specifier string) string {
	if strings.HasPrefix(specifier, "/") {
		// Web-style absolute path - relative to root
		return filepath.Join(t.rootDir, specifier)
	}
	// Relative path (./ or ../ or no prefix)
	return filepath.Join(baseDir, specifier)
}

// isBareSpecifier returns true if the specifier is a bare module specifier
// such as a package name.
func isBareSpecifier(specifier string) bool {
	// Bare specifiers don't start with ./, ../, or /
	if specifier == "" {
		return false
	}
	if strings.HasPrefix(specifier, "./") || strings.HasPrefix(specifier, "../") {
		return false
	}
	if strings.HasPrefix(specifier, "/") {
		return false
	}
	// Check for URL schemes
	if strings.Contains(specifier, "://") {
		return false
	}
	return true
}

// BareSpecifiers returns a sorted slice of all bare specifiers found.
func (g *ModuleGraph) BareSpecifiers() []string {
	specifiers := make([]string, 0, len(g.bareSpecifiers))
	for spec := range g.bareSpecifiers {
		specifiers = append(specifiers, spec)
	}
	sort.Strings(specifiers)
	return specifiers
}
