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

package build

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/rotundasoftware/cartero/asset"
	"github.com/rotundasoftware/cartero/bundle"
	"github.com/rotundasoftware/cartero/fingerprint"
	"github.com/rotundasoftware/cartero/fs"
	"github.com/rotundasoftware/cartero/manifest"
)

// emitEntry coordinates one write of a source to the output directory.
type emitEntry struct {
	once sync.Once
	rel  string
	err  error
}

// emitCache remembers which sources were written during a session so that
// sources shared by several entry points are processed once.
type emitCache struct {
	entries sync.Map // source path -> *emitEntry
}

func newEmitCache() *emitCache {
	return &emitCache{}
}

// do runs write once per source. It reports whether this call wrote.
func (c *emitCache) do(src string, write func() (string, error)) (string, bool, error) {
	actual, _ := c.entries.LoadOrStore(src, &emitEntry{})
	entry := actual.(*emitEntry)

	wrote := false
	entry.once.Do(func() {
		wrote = true
		entry.rel, entry.err = write()
	})
	if entry.err != nil {
		c.entries.CompareAndDelete(src, entry)
	}
	return entry.rel, wrote, entry.err
}

// forget makes the next do for src write again.
func (c *emitCache) forget(src string) {
	c.entries.Delete(src)
}

// run holds the state of one build invocation.
type run struct {
	*Builder
	reg     *bundle.Registry
	assets  *fingerprint.AssetMap
	emitted *emitCache

	dirs sync.Map // output ids created during this run
}

// rel returns an output path relative to the output directory.
func (r *run) rel(out string) string {
	rel, err := filepath.Rel(r.cfg.Output, out)
	if err != nil {
		return filepath.ToSlash(out)
	}
	return filepath.ToSlash(rel)
}

// abs returns the absolute output path for a relative one.
func (r *run) abs(rel string) string {
	return filepath.Join(r.cfg.Output, filepath.FromSlash(rel))
}

// write persists content at rel, reporting a PackageCreated event the
// first time its package directory appears.
func (r *run) write(rel string, content []byte) ([]Event, error) {
	var events []Event
	id := path.Dir(rel)
	dir := r.abs(id)
	if _, seen := r.dirs.LoadOrStore(id, true); !seen && !r.fs.Exists(dir) {
		if err := r.fs.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}
		events = append(events, Event{Kind: PackageCreated, Name: id, Path: id})
	}
	if err := fs.WriteFileAtomic(r.fs, r.abs(rel), content, 0644); err != nil {
		return nil, fmt.Errorf("writing %s: %w", rel, err)
	}
	return events, nil
}

// lookupAsset maps an absolute source path to its output path.
func (r *run) lookupAsset(src string) (string, bool) {
	return r.assets.Lookup(r.cfg.Rel(src))
}

// load reads a source, runs its processor and rewrites URL macros. It
// returns the content and the output extension.
func (r *run) load(ctx context.Context, src string, t asset.Type) ([]byte, string, error) {
	content, err := r.fs.ReadFile(src)
	if err != nil {
		return nil, "", fmt.Errorf("reading %s: %w", src, err)
	}
	content, ext, err := r.processors.Apply(ctx, src, t, content)
	if err != nil {
		return nil, "", err
	}
	if !fingerprint.HasURLMacros(content) {
		return content, ext, nil
	}

	rewritten, unresolved := fingerprint.RewriteURLs(content, src, r.cfg.BaseURL, r.lookupAsset)
	if len(unresolved) > 0 {
		if r.cfg.Mode == bundle.Production {
			errs := make([]error, len(unresolved))
			for i, e := range unresolved {
				errs[i] = e
			}
			return nil, "", errors.Join(errs...)
		}
		for _, e := range unresolved {
			r.warn("%v (left unchanged)", e)
		}
	}
	return rewritten, ext, nil
}

// read is the merge.ReadFunc for merged and bundled content.
func (r *run) read(ctx context.Context, src string) ([]byte, error) {
	content, _, err := r.load(ctx, src, r.classifier.TypeOf(src))
	return content, err
}

// outputID returns the package id that owns src.
func (r *run) outputID(src string) string {
	if owner, ok := r.reg.Owner(src); ok {
		return owner.OutputID()
	}
	return "shared"
}

// copyAsset fingerprints and copies a file that is never processed, such
// as an image. The assetMap entry of an already known source is kept and
// its new content is written there.
func (r *run) copyAsset(f *asset.File) ([]Event, error) {
	var events []Event
	rel, wrote, err := r.emitted.do(f.Path, func() (string, error) {
		content, err := r.fs.ReadFile(f.Path)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", f.Path, err)
		}
		name := fingerprint.Name(r.cfg.NameTemplate, f.Path, "", content)
		rel, _ := r.assets.Register(r.cfg.Rel(f.Path), path.Join(r.outputID(f.Path), name))
		events, err = r.write(rel, content)
		return rel, err
	})
	if err != nil {
		return nil, err
	}
	if wrote {
		events = append(events, Event{Kind: AssetWritten, Name: r.cfg.Rel(f.Path), Path: rel})
	}
	return events, nil
}

// emitSource writes one individually served source.
func (r *run) emitSource(ctx context.Context, f *asset.File) (string, []Event, error) {
	var events []Event
	rel, wrote, err := r.emitted.do(f.Path, func() (string, error) {
		content, ext, err := r.load(ctx, f.Path, f.Type)
		if err != nil {
			return "", err
		}
		name := fingerprint.Name(r.cfg.NameTemplate, f.Path, ext, content)
		rel, _ := r.assets.Register(r.cfg.Rel(f.Path), path.Join(r.outputID(f.Path), name))
		events, err = r.write(rel, content)
		return rel, err
	})
	if err != nil {
		return "", nil, err
	}
	if wrote {
		events = append(events, Event{Kind: AssetWritten, Name: r.cfg.Rel(f.Path), Path: rel})
	}
	return rel, events, nil
}

// copyAssets copies the non-served assets of every node.
func (r *run) copyAssets(ctx context.Context, nodes []*bundle.Bundle) ([]Event, error) {
	results := make([][]Event, len(nodes))
	err := r.fanOut(ctx, len(nodes), func(ctx context.Context, i int) error {
		for _, f := range nodes[i].Assets {
			if err := ctx.Err(); err != nil {
				return err
			}
			events, err := r.copyAsset(f)
			if err != nil {
				return err
			}
			results[i] = append(results[i], events...)
		}
		return nil
	})
	return flatten(results), err
}

// bundled is the output of the module bundler stage.
type bundled struct {
	common     *commonOutput
	entries    map[string]string // parcel name -> relative entry script
	usesCommon map[string]bool
}

// commonOutput records the written shared script bundle.
type commonOutput struct {
	Sources []string
	Rel     string
}

// bundleScripts runs the module bundler over the given parcels and writes
// the common artifact before any entry artifact.
func (r *run) bundleScripts(ctx context.Context, names []string, files map[string][]*asset.File, fixed *commonOutput) (*bundled, []Event, error) {
	req := &BundleRequest{Read: r.read}
	if fixed != nil {
		req.Common = fixed.Sources
	}
	for _, name := range names {
		scripts := scriptSources(files[name])
		var roots []string
		for _, src := range scripts {
			if owner, ok := r.reg.Owner(src); ok && owner.IsParcel() {
				roots = append(roots, src)
			}
		}
		req.Entries = append(req.Entries, Entry{Name: name, Scripts: scripts, Roots: roots})
	}

	out, err := r.bundler.Bundle(ctx, req)
	if err != nil {
		return nil, nil, fmt.Errorf("bundling scripts: %w", err)
	}

	var events []Event
	result := &bundled{common: fixed, entries: make(map[string]string), usesCommon: make(map[string]bool)}
	if out.Common != nil && fixed == nil {
		name := fingerprint.Name(r.cfg.NameTemplate, "common.js", "", out.Common.Content)
		rel := path.Join("common", name)
		evs, err := r.write(rel, out.Common.Content)
		if err != nil {
			return nil, nil, err
		}
		events = append(events, evs...)
		events = append(events, Event{Kind: CommonWritten, Name: "common", Path: rel})
		result.common = &commonOutput{Sources: out.Common.Sources, Rel: rel}
	}

	for _, entry := range req.Entries {
		if result.common != nil {
			for _, src := range entry.Scripts {
				if slices.Contains(result.common.Sources, src) {
					result.usesCommon[entry.Name] = true
					break
				}
			}
		}
	}

	for _, name := range names {
		artifact, ok := out.Entries[name]
		if !ok || artifact == nil {
			continue
		}
		p, ok := r.reg.Parcel(name)
		if !ok {
			continue
		}
		base := strings.TrimSuffix(path.Base(name), path.Ext(name)) + ".js"
		rel := path.Join(p.OutputID(), fingerprint.Name(r.cfg.NameTemplate, base, "", artifact.Content))
		evs, err := r.write(rel, artifact.Content)
		if err != nil {
			return nil, nil, err
		}
		events = append(events, evs...)
		result.entries[name] = rel
	}
	return result, events, nil
}

func scriptSources(files []*asset.File) []string {
	var out []string
	for _, f := range files {
		if f.Type != asset.Script {
			continue
		}
		if len(f.Sources) > 0 {
			out = append(out, f.Sources...)
			continue
		}
		out = append(out, f.Path)
	}
	return out
}

// emitParcel writes everything one parcel serves and returns its
// manifest entry.
func (r *run) emitParcel(ctx context.Context, p *bundle.Bundle, files []*asset.File, scripts *bundled) (manifest.EntryAssets, []Event, error) {
	var events []Event
	if r.cfg.Mode == bundle.Production {
		var err error
		files, err = r.engine.BuildCombinedFiles(ctx, files, r.read)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", p.Name, err)
		}
	}

	entry := manifest.EntryAssets{}
	for _, t := range asset.ServedTypes {
		entry[t] = []string{}
	}

	for _, f := range files {
		if !f.Type.Mergeable() {
			continue
		}
		if scripts != nil && f.Type == asset.Script {
			continue
		}
		if f.KeepSeparate {
			entry[f.Type] = append(entry[f.Type], r.rel(f.Path))
			continue
		}
		rel, evs, err := r.emitSource(ctx, f)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", p.Name, err)
		}
		events = append(events, evs...)
		entry[f.Type] = append(entry[f.Type], rel)
	}

	if scripts != nil {
		if scripts.usesCommon[p.Name] {
			entry[asset.Script] = append(entry[asset.Script], scripts.common.Rel)
		}
		if rel, ok := scripts.entries[p.Name]; ok {
			entry[asset.Script] = append(entry[asset.Script], rel)
		}
	}

	events = append(events, Event{Kind: BundleWritten, Name: p.Name})
	return entry, events, nil
}

func flatten(results [][]Event) []Event {
	var out []Event
	for _, events := range results {
		out = append(out, events...)
	}
	return out
}
