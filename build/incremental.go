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
	"fmt"
	"slices"

	"github.com/rotundasoftware/cartero/asset"
	"github.com/rotundasoftware/cartero/bundle"
	"github.com/rotundasoftware/cartero/manifest"
	"github.com/rotundasoftware/cartero/scan"
)

// Op is the kind of a file system change.
type Op int

const (
	// Write is a content change of an existing file.
	Write Op = iota
	// Create is a new file or directory.
	Create
	// Remove is a deleted file or directory.
	Remove
	// Rename moves a file or directory away.
	Rename
)

func (o Op) String() string {
	switch o {
	case Write:
		return "write"
	case Create:
		return "create"
	case Remove:
		return "remove"
	case Rename:
		return "rename"
	}
	return fmt.Sprintf("Op(%d)", int(o))
}

// Change is one file system event.
type Change struct {
	Path string
	Op   Op
}

// HandleEvent applies a single change. Definition files and structural
// changes outside the views rescan the project while keeping existing
// fingerprints. Adding or removing a view or one of its local files
// rescans that view only. A content change re-resolves only the entry
// points that depend on the changed file's bundle.
func (b *Builder) HandleEvent(ctx context.Context, c Change) (*Result, error) {
	b.mu.Lock()

	if b.reg == nil {
		defer b.mu.Unlock()
		return b.rebuildLocked(ctx, true)
	}

	if c.Op != Write && !scan.IsDefinition(c.Path) {
		if view, ok := b.scanner.OwningView(c.Path); ok {
			return b.viewChanged(ctx, c, view)
		}
	}

	if c.Op != Write || scan.IsDefinition(c.Path) {
		defer b.mu.Unlock()
		b.forgetLocked(c.Path)
		b.debug("Rescanning after %s of %s", c.Op, c.Path)
		return b.rebuildLocked(ctx, false)
	}

	owner, ok := b.reg.Owner(c.Path)
	if !ok {
		b.mu.Unlock()
		b.debug("Ignoring change to untracked file %s", c.Path)
		return &Result{}, nil
	}

	if b.common != nil && slices.Contains(b.common.Sources, c.Path) {
		defer b.mu.Unlock()
		b.forgetLocked(c.Path)
		b.common = nil
		return b.rebuildLocked(ctx, false)
	}

	r := &run{Builder: b, reg: b.reg, assets: b.assets, emitted: b.emitted}
	r.emitted.forget(c.Path)
	b.engine.Invalidate(c.Path)

	if isAsset(owner, c.Path) {
		defer b.mu.Unlock()
		f := asset.NewFile(b.classifier, c.Path)
		events, err := r.copyAsset(f)
		if err != nil {
			return nil, err
		}
		return &Result{Manifest: b.manifest.Clone(), Events: events}, nil
	}

	if owner.IsParcel() && owner.View == c.Path {
		p, err := b.scanner.ScanView(c.Path)
		if err != nil {
			b.mu.Unlock()
			return nil, err
		}
		b.reg.Replace(p)
		b.graph = bundle.BuildDependencyGraph(b.reg)
	}

	affected := b.graph.AffectedParcels(owner.Key())
	common := b.common
	b.mu.Unlock()

	return b.rebuildParcels(ctx, r, affected, nil, common)
}

// viewChanged patches the parcel of view after c added or removed it or
// one of its local files. It is called with b.mu held and releases it.
func (b *Builder) viewChanged(ctx context.Context, c Change, view string) (*Result, error) {
	b.forgetLocked(c.Path)
	name := b.scanner.ParcelName(view)
	key := bundle.NodeKey(bundle.KindParcel, name)
	r := &run{Builder: b, reg: b.reg, assets: b.assets, emitted: b.emitted}

	var affected, removed []string
	var events []Event
	if b.fs.Exists(view) {
		b.debug("Rescanning %s after %s of %s", name, c.Op, c.Path)
		p, err := b.scanner.ScanView(view)
		if err != nil {
			b.mu.Unlock()
			return nil, err
		}
		b.reg.Replace(p)
		b.graph = bundle.BuildDependencyGraph(b.reg)
		if events, err = r.copyAssets(ctx, []*bundle.Bundle{p}); err != nil {
			b.mu.Unlock()
			return nil, err
		}
		affected = b.graph.AffectedParcels(key)
	} else {
		if _, ok := b.reg.Parcel(name); !ok {
			b.mu.Unlock()
			return &Result{}, nil
		}
		b.debug("Removing entry point %s", name)
		b.reg.Remove(bundle.KindParcel, name)
		for _, dependent := range b.graph.RemoveNode(key) {
			affected = append(affected, b.graph.AffectedParcels(dependent)...)
		}
		slices.Sort(affected)
		affected = slices.Compact(affected)
		removed = []string{name}
	}
	common := b.common
	b.mu.Unlock()

	res, err := b.rebuildParcels(ctx, r, affected, removed, common)
	if err != nil {
		return nil, err
	}
	res.Events = append(events, res.Events...)
	return res, nil
}

// rebuildParcels re-resolves and re-emits the named parcels, drops the
// removed entry points, then writes a regenerated manifest. Parcels
// superseded by a newer request are skipped.
func (b *Builder) rebuildParcels(ctx context.Context, r *run, names, removed []string, common *commonOutput) (*Result, error) {
	for _, name := range removed {
		b.gate.ticket(name)
	}
	tickets := make(map[string]uint64, len(names))
	for _, name := range names {
		tickets[name] = b.gate.ticket(name)
	}

	resolver := b.resolver(r.reg)
	files := make(map[string][]*asset.File, len(names))
	for _, name := range names {
		resolved, err := resolver.ResolveParcel(name)
		if err != nil {
			return nil, err
		}
		files[name] = resolved
	}

	var events []Event
	var scripts *bundled
	if b.bundler != nil && len(names) > 0 {
		var err error
		scripts, events, err = r.bundleScripts(ctx, names, files, common)
		if err != nil {
			return nil, err
		}
	}

	entries := make(map[string]*entryResult, len(names))
	for _, name := range names {
		entries[name] = &entryResult{}
	}
	err := b.fanOut(ctx, len(names), func(ctx context.Context, i int) error {
		name := names[i]
		p, ok := r.reg.Parcel(name)
		if !ok {
			return nil
		}
		ran, err := b.gate.run(name, tickets[name], func() error {
			entry, evs, err := r.emitParcel(ctx, p, files[name], scripts)
			entries[name].assets, entries[name].events = entry, evs
			return err
		})
		entries[name].ran = ran
		return err
	})
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	m := b.manifest.Clone()
	for _, name := range removed {
		m.RemoveEntryPoint(name)
	}
	var rebuilt []string
	for _, name := range names {
		e := entries[name]
		if !e.ran || b.gate.superseded(name, tickets[name]) {
			b.debug("Build of %s superseded", name)
			continue
		}
		p, _ := r.reg.Parcel(name)
		m.AddEntryPoint(name, p.OutputID(), e.assets)
		events = append(events, e.events...)
		rebuilt = append(rebuilt, name)
	}
	if len(rebuilt) == 0 && len(removed) == 0 {
		return &Result{Manifest: m, Events: events}, nil
	}
	m.AssetMap = r.assets.Snapshot()

	if err := m.Write(b.fs, b.ManifestPath()); err != nil {
		return nil, err
	}
	events = append(events, Event{Kind: ManifestWritten, Name: manifest.FileName, Path: manifest.FileName})
	b.manifest = m

	return &Result{
		Manifest:   m.Clone(),
		Events:     events,
		Rebuilt:    rebuilt,
		Unresolved: resolver.Unresolved(),
	}, nil
}

type entryResult struct {
	ran    bool
	assets manifest.EntryAssets
	events []Event
}

// forgetLocked drops cached outputs of a removed or changed source.
func (b *Builder) forgetLocked(path string) {
	if b.emitted != nil {
		b.emitted.forget(path)
	}
	b.engine.Invalidate(path)
	if b.assets != nil && !b.fs.Exists(path) {
		b.assets.Remove(b.cfg.Rel(path))
	}
}

func isAsset(owner *bundle.Bundle, path string) bool {
	for _, f := range owner.Assets {
		if f.Path == path {
			return true
		}
	}
	return false
}
