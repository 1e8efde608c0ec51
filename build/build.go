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

// Package build drives a cartero build: it scans the project, resolves
// every entry point, writes fingerprinted and merged outputs concurrently
// and persists the manifest once every output is in place.
//
// A Builder is long-lived. Its merge cache and, in watch mode, its asset
// map survive between builds so that incremental rebuilds only touch the
// entry points affected by a change.
package build

import (
	"context"
	"errors"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/rotundasoftware/cartero/asset"
	"github.com/rotundasoftware/cartero/bundle"
	"github.com/rotundasoftware/cartero/config"
	"github.com/rotundasoftware/cartero/fingerprint"
	"github.com/rotundasoftware/cartero/fs"
	"github.com/rotundasoftware/cartero/manifest"
	"github.com/rotundasoftware/cartero/merge"
	"github.com/rotundasoftware/cartero/scan"
)

// Logger is an interface for logging messages during a build.
type Logger interface {
	Warning(format string, args ...any)
	Debug(format string, args ...any)
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger for warnings and debug output.
func WithLogger(logger Logger) Option {
	return func(b *Builder) {
		b.logger = logger
	}
}

// WithBundler delegates script bundling to a module bundler.
func WithBundler(bundler ModuleBundler) Option {
	return func(b *Builder) {
		b.bundler = bundler
	}
}

// WithProcessors replaces the processors built from configuration.
func WithProcessors(processors asset.Processors) Option {
	return func(b *Builder) {
		b.processors = processors
	}
}

// Result describes a completed build.
type Result struct {
	Manifest *manifest.Manifest
	Events   []Event
	// Rebuilt lists the entry points whose outputs were regenerated.
	Rebuilt []string
	// Unresolved lists dependency references that named no bundle.
	Unresolved []bundle.UnresolvedReference
}

// Builder builds a project. It is safe for concurrent use.
type Builder struct {
	fs         fs.FileSystem
	cfg        *config.Config
	classifier *asset.Classifier
	processors asset.Processors
	bundler    ModuleBundler
	logger     Logger
	scanner    *scan.Scanner
	engine     *merge.Engine
	gate       *gate

	// mu guards the session state below and serializes registry rebuilds.
	mu       sync.Mutex
	reg      *bundle.Registry
	graph    *bundle.DependencyGraph
	assets   *fingerprint.AssetMap
	emitted  *emitCache
	manifest *manifest.Manifest
	common   *commonOutput
}

// New creates a Builder for cfg.
func New(fsys fs.FileSystem, cfg *config.Config, opts ...Option) *Builder {
	b := &Builder{
		fs:         fsys,
		cfg:        cfg,
		classifier: cfg.Classifier(),
		processors: asset.NewCommandProcessors(cfg.Processors),
		gate:       newGate(),
	}
	for _, opt := range opts {
		opt(b)
	}
	var logger bundle.Logger
	if b.logger != nil {
		logger = b.logger
	}
	b.scanner = scan.New(fsys, cfg, logger)
	b.engine = merge.New(fsys, b.classifier, cfg.Output)
	return b
}

// ManifestPath returns where the manifest is written.
func (b *Builder) ManifestPath() string {
	return filepath.Join(b.cfg.Output, manifest.FileName)
}

// Manifest returns the last successfully written manifest, or nil.
func (b *Builder) Manifest() *manifest.Manifest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.manifest.Clone()
}

// Build runs a full build with a fresh asset map. On error no manifest is
// written and the previous one stays in place.
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rebuildLocked(ctx, true)
}

// rebuildLocked rescans and rebuilds every entry point. A fresh rebuild
// starts a new asset map; otherwise existing fingerprints are kept.
func (b *Builder) rebuildLocked(ctx context.Context, fresh bool) (*Result, error) {
	reg, err := b.scanner.Scan()
	if err != nil {
		return nil, err
	}

	r := &run{Builder: b, reg: reg, assets: b.assets, emitted: b.emitted}
	if fresh || r.assets == nil {
		r.assets = fingerprint.NewAssetMap()
		r.emitted = newEmitCache()
	}

	names := reg.ParcelNames()
	tickets := make(map[string]uint64, len(names))
	for _, name := range names {
		tickets[name] = b.gate.ticket(name)
	}

	res, err := b.resolver(reg).ResolveAll()
	if err != nil {
		return nil, err
	}

	events, err := r.copyAssets(ctx, append(reg.Bundles(), reg.Parcels()...))
	if err != nil {
		return nil, err
	}

	var scripts *bundled
	if b.bundler != nil {
		var evs []Event
		scripts, evs, err = r.bundleScripts(ctx, names, res.Parcels, nil)
		if err != nil {
			return nil, err
		}
		events = append(events, evs...)
	}

	entries, evs, err := r.emitParcels(ctx, names, tickets, res.Parcels, scripts)
	if err != nil {
		return nil, err
	}
	events = append(events, evs...)

	m := manifest.New()
	for _, bd := range reg.Bundles() {
		m.PackageMap[b.cfg.Rel(bd.Dir)] = bd.OutputID()
	}
	for _, p := range reg.Parcels() {
		m.AddEntryPoint(p.Name, p.OutputID(), entries[p.Name])
	}
	m.AssetMap = r.assets.Snapshot()

	if err := m.Write(b.fs, b.ManifestPath()); err != nil {
		return nil, err
	}
	events = append(events, Event{Kind: ManifestWritten, Name: manifest.FileName, Path: manifest.FileName})

	b.reg = reg
	b.graph = bundle.BuildDependencyGraph(reg)
	b.assets = r.assets
	b.emitted = r.emitted
	b.manifest = m
	if scripts != nil {
		b.common = scripts.common
	}

	return &Result{
		Manifest:   m.Clone(),
		Events:     events,
		Rebuilt:    names,
		Unresolved: res.Unresolved,
	}, nil
}

func (b *Builder) resolver(reg *bundle.Registry) *bundle.Resolver {
	var logger bundle.Logger
	if b.logger != nil {
		logger = b.logger
	}
	return bundle.NewResolver(reg, logger).
		WithMode(b.cfg.Mode).
		WithMerger(b.engine)
}

// emitParcels writes the given parcels concurrently and returns their
// manifest entries. Each parcel waits for an in-flight incremental build
// of the same entry point. Events are ordered by parcel name.
func (r *run) emitParcels(ctx context.Context, names []string, tickets map[string]uint64, files map[string][]*asset.File, scripts *bundled) (map[string]manifest.EntryAssets, []Event, error) {
	entries := make([]manifest.EntryAssets, len(names))
	results := make([][]Event, len(names))

	err := r.fanOut(ctx, len(names), func(ctx context.Context, i int) error {
		name := names[i]
		p, ok := r.reg.Parcel(name)
		if !ok {
			return nil
		}
		// b.mu is held, so no newer ticket can be taken for name.
		_, err := r.gate.run(name, tickets[name], func() error {
			entry, events, err := r.emitParcel(ctx, p, files[name], scripts)
			entries[i], results[i] = entry, events
			return err
		})
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	out := make(map[string]manifest.EntryAssets, len(names))
	for i, name := range names {
		if entries[i] != nil {
			out[name] = entries[i]
		}
	}
	return out, flatten(results), nil
}

// fanOut runs task for 0..n-1 with at most cfg.Jobs in flight. The first
// failure cancels the rest; all failures are returned joined.
func (b *Builder) fanOut(ctx context.Context, n int, task func(ctx context.Context, i int) error) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(b.cfg.Jobs, 1))

	var mu sync.Mutex
	var errs []error
	for i := range n {
		g.Go(func() error {
			if err := task(ctx, i); err != nil {
				mu.Lock()
				if !errors.Is(err, context.Canceled) || len(errs) == 0 {
					errs = append(errs, err)
				}
				mu.Unlock()
				return err
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

func (b *Builder) warn(format string, args ...any) {
	if b.logger != nil {
		b.logger.Warning(format, args...)
	}
}

func (b *Builder) debug(format string, args ...any) {
	if b.logger != nil {
		b.logger.Debug(format, args...)
	}
}
