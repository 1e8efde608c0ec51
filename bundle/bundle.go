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

// Package bundle models the bundle dependency graph and resolves, for every
// entry view, the ordered and deduplicated list of files it must serve.
//
// A Bundle is a named directory of assets plus dependencies on other
// bundles. A Parcel is a Bundle rooted at one entry view; parcels are always
// kept separate and may extend exactly one other parcel.
package bundle

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/rotundasoftware/cartero/asset"
)

// Kind distinguishes plain bundles from parcels.
type Kind int

const (
	// KindBundle is a reusable library bundle.
	KindBundle Kind = iota
	// KindParcel is a bundle rooted at an entry view.
	KindParcel
)

func (k Kind) String() string {
	if k == KindParcel {
		return "parcel"
	}
	return "bundle"
}

// Logger is an interface for logging messages during resolution.
type Logger interface {
	Warning(format string, args ...any)
	Debug(format string, args ...any)
}

// Bundle is a named node in the dependency graph.
type Bundle struct {
	Name string
	Kind Kind

	// ID is the stable package id used in output paths and the manifest.
	ID string

	// Dir is the absolute directory the bundle was built from.
	Dir string

	// Files are the bundle's local served files in discovery order.
	Files []*asset.File

	// Assets are local files that are copied and fingerprinted but never
	// served per entry point, such as images.
	Assets []*asset.File

	// Dependencies are bundle names or wildcard patterns.
	Dependencies []string

	// KeepSeparate forces the bundle's resolved files into a distinct merged
	// output in production mode. Always true for parcels.
	KeepSeparate bool

	// Extends names the parcel this parcel inherits from. Parcels only.
	Extends string

	// View is the absolute path of the entry view. Parcels only.
	View string
}

// NewBundle creates an empty library bundle.
func NewBundle(name, dir string) *Bundle {
	return &Bundle{Name: name, Kind: KindBundle, Dir: dir}
}

// NewParcel creates an empty parcel for the given view.
func NewParcel(name, view, dir string) *Bundle {
	return &Bundle{
		Name:         name,
		Kind:         KindParcel,
		Dir:          dir,
		View:         view,
		KeepSeparate: true,
	}
}

// IsParcel reports whether b is rooted at an entry view.
func (b *Bundle) IsParcel() bool {
	return b.Kind == KindParcel
}

// Key identifies the node across both namespaces.
func (b *Bundle) Key() string {
	return NodeKey(b.Kind, b.Name)
}

// bundleName returns the name b occupies among library bundles, or ""
// for a parcel.
func (b *Bundle) bundleName() string {
	if b.IsParcel() {
		return ""
	}
	return b.Name
}

// NodeKey builds the graph key for a node of the given kind.
func NodeKey(kind Kind, name string) string {
	return kind.String() + ":" + name
}

// AddFile appends a local file unless one with the same path exists.
func (b *Bundle) AddFile(f *asset.File) {
	for _, existing := range b.Files {
		if existing.Path == f.Path {
			return
		}
	}
	b.Files = append(b.Files, f)
}

// AddAsset appends a copied-only asset unless one with the same path exists.
func (b *Bundle) AddAsset(f *asset.File) {
	for _, existing := range b.Assets {
		if existing.Path == f.Path {
			return
		}
	}
	b.Assets = append(b.Assets, f)
}

// OutputID returns the stable id, falling back to the name with separators
// flattened when no id was assigned.
func (b *Bundle) OutputID() string {
	if b.ID != "" {
		return b.ID
	}
	return strings.ReplaceAll(b.Name, "/", "_")
}

// Registry holds the bundles and parcels of one build invocation.
// Registration is insert-once: the name is the key and a second
// registration under the same name is rejected.
type Registry struct {
	mu      sync.RWMutex
	bundles map[string]*Bundle
	parcels map[string]*Bundle
	// owners maps a local file path to the key of the node that owns it.
	owners map[string]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		bundles: make(map[string]*Bundle),
		parcels: make(map[string]*Bundle),
		owners:  make(map[string]string),
	}
}

// Add registers a bundle or parcel according to its Kind.
func (r *Registry) Add(b *Bundle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	table := r.bundles
	if b.IsParcel() {
		table = r.parcels
	}
	if _, exists := table[b.Name]; exists {
		return fmt.Errorf("%s %q registered twice", b.Kind, b.Name)
	}
	table[b.Name] = b
	r.indexLocked(b)
	return nil
}

// Replace registers b, replacing any node of the same kind and name.
// Used by incremental rebuilds to patch a single node.
func (r *Registry) Replace(b *Bundle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	table := r.bundles
	if b.IsParcel() {
		table = r.parcels
	}
	if old, exists := table[b.Name]; exists {
		r.unindexLocked(old)
	}
	table[b.Name] = b
	r.indexLocked(b)
}

// Remove deletes the node with the given kind and name.
func (r *Registry) Remove(kind Kind, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	table := r.bundles
	if kind == KindParcel {
		table = r.parcels
	}
	if old, exists := table[name]; exists {
		r.unindexLocked(old)
		delete(table, name)
	}
}

func (r *Registry) indexLocked(b *Bundle) {
	key := b.Key()
	for _, f := range slices.Concat(b.Files, b.Assets) {
		if _, taken := r.owners[f.Path]; !taken {
			r.owners[f.Path] = key
		}
	}
	if b.View != "" {
		r.owners[b.View] = key
	}
}

func (r *Registry) unindexLocked(b *Bundle) {
	key := b.Key()
	for p, owner := range r.owners {
		if owner == key {
			delete(r.owners, p)
		}
	}
}

// Bundle returns the library bundle with the given name.
func (r *Registry) Bundle(name string) (*Bundle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bundles[name]
	return b, ok
}

// Parcel returns the parcel with the given name.
func (r *Registry) Parcel(name string) (*Bundle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.parcels[name]
	return p, ok
}

// Node returns the bundle or parcel with the given graph key.
func (r *Registry) Node(key string) (*Bundle, bool) {
	if name, ok := strings.CutPrefix(key, KindParcel.String()+":"); ok {
		return r.Parcel(name)
	}
	if name, ok := strings.CutPrefix(key, KindBundle.String()+":"); ok {
		return r.Bundle(name)
	}
	return nil, false
}

// Owner returns the node that owns the file at path, if any.
func (r *Registry) Owner(path string) (*Bundle, bool) {
	r.mu.RLock()
	key, ok := r.owners[path]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return r.Node(key)
}

// BundleNames returns the sorted names of all library bundles.
func (r *Registry) BundleNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.bundles))
	for name := range r.bundles {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ParcelNames returns the sorted names of all parcels.
func (r *Registry) ParcelNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.parcels))
	for name := range r.parcels {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Bundles returns all library bundles ordered by name.
func (r *Registry) Bundles() []*Bundle {
	var out []*Bundle
	for _, name := range r.BundleNames() {
		if b, ok := r.Bundle(name); ok {
			out = append(out, b)
		}
	}
	return out
}

// Parcels returns all parcels ordered by name.
func (r *Registry) Parcels() []*Bundle {
	var out []*Bundle
	for _, name := range r.ParcelNames() {
		if p, ok := r.Parcel(name); ok {
			out = append(out, p)
		}
	}
	return out
}
