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

// Package manifest provides the persisted build manifest consumed at render
// time: package and entry point ids, the ordered assets each entry point
// requires, and the asset fingerprint map.
package manifest

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/rotundasoftware/cartero/asset"
	"github.com/rotundasoftware/cartero/fs"
)

// FormatVersion is written to every manifest. Readers reject other versions.
const FormatVersion = 1

// FileName is the manifest's name inside the output directory.
const FileName = "cartero.json"

// EntryAssets lists the output paths an entry point requires, by asset type,
// in load order. Paths are relative to the output directory.
type EntryAssets map[asset.Type][]string

// Manifest is the build result persisted as JSON.
type Manifest struct {
	FormatVersion int `json:"formatVersion"`

	// PackageMap maps a bundle's relative directory to its package id.
	PackageMap map[string]string `json:"packageMap"`

	// EntryPointMap maps a relative view path to its parcel id.
	EntryPointMap map[string]string `json:"entryPointMap"`

	// ViewMap maps the SHA-1 of a relative view path to its parcel id.
	ViewMap map[string]string `json:"viewMap,omitempty"`

	// AssetsRequiredByEntryPoint maps a relative view path to its assets.
	AssetsRequiredByEntryPoint map[string]EntryAssets `json:"assetsRequiredByEntryPoint"`

	// AssetMap maps a relative source asset path to its relative
	// fingerprinted output path.
	AssetMap map[string]string `json:"assetMap"`
}

// New creates an empty manifest of the current format.
func New() *Manifest {
	return &Manifest{
		FormatVersion:              FormatVersion,
		PackageMap:                 make(map[string]string),
		EntryPointMap:              make(map[string]string),
		ViewMap:                    make(map[string]string),
		AssetsRequiredByEntryPoint: make(map[string]EntryAssets),
		AssetMap:                   make(map[string]string),
	}
}

// Parse parses JSON data into a Manifest.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	if m.FormatVersion != FormatVersion {
		return nil, fmt.Errorf("unsupported manifest format version %d (want %d)", m.FormatVersion, FormatVersion)
	}
	// Empty maps may be omitted from the document.
	m.PackageMap = orEmpty(m.PackageMap)
	m.EntryPointMap = orEmpty(m.EntryPointMap)
	m.ViewMap = orEmpty(m.ViewMap)
	m.AssetMap = orEmpty(m.AssetMap)
	if m.AssetsRequiredByEntryPoint == nil {
		m.AssetsRequiredByEntryPoint = make(map[string]EntryAssets)
	}
	return &m, nil
}

func orEmpty(m map[string]string) map[string]string {
	if m == nil {
		return make(map[string]string)
	}
	return m
}

// ParseFile reads and parses the manifest at path.
func ParseFile(fsys fs.FileSystem, path string) (*Manifest, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return m, nil
}

// HashView returns the ViewMap key for a relative view path.
func HashView(view string) string {
	sum := sha1.Sum([]byte(view))
	return hex.EncodeToString(sum[:])
}

// AddEntryPoint records an entry point, its parcel id and its assets.
func (m *Manifest) AddEntryPoint(view, id string, assets EntryAssets) {
	m.EntryPointMap[view] = id
	m.ViewMap[HashView(view)] = id
	m.AssetsRequiredByEntryPoint[view] = assets
}

// RemoveEntryPoint deletes every record of an entry point.
func (m *Manifest) RemoveEntryPoint(view string) {
	delete(m.EntryPointMap, view)
	delete(m.ViewMap, HashView(view))
	delete(m.AssetsRequiredByEntryPoint, view)
}

// EntryPoints returns the sorted relative view paths.
func (m *Manifest) EntryPoints() []string {
	return slices.Sorted(maps.Keys(m.AssetsRequiredByEntryPoint))
}

// Clone creates a deep copy of the manifest.
func (m *Manifest) Clone() *Manifest {
	if m == nil {
		return nil
	}
	result := &Manifest{
		FormatVersion: m.FormatVersion,
		PackageMap:    maps.Clone(m.PackageMap),
		EntryPointMap: maps.Clone(m.EntryPointMap),
		ViewMap:       maps.Clone(m.ViewMap),
		AssetMap:      maps.Clone(m.AssetMap),
	}
	if m.AssetsRequiredByEntryPoint != nil {
		result.AssetsRequiredByEntryPoint = make(map[string]EntryAssets, len(m.AssetsRequiredByEntryPoint))
		for view, assets := range m.AssetsRequiredByEntryPoint {
			copied := make(EntryAssets, len(assets))
			for t, paths := range assets {
				copied[t] = slices.Clone(paths)
			}
			result.AssetsRequiredByEntryPoint[view] = copied
		}
	}
	return result
}

// ToJSON converts the manifest to an indented JSON string.
// Returns an empty string if the manifest is nil.
func (m *Manifest) ToJSON() string {
	if m == nil {
		return ""
	}
	bytes, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return ""
	}
	return string(bytes)
}

// Write persists the manifest at path. The file is replaced atomically so
// a failed write leaves the previous manifest in place.
func (m *Manifest) Write(fsys fs.FileSystem, path string) error {
	bytes, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	return fs.WriteFileAtomic(fsys, path, append(bytes, '\n'), 0644)
}
