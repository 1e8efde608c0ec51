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

package fingerprint

import (
	"maps"
	"sync"
)

// AssetMap maps source asset paths to fingerprinted output paths, both
// relative. Entries are insert-once: a source whose content later changes
// keeps its first output name for as long as the map lives, so outputs
// already written that reference it stay valid. Only a fresh map, as
// created by a full build, picks up new fingerprints.
type AssetMap struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewAssetMap creates an empty map.
func NewAssetMap() *AssetMap {
	return &AssetMap{entries: make(map[string]string)}
}

// Register records src -> out unless src is already present. It returns
// the output path in effect and whether this call added it.
func (m *AssetMap) Register(src, out string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.entries[src]; ok {
		return existing, false
	}
	m.entries[src] = out
	return out, true
}

// Lookup returns the output path for src.
func (m *AssetMap) Lookup(src string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out, ok := m.entries[src]
	return out, ok
}

// Remove drops the entry for src. Used when a source file is deleted.
func (m *AssetMap) Remove(src string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, src)
}

// Len returns the number of entries.
func (m *AssetMap) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Snapshot returns a copy of the entries.
func (m *AssetMap) Snapshot() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.entries)
}
