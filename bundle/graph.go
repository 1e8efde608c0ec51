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
	"slices"
	"strings"
	"sync"
)

// DependencyGraph tracks edges between bundle and parcel keys for
// incremental rebuilds. An edge from A to B means A's resolved output
// includes B's, either through a dependency or through extends.
type DependencyGraph struct {
	mu sync.RWMutex

	// dependsOn maps node key -> set of node keys it pulls in
	// e.g., "parcel:page1" -> {"bundle:common": true}
	dependsOn map[string]map[string]bool

	// dependents maps node key -> set of node keys that pull it in
	// e.g., "bundle:common" -> {"parcel:page1": true}
	dependents map[string]map[string]bool
}

// NewDependencyGraph creates a new empty dependency graph.
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		dependsOn:  make(map[string]map[string]bool),
		dependents: make(map[string]map[string]bool),
	}
}

// BuildDependencyGraph records every dependency (wildcards expanded) and
// every extends edge in reg. References to unknown nodes are skipped.
func BuildDependencyGraph(reg *Registry) *DependencyGraph {
	g := NewDependencyGraph()
	names := reg.BundleNames()

	nodes := append(reg.Bundles(), reg.Parcels()...)
	for _, b := range nodes {
		g.ensure(b.Key())
		for _, dep := range ExpandDependencies(b.Dependencies, names, b.bundleName()) {
			if _, ok := reg.Bundle(dep); ok {
				g.AddDependency(b.Key(), NodeKey(KindBundle, dep))
			}
		}
		if b.Extends != "" {
			if _, ok := reg.Parcel(b.Extends); ok {
				g.AddDependency(b.Key(), NodeKey(KindParcel, b.Extends))
			}
		}
	}
	return g
}

func (g *DependencyGraph) ensure(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.dependsOn[key] == nil {
		g.dependsOn[key] = make(map[string]bool)
	}
}

// AddDependency records that node depends on dep.
// Updates both dependsOn and dependents maps.
func (g *DependencyGraph) AddDependency(node, dep string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.dependsOn[node] == nil {
		g.dependsOn[node] = make(map[string]bool)
	}
	g.dependsOn[node][dep] = true

	if g.dependents[dep] == nil {
		g.dependents[dep] = make(map[string]bool)
	}
	g.dependents[dep][node] = true
}

// Dependents returns all nodes that directly depend on key.
func (g *DependencyGraph) Dependents(key string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return sortedKeys(g.dependents[key])
}

// TransitiveDependents returns all nodes that directly or indirectly
// depend on key. Cycles are tolerated.
func (g *DependencyGraph) TransitiveDependents(key string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	visited := map[string]bool{key: true}
	queue := []string{key}
	var result []string

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for dep := range g.dependents[current] {
			if !visited[dep] {
				visited[dep] = true
				result = append(result, dep)
				queue = append(queue, dep)
			}
		}
	}

	slices.Sort(result)
	return result
}

// AffectedParcels returns the names of parcels whose output depends on the
// node with the given key, including the node itself when it is a parcel.
func (g *DependencyGraph) AffectedParcels(key string) []string {
	var names []string
	prefix := KindParcel.String() + ":"
	for _, k := range append([]string{key}, g.TransitiveDependents(key)...) {
		if name, ok := strings.CutPrefix(k, prefix); ok {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return slices.Compact(names)
}

// RemoveNode removes a node and all its edges from the graph.
// Returns the nodes that were dependents of the removed node.
func (g *DependencyGraph) RemoveNode(key string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	result := sortedKeys(g.dependents[key])

	for dep := range g.dependsOn[key] {
		delete(g.dependents[dep], key)
	}
	for dependent := range g.dependents[key] {
		delete(g.dependsOn[dependent], key)
	}

	delete(g.dependsOn, key)
	delete(g.dependents, key)
	return result
}

func sortedKeys(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	result := make([]string, 0, len(set))
	for k := range set {
		result = append(result, k)
	}
	slices.Sort(result)
	return result
}
