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

	"github.com/rotundasoftware/cartero/merge"
)

// ModuleBundler is the script module bundler collaborator. Given the script
// sources of each entry point in resolved order, it produces one script
// artifact per entry point and optionally one artifact shared by all.
type ModuleBundler interface {
	Bundle(ctx context.Context, req *BundleRequest) (*BundleOutput, error)
}

// Entry is one entry point handed to a ModuleBundler.
type Entry struct {
	Name    string
	Scripts []string
	// Roots are the scripts owned by the entry point itself, as opposed
	// to those contributed by library bundles.
	Roots []string
}

// BundleRequest asks a ModuleBundler to bundle entries.
type BundleRequest struct {
	Entries []Entry
	// Read returns processed script content.
	Read merge.ReadFunc
	// Common fixes the shared sources of an earlier run. When set, the
	// bundler keeps these sources out of entry artifacts and does not
	// produce a new common artifact.
	Common []string
}

// Artifact is bundled script content.
type Artifact struct {
	Content []byte
	// Sources are the script sources the artifact contains, in order.
	Sources []string
}

// BundleOutput is the result of a ModuleBundler run.
type BundleOutput struct {
	// Entries maps entry name to its artifact. Entries without scripts
	// may be absent.
	Entries map[string]*Artifact
	// Common is the shared artifact, or nil.
	Common *Artifact
}
