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

import "fmt"

// EventKind identifies a build lifecycle signal.
type EventKind int

const (
	// PackageCreated is emitted when a package output directory is created.
	PackageCreated EventKind = iota
	// AssetWritten is emitted for every individually written asset.
	AssetWritten
	// CommonWritten is emitted when the shared module bundle is written.
	CommonWritten
	// BundleWritten is emitted once per entry point whose outputs are done.
	BundleWritten
	// ManifestWritten is emitted after the manifest is persisted.
	ManifestWritten
)

func (k EventKind) String() string {
	switch k {
	case PackageCreated:
		return "package created"
	case AssetWritten:
		return "asset written"
	case CommonWritten:
		return "common written"
	case BundleWritten:
		return "bundle written"
	case ManifestWritten:
		return "manifest written"
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Event is one lifecycle signal. Events of a build are returned in order
// and each is delivered once.
type Event struct {
	Kind EventKind
	// Name is the bundle, parcel or source the event concerns.
	Name string
	// Path is the written output, relative to the output directory.
	Path string
}

func (e Event) String() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Name)
	}
	return fmt.Sprintf("%s: %s -> %s", e.Kind, e.Name, e.Path)
}
