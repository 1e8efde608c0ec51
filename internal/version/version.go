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

// Package version provides version information for the cartero CLI.
package version

import (
	"runtime"
	"runtime/debug"

	"github.com/rotundasoftware/cartero/manifest"
)

// Version is set at build time via ldflags, e.g.
// -X github.com/rotundasoftware/cartero/internal/version.Version=v1.2.0
var Version = "dev"

// BuildInfo describes the running binary.
type BuildInfo struct {
	Version        string `json:"version"`
	Revision       string `json:"revision,omitempty"`
	Modified       bool   `json:"modified,omitempty"`
	GoVersion      string `json:"goVersion"`
	ManifestFormat int    `json:"manifestFormat"`
}

// GetVersion returns the version string for the application. Without
// ldflags it falls back to the module version recorded by the toolchain.
func GetVersion() string {
	if Version != "dev" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "(devel)" && info.Main.Version != "" {
			return info.Main.Version
		}
	}
	return Version
}

// GetBuildInfo returns detailed build information, including the VCS
// state embedded by go build.
func GetBuildInfo() BuildInfo {
	bi := BuildInfo{
		Version:        GetVersion(),
		GoVersion:      runtime.Version(),
		ManifestFormat: manifest.FormatVersion,
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				bi.Revision = s.Value
			case "vcs.modified":
				bi.Modified = s.Value == "true"
			}
		}
	}
	return bi
}

// GetFullVersion returns the version with a short revision, if known.
func GetFullVersion() string {
	bi := GetBuildInfo()
	if bi.Revision == "" {
		return bi.Version
	}
	rev := bi.Revision[:min(7, len(bi.Revision))]
	if bi.Modified {
		rev += "-dirty"
	}
	return bi.Version + " (commit: " + rev + ")"
}
