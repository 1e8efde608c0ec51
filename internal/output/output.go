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

// Package output provides shared output utilities for cartero CLI commands.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rotundasoftware/cartero/build"
	"github.com/rotundasoftware/cartero/fs"
)

// Text writes content to path, or prints it to stdout when path is empty.
func Text(osfs fs.FileSystem, path, content string) error {
	if path != "" {
		return fs.WriteFileAtomic(osfs, path, []byte(content), 0644)
	}
	_, err := fmt.Fprint(os.Stdout, content)
	return err
}

type summary struct {
	Rebuilt    []string `json:"rebuilt"`
	Events     []string `json:"events"`
	Unresolved []string `json:"unresolved,omitempty"`
	Manifest   string   `json:"manifest"`
}

// Result reports a completed build in the given format (text or json).
// Text output lists every event only when verbose.
func Result(w io.Writer, res *build.Result, manifestPath, format string, verbose bool) error {
	s := summary{Rebuilt: res.Rebuilt, Manifest: manifestPath}
	for _, e := range res.Events {
		s.Events = append(s.Events, e.String())
	}
	for _, u := range res.Unresolved {
		s.Unresolved = append(s.Unresolved, u.String())
	}

	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}

	if verbose {
		for _, e := range s.Events {
			if _, err := fmt.Fprintln(w, e); err != nil {
				return err
			}
		}
	}
	_, err := fmt.Fprintf(w, "Built %d entry points (%d unresolved references), manifest at %s\n",
		len(s.Rebuilt), len(s.Unresolved), manifestPath)
	return err
}
