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

package manifest

import (
	"fmt"
	"html"
	"strings"

	"github.com/rotundasoftware/cartero/asset"
	"github.com/rotundasoftware/cartero/fingerprint"
)

// Tags holds the markup an entry point needs, as absolute URLs.
type Tags struct {
	Styles    []string `json:"styles"`
	Scripts   []string `json:"scripts"`
	Templates []string `json:"templates"`

	// TemplatePaths are the template outputs relative to the output
	// directory, for renderers that inline template content.
	TemplatePaths []string `json:"templatePaths"`
}

// Tags returns the URLs required by view, which may be a relative view
// path or its ViewMap hash.
func (m *Manifest) Tags(view, baseURL string) (*Tags, error) {
	assets, ok := m.AssetsRequiredByEntryPoint[view]
	if !ok {
		assets, ok = m.assetsByHash(view)
	}
	if !ok {
		return nil, fmt.Errorf("no entry point for view %q", view)
	}

	tags := &Tags{}
	for _, rel := range assets[asset.Style] {
		tags.Styles = append(tags.Styles, fingerprint.JoinURL(baseURL, rel))
	}
	for _, rel := range assets[asset.Script] {
		tags.Scripts = append(tags.Scripts, fingerprint.JoinURL(baseURL, rel))
	}
	for _, rel := range assets[asset.Template] {
		tags.Templates = append(tags.Templates, fingerprint.JoinURL(baseURL, rel))
		tags.TemplatePaths = append(tags.TemplatePaths, rel)
	}
	return tags, nil
}

func (m *Manifest) assetsByHash(hash string) (EntryAssets, bool) {
	id, ok := m.ViewMap[hash]
	if !ok {
		return nil, false
	}
	for view, entryID := range m.EntryPointMap {
		if entryID == id && HashView(view) == hash {
			assets, ok := m.AssetsRequiredByEntryPoint[view]
			return assets, ok
		}
	}
	return nil, false
}

// Head returns the stylesheet link elements, one per line.
func (t *Tags) Head() string {
	var sb strings.Builder
	for _, url := range t.Styles {
		fmt.Fprintf(&sb, "<link rel=\"stylesheet\" href=\"%s\">\n", html.EscapeString(url))
	}
	return sb.String()
}

// Body returns the script elements, one per line.
func (t *Tags) Body() string {
	var sb strings.Builder
	for _, url := range t.Scripts {
		fmt.Fprintf(&sb, "<script src=\"%s\"></script>\n", html.EscapeString(url))
	}
	return sb.String()
}

// String renders all tags: styles, scripts, then template references.
func (t *Tags) String() string {
	var sb strings.Builder
	sb.WriteString(t.Head())
	sb.WriteString(t.Body())
	for _, url := range t.Templates {
		fmt.Fprintf(&sb, "<!-- template: %s -->\n", html.EscapeString(url))
	}
	return sb.String()
}
