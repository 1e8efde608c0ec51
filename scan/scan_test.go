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

package scan_test

import (
	"reflect"
	"testing"

	"github.com/rotundasoftware/cartero/asset"
	"github.com/rotundasoftware/cartero/bundle"
	"github.com/rotundasoftware/cartero/scan"
	"github.com/rotundasoftware/cartero/testutil"
)

func TestScanLibrary(t *testing.T) {
	mfs := testutil.NewFixtureFS(t, "project/basic", "/project")
	reg, err := scan.New(mfs, testutil.NewConfig("/project"), nil).Scan()
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	wantNames := []string{"common", "jquery", "ui", "ui/forms"}
	if got := reg.BundleNames(); !reflect.DeepEqual(got, wantNames) {
		t.Fatalf("BundleNames() = %v, want %v", got, wantNames)
	}

	tests := []struct {
		name         string
		files        []string
		assets       []string
		deps         []string
		keepSeparate bool
	}{
		{
			name:         "common",
			files:        []string{"/project/library/common/a.css", "/project/library/common/b.css"},
			keepSeparate: true,
		},
		{
			name:  "jquery",
			files: []string{"/project/library/jquery/jquery.js"},
		},
		{
			name:   "ui",
			files:  []string{"/project/library/ui/ui.css", "/project/library/ui/ui.js"},
			assets: []string{"/project/library/ui/_images/logo.png"},
			deps:   []string{"jquery"},
		},
		{
			name:  "ui/forms",
			files: []string{"/project/library/ui/forms/forms.js"},
			deps:  []string{"ui"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, ok := reg.Bundle(tt.name)
			if !ok {
				t.Fatalf("Bundle %s not found", tt.name)
			}
			if got := asset.Paths(b.Files); !reflect.DeepEqual(got, tt.files) {
				t.Errorf("Files = %v, want %v", got, tt.files)
			}
			if got := asset.Paths(b.Assets); len(got) != len(tt.assets) || (len(got) > 0 && !reflect.DeepEqual(got, tt.assets)) {
				t.Errorf("Assets = %v, want %v", got, tt.assets)
			}
			if !reflect.DeepEqual(b.Dependencies, tt.deps) {
				t.Errorf("Dependencies = %v, want %v", b.Dependencies, tt.deps)
			}
			if b.KeepSeparate != tt.keepSeparate {
				t.Errorf("KeepSeparate = %v, want %v", b.KeepSeparate, tt.keepSeparate)
			}
			if b.ID != scan.ID("library/"+tt.name) {
				t.Errorf("ID = %s, want %s", b.ID, scan.ID("library/"+tt.name))
			}
		})
	}
}

func TestScanViews(t *testing.T) {
	mfs := testutil.NewFixtureFS(t, "project/basic", "/project")
	reg, err := scan.New(mfs, testutil.NewConfig("/project"), nil).Scan()
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	wantNames := []string{"admin/dashboard.html", "page1.html", "page1_1.html"}
	if got := reg.ParcelNames(); !reflect.DeepEqual(got, wantNames) {
		t.Fatalf("ParcelNames() = %v, want %v", got, wantNames)
	}

	tests := []struct {
		name    string
		files   []string
		deps    []string
		extends string
	}{
		{
			name:  "admin/dashboard.html",
			files: []string{"/project/views/admin/dashboard.css"},
			deps:  []string{"ui"},
		},
		{
			name:  "page1.html",
			files: []string{"/project/views/page1.js"},
			deps:  []string{"jquery", "common", "ui/*"},
		},
		{
			name:    "page1_1.html",
			files:   []string{"/project/views/page1_1.js", "/project/views/_page1_1/row.tmpl"},
			deps:    []string{"jquery", "common"},
			extends: "page1.html",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok := reg.Parcel(tt.name)
			if !ok {
				t.Fatalf("Parcel %s not found", tt.name)
			}
			if !p.KeepSeparate {
				t.Error("Parcels must be kept separate")
			}
			if got := asset.Paths(p.Files); !reflect.DeepEqual(got, tt.files) {
				t.Errorf("Files = %v, want %v", got, tt.files)
			}
			if !reflect.DeepEqual(p.Dependencies, tt.deps) {
				t.Errorf("Dependencies = %v, want %v", p.Dependencies, tt.deps)
			}
			if p.Extends != tt.extends {
				t.Errorf("Extends = %q, want %q", p.Extends, tt.extends)
			}
		})
	}

	owner, ok := reg.Owner("/project/views/_page1_1/row.tmpl")
	if !ok || owner.Name != "page1_1.html" {
		t.Errorf("Expected page1_1.html to own row.tmpl, got %v", owner)
	}
}

func TestOwningView(t *testing.T) {
	mfs := testutil.NewFixtureFS(t, "project/basic", "/project")
	s := scan.New(mfs, testutil.NewConfig("/project"), nil)

	tests := []struct {
		path string
		want string
	}{
		{"/project/views/page1.html", "/project/views/page1.html"},
		{"/project/views/gone.html", "/project/views/gone.html"},
		{"/project/views/page1.css", "/project/views/page1.html"},
		{"/project/views/_page1_1/rows/cell.tmpl", "/project/views/page1_1.html"},
		{"/project/views/admin/dashboard.js", "/project/views/admin/dashboard.html"},
		{"/project/views/orphan.js", ""},
		{"/project/views/bundle.json", ""},
		{"/project/views/__drafts/page1.js", ""},
		{"/project/library/ui/ui.js", ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := s.OwningView(tt.path)
			if got != tt.want || ok != (tt.want != "") {
				t.Errorf("OwningView(%s) = %q, %v, want %q", tt.path, got, ok, tt.want)
			}
		})
	}
}

func TestScanResolvesFixture(t *testing.T) {
	mfs := testutil.NewFixtureFS(t, "project/basic", "/project")
	reg, err := scan.New(mfs, testutil.NewConfig("/project"), nil).Scan()
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	res, err := bundle.NewResolver(reg, nil).ResolveAll()
	if err != nil {
		t.Fatalf("ResolveAll failed: %v", err)
	}

	page1 := []string{
		"/project/library/jquery/jquery.js",
		"/project/library/common/a.css",
		"/project/library/common/b.css",
		"/project/library/ui/ui.css",
		"/project/library/ui/ui.js",
		"/project/library/ui/forms/forms.js",
		"/project/views/page1.js",
	}
	if got := asset.Paths(res.Parcels["page1.html"]); !reflect.DeepEqual(got, page1) {
		t.Errorf("page1.html resolved to %v, want %v", got, page1)
	}

	page11 := append(append([]string{}, page1...),
		"/project/views/page1_1.js",
		"/project/views/_page1_1/row.tmpl",
	)
	if got := asset.Paths(res.Parcels["page1_1.html"]); !reflect.DeepEqual(got, page11) {
		t.Errorf("page1_1.html resolved to %v, want %v", got, page11)
	}
	if len(res.Unresolved) != 0 {
		t.Errorf("Expected no unresolved references, got %v", res.Unresolved)
	}
}

func TestParseDirectives(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		wantReq     []string
		wantExtends string
	}{
		{
			name:    "double quotes",
			content: `{{/* ##cartero_requires "a", "ui/*" */}}`,
			wantReq: []string{"a", "ui/*"},
		},
		{
			name:    "single quotes across lines",
			content: "<!-- ##cartero_requires 'a' -->\n<!-- ##cartero_requires 'b' -->",
			wantReq: []string{"a", "b"},
		},
		{
			name:        "extends",
			content:     `##cartero_extends "layouts/base.html"`,
			wantExtends: "layouts/base.html",
		},
		{
			name:    "no directives",
			content: "<p>hello</p>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, ext := scan.ParseDirectives([]byte(tt.content))
			if !reflect.DeepEqual(req, tt.wantReq) {
				t.Errorf("requires = %v, want %v", req, tt.wantReq)
			}
			if ext != tt.wantExtends {
				t.Errorf("extends = %q, want %q", ext, tt.wantExtends)
			}
		})
	}
}

func TestScanSubDirectoriesPattern(t *testing.T) {
	mfs := testutil.NewFixtureFS(t, "project/basic", "/project")
	mfs.AddFile("/project/library/widgets/bundle.json", `{"subDirectories": "parts-*"}`, 0644)
	mfs.AddFile("/project/library/widgets/widget.js", "w()", 0644)
	mfs.AddFile("/project/library/widgets/parts-a/a.js", "a()", 0644)
	mfs.AddFile("/project/library/widgets/extra/e.js", "e()", 0644)

	reg, err := scan.New(mfs, testutil.NewConfig("/project"), nil).Scan()
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	widgets, ok := reg.Bundle("widgets")
	if !ok {
		t.Fatal("widgets bundle not found")
	}
	want := []string{"/project/library/widgets/widget.js", "/project/library/widgets/parts-a/a.js"}
	if got := asset.Paths(widgets.Files); !reflect.DeepEqual(got, want) {
		t.Errorf("Files = %v, want %v", got, want)
	}
	if _, ok := reg.Bundle("widgets/parts-a"); ok {
		t.Error("Folded directory must not become a bundle")
	}
	if _, ok := reg.Bundle("widgets/extra"); !ok {
		t.Error("Unmatched subdirectory must become its own bundle")
	}
}

func TestScanInvalidDefinition(t *testing.T) {
	mfs := testutil.NewFixtureFS(t, "project/basic", "/project")
	mfs.AddFile("/project/library/broken/bundle.json", `{"dependencies": `, 0644)

	if _, err := scan.New(mfs, testutil.NewConfig("/project"), nil).Scan(); err == nil {
		t.Error("Expected error for malformed bundle.json")
	}
}
