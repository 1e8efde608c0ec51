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

package fingerprint_test

import (
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/rotundasoftware/cartero/fingerprint"
)

func TestParseTemplate(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		wantErr bool
	}{
		{
			name:    "default template",
			pattern: fingerprint.DefaultTemplate,
		},
		{
			name:    "hash first",
			pattern: "{hash}.{name}{ext}",
		},
		{
			name:    "missing hash",
			pattern: "{name}{ext}",
			wantErr: true,
		},
		{
			name:    "invalid variable",
			pattern: "{name}_{hash}_{version}{ext}",
			wantErr: true,
		},
		{
			name:    "path separator",
			pattern: "assets/{name}_{hash}{ext}",
			wantErr: true,
		},
		{
			name:    "empty pattern",
			pattern: "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, err := fingerprint.ParseTemplate(tt.pattern)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseTemplate() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && tmpl.Pattern() != tt.pattern {
				t.Errorf("Pattern() = %q, want %q", tmpl.Pattern(), tt.pattern)
			}
		})
	}
}

func TestName(t *testing.T) {
	tmpl := fingerprint.MustParseTemplate(fingerprint.DefaultTemplate)
	content := []byte("body{}")
	hash := fingerprint.Hash(content)

	tests := []struct {
		name string
		path string
		ext  string
		want string
	}{
		{name: "keeps source extension", path: "/lib/ui/style.css", want: "style_" + hash + ".css"},
		{name: "processed extension", path: "/lib/ui/style.scss", ext: ".css", want: "style_" + hash + ".css"},
		{name: "dotted base name", path: "/lib/jquery.min.js", want: "jquery.min_" + hash + ".js"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := fingerprint.Name(tmpl, tt.path, tt.ext, content); got != tt.want {
				t.Errorf("Name() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestAssetMapStability(t *testing.T) {
	m := fingerprint.NewAssetMap()

	out, added := m.Register("lib/ui/logo.png", "id1/logo_aaa.png")
	if !added || out != "id1/logo_aaa.png" {
		t.Fatalf("Expected first registration to add, got %s %v", out, added)
	}

	// The file changed; its fingerprint would differ but the entry stays.
	out, added = m.Register("lib/ui/logo.png", "id1/logo_bbb.png")
	if added {
		t.Error("Expected changed file not to re-register")
	}
	if out != "id1/logo_aaa.png" {
		t.Errorf("Expected original output path to stay in effect, got %s", out)
	}

	m.Register("lib/ui/new.png", "id1/new_ccc.png")
	want := map[string]string{
		"lib/ui/logo.png": "id1/logo_aaa.png",
		"lib/ui/new.png":  "id1/new_ccc.png",
	}
	if got := m.Snapshot(); !reflect.DeepEqual(got, want) {
		t.Errorf("Snapshot() = %v, want %v", got, want)
	}

	m.Remove("lib/ui/new.png")
	if _, ok := m.Lookup("lib/ui/new.png"); ok {
		t.Error("Expected removed entry to be gone")
	}
}

func TestAssetMapConcurrentRegister(t *testing.T) {
	m := fingerprint.NewAssetMap()
	var wg sync.WaitGroup
	results := make([]string, 50)
	for i := range results {
		wg.Go(func() {
			out, _ := m.Register("a.png", "out"+string(rune('A'+i%26))+".png")
			results[i] = out
		})
	}
	wg.Wait()

	for _, r := range results {
		if r != results[0] {
			t.Fatalf("Expected every caller to observe one output path, got %v", results)
		}
	}
}

func TestRewriteURLs(t *testing.T) {
	assets := map[string]string{
		"/lib/ui/images/logo.png": "abc/logo_123.png",
		"/lib/shared/bg.png":      "def/bg_456.png",
	}
	lookup := func(src string) (string, bool) {
		out, ok := assets[src]
		return out, ok
	}

	content := []byte(`.a{background:url(##url('images/logo.png'))}
.b{background:url(##url("../shared/bg.png"))}
.c{background:url(##url(images/logo.png))}
.d{background:url(##url('missing.png'))}`)

	got, errs := fingerprint.RewriteURLs(content, "/lib/ui/style.css", "/static/", lookup)

	want := `.a{background:url(/static/abc/logo_123.png)}
.b{background:url(/static/def/bg_456.png)}
.c{background:url(/static/abc/logo_123.png)}
.d{background:url(##url('missing.png'))}`
	if string(got) != want {
		t.Errorf("RewriteURLs() =\n%s\nwant\n%s", got, want)
	}

	if len(errs) != 1 {
		t.Fatalf("Expected 1 resolution error, got %v", errs)
	}
	if errs[0].Reference != "missing.png" {
		t.Errorf("Expected missing.png to be reported, got %s", errs[0].Reference)
	}
	if !errors.Is(errs[0], fingerprint.ErrAssetNotFound) {
		t.Error("Expected AssetResolutionError to match ErrAssetNotFound")
	}
}

func TestJoinURL(t *testing.T) {
	tests := []struct {
		base, rel, want string
	}{
		{"", "abc/a.png", "/abc/a.png"},
		{"/static", "abc/a.png", "/static/abc/a.png"},
		{"https://cdn.example.com/", "abc/a.png", "https://cdn.example.com/abc/a.png"},
	}
	for _, tt := range tests {
		if got := fingerprint.JoinURL(tt.base, tt.rel); got != tt.want {
			t.Errorf("JoinURL(%q, %q) = %q, want %q", tt.base, tt.rel, got, tt.want)
		}
	}
}
