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

package inject_test

import (
	"strings"
	"testing"

	"github.com/rotundasoftware/cartero/asset"
	"github.com/rotundasoftware/cartero/inject"
	"github.com/rotundasoftware/cartero/internal/mapfs"
	"github.com/rotundasoftware/cartero/manifest"
)

const page = `<!doctype html>
<html>
  <head>
    <title>Page</title>
    <script>if (a) { document.write("</head>"); }</script>
  </head>
  <body>
    <!-- </body> -->
    <h1>Page</h1>
  </body>
</html>
`

const injected = `<!doctype html>
<html>
  <head>
    <title>Page</title>
    <script>if (a) { document.write("</head>"); }</script>
    <!-- cartero:begin -->
    <link rel="stylesheet" href="/static/p/page_1.css">
    <!-- cartero:end -->
  </head>
  <body>
    <!-- </body> -->
    <h1>Page</h1>
    <!-- cartero:begin -->
    <script src="/static/common/common_2.js"></script>
    <script src="/static/p/page_3.js"></script>
    <!-- cartero:end -->
  </body>
</html>
`

func testManifest() *manifest.Manifest {
	m := manifest.New()
	m.AddEntryPoint("page.html", "p", manifest.EntryAssets{
		asset.Style:    {"p/page_1.css"},
		asset.Script:   {"common/common_2.js", "p/page_3.js"},
		asset.Template: {"p/row_4.tmpl"},
	})
	return m
}

func TestApply(t *testing.T) {
	tags, err := testManifest().Tags("page.html", "/static")
	if err != nil {
		t.Fatalf("Tags failed: %v", err)
	}

	got, inserted, err := inject.Apply([]byte(page), tags.Head(), tags.Body())
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if !inserted {
		t.Error("Expected a fresh insertion")
	}
	if string(got) != injected {
		t.Errorf("Apply() =\n%s\nwant\n%s", got, injected)
	}

	again, inserted, err := inject.Apply(got, tags.Head(), tags.Body())
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if inserted {
		t.Error("Second run should replace the existing blocks")
	}
	if string(again) != injected {
		t.Errorf("Apply() is not idempotent:\n%s", again)
	}

	clean, found, err := inject.RemoveBlocks(got)
	if err != nil || !found {
		t.Fatalf("RemoveBlocks = %v, %v", found, err)
	}
	if string(clean) != page {
		t.Errorf("RemoveBlocks() =\n%s\nwant\n%s", clean, page)
	}
}

func TestApplyErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		head    string
		wantErr string
	}{
		{
			name:    "no head",
			content: "<p>fragment</p>",
			head:    "<link>\n",
			wantErr: "no </head>",
		},
		{
			name:    "unterminated block",
			content: "<head>" + inject.BeginMarker + "</head>",
			wantErr: "unterminated",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := inject.Apply([]byte(tt.content), tt.head, "")
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Apply() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestApplyFragmentAppendsBody(t *testing.T) {
	got, _, err := inject.Apply([]byte("<p>fragment</p>"), "", "<script src=\"/a.js\"></script>\n")
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	want := "<p>fragment</p>\n  " + inject.BeginMarker + "\n  <script src=\"/a.js\"></script>\n  " + inject.EndMarker + "\n"
	if string(got) != want {
		t.Errorf("Apply() = %q, want %q", got, want)
	}
}

func TestInjectBatch(t *testing.T) {
	mfs := mapfs.New()
	mfs.AddFile("/p/views/page.html", page, 0644)
	mfs.AddFile("/p/views/other.html", page, 0644)
	mfs.AddFile("/p/out/p/row_4.tmpl", "<tr></tr>\n", 0644)

	opts := inject.Options{ViewsDir: "/p/views", BaseURL: "/static", OutputDir: "/p/out", Parallel: 2}
	var stats inject.Stats
	results := map[string]inject.Result{}
	for r := range inject.InjectBatch(mfs, []string{"/p/views/page.html", "/p/views/other.html"}, testManifest(), opts) {
		stats.Add(r)
		results[r.File] = r
	}

	if stats.Total != 2 || stats.Inserted != 1 || stats.Errors != 1 {
		t.Errorf("Stats = %+v", stats)
	}
	if r := results["/p/views/other.html"]; !strings.Contains(r.Error, "other.html") {
		t.Errorf("Unknown view result = %+v", r)
	}

	content, err := mfs.ReadFile("/p/views/page.html")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(content), `<script type="text/template" data-cartero="row_4">`) {
		t.Errorf("Template not inlined:\n%s", content)
	}

	// A second run finds nothing to change.
	for r := range inject.InjectBatch(mfs, []string{"/p/views/page.html"}, testManifest(), opts) {
		if r.Modified || r.Error != "" {
			t.Errorf("Second run result = %+v", r)
		}
	}
}

func TestInjectDryRun(t *testing.T) {
	mfs := mapfs.New()
	mfs.AddFile("/p/views/page.html", page, 0644)

	r := inject.InjectFile(mfs, "/p/views/page.html", testManifest(), inject.Options{ViewsDir: "/p/views", DryRun: true})
	if !r.Modified || r.Error != "" {
		t.Errorf("Result = %+v", r)
	}
	content, _ := mfs.ReadFile("/p/views/page.html")
	if string(content) != page {
		t.Error("Dry run modified the file")
	}
}
