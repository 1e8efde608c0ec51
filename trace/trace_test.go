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

package trace_test

import (
	"context"
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/rotundasoftware/cartero/build"
	"github.com/rotundasoftware/cartero/internal/mapfs"
	"github.com/rotundasoftware/cartero/testutil"
	"github.com/rotundasoftware/cartero/trace"
)

func TestExtractImports(t *testing.T) {
	mfs := testutil.NewFixtureFS(t, "trace/extract-imports", "/test")
	js, err := mfs.ReadFile("/test/module.js")
	if err != nil {
		t.Fatalf("Failed to read fixture: %v", err)
	}

	result, err := trace.ExtractImports(js)
	if err != nil {
		t.Fatalf("ExtractImports failed: %v", err)
	}

	expectedBytes, err := mfs.ReadFile("/test/expected.json")
	if err != nil {
		t.Fatalf("Failed to read expected.json: %v", err)
	}

	var expected struct {
		IsModule bool `json:"isModule"`
		Imports  []struct {
			Specifier string `json:"specifier"`
			Dynamic   bool   `json:"dynamic"`
			Require   bool   `json:"require"`
			Line      int    `json:"line"`
		} `json:"imports"`
	}
	if err := json.Unmarshal(expectedBytes, &expected); err != nil {
		t.Fatalf("Failed to parse expected.json: %v", err)
	}

	if result.IsModule != expected.IsModule {
		t.Errorf("IsModule = %v, want %v", result.IsModule, expected.IsModule)
	}
	if len(result.Imports) != len(expected.Imports) {
		t.Fatalf("Expected %d imports, got %d: %+v", len(expected.Imports), len(result.Imports), result.Imports)
	}

	for i, exp := range expected.Imports {
		got := result.Imports[i]
		if got.Specifier != exp.Specifier {
			t.Errorf("Import %d: expected specifier %q, got %q", i, exp.Specifier, got.Specifier)
		}
		if got.IsDynamic != exp.Dynamic {
			t.Errorf("Import %d: expected IsDynamic=%v, got %v", i, exp.Dynamic, got.IsDynamic)
		}
		if got.IsRequire != exp.Require {
			t.Errorf("Import %d: expected IsRequire=%v, got %v", i, exp.Require, got.IsRequire)
		}
		if got.Line != exp.Line {
			t.Errorf("Import %d: expected line %d, got %d", i, exp.Line, got.Line)
		}
	}
}

func TestExtractImportsPlainScript(t *testing.T) {
	result, err := trace.ExtractImports([]byte("window.jQuery = function () {};\n"))
	if err != nil {
		t.Fatalf("ExtractImports failed: %v", err)
	}
	if result.IsModule || len(result.Imports) != 0 {
		t.Errorf("Plain script parsed as %+v", result)
	}
}

func read(mfs *mapfs.MapFileSystem) func(context.Context, string) ([]byte, error) {
	return func(_ context.Context, path string) ([]byte, error) {
		return mfs.ReadFile(path)
	}
}

func project() *mapfs.MapFileSystem {
	mfs := mapfs.New()
	mfs.AddFile("/p/lib/jquery/jquery.js", "window.jQuery = {};", 0644)
	mfs.AddFile("/p/lib/ui/ui.js", "import './util.js';\nexport const ui = 1;", 0644)
	mfs.AddFile("/p/lib/ui/util.js", "export const util = 1;", 0644)
	mfs.AddFile("/p/lib/ui/unused.js", "export const unused = 1;", 0644)
	mfs.AddFile("/p/lib/ui/private/helper.js", "export const helper = 1;", 0644)
	mfs.AddFile("/p/views/a.js", "import { ui } from '../lib/ui/ui.js';\nimport './missing.js';", 0644)
	mfs.AddFile("/p/views/b.js", "import { ui } from '../lib/ui/ui.js';\nimport '../lib/ui/private/helper';", 0644)
	return mfs
}

func TestTrace(t *testing.T) {
	mfs := project()
	tracer := trace.NewTracer(mfs, "/p")

	graph, err := tracer.Trace(context.Background(), []string{"/p/views/b.js"}, read(mfs))
	if err != nil {
		t.Fatalf("Trace failed: %v", err)
	}
	want := []string{
		"/p/lib/ui/util.js",
		"/p/lib/ui/ui.js",
		"/p/lib/ui/private/helper.js",
		"/p/views/b.js",
	}
	if !reflect.DeepEqual(graph.Order, want) {
		t.Errorf("Order = %v, want %v", graph.Order, want)
	}
	if len(graph.Errors) != 0 {
		t.Errorf("Unexpected errors: %v", graph.Errors)
	}

	graph, err = tracer.Trace(context.Background(), []string{"/p/views/a.js"}, read(mfs))
	if err != nil {
		t.Fatalf("Trace failed: %v", err)
	}
	if len(graph.Errors) != 1 || !strings.Contains(graph.Errors[0].Error(), "missing.js") {
		t.Errorf("Errors = %v, want one about missing.js", graph.Errors)
	}
}

func TestTraceToleratesImportCycles(t *testing.T) {
	mfs := mapfs.New()
	mfs.AddFile("/p/a.js", "import './b.js';", 0644)
	mfs.AddFile("/p/b.js", "import './a.js';", 0644)

	graph, err := trace.NewTracer(mfs, "/p").Trace(context.Background(), []string{"/p/a.js"}, read(mfs))
	if err != nil {
		t.Fatalf("Trace failed: %v", err)
	}
	if want := []string{"/p/b.js", "/p/a.js"}; !reflect.DeepEqual(graph.Order, want) {
		t.Errorf("Order = %v, want %v", graph.Order, want)
	}
}

func TestBundlerCommonExtraction(t *testing.T) {
	mfs := project()
	bundler := trace.NewBundler(mfs, trace.Options{RootDir: "/p"})

	out, err := bundler.Bundle(context.Background(), &build.BundleRequest{
		Read: read(mfs),
		Entries: []build.Entry{
			{Name: "a.html", Scripts: []string{"/p/lib/jquery/jquery.js", "/p/lib/ui/ui.js", "/p/views/a.js"}, Roots: []string{"/p/views/a.js"}},
			{Name: "b.html", Scripts: []string{"/p/lib/ui/ui.js", "/p/views/b.js"}, Roots: []string{"/p/views/b.js"}},
		},
	})
	if err != nil {
		t.Fatalf("Bundle failed: %v", err)
	}

	if out.Common == nil {
		t.Fatal("Expected a common artifact")
	}
	wantCommon := []string{"/p/lib/ui/util.js", "/p/lib/ui/ui.js"}
	if !reflect.DeepEqual(out.Common.Sources, wantCommon) {
		t.Errorf("Common sources = %v, want %v", out.Common.Sources, wantCommon)
	}
	if got := string(out.Common.Content); got != "export const util = 1;\nimport './util.js';\nexport const ui = 1;" {
		t.Errorf("Common content = %q", got)
	}

	wantA := []string{"/p/lib/jquery/jquery.js", "/p/views/a.js"}
	if got := out.Entries["a.html"].Sources; !reflect.DeepEqual(got, wantA) {
		t.Errorf("a.html sources = %v, want %v", got, wantA)
	}
	wantB := []string{"/p/lib/ui/private/helper.js", "/p/views/b.js"}
	if got := out.Entries["b.html"].Sources; !reflect.DeepEqual(got, wantB) {
		t.Errorf("b.html sources = %v, want %v", got, wantB)
	}
}

func TestBundlerFixedCommon(t *testing.T) {
	mfs := project()
	bundler := trace.NewBundler(mfs, trace.Options{RootDir: "/p"})

	out, err := bundler.Bundle(context.Background(), &build.BundleRequest{
		Read:   read(mfs),
		Common: []string{"/p/lib/ui/util.js", "/p/lib/ui/ui.js"},
		Entries: []build.Entry{
			{Name: "b.html", Scripts: []string{"/p/lib/ui/ui.js", "/p/views/b.js"}},
		},
	})
	if err != nil {
		t.Fatalf("Bundle failed: %v", err)
	}
	if out.Common != nil {
		t.Error("A fixed common set must not produce a new common artifact")
	}
	want := []string{"/p/lib/ui/private/helper.js", "/p/views/b.js"}
	if got := out.Entries["b.html"].Sources; !reflect.DeepEqual(got, want) {
		t.Errorf("b.html sources = %v, want %v", got, want)
	}
}

func TestBundlerPrune(t *testing.T) {
	mfs := project()
	entry := build.Entry{
		Name:    "a.html",
		Scripts: []string{"/p/lib/jquery/jquery.js", "/p/lib/ui/ui.js", "/p/lib/ui/unused.js", "/p/lib/ui/util.js", "/p/views/a.js"},
		Roots:   []string{"/p/views/a.js"},
	}

	tests := []struct {
		name  string
		prune bool
		want  []string
	}{
		{
			name:  "keeps listed scripts",
			prune: false,
			want:  []string{"/p/lib/jquery/jquery.js", "/p/lib/ui/util.js", "/p/lib/ui/ui.js", "/p/lib/ui/unused.js", "/p/views/a.js"},
		},
		{
			name:  "drops unimported modules",
			prune: true,
			want:  []string{"/p/lib/jquery/jquery.js", "/p/lib/ui/util.js", "/p/lib/ui/ui.js", "/p/views/a.js"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bundler := trace.NewBundler(mfs, trace.Options{RootDir: "/p", Prune: tt.prune})
			out, err := bundler.Bundle(context.Background(), &build.BundleRequest{
				Read:    read(mfs),
				Entries: []build.Entry{entry},
			})
			if err != nil {
				t.Fatalf("Bundle failed: %v", err)
			}
			if out.Common != nil {
				t.Error("A single entry has no common artifact")
			}
			if got := out.Entries["a.html"].Sources; !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Sources = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBuildWithBundler(t *testing.T) {
	mfs := testutil.NewFixtureFS(t, "project/basic", "/project")
	cfg := testutil.NewConfig("/project")

	b := build.New(mfs, cfg, build.WithBundler(trace.NewBundler(mfs, trace.Options{RootDir: cfg.Root})))
	res, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	var common, firstEntry = -1, -1
	for i, e := range res.Events {
		switch {
		case e.Kind == build.CommonWritten && common < 0:
			common = i
		case e.Kind == build.BundleWritten && firstEntry < 0:
			firstEntry = i
		}
	}
	if common < 0 || common > firstEntry {
		t.Fatalf("Common written at event %d, first entry at %d", common, firstEntry)
	}

	// page1.js is shared with the extending page1_1.html.
	page1 := res.Manifest.AssetsRequiredByEntryPoint["page1.html"]["script"]
	if len(page1) != 1 || !strings.HasPrefix(page1[0], "common/") {
		t.Errorf("page1.html scripts = %v, want only the common script", page1)
	}

	scripts := res.Manifest.AssetsRequiredByEntryPoint["page1_1.html"]["script"]
	if len(scripts) != 2 || !strings.HasPrefix(scripts[0], "common/") {
		t.Fatalf("page1_1.html scripts = %v, want common then entry", scripts)
	}
	content, err := mfs.ReadFile("/project/out/" + scripts[1])
	if err != nil {
		t.Fatalf("Failed to read entry script: %v", err)
	}
	if !strings.Contains(string(content), "page1_1") {
		t.Errorf("Entry script = %q, want page1_1 content", content)
	}
}
