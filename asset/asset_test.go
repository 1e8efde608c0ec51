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

package asset_test

import (
	"context"
	"reflect"
	"testing"

	"github.com/rotundasoftware/cartero/asset"
)

func TestClassifier(t *testing.T) {
	c := asset.NewClassifier(map[string]asset.Type{
		"tpl":  asset.Template,
		".svg": asset.Unknown,
	})

	tests := []struct {
		path string
		want asset.Type
	}{
		{"/a/app.js", asset.Script},
		{"/a/APP.JS", asset.Script},
		{"/a/style.scss", asset.Style},
		{"/a/row.tmpl", asset.Template},
		{"/a/row.tpl", asset.Template},
		{"/a/logo.png", asset.Image},
		{"/a/logo.svg", asset.Unknown},
		{"/a/README", asset.Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := c.TypeOf(tt.path); got != tt.want {
				t.Errorf("TypeOf(%s) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}

	if got := c.Extensions(asset.Template); !reflect.DeepEqual(got, []string{".hbs", ".jade", ".mustache", ".tmpl", ".tpl"}) {
		t.Errorf("Extensions(template) = %v", got)
	}
}

func TestParseType(t *testing.T) {
	for _, s := range []string{"script", " Style ", "TEMPLATE", "image"} {
		if _, ok := asset.ParseType(s); !ok {
			t.Errorf("ParseType(%q) failed", s)
		}
	}
	if _, ok := asset.ParseType("video"); ok {
		t.Error("ParseType(video) should fail")
	}
}

func TestUnion(t *testing.T) {
	c := asset.NewClassifier(nil)
	a := asset.NewFile(c, "/a.js")
	b := asset.NewFile(c, "/b.js")
	d := asset.NewFile(c, "/d.css")

	got := asset.Paths(asset.Union([]*asset.File{a, b, a}, []*asset.File{d, b}, []*asset.File{a}))
	want := []string{"/a.js", "/b.js", "/d.css"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Union() = %v, want %v", got, want)
	}
}

func TestTypeProperties(t *testing.T) {
	if asset.Image.Mergeable() {
		t.Error("Images are never merged")
	}
	if asset.Style.Ext() != ".css" || asset.Script.Ext() != ".js" {
		t.Error("Unexpected canonical extensions")
	}
}

func TestProcessorsApply(t *testing.T) {
	procs := asset.NewCommandProcessors(map[string]string{
		"scss":  "tr a-z A-Z",
		".less": "  ",
		".fail": "exit 3",
	})
	if _, ok := procs.For("/a/b.less"); ok {
		t.Error("Blank commands must not register a processor")
	}

	ctx := context.Background()
	out, ext, err := procs.Apply(ctx, "/tmp/a.scss", asset.Style, []byte("body{}"))
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if string(out) != "BODY{}" || ext != ".css" {
		t.Errorf("Apply() = %q, %q, want BODY{}, .css", out, ext)
	}

	out, ext, err = procs.Apply(ctx, "/tmp/a.js", asset.Script, []byte("x"))
	if err != nil || string(out) != "x" || ext != ".js" {
		t.Errorf("Unprocessed Apply() = %q, %q, %v", out, ext, err)
	}

	if _, _, err := procs.Apply(ctx, "/tmp/a.fail", asset.Unknown, nil); err == nil {
		t.Error("Expected error from failing processor")
	}
}
