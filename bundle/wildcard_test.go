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

package bundle_test

import (
	"reflect"
	"testing"

	"github.com/rotundasoftware/cartero/bundle"
)

func TestExpandDependencies(t *testing.T) {
	names := []string{"core", "ui/buttons", "ui/forms", "ui/forms/inputs", "vendor"}

	tests := []struct {
		name string
		self string
		deps []string
		want []string
	}{
		{
			name: "literals keep declared order",
			deps: []string{"vendor", "core"},
			want: []string{"vendor", "core"},
		},
		{
			name: "literals precede wildcard matches",
			deps: []string{"ui/*", "core"},
			want: []string{"core", "ui/buttons", "ui/forms"},
		},
		{
			name: "single star does not cross separators",
			deps: []string{"ui/*"},
			want: []string{"ui/buttons", "ui/forms"},
		},
		{
			name: "double star crosses separators",
			deps: []string{"ui/**/inputs"},
			want: []string{"ui/forms/inputs"},
		},
		{
			name: "names appear once",
			deps: []string{"ui/forms", "ui/*", "ui/f*"},
			want: []string{"ui/forms", "ui/buttons"},
		},
		{
			name: "unknown literal is kept",
			deps: []string{"missing"},
			want: []string{"missing"},
		},
		{
			name: "unmatched pattern expands to nothing",
			deps: []string{"nope/*"},
			want: nil,
		},
		{
			name: "pattern skips the declaring bundle",
			self: "ui/forms",
			deps: []string{"ui/*"},
			want: []string{"ui/buttons"},
		},
		{
			name: "literal self reference is kept",
			self: "core",
			deps: []string{"core"},
			want: []string{"core"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := bundle.ExpandDependencies(tt.deps, names, tt.self)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExpandDependencies(%v) = %v, want %v", tt.deps, got, tt.want)
			}
		})
	}
}

func TestUnmatchedPatterns(t *testing.T) {
	names := []string{"core", "ui/forms"}
	got := bundle.UnmatchedPatterns([]string{"core", "ui/*", "nope/*", "missing", "ui/f*"}, names, "ui/forms")
	want := []string{"ui/*", "nope/*", "ui/f*"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("UnmatchedPatterns = %v, want %v", got, want)
	}
}

func TestMatchNameMalformedPattern(t *testing.T) {
	if bundle.MatchName("ui/[", "ui/[") {
		t.Error("Malformed pattern should match nothing")
	}
}
