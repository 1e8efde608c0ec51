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

package bundle

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// HasWildcard reports whether a dependency token is a pattern rather than
// a literal bundle name.
func HasWildcard(token string) bool {
	return strings.ContainsAny(token, "*?[{")
}

// MatchName reports whether a bundle name matches a dependency pattern.
// Bundle names use "/" as separator; a single "*" matches any run of
// non-separator characters and "**" matches across separators.
// Malformed patterns match nothing.
func MatchName(pattern, name string) bool {
	matched, err := doublestar.Match(pattern, name)
	return err == nil && matched
}

// ExpandDependencies expands wildcard tokens in deps against the known
// bundle names. Literal names come first in declared order, followed by
// wildcard matches in declared pattern order (names within one pattern in
// the order given). Each name appears once. Literal names are kept even
// when unknown so that the resolver can report them. Patterns never match
// self, the name of the declaring bundle; a literal self-reference is kept.
func ExpandDependencies(deps []string, names []string, self string) []string {
	seen := make(map[string]bool, len(deps))
	var out []string
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}

	for _, dep := range deps {
		if !HasWildcard(dep) {
			add(dep)
		}
	}
	for _, dep := range deps {
		if !HasWildcard(dep) {
			continue
		}
		for _, name := range names {
			if name != self && MatchName(dep, name) {
				add(name)
			}
		}
	}
	return out
}

// UnmatchedPatterns returns the wildcard tokens in deps that match no
// known bundle name other than self.
func UnmatchedPatterns(deps []string, names []string, self string) []string {
	var out []string
	for _, dep := range deps {
		if !HasWildcard(dep) {
			continue
		}
		matched := false
		for _, name := range names {
			if name != self && MatchName(dep, name) {
				matched = true
				break
			}
		}
		if !matched {
			out = append(out, dep)
		}
	}
	return out
}
