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

// Package fingerprint names assets by content hash, tracks the source to
// output mapping for a build session, and rewrites in-content URL macros
// to fingerprinted paths.
package fingerprint

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
)

// DefaultTemplate names outputs basename_<sha1>.ext.
const DefaultTemplate = "{name}_{hash}{ext}"

// Template is an output file name pattern.
// Supported variables:
//   - {name} - Source base name without extension
//   - {hash} - SHA-1 of the content, hex encoded
//   - {ext}  - Output extension including the dot
type Template struct {
	pattern string
}

var variablePattern = regexp.MustCompile(`\{(\w+)\}`)

// ParseTemplate parses a file name template. The template must contain
// {hash} and must not introduce directories.
func ParseTemplate(pattern string) (*Template, error) {
	if pattern == "" {
		return nil, fmt.Errorf("template pattern cannot be empty")
	}
	if strings.ContainsAny(pattern, `/\`) {
		return nil, fmt.Errorf("template %q must not contain path separators", pattern)
	}

	var variables []string
	for _, match := range variablePattern.FindAllStringSubmatch(pattern, -1) {
		variables = append(variables, match[1])
	}

	validVars := map[string]bool{
		"name": true,
		"hash": true,
		"ext":  true,
	}
	for _, v := range variables {
		if !validVars[v] {
			return nil, fmt.Errorf("unknown template variable: {%s}", v)
		}
	}
	if !slices.Contains(variables, "hash") {
		return nil, fmt.Errorf("template %q must contain {hash}", pattern)
	}

	return &Template{pattern: pattern}, nil
}

// MustParseTemplate is like ParseTemplate but panics on error.
func MustParseTemplate(pattern string) *Template {
	t, err := ParseTemplate(pattern)
	if err != nil {
		panic(err)
	}
	return t
}

// Expand substitutes variables in the template.
func (t *Template) Expand(name, hash, ext string) string {
	result := t.pattern
	result = strings.ReplaceAll(result, "{name}", name)
	result = strings.ReplaceAll(result, "{hash}", hash)
	result = strings.ReplaceAll(result, "{ext}", ext)
	return result
}

// Pattern returns the original template pattern.
func (t *Template) Pattern() string {
	return t.pattern
}

// Hash returns the hex SHA-1 of content.
func Hash(content []byte) string {
	sum := sha1.Sum(content)
	return hex.EncodeToString(sum[:])
}

// Name returns the fingerprinted file name for a source path. ext
// overrides the source extension when non-empty, for processed output.
func Name(t *Template, path, ext string, content []byte) string {
	base := filepath.Base(path)
	srcExt := filepath.Ext(base)
	if ext == "" {
		ext = srcExt
	}
	return t.Expand(strings.TrimSuffix(base, srcExt), Hash(content), ext)
}
