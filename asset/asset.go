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

// Package asset provides the File model and the extension-to-type
// classification shared by the scanner, the resolver and the merge engine.
package asset

import (
	"maps"
	"path/filepath"
	"slices"
	"strings"
)

// Type is the logical kind of an asset.
type Type string

const (
	Unknown  Type = ""
	Script   Type = "script"
	Style    Type = "style"
	Template Type = "template"
	Image    Type = "image"
)

// ServedTypes are the asset types listed per entry point in the manifest,
// in the order they are emitted.
var ServedTypes = []Type{Script, Style, Template}

// Ext returns the canonical output extension for merged or processed files
// of this type.
func (t Type) Ext() string {
	switch t {
	case Script:
		return ".js"
	case Style:
		return ".css"
	case Template:
		return ".tmpl"
	}
	return ""
}

// Mergeable reports whether files of this type are concatenated by the
// merge engine. Images are only ever copied.
func (t Type) Mergeable() bool {
	return t == Script || t == Style || t == Template
}

// File is a single physical asset. Files are immutable once created; the
// merge engine creates new Files for merged artifacts rather than mutating
// their constituents.
type File struct {
	// Path is the canonical source location. For merged artifacts it is the
	// output path carrying the path-set hash placeholder.
	Path string
	Type Type
	// KeepSeparate is true for merged artifacts. Such files pass through
	// later merges unchanged.
	KeepSeparate bool
	// Sources lists the constituent source paths of a merged artifact, in
	// concatenation order. Empty for ordinary source files.
	Sources []string
}

// NewFile creates a source File, classifying it with c.
func NewFile(c *Classifier, path string) *File {
	return &File{Path: path, Type: c.TypeOf(path)}
}

// Paths returns the paths of files in order.
func Paths(files []*File) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Path
	}
	return out
}

// Union appends every file in add whose path is not already present in
// base, preserving first-occurrence order.
func Union(base []*File, add ...[]*File) []*File {
	seen := make(map[string]bool, len(base))
	out := make([]*File, 0, len(base))
	for _, f := range base {
		if !seen[f.Path] {
			seen[f.Path] = true
			out = append(out, f)
		}
	}
	for _, files := range add {
		for _, f := range files {
			if !seen[f.Path] {
				seen[f.Path] = true
				out = append(out, f)
			}
		}
	}
	return out
}

// DefaultTypes maps source extensions, including pre-processed ones, to
// asset types.
var DefaultTypes = map[string]Type{
	".js":       Script,
	".mjs":      Script,
	".cjs":      Script,
	".ts":       Script,
	".jsx":      Script,
	".tsx":      Script,
	".coffee":   Script,
	".css":      Style,
	".scss":     Style,
	".sass":     Style,
	".less":     Style,
	".styl":     Style,
	".tmpl":     Template,
	".hbs":      Template,
	".mustache": Template,
	".jade":     Template,
	".png":      Image,
	".jpg":      Image,
	".jpeg":     Image,
	".gif":      Image,
	".svg":      Image,
	".webp":     Image,
	".ico":      Image,
	".woff":     Image,
	".woff2":    Image,
	".ttf":      Image,
	".eot":      Image,
}

// Classifier maps file extensions to asset types. It is a plain lookup
// table; the zero value is not usable, use NewClassifier.
type Classifier struct {
	types map[string]Type
}

// NewClassifier creates a Classifier from DefaultTypes with overrides
// applied on top. An override to Unknown removes the extension.
func NewClassifier(overrides map[string]Type) *Classifier {
	types := maps.Clone(DefaultTypes)
	for ext, t := range overrides {
		ext = normalizeExt(ext)
		if t == Unknown {
			delete(types, ext)
			continue
		}
		types[ext] = t
	}
	return &Classifier{types: types}
}

// TypeOf returns the asset type for path based on its extension.
func (c *Classifier) TypeOf(path string) Type {
	return c.types[strings.ToLower(filepath.Ext(path))]
}

// Extensions returns the sorted extensions known for t.
func (c *Classifier) Extensions(t Type) []string {
	var exts []string
	for ext, typ := range c.types {
		if typ == t {
			exts = append(exts, ext)
		}
	}
	slices.Sort(exts)
	return exts
}

// ParseType converts a configuration string into a Type.
func ParseType(s string) (Type, bool) {
	switch Type(strings.ToLower(strings.TrimSpace(s))) {
	case Script:
		return Script, true
	case Style:
		return Style, true
	case Template:
		return Template, true
	case Image:
		return Image, true
	}
	return Unknown, false
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
