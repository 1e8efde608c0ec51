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

// Package scan builds the bundle registry from the library and views
// directories.
//
// Every directory below a library root is a bundle named by its path
// relative to that root. A directory prefixed with "_" is folded into its
// parent bundle; one prefixed with "__" is ignored. An optional bundle.json
// declares dependencies, keepSeparate and a subDirectories pattern of
// child directories to fold.
//
// Every file below the views directory that ends in a view suffix is an
// entry view and becomes a parcel. Its local files are the siblings that
// share its base name plus the contents of a "_<base>" directory next to
// it. Views declare dependencies and extension inline:
//
//	##cartero_requires "common", "ui/*"
//	##cartero_extends "layouts/base.html"
package scan

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/rotundasoftware/cartero/asset"
	"github.com/rotundasoftware/cartero/bundle"
	"github.com/rotundasoftware/cartero/config"
	"github.com/rotundasoftware/cartero/fs"
)

// DefinitionFile is the per-directory bundle definition.
const DefinitionFile = "bundle.json"

// Definition is the content of a bundle definition file.
type Definition struct {
	Dependencies   []string `json:"dependencies,omitempty"`
	KeepSeparate   bool     `json:"keepSeparate,omitempty"`
	SubDirectories string   `json:"subDirectories,omitempty"`
}

var (
	requiresDirective = regexp.MustCompile(`##cartero_requires\s+([^\n]*)`)
	extendsDirective  = regexp.MustCompile(`##cartero_extends\s+([^\n]*)`)
	quoted            = regexp.MustCompile(`"([^"]*)"|'([^']*)'`)
)

// Scanner reads the project tree into a bundle registry.
type Scanner struct {
	fs         fs.FileSystem
	cfg        *config.Config
	classifier *asset.Classifier
	logger     bundle.Logger
}

// New creates a Scanner. logger may be nil.
func New(fsys fs.FileSystem, cfg *config.Config, logger bundle.Logger) *Scanner {
	return &Scanner{
		fs:         fsys,
		cfg:        cfg,
		classifier: cfg.Classifier(),
		logger:     logger,
	}
}

// ID returns the stable id for a root-relative path.
func ID(rel string) string {
	sum := sha1.Sum([]byte(filepath.ToSlash(rel)))
	return hex.EncodeToString(sum[:])[:12]
}

// Scan walks every library root and the views directory.
func (s *Scanner) Scan() (*bundle.Registry, error) {
	reg := bundle.NewRegistry()
	for _, root := range s.cfg.Library {
		if !s.fs.Exists(root) {
			s.warn("Library directory %s does not exist", root)
			continue
		}
		if err := s.scanBundleDir(reg, root, root); err != nil {
			return nil, err
		}
	}
	if s.cfg.Views != "" && s.fs.Exists(s.cfg.Views) {
		if err := s.scanViewsDir(reg, s.cfg.Views); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func (s *Scanner) scanBundleDir(reg *bundle.Registry, root, dir string) error {
	entries, err := s.fs.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading %s: %w", dir, err)
	}
	def, err := s.ReadDefinition(dir)
	if err != nil {
		return err
	}

	var b *bundle.Bundle
	if dir != root {
		rel, _ := filepath.Rel(root, dir)
		b = bundle.NewBundle(filepath.ToSlash(rel), dir)
		b.ID = ID(s.cfg.Rel(dir))
		b.Dependencies = def.Dependencies
		b.KeepSeparate = def.KeepSeparate
	}

	var folded, children []string
	for _, e := range entries {
		name := e.Name()
		if ignored(name) {
			continue
		}
		p := filepath.Join(dir, name)
		if e.IsDir() {
			if strings.HasPrefix(name, "_") || matchSubDirectory(def.SubDirectories, name) {
				folded = append(folded, p)
			} else {
				children = append(children, p)
			}
			continue
		}
		if name == DefinitionFile {
			continue
		}
		if b == nil {
			s.debug("Skipping %s at library root", p)
			continue
		}
		s.addFile(b, p)
	}

	if b != nil {
		for _, p := range folded {
			if err := s.fold(b, p); err != nil {
				return err
			}
		}
		if err := reg.Add(b); err != nil {
			s.warn("Duplicate bundle %q at %s ignored", b.Name, dir)
		}
	}

	for _, child := range children {
		if err := s.scanBundleDir(reg, root, child); err != nil {
			return err
		}
	}
	return nil
}

// fold adds every file below dir to b, depth first in name order.
func (s *Scanner) fold(b *bundle.Bundle, dir string) error {
	entries, err := s.fs.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading %s: %w", dir, err)
	}
	var subdirs []string
	for _, e := range entries {
		name := e.Name()
		if ignored(name) || name == DefinitionFile {
			continue
		}
		p := filepath.Join(dir, name)
		if e.IsDir() {
			subdirs = append(subdirs, p)
			continue
		}
		s.addFile(b, p)
	}
	for _, sub := range subdirs {
		if err := s.fold(b, sub); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scanner) addFile(b *bundle.Bundle, p string) {
	p = filepath.Clean(p)
	f := asset.NewFile(s.classifier, p)
	switch {
	case f.Type == asset.Unknown:
		s.debug("Skipping unclassified file %s", p)
	case f.Type == asset.Image:
		b.AddAsset(f)
	default:
		b.AddFile(f)
	}
}

func (s *Scanner) scanViewsDir(reg *bundle.Registry, dir string) error {
	entries, err := s.fs.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading %s: %w", dir, err)
	}
	for _, e := range entries {
		name := e.Name()
		if ignored(name) || strings.HasPrefix(name, "_") {
			continue
		}
		p := filepath.Join(dir, name)
		if e.IsDir() {
			if err := s.scanViewsDir(reg, p); err != nil {
				return err
			}
			continue
		}
		if !s.IsView(p) {
			continue
		}
		parcel, err := s.ScanView(p)
		if err != nil {
			return err
		}
		if err := reg.Add(parcel); err != nil {
			return err
		}
	}
	return nil
}

// IsView reports whether path is an entry view.
func (s *Scanner) IsView(p string) bool {
	return s.viewSuffix(p) != ""
}

// IsDefinition reports whether path is a bundle definition file.
func IsDefinition(p string) bool {
	return filepath.Base(p) == DefinitionFile
}

func (s *Scanner) viewSuffix(p string) string {
	if s.cfg.Views == "" || !strings.HasPrefix(p, s.cfg.Views+string(filepath.Separator)) {
		return ""
	}
	for _, suffix := range s.cfg.ViewSuffixes {
		if strings.HasSuffix(p, suffix) {
			return suffix
		}
	}
	return ""
}

// ParcelName returns the parcel name for a view path.
func (s *Scanner) ParcelName(view string) string {
	rel, err := filepath.Rel(s.cfg.Views, view)
	if err != nil {
		return filepath.ToSlash(view)
	}
	return filepath.ToSlash(rel)
}

// ScanView builds the parcel for one view.
func (s *Scanner) ScanView(view string) (*bundle.Bundle, error) {
	suffix := s.viewSuffix(view)
	if suffix == "" {
		return nil, fmt.Errorf("%s is not a view", view)
	}
	content, err := s.fs.ReadFile(view)
	if err != nil {
		return nil, fmt.Errorf("reading view %s: %w", view, err)
	}

	dir := filepath.Dir(view)
	p := bundle.NewParcel(s.ParcelName(view), view, dir)
	p.ID = ID(s.cfg.Rel(view))

	def, err := s.ReadDefinition(dir)
	if err != nil {
		return nil, err
	}
	p.Dependencies = append(p.Dependencies, def.Dependencies...)

	requires, extends := ParseDirectives(content)
	p.Dependencies = append(p.Dependencies, requires...)
	if extends != "" {
		p.Extends = path.Clean(strings.TrimPrefix(extends, "/"))
	}

	if err := s.addViewFiles(p, dir, strings.TrimSuffix(filepath.Base(view), suffix)); err != nil {
		return nil, err
	}
	return p, nil
}

// OwningView returns the view whose parcel p belongs to: p itself when it
// is a view, the view sharing p's base name in the same directory, or the
// view of the marker directory p lies in. A view path is returned whether
// or not it still exists; for other files the view must exist.
func (s *Scanner) OwningView(p string) (string, bool) {
	if s.IsView(p) {
		return p, true
	}
	if s.cfg.Views == "" {
		return "", false
	}
	rel, err := filepath.Rel(s.cfg.Views, p)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}

	dir := s.cfg.Views
	parts := strings.Split(rel, string(filepath.Separator))
	for _, part := range parts[:len(parts)-1] {
		if ignored(part) {
			return "", false
		}
		if base, ok := strings.CutPrefix(part, "_"); ok {
			return s.existingView(dir, base)
		}
		dir = filepath.Join(dir, part)
	}

	name := parts[len(parts)-1]
	if ignored(name) || name == DefinitionFile {
		return "", false
	}
	return s.existingView(dir, strings.TrimSuffix(name, filepath.Ext(name)))
}

func (s *Scanner) existingView(dir, base string) (string, bool) {
	for _, suffix := range s.cfg.ViewSuffixes {
		view := filepath.Join(dir, base+suffix)
		if s.fs.Exists(view) {
			return view, true
		}
	}
	return "", false
}

func (s *Scanner) addViewFiles(p *bundle.Bundle, dir, base string) error {
	entries, err := s.fs.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading %s: %w", dir, err)
	}
	var marker string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			if name == "_"+base {
				marker = filepath.Join(dir, name)
			}
			continue
		}
		full := filepath.Join(dir, name)
		if ignored(name) || name == DefinitionFile || s.IsView(full) {
			continue
		}
		if strings.TrimSuffix(name, filepath.Ext(name)) == base {
			s.addFile(p, full)
		}
	}
	if marker != "" {
		return s.fold(p, marker)
	}
	return nil
}

// ParseDirectives extracts the requires list and the extends target from
// view content. Later extends directives win.
func ParseDirectives(content []byte) (requires []string, extends string) {
	for _, m := range requiresDirective.FindAllSubmatch(content, -1) {
		requires = append(requires, quotedValues(m[1])...)
	}
	for _, m := range extendsDirective.FindAllSubmatch(content, -1) {
		if values := quotedValues(m[1]); len(values) > 0 {
			extends = values[0]
		}
	}
	return requires, extends
}

func quotedValues(b []byte) []string {
	var out []string
	for _, m := range quoted.FindAllSubmatch(b, -1) {
		v := string(m[1])
		if len(m[2]) > 0 {
			v = string(m[2])
		}
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// ReadDefinition reads dir's bundle definition. A missing file yields the
// zero Definition.
func (s *Scanner) ReadDefinition(dir string) (Definition, error) {
	var def Definition
	p := filepath.Join(dir, DefinitionFile)
	if !s.fs.Exists(p) {
		return def, nil
	}
	data, err := s.fs.ReadFile(p)
	if err != nil {
		return def, fmt.Errorf("reading %s: %w", p, err)
	}
	if err := json.Unmarshal(data, &def); err != nil {
		return def, fmt.Errorf("parsing %s: %w", p, err)
	}
	return def, nil
}

func matchSubDirectory(pattern, name string) bool {
	if pattern == "" {
		return false
	}
	matched, err := doublestar.Match(pattern, name)
	return err == nil && matched
}

// ignored reports whether a directory entry is skipped entirely.
func ignored(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "__")
}

func (s *Scanner) warn(format string, args ...any) {
	if s.logger != nil {
		s.logger.Warning(format, args...)
	}
}

func (s *Scanner) debug(format string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(format, args...)
	}
}
