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

package fingerprint

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

// ErrAssetNotFound is matched by every AssetResolutionError.
var ErrAssetNotFound = errors.New("asset not found")

// AssetResolutionError reports an in-content reference that names no
// known asset. Fatal in production builds, a warning in development.
type AssetResolutionError struct {
	File      string
	Reference string
}

func (e *AssetResolutionError) Error() string {
	return fmt.Sprintf("%s: cannot resolve ##url(%s)", e.File, e.Reference)
}

// Is makes errors.Is(err, ErrAssetNotFound) succeed.
func (e *AssetResolutionError) Is(target error) bool {
	return target == ErrAssetNotFound
}

// urlMacro matches ##url(path), ##url('path') and ##url("path").
var urlMacro = regexp.MustCompile(`##url\(\s*['"]?([^'")\s]+)['"]?\s*\)`)

// LookupFunc maps an absolute source path to an output path relative to
// the output directory.
type LookupFunc func(src string) (string, bool)

// RewriteURLs replaces URL macros in content. References are relative to
// the directory of file. Each resolved macro becomes baseURL joined with
// the fingerprinted output path. Unresolved macros are left as they are
// and reported; the caller decides whether they are fatal.
func RewriteURLs(content []byte, file string, baseURL string, lookup LookupFunc) ([]byte, []*AssetResolutionError) {
	var errs []*AssetResolutionError
	dir := filepath.Dir(file)

	out := urlMacro.ReplaceAllFunc(content, func(match []byte) []byte {
		ref := string(urlMacro.FindSubmatch(match)[1])
		src := filepath.Clean(filepath.Join(dir, filepath.FromSlash(ref)))
		rel, ok := lookup(src)
		if !ok {
			errs = append(errs, &AssetResolutionError{File: file, Reference: ref})
			return match
		}
		return []byte(JoinURL(baseURL, rel))
	})
	return out, errs
}

// HasURLMacros reports whether content contains any URL macro.
func HasURLMacros(content []byte) bool {
	return urlMacro.Match(content)
}

// JoinURL joins a base URL and a relative slash path.
func JoinURL(baseURL, rel string) string {
	rel = path.Clean("/" + filepath.ToSlash(rel))
	return strings.TrimSuffix(baseURL, "/") + rel
}
