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

package trace

import (
	"cmp"
	"fmt"
	"slices"

	ts "github.com/tree-sitter/go-tree-sitter"
)

// Imports is the result of parsing one script.
type Imports struct {
	Imports []ModuleImport
	// IsModule reports whether the script uses module syntax: imports,
	// exports or CommonJS require and module.exports.
	IsModule bool
}

// ExtractImports parses JavaScript/TypeScript content and extracts all
// import specifiers in source order.
func ExtractImports(content []byte) (*Imports, error) {
	query, err := importQuery()
	if err != nil {
		return nil, err
	}

	parser := getTSParser()
	defer putTSParser(parser)

	tree := parser.Parse(content, nil)
	if tree == nil {
		return nil, fmt.Errorf("failed to parse content")
	}
	defer tree.Close()

	cursor := ts.NewQueryCursor()
	defer cursor.Close()

	type found struct {
		imp   ModuleImport
		start uint
	}
	var all []found
	result := &Imports{}
	seen := make(map[uint]bool)

	matches := cursor.Matches(query, tree.RootNode(), content)
	captureNames := query.CaptureNames()
	for {
		match := matches.Next()
		if match == nil {
			break
		}

		for _, capture := range match.Captures {
			imp := ModuleImport{
				Specifier: capture.Node.Utf8Text(content),
				Line:      int(capture.Node.StartPosition().Row) + 1, // 1-indexed
			}
			switch captureNames[capture.Index] {
			case "import.spec", "reexport.spec":
			case "dynamicImport.spec":
				imp.IsDynamic = true
			case "require.spec":
				imp.IsRequire = true
			case "module.esm", "module.cjs":
				result.IsModule = true
				continue
			default:
				continue
			}
			result.IsModule = true
			start := capture.Node.StartByte()
			if seen[start] {
				continue
			}
			seen[start] = true
			all = append(all, found{imp: imp, start: start})
		}
	}

	slices.SortFunc(all, func(a, b found) int {
		return cmp.Compare(a.start, b.start)
	})
	for _, f := range all {
		result.Imports = append(result.Imports, f.imp)
	}
	return result, nil
}
