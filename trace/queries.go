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
	_ "embed"
	"fmt"
	"sync"

	ts "github.com/tree-sitter/go-tree-sitter"
	tsTypescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

//go:embed queries/imports.scm
var importsQuery string

var typescript = ts.NewLanguage(tsTypescript.LanguageTypescript())

// Parser pool for reuse.
var tsParserPool = sync.Pool{
	New: func() any {
		parser := ts.NewParser()
		if err := parser.SetLanguage(typescript); err != nil {
			panic("failed to set TypeScript language: " + err.Error())
		}
		return parser
	},
}

// getTSParser retrieves a TypeScript parser from the pool.
func getTSParser() *ts.Parser {
	return tsParserPool.Get().(*ts.Parser)
}

// putTSParser returns a TypeScript parser to the pool.
func putTSParser(p *ts.Parser) {
	p.Reset()
	tsParserPool.Put(p)
}

// The compiled imports query is shared; queries are safe for concurrent
// use with separate cursors.
var (
	query     *ts.Query
	queryOnce sync.Once
	queryErr  error
)

func importQuery() (*ts.Query, error) {
	queryOnce.Do(func() {
		q, qerr := ts.NewQuery(typescript, importsQuery)
		if qerr != nil {
			queryErr = fmt.Errorf("failed to parse imports query: %w", qerr)
			return
		}
		query = q
	})
	return query, queryErr
}

// ModuleImport represents an import found in a script.
type ModuleImport struct {
	Specifier string // The import specifier (e.g., "./foo.js", "jquery")
	IsDynamic bool   // True if this is a dynamic import()
	IsRequire bool   // True if this is a CommonJS require()
	Line      int    // 1-indexed line of the specifier
}
