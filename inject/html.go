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

package inject

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Block markers delimit injected markup.
const (
	BeginMarker = "<!-- cartero:begin -->"
	EndMarker   = "<!-- cartero:end -->"
)

// InsertPoint is where a block goes: before a closing tag.
type InsertPoint struct {
	Found  bool
	Offset int    // byte offset of the insertion
	Indent string // indentation of the closing tag's line
	// LineStart is true when only whitespace precedes the tag on its line.
	LineStart bool
}

// FindInsertPoints locates the closing </head> and the last closing
// </body> tag. Tags inside comments, scripts and styles are ignored.
func FindInsertPoints(content []byte) (head, body InsertPoint, err error) {
	z := html.NewTokenizer(bytes.NewReader(content))
	offset := 0
	for {
		tt := z.Next()
		raw := len(z.Raw())
		switch tt {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return head, body, nil
			}
			return head, body, z.Err()
		case html.EndTagToken:
			name, _ := z.TagName()
			switch atom.Lookup(name) {
			case atom.Head:
				if !head.Found {
					head = insertPoint(content, offset)
				}
			case atom.Body:
				body = insertPoint(content, offset)
			}
		}
		offset += raw
	}
}

func insertPoint(content []byte, offset int) InsertPoint {
	lineStart := bytes.LastIndexByte(content[:offset], '\n') + 1
	prefix := string(content[lineStart:offset])
	if strings.TrimSpace(prefix) == "" {
		return InsertPoint{Found: true, Offset: lineStart, Indent: prefix, LineStart: true}
	}
	return InsertPoint{Found: true, Offset: offset}
}

// RemoveBlocks strips every previously injected block, including the
// indentation before its begin marker and the newline after its end
// marker. It reports whether any block was found.
func RemoveBlocks(content []byte) ([]byte, bool, error) {
	var out []byte
	found := false
	rest := content
	for {
		begin := bytes.Index(rest, []byte(BeginMarker))
		if begin < 0 {
			out = append(out, rest...)
			return out, found, nil
		}
		end := bytes.Index(rest[begin:], []byte(EndMarker))
		if end < 0 {
			return nil, false, fmt.Errorf("unterminated %s", BeginMarker)
		}
		end += begin + len(EndMarker)
		if end < len(rest) && rest[end] == '\n' {
			end++
		}
		start := begin
		lineStart := bytes.LastIndexByte(rest[:begin], '\n') + 1
		if strings.TrimSpace(string(rest[lineStart:begin])) == "" {
			start = lineStart
		}
		out = append(out, rest[:start]...)
		rest = rest[end:]
		found = true
	}
}

// Apply replaces any injected blocks in content with fresh ones holding
// headMarkup and bodyMarkup. Without a </body> the body block is
// appended. It reports whether the document had no block before.
func Apply(content []byte, headMarkup, bodyMarkup string) ([]byte, bool, error) {
	clean, found, err := RemoveBlocks(content)
	if err != nil {
		return nil, false, err
	}
	head, body, err := FindInsertPoints(clean)
	if err != nil {
		return nil, false, err
	}
	if headMarkup != "" && !head.Found {
		return nil, false, fmt.Errorf("could not find insertion point (no </head> tag)")
	}

	type insertion struct {
		at    InsertPoint
		block string
	}
	var inserts []insertion
	if headMarkup != "" {
		inserts = append(inserts, insertion{head, headMarkup})
	}
	if bodyMarkup != "" {
		if !body.Found {
			body = InsertPoint{Found: true, Offset: len(clean), LineStart: len(clean) == 0 || clean[len(clean)-1] == '\n'}
		}
		inserts = append(inserts, insertion{body, bodyMarkup})
	}

	var out []byte
	last := 0
	for _, ins := range inserts {
		out = append(out, clean[last:ins.at.Offset]...)
		out = append(out, block(ins.block, ins.at)...)
		last = ins.at.Offset
	}
	out = append(out, clean[last:]...)
	return out, !found, nil
}

// block wraps markup in markers, indented one level below the tag.
func block(markup string, at InsertPoint) string {
	indent := at.Indent + "  "
	var sb strings.Builder
	if !at.LineStart {
		sb.WriteByte('\n')
	}
	sb.WriteString(indent + BeginMarker + "\n")
	for line := range strings.Lines(markup) {
		sb.WriteString(indent + line)
	}
	if !strings.HasSuffix(markup, "\n") {
		sb.WriteByte('\n')
	}
	sb.WriteString(indent + EndMarker + "\n")
	return sb.String()
}
