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

package asset

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// Processor transforms the content of a source file before it is
// fingerprinted or merged, e.g. compiling SCSS to CSS. Processors are
// external collaborators; cartero only sequences them.
type Processor interface {
	Process(ctx context.Context, path string, content []byte) ([]byte, error)
}

// CommandProcessor runs a shell command with the file content on stdin and
// takes stdout as the processed content. The source path is exposed to the
// command as $CARTERO_FILE.
type CommandProcessor struct {
	Command string
}

// Process implements Processor.
func (p *CommandProcessor) Process(ctx context.Context, path string, content []byte) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", p.Command)
	cmd.Dir = filepath.Dir(path)
	cmd.Env = append(cmd.Environ(), "CARTERO_FILE="+path)
	cmd.Stdin = bytes.NewReader(content)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("processing %s with %q: %w: %s", path, p.Command, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// Processors selects a Processor by file extension.
type Processors map[string]Processor

// NewCommandProcessors builds Processors from an extension to shell command
// table, as read from configuration.
func NewCommandProcessors(commands map[string]string) Processors {
	procs := make(Processors, len(commands))
	for ext, command := range commands {
		if strings.TrimSpace(command) == "" {
			continue
		}
		procs[normalizeExt(ext)] = &CommandProcessor{Command: command}
	}
	return procs
}

// For returns the processor registered for path's extension.
func (p Processors) For(path string) (Processor, bool) {
	proc, ok := p[strings.ToLower(filepath.Ext(path))]
	return proc, ok
}

// Apply runs the processor for path, if any, and returns the resulting
// content together with the output extension. Unprocessed files keep their
// own extension; processed files take the canonical extension of t.
func (p Processors) Apply(ctx context.Context, path string, t Type, content []byte) ([]byte, string, error) {
	proc, ok := p.For(path)
	if !ok {
		return content, filepath.Ext(path), nil
	}
	out, err := proc.Process(ctx, path, content)
	if err != nil {
		return nil, "", err
	}
	ext := t.Ext()
	if ext == "" {
		ext = filepath.Ext(path)
	}
	return out, ext, nil
}
