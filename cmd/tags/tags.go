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

// Package tags provides the tags command for cartero.
package tags

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rotundasoftware/cartero/config"
	"github.com/rotundasoftware/cartero/fs"
	"github.com/rotundasoftware/cartero/internal/output"
	"github.com/rotundasoftware/cartero/manifest"
)

// Cmd is the tags command.
var Cmd = &cobra.Command{
	Use:   "tags [view]",
	Short: "Print the tags an entry point needs",
	Long: `Read cartero.json from the output directory and print the stylesheet,
script and template references of one view. The view is given relative to
the views directory, or as the SHA-1 of that path. With --list, print the
entry points recorded in the manifest instead.`,
	Example: `  cartero tags page1.html
  cartero tags admin/dashboard.html --format json
  cartero tags --list`,
	Args: cobra.MaximumNArgs(1),
	RunE: run,
}

func init() {
	Cmd.Flags().StringP("format", "f", "html", "Output format (html, head, body, json)")
	Cmd.Flags().String("out", "", "Write to file instead of stdout")
	Cmd.Flags().Bool("list", false, "List the entry points in the manifest")
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}
	osfs := fs.NewOSFileSystem()

	m, err := manifest.ParseFile(osfs, filepath.Join(cfg.Output, manifest.FileName))
	if err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("format")
	out, _ := cmd.Flags().GetString("out")

	if list, _ := cmd.Flags().GetBool("list"); list {
		return output.Text(osfs, out, strings.Join(m.EntryPoints(), "\n")+"\n")
	}
	if len(args) == 0 {
		return fmt.Errorf("a view is required unless --list is given")
	}

	tags, err := m.Tags(filepath.ToSlash(args[0]), cfg.BaseURL)
	if err != nil {
		return err
	}

	var content string
	switch format {
	case "html":
		content = tags.String()
	case "head":
		content = tags.Head()
	case "body":
		content = tags.Body()
	case "json":
		data, err := json.MarshalIndent(tags, "", "  ")
		if err != nil {
			return fmt.Errorf("error marshaling tags: %w", err)
		}
		content = string(data) + "\n"
	default:
		return fmt.Errorf("unknown format %q", format)
	}
	return output.Text(osfs, out, content)
}
