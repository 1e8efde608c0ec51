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

// Package inject provides the inject command for cartero.
package inject

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rotundasoftware/cartero/config"
	"github.com/rotundasoftware/cartero/fs"
	"github.com/rotundasoftware/cartero/inject"
	"github.com/rotundasoftware/cartero/manifest"
)

// Cmd is the inject command.
var Cmd = &cobra.Command{
	Use:   "inject",
	Short: "Write entry point tags into static HTML views in-place",
	Long: `Read cartero.json and update each matched HTML view in-place.

Stylesheets are inserted before </head> and scripts before </body>, each
inside a <!-- cartero:begin --> ... <!-- cartero:end --> block. Blocks from
earlier runs are replaced, so injecting again is safe.`,
	Example: `  # Inject tags into all views
  cartero inject --glob "views/**/*.html"

  # Also inline template outputs
  cartero inject --glob "views/**/*.html" --inline-templates

  # Parallel processing with custom worker count
  cartero inject --glob "views/**/*.html" --workers 8

  # Dry run to see what would change
  cartero inject --glob "views/**/*.html" --dry-run`,
	RunE: run,
}

func init() {
	Cmd.Flags().String("glob", "", "Glob pattern to match HTML files (required)")
	Cmd.Flags().Bool("inline-templates", false, "Inline template outputs as <script type=\"text/template\">")
	Cmd.Flags().Int("workers", 0, "Number of parallel workers (default: number of CPUs)")
	Cmd.Flags().Bool("dry-run", false, "Show what would change without modifying files")
	Cmd.Flags().StringP("format", "f", "text", "Output format (text, json)")
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}
	osfs := fs.NewOSFileSystem()

	// Collect files from glob pattern
	globPattern, _ := cmd.Flags().GetString("glob")
	if globPattern == "" {
		return fmt.Errorf("--glob is required")
	}

	matches, err := doublestar.FilepathGlob(globPattern)
	if err != nil {
		return fmt.Errorf("invalid glob pattern: %w", err)
	}

	if len(matches) == 0 {
		fmt.Fprintln(os.Stderr, "Warning: no files matched the glob pattern")
		return nil
	}

	// Deduplicate by absolute path
	seen := make(map[string]struct{})
	var files []string
	for _, match := range matches {
		absPath, err := filepath.Abs(match)
		if err != nil {
			return fmt.Errorf("invalid file path %q: %w", match, err)
		}
		if _, exists := seen[absPath]; !exists {
			seen[absPath] = struct{}{}
			files = append(files, absPath)
		}
	}

	m, err := manifest.ParseFile(osfs, filepath.Join(cfg.Output, manifest.FileName))
	if err != nil {
		return err
	}

	// Get flags
	inline, _ := cmd.Flags().GetBool("inline-templates")
	parallel, _ := cmd.Flags().GetInt("workers")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	format, _ := cmd.Flags().GetString("format")

	opts := inject.Options{
		ViewsDir: cfg.Views,
		BaseURL:  cfg.BaseURL,
		Parallel: parallel,
		DryRun:   dryRun,
	}
	if inline {
		opts.OutputDir = cfg.Output
	}

	// Collect results
	var stats inject.Stats
	encoder := json.NewEncoder(os.Stdout)
	for result := range inject.InjectBatch(osfs, files, m, opts) {
		stats.Add(result)
		switch {
		case format == "json" && (result.Error != "" || result.Modified):
			_ = encoder.Encode(result)
		case result.Error != "":
			fmt.Fprintf(os.Stderr, "Error: %s: %s\n", result.File, result.Error)
		case result.Modified && dryRun:
			action := "would update"
			if result.Inserted {
				action = "would insert into"
			}
			fmt.Printf("%s %s\n", action, result.File)
		}
	}

	// Output summary
	if format == "text" {
		if dryRun {
			fmt.Printf("\nDry run: %d files would be modified (%d updated, %d new), %d unchanged, %d errors\n",
				stats.Updated+stats.Inserted, stats.Updated, stats.Inserted, stats.Skipped, stats.Errors)
		} else {
			fmt.Printf("Injected: %d files modified (%d updated, %d new), %d unchanged, %d errors\n",
				stats.Updated+stats.Inserted, stats.Updated, stats.Inserted, stats.Skipped, stats.Errors)
		}
	} else {
		statsJSON, _ := json.Marshal(stats)
		fmt.Println(string(statsJSON))
	}

	if stats.Errors == stats.Total {
		return fmt.Errorf("all %d files failed", stats.Errors)
	}

	return nil
}
