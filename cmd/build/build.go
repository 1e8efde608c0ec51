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

// Package build provides the build command for cartero.
package build

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rotundasoftware/cartero/build"
	"github.com/rotundasoftware/cartero/config"
	"github.com/rotundasoftware/cartero/fs"
	"github.com/rotundasoftware/cartero/internal/logger"
	"github.com/rotundasoftware/cartero/internal/output"
	"github.com/rotundasoftware/cartero/trace"
)

// Cmd is the build command.
var Cmd = &cobra.Command{
	Use:   "build",
	Short: "Build every entry point and write the manifest",
	Long: `Scan the library and views directories, resolve every entry point's
dependencies, write fingerprinted (and in production, merged) assets to the
output directory and record them in cartero.json.

No manifest is written when the build fails.`,
	Example: `  # Development build with defaults from cartero.yaml
  cartero build

  # Production build
  cartero build --mode production --library lib --views views -o public/assets`,
	RunE: run,
}

func init() {
	Cmd.Flags().StringP("format", "f", "text", "Output format (text, json)")
}

// NewBuilder creates a builder for cfg that logs through log.
func NewBuilder(cfg *config.Config, log *logger.Logger) *build.Builder {
	osfs := fs.NewOSFileSystem()
	log.Debug("Building in %s mode, naming outputs %s", cfg.Mode, cfg.NameTemplate.Pattern())
	opts := []build.Option{build.WithLogger(log)}
	if cfg.BundleScripts {
		opts = append(opts, build.WithBundler(trace.NewBundler(osfs, trace.Options{
			RootDir: cfg.Root,
			Prune:   cfg.PruneScripts,
			Jobs:    cfg.Jobs,
			Logger:  log,
		})))
	}
	return build.New(osfs, cfg, opts...)
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("format")
	log := logger.New(cfg.Verbose)

	b := NewBuilder(cfg, log)
	res, err := b.Build(cmd.Context())
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}
	return output.Result(os.Stdout, res, b.ManifestPath(), format, cfg.Verbose)
}
