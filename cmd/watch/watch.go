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

// Package watch provides the watch command for cartero.
package watch

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	buildcmd "github.com/rotundasoftware/cartero/cmd/build"
	"github.com/rotundasoftware/cartero/config"
	"github.com/rotundasoftware/cartero/internal/logger"
	"github.com/rotundasoftware/cartero/internal/output"
	"github.com/rotundasoftware/cartero/watch"
)

// Cmd is the watch command.
var Cmd = &cobra.Command{
	Use:   "watch",
	Short: "Build, then rebuild affected entry points on every change",
	Long: `Run a full build, then watch the library and views directories.
Changing a file rebuilds only the entry points that depend on it; adding,
removing or renaming files, or editing a bundle.json, rescans the project.

A failed rebuild is reported and the watcher keeps running.`,
	RunE: run,
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}
	log := logger.New(cfg.Verbose)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b := buildcmd.NewBuilder(cfg, log)
	if res, err := b.Build(ctx); err != nil {
		log.Error("Initial build failed: %v", err)
	} else if err := output.Result(os.Stdout, res, b.ManifestPath(), "text", cfg.Verbose); err != nil {
		return err
	}

	dirs := append([]string{}, cfg.Library...)
	if cfg.Views != "" {
		dirs = append(dirs, cfg.Views)
	}
	log.Info("Watching %d directories", len(dirs))
	return watch.Run(ctx, b, dirs, watch.Options{
		Ignore: []string{cfg.Output},
		Logger: log,
	})
}
