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

// Command cartero builds fingerprinted front-end asset bundles and the
// manifest servers use to render each view's tags.
package main

import (
	"errors"
	"fmt"
	"os"
	"runtime/pprof"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rotundasoftware/cartero/cmd/build"
	"github.com/rotundasoftware/cartero/cmd/inject"
	"github.com/rotundasoftware/cartero/cmd/tags"
	"github.com/rotundasoftware/cartero/cmd/version"
	"github.com/rotundasoftware/cartero/cmd/watch"
	"github.com/rotundasoftware/cartero/config"
)

var (
	configFile     string
	cpuprofile     string
	cpuprofileFile *os.File
	rootCmd        = &cobra.Command{
		Use:   "cartero",
		Short: "Bundle and fingerprint front-end assets per view",
		Long: `cartero resolves the script, style and template dependencies of every
view, writes fingerprinted (and in production, merged) assets, and records
them in a manifest that servers use to render each view's tags.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.ReadFile(viper.GetViper(), configFile); err != nil {
				return fmt.Errorf("reading config: %w", err)
			}
			if cpuprofile != "" {
				f, err := os.Create(cpuprofile)
				if err != nil {
					return fmt.Errorf("could not create CPU profile: %w", err)
				}
				cpuprofileFile = f
				if err := pprof.StartCPUProfile(f); err != nil {
					closeErr := f.Close()
					return errors.Join(
						fmt.Errorf("could not start CPU profile: %w", err),
						closeErr,
					)
				}
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if cpuprofileFile != nil {
				pprof.StopCPUProfile()
				if err := cpuprofileFile.Close(); err != nil {
					return fmt.Errorf("closing CPU profile: %w", err)
				}
			}
			return nil
		},
	}
)

func init() {
	config.SetDefaults(viper.GetViper())

	// Root flags (persistent across all commands)
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", "", "Config file (default: ./cartero.yaml if present)")
	flags.StringP(config.KeyRoot, "r", ".", "Project root")
	flags.StringSliceP(config.KeyLibrary, "l", []string{"library"}, "Library directories")
	flags.String(config.KeyViews, "views", "Views directory")
	flags.StringP(config.KeyOutput, "o", "static/cartero", "Output directory")
	flags.StringP(config.KeyMode, "m", "development", "Build mode (development, production)")
	flags.StringSlice(config.KeyViewSuffix, []string{".html"}, "View file suffixes")
	flags.String(config.KeyBaseURL, "/cartero", "URL the output directory is served at")
	flags.String(config.KeyNameTemplate, "{name}_{hash}{ext}", "Fingerprinted file name template")
	flags.IntP(config.KeyJobs, "j", 0, "Parallel workers (default: number of CPUs)")
	flags.Bool(config.KeyBundle, false, "Bundle scripts with the import tracer and extract a common script")
	flags.Bool(config.KeyPruneScripts, false, "Drop bundled modules no view script imports")
	flags.BoolP(config.KeyVerbose, "v", false, "Verbose output")
	flags.StringVar(&cpuprofile, "cpuprofile", "", "Write CPU profile to file")

	for _, key := range []string{
		config.KeyRoot, config.KeyLibrary, config.KeyViews, config.KeyOutput,
		config.KeyMode, config.KeyViewSuffix, config.KeyBaseURL,
		config.KeyNameTemplate, config.KeyJobs, config.KeyBundle,
		config.KeyPruneScripts, config.KeyVerbose,
	} {
		_ = viper.BindPFlag(key, flags.Lookup(key))
	}

	// Add commands
	rootCmd.AddCommand(build.Cmd)
	rootCmd.AddCommand(watch.Cmd)
	rootCmd.AddCommand(tags.Cmd)
	rootCmd.AddCommand(inject.Cmd)
	rootCmd.AddCommand(version.Cmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
