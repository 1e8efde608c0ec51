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

// Package config loads cartero's build configuration from viper, which
// merges command-line flags, an optional cartero.yaml and defaults.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"

	"github.com/rotundasoftware/cartero/asset"
	"github.com/rotundasoftware/cartero/bundle"
	"github.com/rotundasoftware/cartero/fingerprint"
)

// Keys understood by Load.
const (
	KeyRoot         = "root"
	KeyLibrary      = "library"
	KeyViews        = "views"
	KeyOutput       = "output"
	KeyMode         = "mode"
	KeyViewSuffix   = "view-suffix"
	KeyBaseURL      = "base-url"
	KeyAssetTypes   = "asset-types"
	KeyProcessors   = "processors"
	KeyNameTemplate = "name-template"
	KeyJobs         = "jobs"
	KeyPruneScripts = "prune-scripts"
	KeyBundle       = "bundle-scripts"
	KeyVerbose      = "verbose"
)

// Config is a validated build configuration. Paths are absolute.
type Config struct {
	// Root is the project root; ids and manifest keys are relative to it.
	Root string
	// Library lists the bundle library directories.
	Library []string
	// Views is the directory holding entry views. Optional.
	Views string
	// Output receives fingerprinted assets and the manifest.
	Output string

	Mode         bundle.Mode
	ViewSuffixes []string
	BaseURL      string

	// AssetTypes overrides extension classification.
	AssetTypes map[string]asset.Type
	// Processors maps an extension to a shell command.
	Processors map[string]string

	NameTemplate *fingerprint.Template
	Jobs         int
	// BundleScripts hands scripts to the module bundler instead of
	// serving them file by file.
	BundleScripts bool
	PruneScripts  bool
	Verbose       bool
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyRoot, ".")
	v.SetDefault(KeyLibrary, []string{"library"})
	v.SetDefault(KeyViews, "views")
	v.SetDefault(KeyOutput, "static/cartero")
	v.SetDefault(KeyMode, bundle.Development.String())
	v.SetDefault(KeyViewSuffix, []string{".html"})
	v.SetDefault(KeyBaseURL, "/cartero")
	v.SetDefault(KeyNameTemplate, fingerprint.DefaultTemplate)
	v.SetDefault(KeyJobs, runtime.NumCPU())
}

// ReadFile reads the config file at path into v. With an empty path it
// looks for cartero.yaml in the working directory; a missing file is not
// an error in that case.
func ReadFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
		return v.ReadInConfig()
	}
	v.SetConfigName("cartero")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	err := v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return nil
	}
	return err
}

// Load validates and normalizes the configuration in v.
func Load(v *viper.Viper) (*Config, error) {
	root, err := filepath.Abs(v.GetString(KeyRoot))
	if err != nil {
		return nil, fmt.Errorf("invalid root directory: %w", err)
	}

	cfg := &Config{
		Root:          root,
		BaseURL:       v.GetString(KeyBaseURL),
		Processors:    make(map[string]string),
		AssetTypes:    make(map[string]asset.Type),
		Jobs:          v.GetInt(KeyJobs),
		BundleScripts: v.GetBool(KeyBundle),
		PruneScripts:  v.GetBool(KeyPruneScripts),
		Verbose:       v.GetBool(KeyVerbose),
	}

	for _, dir := range v.GetStringSlice(KeyLibrary) {
		if dir = strings.TrimSpace(dir); dir != "" {
			cfg.Library = append(cfg.Library, cfg.abs(dir))
		}
	}
	if len(cfg.Library) == 0 {
		return nil, fmt.Errorf("%s: at least one library directory is required", KeyLibrary)
	}
	if views := v.GetString(KeyViews); views != "" {
		cfg.Views = cfg.abs(views)
	}
	output := v.GetString(KeyOutput)
	if output == "" {
		return nil, fmt.Errorf("%s: output directory is required", KeyOutput)
	}
	cfg.Output = cfg.abs(output)

	switch mode := strings.ToLower(v.GetString(KeyMode)); mode {
	case bundle.Development.String(), "dev":
		cfg.Mode = bundle.Development
	case bundle.Production.String(), "prod":
		cfg.Mode = bundle.Production
	default:
		return nil, fmt.Errorf("%s: invalid mode %q: must be 'development' or 'production'", KeyMode, mode)
	}

	for _, suffix := range v.GetStringSlice(KeyViewSuffix) {
		if suffix = strings.TrimSpace(suffix); suffix != "" {
			cfg.ViewSuffixes = append(cfg.ViewSuffixes, suffix)
		}
	}
	if len(cfg.ViewSuffixes) == 0 {
		return nil, fmt.Errorf("%s: at least one view suffix is required", KeyViewSuffix)
	}

	for ext, name := range v.GetStringMapString(KeyAssetTypes) {
		t, ok := asset.ParseType(name)
		if !ok && name != "" && name != "none" {
			return nil, fmt.Errorf("%s: unknown asset type %q for %s", KeyAssetTypes, name, ext)
		}
		cfg.AssetTypes[ext] = t
	}
	for ext, command := range v.GetStringMapString(KeyProcessors) {
		cfg.Processors[ext] = command
	}

	cfg.NameTemplate, err = fingerprint.ParseTemplate(v.GetString(KeyNameTemplate))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", KeyNameTemplate, err)
	}

	if cfg.Jobs < 1 {
		cfg.Jobs = 1
	}
	return cfg, nil
}

// Classifier builds the asset classifier with configured overrides.
func (c *Config) Classifier() *asset.Classifier {
	return asset.NewClassifier(c.AssetTypes)
}

// Rel returns path relative to the project root with forward slashes.
func (c *Config) Rel(path string) string {
	rel, err := filepath.Rel(c.Root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func (c *Config) abs(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(c.Root, path)
}
