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

package config_test

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/spf13/viper"

	"github.com/rotundasoftware/cartero/asset"
	"github.com/rotundasoftware/cartero/bundle"
	"github.com/rotundasoftware/cartero/config"
)

func newViper() *viper.Viper {
	v := viper.New()
	config.SetDefaults(v)
	v.Set(config.KeyRoot, "/project")
	return v
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load(newViper())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if !reflect.DeepEqual(cfg.Library, []string{"/project/library"}) {
		t.Errorf("Expected default library, got %v", cfg.Library)
	}
	if cfg.Views != "/project/views" {
		t.Errorf("Expected default views, got %s", cfg.Views)
	}
	if cfg.Output != "/project/static/cartero" {
		t.Errorf("Expected default output, got %s", cfg.Output)
	}
	if cfg.Mode != bundle.Development {
		t.Errorf("Expected development mode, got %s", cfg.Mode)
	}
	if cfg.NameTemplate.Pattern() != "{name}_{hash}{ext}" {
		t.Errorf("Expected default name template, got %s", cfg.NameTemplate.Pattern())
	}
	if cfg.Jobs < 1 {
		t.Errorf("Expected at least one job, got %d", cfg.Jobs)
	}
}

func TestLoadOverrides(t *testing.T) {
	v := newViper()
	v.Set(config.KeyLibrary, []string{"lib", "/abs/vendor"})
	v.Set(config.KeyMode, "prod")
	v.Set(config.KeyAssetTypes, map[string]string{"coffee": "none", "txt": "template"})
	v.Set(config.KeyProcessors, map[string]string{"scss": "sass --stdin"})
	v.Set(config.KeyJobs, 0)
	v.Set(config.KeyBundle, true)
	v.Set(config.KeyPruneScripts, true)

	cfg, err := config.Load(v)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if !reflect.DeepEqual(cfg.Library, []string{"/project/lib", "/abs/vendor"}) {
		t.Errorf("Unexpected library dirs %v", cfg.Library)
	}
	if cfg.Mode != bundle.Production {
		t.Errorf("Expected production mode, got %s", cfg.Mode)
	}
	if cfg.Jobs != 1 {
		t.Errorf("Expected jobs to be clamped to 1, got %d", cfg.Jobs)
	}
	if !cfg.BundleScripts || !cfg.PruneScripts {
		t.Errorf("Expected script bundling with pruning, got bundle=%v prune=%v", cfg.BundleScripts, cfg.PruneScripts)
	}
	if cfg.Processors["scss"] != "sass --stdin" {
		t.Errorf("Expected scss processor, got %v", cfg.Processors)
	}

	c := cfg.Classifier()
	if c.TypeOf("a.coffee") != asset.Unknown {
		t.Error("Expected .coffee to be unclassified")
	}
	if c.TypeOf("a.txt") != asset.Template {
		t.Error("Expected .txt to be a template")
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value any
	}{
		{name: "invalid mode", key: config.KeyMode, value: "staging"},
		{name: "invalid template", key: config.KeyNameTemplate, value: "{name}{ext}"},
		{name: "unknown asset type", key: config.KeyAssetTypes, value: map[string]string{"x": "video"}},
		{name: "empty library", key: config.KeyLibrary, value: []string{}},
		{name: "empty output", key: config.KeyOutput, value: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newViper()
			v.Set(tt.key, tt.value)
			if _, err := config.Load(v); err == nil {
				t.Errorf("Expected error for %s=%v", tt.key, tt.value)
			}
		})
	}
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cartero.yaml")
	content := "mode: production\nlibrary:\n  - components\nprocessors:\n  less: lessc -\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	v := newViper()
	if err := config.ReadFile(v, path); err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	cfg, err := config.Load(v)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Mode != bundle.Production {
		t.Errorf("Expected production mode from file, got %s", cfg.Mode)
	}
	if !reflect.DeepEqual(cfg.Library, []string{"/project/components"}) {
		t.Errorf("Expected library from file, got %v", cfg.Library)
	}
	if cfg.Processors["less"] != "lessc -" {
		t.Errorf("Expected less processor from file, got %v", cfg.Processors)
	}
}

func TestRel(t *testing.T) {
	cfg, err := config.Load(newViper())
	if err != nil {
		t.Fatal(err)
	}
	if got := cfg.Rel("/project/library/ui/a.js"); got != "library/ui/a.js" {
		t.Errorf("Rel() = %s", got)
	}
}
