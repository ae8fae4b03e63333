// Package config loads the CLI configuration from defaults, global
// and local config files, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Configuration represents the holyfields CLI tool configuration
type Configuration struct {
	// SchemaDir is scanned recursively for *.schema.json documents.
	SchemaDir string `koanf:"schema_dir" validate:"required"`
	// OutDir receives one artifact tree per target.
	OutDir string `koanf:"out_dir" validate:"required"`
	// Targets selects which bindings to emit. Empty means all
	// registered targets.
	Targets []string `koanf:"targets"`
	// Workers caps per-stage parallelism.
	Workers int `koanf:"workers" validate:"min=1,max=128"`
	// VersionsFile points at the components version manifest. Empty
	// disables version stamping.
	VersionsFile string `koanf:"versions_file"`
	// ReportPath is where the verification report JSON is written.
	// Empty keeps the report in memory.
	ReportPath string `koanf:"report_path"`
	// ShowProgress enables spinner stage output.
	ShowProgress bool `koanf:"show_progress"`
	// Debug enables verbose logging.
	Debug bool `koanf:"debug"`
}

// Load loads configuration from global, local, and environment sources
// Priority: Environment variables > Local config > Global config > Defaults
func Load(localConfigPath string) (*Configuration, error) {
	k := koanf.New(".")

	// Apply defaults first
	defaults := GetDefaults()
	for key, value := range defaults {
		k.Set(key, value)
	}

	// Load global config if it exists
	homeDir, err := os.UserHomeDir()
	if err == nil {
		globalPath := filepath.Join(homeDir, ".holyfields", "config.json")
		if _, err := os.Stat(globalPath); err == nil {
			if err := k.Load(file.Provider(globalPath), json.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load global config: %w", err)
			}
		}
	}

	// Load local config if it exists
	if localConfigPath != "" {
		if _, err := os.Stat(localConfigPath); err == nil {
			if err := k.Load(file.Provider(localConfigPath), json.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load local config: %w", err)
			}
		}
	}

	// Override with environment variables (highest priority)
	k.Load(env.Provider("HOLYFIELDS_", ".", envTransform), nil)

	// Unmarshal into struct
	var cfg Configuration
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	// Expand home directory in paths
	cfg.SchemaDir = expandHomePath(cfg.SchemaDir)
	cfg.OutDir = expandHomePath(cfg.OutDir)
	cfg.VersionsFile = expandHomePath(cfg.VersionsFile)

	return &cfg, nil
}

// envTransform converts environment variable names to config keys
// Example: HOLYFIELDS_SCHEMA_DIR -> schema_dir
func envTransform(s string) string {
	return strings.ToLower(strings.TrimPrefix(s, "HOLYFIELDS_"))
}

// expandHomePath expands ~ to the user's home directory
func expandHomePath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(homeDir, path[2:])
		}
	}
	return path
}
