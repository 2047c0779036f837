// Package config provides CLI-level configuration management for jjx.
// This is distinct from the per-repository .agent/manifest.toml policy file:
// it controls how the CLI itself behaves, not what the engine permits.
// Configuration is loaded from (highest to lowest priority):
// 1. Command-line flags
// 2. Environment variables (JJX_*)
// 3. Project config (.agent/cli.yaml in the repo root)
// 4. Home config (~/.jjx/config.yaml)
// 5. Defaults
package config

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all jjx CLI configuration.
type Config struct {
	// Output controls the default output format (table, json).
	Output string `yaml:"output" json:"output"`

	// Verbose enables debug-level logging on stderr.
	Verbose bool `yaml:"verbose" json:"verbose"`

	// DefaultTrigger is resolved and reported by `jjx config show`;
	// `jjx commit` does not read it and always runs pre-commit invariants.
	DefaultTrigger string `yaml:"default_trigger" json:"default_trigger"`

	// MaxSnapshotBytes is resolved with the other fields; snapshotting does
	// not read it and uses the driver's own per-file size limit.
	MaxSnapshotBytes int64 `yaml:"max_snapshot_bytes" json:"max_snapshot_bytes"`
}

// Default config values (used in resolution and validation).
const (
	defaultOutput          = "table"
	defaultTrigger         = "pre-commit"
	defaultMaxSnapshotSize = int64(1) << 30 // 1 GiB, per the VCS driver's snapshot contract
)

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Output:           defaultOutput,
		Verbose:          false,
		DefaultTrigger:   defaultTrigger,
		MaxSnapshotBytes: defaultMaxSnapshotSize,
	}
}

// Load loads configuration with proper precedence.
// Priority: flags > env > project > home > defaults
func Load(repoRoot string, flagOverrides *Config) (*Config, error) {
	cfg := Default()

	homeConfig, _ := loadFromPath(homeConfigPath())
	if homeConfig != nil {
		cfg = merge(cfg, homeConfig)
	}

	projectConfig, _ := loadFromPath(projectConfigPath(repoRoot))
	if projectConfig != nil {
		cfg = merge(cfg, projectConfig)
	}

	cfg = applyEnv(cfg)

	if flagOverrides != nil {
		cfg = merge(cfg, flagOverrides)
	}

	return cfg, nil
}

// homeConfigPath returns the home config path.
func homeConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".jjx", "config.yaml")
}

// projectConfigPath returns the project config path. JJX_CONFIG overrides it
// outright; otherwise it's <repoRoot>/.agent/cli.yaml, falling back to the
// current working directory when repoRoot is unknown.
func projectConfigPath(repoRoot string) string {
	if override := strings.TrimSpace(os.Getenv("JJX_CONFIG")); override != "" {
		return override
	}
	root := repoRoot
	if root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return ""
		}
		root = cwd
	}
	return filepath.Join(root, ".agent", "cli.yaml")
}

// loadFromPath loads config from a YAML file. A missing file is not an error.
func loadFromPath(path string) (*Config, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyEnv applies environment variable overrides.
func applyEnv(cfg *Config) *Config {
	if v := os.Getenv("JJX_OUTPUT"); v != "" {
		cfg.Output = v
	}
	if v := os.Getenv("JJX_VERBOSE"); v == "true" || v == "1" {
		cfg.Verbose = true
	}
	if v := os.Getenv("JJX_DEFAULT_TRIGGER"); v != "" {
		cfg.DefaultTrigger = v
	}
	return cfg
}

// merge merges src into dst, with src values taking precedence.
func merge(dst, src *Config) *Config {
	if src.Output != "" {
		dst.Output = src.Output
	}
	if src.Verbose {
		dst.Verbose = true
	}
	if src.DefaultTrigger != "" {
		dst.DefaultTrigger = src.DefaultTrigger
	}
	if src.MaxSnapshotBytes != 0 {
		dst.MaxSnapshotBytes = src.MaxSnapshotBytes
	}
	return dst
}

// Source represents where a config value came from.
type Source string

const (
	SourceDefault Source = "default"
	SourceHome    Source = "~/.jjx/config.yaml"
	SourceProject Source = ".agent/cli.yaml"
	SourceEnv     Source = "environment"
	SourceFlag    Source = "flag"
)

// getEnvString returns the value and whether the env var was set.
func getEnvString(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

// getEnvBool returns the boolean value and whether it was truthy.
func getEnvBool(key string) (bool, bool) {
	v := os.Getenv(key)
	if v == "true" || v == "1" {
		return true, true
	}
	return false, false
}

type resolved struct {
	Value  interface{} `json:"value"`
	Source Source      `json:"source"`
}

// resolveStringField resolves a string through the precedence chain.
func resolveStringField(home, project, env, flag, def string) resolved {
	result := resolved{Value: def, Source: SourceDefault}
	if home != "" {
		result = resolved{Value: home, Source: SourceHome}
	}
	if project != "" {
		result = resolved{Value: project, Source: SourceProject}
	}
	if env != "" {
		result = resolved{Value: env, Source: SourceEnv}
	}
	if flag != "" {
		result = resolved{Value: flag, Source: SourceFlag}
	}
	return result
}

// ResolvedConfig shows config values along with the layer each one resolved
// from, for `jjx config show`.
type ResolvedConfig struct {
	Output         resolved `json:"output"`
	Verbose        resolved `json:"verbose"`
	DefaultTrigger resolved `json:"default_trigger"`
}

// Resolve returns configuration with source tracking, using the same
// precedence chain as Load: flags > env > project > home > defaults.
func Resolve(repoRoot, flagOutput, flagTrigger string, flagVerbose bool) *ResolvedConfig {
	homeConfig, _ := loadFromPath(homeConfigPath())
	projectConfig, _ := loadFromPath(projectConfigPath(repoRoot))

	var homeOutput, homeTrigger string
	var homeVerbose bool
	if homeConfig != nil {
		homeOutput = homeConfig.Output
		homeTrigger = homeConfig.DefaultTrigger
		homeVerbose = homeConfig.Verbose
	}

	var projectOutput, projectTrigger string
	var projectVerbose bool
	if projectConfig != nil {
		projectOutput = projectConfig.Output
		projectTrigger = projectConfig.DefaultTrigger
		projectVerbose = projectConfig.Verbose
	}

	envOutput, _ := getEnvString("JJX_OUTPUT")
	envTrigger, _ := getEnvString("JJX_DEFAULT_TRIGGER")
	envVerbose, envVerboseSet := getEnvBool("JJX_VERBOSE")

	rc := &ResolvedConfig{
		Output:         resolveStringField(homeOutput, projectOutput, envOutput, flagOutput, defaultOutput),
		DefaultTrigger: resolveStringField(homeTrigger, projectTrigger, envTrigger, flagTrigger, defaultTrigger),
		Verbose:        resolved{Value: false, Source: SourceDefault},
	}

	if homeVerbose {
		rc.Verbose = resolved{Value: true, Source: SourceHome}
	}
	if projectVerbose {
		rc.Verbose = resolved{Value: true, Source: SourceProject}
	}
	if envVerboseSet && envVerbose {
		rc.Verbose = resolved{Value: true, Source: SourceEnv}
	}
	if flagVerbose {
		rc.Verbose = resolved{Value: true, Source: SourceFlag}
	}

	return rc
}
