package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads configuration from a file with ENV interpolation.
// If configPath is empty, it searches default locations and falls back to
// Defaults when no file exists.
func Load(configPath string, getenv func(string) string) (*Config, error) {
	cfg, _, err := LoadWithPath(configPath, getenv)
	return cfg, err
}

// LoadWithPath reads configuration and returns both the config and the
// resolved path. The path is empty when defaults were used.
func LoadWithPath(configPath string, getenv func(string) string) (*Config, string, error) {
	path, err := resolveConfigPath(configPath, getenv)
	if err != nil {
		return nil, "", err
	}

	if path == "" {
		cfg := Defaults()
		wd, err := os.Getwd()
		if err != nil {
			return nil, "", fmt.Errorf("failed to resolve working directory: %w", err)
		}
		cfg.BaseDir = wd
		resolvePaths(cfg)
		return cfg, "", nil
	}

	// Get absolute path and directory for resolving relative paths
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to resolve config path: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read config: %w", err)
	}

	// Interpolate environment variables
	data = interpolateEnv(data, getenv)

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.BaseDir = filepath.Dir(absPath)
	resolvePaths(cfg)

	if err := Validate(cfg); err != nil {
		return nil, "", err
	}

	return cfg, absPath, nil
}

// resolvePaths makes relative paths absolute against the config directory.
func resolvePaths(cfg *Config) {
	if cfg.OutDir != "" && !filepath.IsAbs(cfg.OutDir) {
		cfg.OutDir = filepath.Join(cfg.BaseDir, cfg.OutDir)
	}
	if cfg.Manifest.SQLite != "" && cfg.Manifest.SQLite != ":memory:" && !filepath.IsAbs(cfg.Manifest.SQLite) {
		cfg.Manifest.SQLite = filepath.Join(cfg.BaseDir, cfg.Manifest.SQLite)
	}
}

// Validate checks the configuration for errors.
// Call this again after applying CLI overrides.
func Validate(cfg *Config) error {
	var errs []string

	validModes := map[string]bool{"packed": true, "unpacked": true}
	if !validModes[strings.ToLower(cfg.Mode)] {
		errs = append(errs, fmt.Sprintf("invalid mode: %s (must be packed or unpacked)", cfg.Mode))
	}

	validMembers := map[string]bool{"nested": true, "two-level": true, "twolevel": true}
	if !validMembers[strings.ToLower(cfg.Members)] {
		errs = append(errs, fmt.Sprintf("invalid members: %s (must be nested or two-level)", cfg.Members))
	}

	if cfg.Workers < 0 {
		errs = append(errs, fmt.Sprintf("invalid workers: %d (must be 0 or more)", cfg.Workers))
	}

	// Manifest validation
	validFormats := map[string]bool{"json": true, "yaml": true, "yml": true}
	if !validFormats[strings.ToLower(cfg.Manifest.Format)] {
		errs = append(errs, fmt.Sprintf("manifest: invalid format: %s (must be json or yaml)", cfg.Manifest.Format))
	}
	switch cfg.Manifest.Store {
	case "file":
	case "sqlite":
		if cfg.Manifest.SQLite == "" {
			errs = append(errs, "manifest: store sqlite requires manifest.sqlite")
		}
	default:
		errs = append(errs, fmt.Sprintf("manifest: invalid store: %s (must be file or sqlite)", cfg.Manifest.Store))
	}

	if cfg.Watch.Debounce < 0 {
		errs = append(errs, fmt.Sprintf("watch: invalid debounce: %s", cfg.Watch.Debounce))
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		errs = append(errs, fmt.Sprintf("invalid log level: %s (must be debug, info, warn, or error)", cfg.Logging.Level))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// Warnings returns non-fatal configuration issues that should be reported to the user.
func Warnings(cfg *Config) []string {
	var warnings []string

	if !cfg.Manifest.Enabled && cfg.Manifest.Store == "sqlite" {
		warnings = append(warnings, "manifest: store is sqlite but manifests are disabled - nothing will be written")
	}
	if cfg.Manifest.Store == "sqlite" && cfg.Manifest.Format != "json" {
		warnings = append(warnings, "manifest: format is ignored by the sqlite store")
	}
	if cfg.Workers > runtime.NumCPU()*4 {
		warnings = append(warnings, fmt.Sprintf("workers: %d is far above the %d available CPUs", cfg.Workers, runtime.NumCPU()))
	}
	if cfg.Watch.Debounce > 0 && cfg.Watch.Debounce < 10*time.Millisecond {
		warnings = append(warnings, "watch: debounce below 10ms may recompile a file several times per save")
	}
	if cfg.Logging.Quiet && cfg.Logging.Level == "debug" {
		warnings = append(warnings, "logging: quiet overrides level debug")
	}

	return warnings
}

// resolveConfigPath finds the config file to use.
// Search order: explicit path > JSXL_CONFIG env > ./jsxl.yaml. An empty
// result with no error means no file was found and defaults apply.
func resolveConfigPath(explicit string, getenv func(string) string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	// Try JSXL_CONFIG environment variable
	if envPath := getenv("JSXL_CONFIG"); envPath != "" {
		if _, err := os.Stat(envPath); err != nil {
			return "", fmt.Errorf("JSXL_CONFIG file not found: %s", envPath)
		}
		return envPath, nil
	}

	// Try ./jsxl.yaml
	if _, err := os.Stat(DefaultFile); err == nil {
		return DefaultFile, nil
	}

	return "", nil
}

// envPattern matches ${VAR} or ${VAR:-default}
var envPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// interpolateEnv replaces ${VAR} and ${VAR:-default} patterns with environment values.
func interpolateEnv(data []byte, getenv func(string) string) []byte {
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		parts := envPattern.FindSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := string(parts[1])
		value := getenv(varName)

		if value == "" && len(parts) >= 3 && len(parts[2]) > 0 {
			value = string(parts[2])
		}

		return []byte(value)
	})
}
