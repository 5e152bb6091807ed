package config

import "time"

// DefaultFile is the config file looked up in the working directory.
const DefaultFile = "jsxl.yaml"

// Config represents the complete jsxl configuration
type Config struct {
	BaseDir  string         `yaml:"-"`        // Directory containing config file, for resolving relative paths
	Mode     string         `yaml:"mode"`     // packed or unpacked
	Members  string         `yaml:"members"`  // nested or two-level member flattening
	OutDir   string         `yaml:"out_dir"`  // Where artifacts are written (empty: next to each source)
	Workers  int            `yaml:"workers"`  // Parallel compiles (0: one per CPU)
	Manifest ManifestConfig `yaml:"manifest"` // Named export manifests
	Watch    WatchConfig    `yaml:"watch"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ManifestConfig controls where export manifests are persisted
type ManifestConfig struct {
	Enabled bool   `yaml:"enabled"`
	Format  string `yaml:"format"` // json or yaml (file store only)
	Store   string `yaml:"store"`  // file or sqlite
	SQLite  string `yaml:"sqlite"` // Database path when store is sqlite
}

// WatchConfig holds watch-mode settings
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"` // Quiet period before recompiling
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	Quiet bool   `yaml:"quiet"` // Suppress everything but errors
}

// Defaults returns a Config with sensible defaults
func Defaults() *Config {
	return &Config{
		Mode:    "packed",
		Members: "nested",
		Manifest: ManifestConfig{
			Enabled: true,
			Format:  "json",
			Store:   "file",
			SQLite:  "jsxl.db",
		},
		Watch: WatchConfig{
			Debounce: 100 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
