// Package store persists export manifests, the name -> formula mappings a
// compiled unit publishes for addressable use.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/sambeau/jsxl/config"
	"github.com/sambeau/jsxl/pkg/jsxl/driver"
)

// ErrNotFound is returned by Load when no manifest exists for a unit.
var ErrNotFound = errors.New("manifest not found")

// Store saves and loads manifests keyed by compilation unit, normally the
// source path.
type Store interface {
	Save(ctx context.Context, unit string, m driver.Formulas) error
	Load(ctx context.Context, unit string) (driver.Formulas, error)
	Close() error
}

// Open returns the backend selected by cfg. outDir is where the file store
// writes; empty means next to each unit.
func Open(cfg config.ManifestConfig, outDir string) (Store, error) {
	switch cfg.Store {
	case "sqlite":
		return OpenSQLite(cfg.SQLite)
	case "", "file":
		format, err := driver.ParseFormat(cfg.Format)
		if err != nil {
			return nil, fmt.Errorf("manifest store: %w", err)
		}
		return NewFileStore(format, outDir), nil
	}
	return nil, fmt.Errorf("manifest store: unknown backend %q", cfg.Store)
}
