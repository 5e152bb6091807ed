package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sambeau/jsxl/pkg/jsxl/driver"
)

// FileStore writes each manifest to <unit without extension>.exports.<ext>.
type FileStore struct {
	Format driver.Format
	OutDir string // empty: alongside the unit
}

// NewFileStore creates a file-backed store.
func NewFileStore(format driver.Format, outDir string) *FileStore {
	return &FileStore{Format: format, OutDir: outDir}
}

// Path returns the manifest path for unit.
func (s *FileStore) Path(unit string) string {
	base := strings.TrimSuffix(unit, filepath.Ext(unit)) + ".exports." + s.Format.Ext()
	if s.OutDir != "" {
		return filepath.Join(s.OutDir, filepath.Base(base))
	}
	return base
}

func (s *FileStore) Save(ctx context.Context, unit string, m driver.Formulas) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := m.Encode(s.Format)
	if err != nil {
		return fmt.Errorf("encoding manifest for %s: %w", unit, err)
	}
	path := s.Path(unit)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating manifest directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}

func (s *FileStore) Load(ctx context.Context, unit string) (driver.Formulas, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := s.Path(unit)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", unit, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	m, err := driver.Decode(data, s.Format)
	if err != nil {
		return nil, fmt.Errorf("decoding manifest %s: %w", path, err)
	}
	return m, nil
}

// Close is a no-op.
func (s *FileStore) Close() error { return nil }
