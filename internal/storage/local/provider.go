// Package local implements a local filesystem share-card store.
package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// Config captures the parameters for the local filesystem store.
type Config struct {
	// BaseDir is the directory where blobs will be stored.
	BaseDir string `mapstructure:"base_dir"`
}

// Provider writes blobs to the local filesystem.
type Provider struct {
	fs      afero.Fs
	baseDir string
}

// New creates a filesystem-backed Provider. A nil fs uses the OS
// filesystem; tests pass an in-memory one.
func New(fs afero.Fs, cfg Config) (*Provider, error) {
	if strings.TrimSpace(cfg.BaseDir) == "" {
		return nil, fmt.Errorf("base directory is required")
	}
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if err := fs.MkdirAll(cfg.BaseDir, 0o750); err != nil {
		return nil, fmt.Errorf("create base directory: %w", err)
	}
	return &Provider{fs: fs, baseDir: cfg.BaseDir}, nil
}

// Get reads a blob, reporting false when it does not exist.
func (p *Provider) Get(_ context.Context, key string) ([]byte, bool, error) {
	target, err := p.path(key)
	if err != nil {
		return nil, false, err
	}
	data, err := afero.ReadFile(p.fs, target)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read blob %s: %w", key, err)
	}
	return data, true, nil
}

// Put writes a blob via a temp file and rename so concurrent readers
// never observe a partial object.
func (p *Provider) Put(_ context.Context, key string, _ string, data []byte) error {
	target, err := p.path(key)
	if err != nil {
		return err
	}
	tmp := target + ".tmp"
	if err := afero.WriteFile(p.fs, tmp, data, 0o640); err != nil {
		return fmt.Errorf("write temp blob %s: %w", key, err)
	}
	if err := p.fs.Rename(tmp, target); err != nil {
		p.fs.Remove(tmp) //nolint:errcheck
		return fmt.Errorf("rename blob %s into place: %w", key, err)
	}
	return nil
}

// Clear removes every blob in the base directory.
func (p *Provider) Clear(_ context.Context) error {
	entries, err := afero.ReadDir(p.fs, p.baseDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("list blobs: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := p.fs.Remove(filepath.Join(p.baseDir, entry.Name())); err != nil {
			return fmt.Errorf("remove blob %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// Close is a no-op for the filesystem provider.
func (p *Provider) Close() error { return nil }

func (p *Provider) path(key string) (string, error) {
	if key == "" || key != filepath.Base(key) {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	return filepath.Join(p.baseDir, key), nil
}
