package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load reads a devrun manifest from the provided path and overlays it on the
// defaults. The file must exist.
func Load(path string) (*Config, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	f, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	cfg := Default()
	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%s: decode: %w", absPath, err)
	}
	cfg.Source = absPath

	if cfg.Workdir != "" {
		cfg.Workdir = os.ExpandEnv(cfg.Workdir)
		if !filepath.IsAbs(cfg.Workdir) {
			cfg.Workdir = filepath.Clean(filepath.Join(filepath.Dir(absPath), cfg.Workdir))
		}
	}
	for k, v := range cfg.Env {
		cfg.Env[k] = os.ExpandEnv(v)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", absPath, err)
	}
	return cfg, nil
}

// LoadOptional behaves like Load but falls back to Default when the manifest
// does not exist.
func LoadOptional(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("stat config file: %w", err)
	}
	return Load(path)
}
