// Package project locates and reads the optional strata.toml manifest.
// The manifest tunes canonicalization runs; a missing manifest is not an
// error, the CLI falls back to defaults.
package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the decoded strata.toml.
type Config struct {
	Canon CanonConfig `toml:"canon"`
}

// CanonConfig tunes the rewrite driver.
type CanonConfig struct {
	// Disabled lists pattern names excluded from runs.
	Disabled []string `toml:"disabled"`
	// MaxIterations caps driver sweeps; zero keeps the driver default.
	MaxIterations int `toml:"max_iterations"`
	// VerifyEach re-verifies graphs after every changed sweep.
	VerifyEach bool `toml:"verify_each"`
	// Jobs caps concurrent function workers; zero means GOMAXPROCS.
	Jobs int `toml:"jobs"`
}

// Manifest is a located and decoded strata.toml.
type Manifest struct {
	Path   string
	Root   string
	Config Config
}

// FindStrataToml walks up from startDir to locate strata.toml.
func FindStrataToml(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, "strata.toml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// FindProjectRoot returns the directory containing strata.toml, if any.
func FindProjectRoot(startDir string) (root string, ok bool, err error) {
	manifestPath, ok, err := FindStrataToml(startDir)
	if err != nil || !ok {
		return "", ok, err
	}
	return filepath.Dir(manifestPath), true, nil
}

// Load locates and decodes the manifest governing startDir.
func Load(startDir string) (*Manifest, bool, error) {
	path, ok, err := FindStrataToml(startDir)
	if err != nil || !ok {
		return nil, ok, err
	}
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, false, fmt.Errorf("failed to parse %q: %w", path, err)
	}
	return &Manifest{Path: path, Root: filepath.Dir(path), Config: cfg}, true, nil
}
