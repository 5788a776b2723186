// Package config loads the dev-harness configuration for
// cmd/dupdupninja-scan: scan roots, worker counts, and the default scan
// options threaded through to internal/scan and internal/query. The core
// engine itself is invoked through the C ABI (abi package) and takes no
// config file of its own; this YAML layer exists only for the bundled
// command-line harness used to exercise it locally.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds everything loaded from config.yaml.
type Config struct {
	ScanRoots       []string `yaml:"scan_roots"`
	ExcludePaths    []string `yaml:"exclude_paths"`
	ExcludeDotfiles bool     `yaml:"exclude_dotfiles"`
	DBPath          string   `yaml:"db_path"`
	LogLevel        string   `yaml:"log_level"`

	// ConcurrentProcessing bounds the ingest worker pool. Zero selects
	// internal/scan's own default.
	ConcurrentProcessing int `yaml:"concurrent_processing"`

	// CaptureSnapshots, SnapshotsPerVideo, and SnapshotMaxDim configure the
	// video snapshotter.
	CaptureSnapshots  bool `yaml:"capture_snapshots"`
	SnapshotsPerVideo int  `yaml:"snapshots_per_video"`
	SnapshotMaxDim    int  `yaml:"snapshot_max_dim"`

	// PHashMaxDistance, DHashMaxDistance, and AHashMaxDistance bound the
	// query engine's near-duplicate clustering.
	PHashMaxDistance int `yaml:"phash_max_distance"`
	DHashMaxDistance int `yaml:"dhash_max_distance"`
	AHashMaxDistance int `yaml:"ahash_max_distance"`
}

// applyDefaults fills zero/empty fields with sensible defaults.
func (c *Config) applyDefaults() {
	if c.DBPath == "" {
		c.DBPath = "./dupdupninja.ddn"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.SnapshotsPerVideo == 0 {
		c.SnapshotsPerVideo = 3
	}
	if c.SnapshotMaxDim == 0 {
		c.SnapshotMaxDim = 512
	}
	if c.PHashMaxDistance == 0 {
		c.PHashMaxDistance = 8
	}
	if c.DHashMaxDistance == 0 {
		c.DHashMaxDistance = 8
	}
	if c.AHashMaxDistance == 0 {
		c.AHashMaxDistance = 8
	}
}

// Load reads and parses the YAML config file at path. If the file does not
// exist, Load returns a default Config so the harness can start without a
// mounted config file.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		var cfg Config
		cfg.applyDefaults()
		return &cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open config %q: %w", path, err)
	}
	defer f.Close()

	var cfg Config
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config %q: %w", path, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}
