// Package config loads researchtree settings from a TOML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/Jahawk44/Sun-Research-Tree/internal/document"
	"github.com/Jahawk44/Sun-Research-Tree/internal/layout"
)

const appName = "researchtree"

// Config holds researchtree configuration.
type Config struct {
	Layout   LayoutConfig   `toml:"layout"`
	Document DocumentConfig `toml:"document"`
	Store    StoreConfig    `toml:"store"`
	Log      LogConfig      `toml:"log"`
}

// LayoutConfig controls geometry.
type LayoutConfig struct {
	GridSize    float64 `toml:"grid_size"`
	CurveOffset float64 `toml:"curve_offset"`
	NodeWidth   float64 `toml:"node_width"`
	NodeHeight  float64 `toml:"node_height"`
}

// DocumentConfig controls loading of documents.
type DocumentConfig struct {
	Dangling string `toml:"dangling"` // "error", "drop"
}

// StoreConfig locates the revision library.
type StoreConfig struct {
	Path string `toml:"path"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `toml:"level"` // "debug", "info", "warn", "error"
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Layout: LayoutConfig{
			GridSize:    layout.DefaultGridSize,
			CurveOffset: layout.DefaultCurveOffset,
			NodeWidth:   layout.DefaultNodeWidth,
			NodeHeight:  layout.DefaultNodeHeight,
		},
		Document: DocumentConfig{Dangling: "error"},
		Store:    StoreConfig{Path: filepath.Join(DataDir(), "library.db")},
		Log:      LogConfig{Level: "warn"},
	}
}

// ConfigDir returns the researchtree config directory path.
func ConfigDir() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, appName)
}

// DataDir returns the researchtree data directory path.
func DataDir() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dir, appName)
}

// DefaultPath returns the config file used when none is given.
func DefaultPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// Load reads the config file at path, or DefaultPath when path is empty.
// Values missing from the file keep their defaults. A missing default file
// is not an error; a missing explicit path is.
func Load(path string) (*Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("load config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []error
	if c.Layout.GridSize < 0 {
		errs = append(errs, fmt.Errorf("layout.grid_size must not be negative, got %v", c.Layout.GridSize))
	}
	if c.Layout.NodeWidth <= 0 || c.Layout.NodeHeight <= 0 {
		errs = append(errs, fmt.Errorf("layout.node_width and layout.node_height must be positive, got %vx%v",
			c.Layout.NodeWidth, c.Layout.NodeHeight))
	}
	if _, err := c.DanglingPolicy(); err != nil {
		errs = append(errs, fmt.Errorf("document.dangling: %w", err))
	}
	if _, err := c.LogLevel(); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	return errors.Join(errs...)
}

// DanglingPolicy returns the parsed document.dangling setting.
func (c *Config) DanglingPolicy() (document.DanglingPolicy, error) {
	return document.ParseDanglingPolicy(c.Document.Dangling)
}

// LogLevel returns the parsed log.level setting.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if c.Log.Level == "" {
		return slog.LevelWarn, nil
	}
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, err
	}
	return level, nil
}
