package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"
)

type Config struct {
	ServerURL string `toml:"server_url"`
	DeviceID  string `toml:"device_id"`
	DBPath    string `toml:"db_path"`
}

// userHomeDir is a seam for tests.
var userHomeDir = os.UserHomeDir

// DefaultDir is ~/.nibble, or ./.nibble when the home directory is unknown.
func DefaultDir() string {
	home, err := userHomeDir()
	if err != nil || home == "" {
		return ".nibble"
	}
	return filepath.Join(home, ".nibble")
}

// DefaultPath is the config file used when none is given.
func DefaultPath() string {
	return filepath.Join(DefaultDir(), "config.toml")
}

// LoadDefaults populates c with defaults. Every call generates a new
// device id.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://localhost:8000"
	c.DeviceID = uuid.NewString()
	c.DBPath = filepath.Join(DefaultDir(), "nibble.db")
}

// Load reads the TOML file at path over the defaults. A missing file is
// written out with the defaults; fields missing from an existing file are
// filled in and saved back.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	cfg := &Config{}
	cfg.LoadDefaults()

	md, err := toml.DecodeFile(path, cfg)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return cfg, Save(path, cfg)
	case err != nil:
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if !md.IsDefined("device_id") || !md.IsDefined("server_url") || !md.IsDefined("db_path") {
		if err := Save(path, cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// Save writes cfg to path, creating the directory if needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return nil
}
