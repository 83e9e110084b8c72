// Package config manages vhist configuration and the .vhist directory structure.
// It handles loading, saving, and initializing the workspace configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

const (
	VhistDir   = ".vhist"
	ConfigFile = "config"
)

// Defaults written by Initialize
const (
	DefaultBackend   = "bbolt"
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
	DefaultListen    = "127.0.0.1:8730"
)

// Config represents the vhist configuration
type Config struct {
	JournalBackend string `toml:"journal_backend"` // bbolt or sqlite
	JournalFile    string `toml:"journal_file"`    // relative to the .vhist directory
	LogLevel       string `toml:"log_level"`
	LogFormat      string `toml:"log_format"`
	Listen         string `toml:"listen"`
	path           string // path to .vhist directory
}

// FindRoot finds the .vhist directory by walking up from the current directory
func FindRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		vhistPath := filepath.Join(dir, VhistDir)
		if info, err := os.Stat(vhistPath); err == nil && info.IsDir() {
			return vhistPath, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not a vhist workspace (or any parent up to root)")
		}
		dir = parent
	}
}

// Load loads the configuration from the .vhist directory
func Load() (*Config, error) {
	vhistPath, err := FindRoot()
	if err != nil {
		return nil, err
	}
	return LoadFrom(vhistPath)
}

// LoadFrom loads the configuration from the given .vhist directory
func LoadFrom(vhistPath string) (*Config, error) {
	data, err := os.ReadFile(filepath.Join(vhistPath, ConfigFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.path = vhistPath
	return cfg, nil
}

// Save saves the configuration to disk
func (c *Config) Save() error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(filepath.Join(c.path, ConfigFile), data, 0644)
}

// Path returns the path to the .vhist directory
func (c *Config) Path() string {
	return c.path
}

// JournalPath returns the path to the journal database
func (c *Config) JournalPath() string {
	if filepath.IsAbs(c.JournalFile) {
		return c.JournalFile
	}
	return filepath.Join(c.path, c.JournalFile)
}

// Initialize creates a new .vhist directory in dir with a default configuration
func Initialize(dir, backend string) (*Config, error) {
	vhistPath := filepath.Join(dir, VhistDir)

	if _, err := os.Stat(vhistPath); err == nil {
		return nil, fmt.Errorf("vhist workspace already exists")
	}

	if err := os.MkdirAll(vhistPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create .vhist directory: %w", err)
	}

	cfg := defaults()
	cfg.path = vhistPath
	if backend != "" {
		cfg.JournalBackend = backend
	}
	cfg.JournalFile = "journal." + cfg.JournalBackend + ".db"

	if err := cfg.Save(); err != nil {
		// Cleanup on failure
		os.RemoveAll(vhistPath)
		return nil, err
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		JournalBackend: DefaultBackend,
		JournalFile:    "journal.bbolt.db",
		LogLevel:       DefaultLogLevel,
		LogFormat:      DefaultLogFormat,
		Listen:         DefaultListen,
	}
}
