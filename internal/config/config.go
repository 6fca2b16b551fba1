// Package config loads passvault settings from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

// DBFileName is the vault database file inside the data directory.
const DBFileName = "passvault.db"

// Config holds all environment-driven settings
type Config struct {
	// DataDir is where the vault database lives.
	// Defaults to ~/.passvault when unset.
	DataDir string `env:"PASSVAULT_DATA_DIR"`

	// Iterations is the PBKDF2 iteration count for key derivation.
	Iterations int `env:"PASSVAULT_PBKDF2_ITERATIONS" envDefault:"480000"`

	// BcryptCost is the cost factor for the verification hash.
	BcryptCost int `env:"PASSVAULT_BCRYPT_COST" envDefault:"12"`

	// Username, when set, skips the username prompt.
	Username string `env:"PASSVAULT_USER"`

	// Password, when set, skips the master password prompt.
	// Intended for scripting; the OS keyring is the safer option.
	Password string `env:"PASSVAULT_PASSWORD"`
}

// Load reads configuration from the environment
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve home directory: %w", err)
		}
		cfg.DataDir = filepath.Join(home, ".passvault")
	}

	return cfg, nil
}

// VaultPath returns the full path of the vault database file
func (c *Config) VaultPath() string {
	return filepath.Join(c.DataDir, DBFileName)
}

// EnsureDataDir creates the data directory with owner-only permissions
func (c *Config) EnsureDataDir() error {
	if err := os.MkdirAll(c.DataDir, 0700); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	return nil
}
