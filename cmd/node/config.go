package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"CardSwap/internal/ledger"
)

// Config holds the node configuration. Values come from defaults, then an
// optional YAML file, then command-line flags, later sources winning.
type Config struct {
	// DataPath is the directory for persistent storage.
	DataPath string `yaml:"data"`

	// HTTPAddress is the HTTP API listen address.
	HTTPAddress string `yaml:"http"`

	// FeedAddress is the QUIC fact feed listen address. Empty disables the feed.
	FeedAddress string `yaml:"feed"`

	// KeyPath is the path to the Ed25519 private key file.
	KeyPath string `yaml:"key"`

	// AdminAccount is the hex-encoded pause authority. Defaults to the
	// node's own public key when empty.
	AdminAccount string `yaml:"admin"`

	// LogLevel is the minimum log level (debug, info, warn, error).
	LogLevel string `yaml:"log_level"`

	// PrivateKey is the node's Ed25519 signing key.
	PrivateKey ed25519.PrivateKey `yaml:"-"`

	// Admin is the resolved pause authority account.
	Admin ledger.Account `yaml:"-"`
}

// defaultConfig returns the built-in defaults.
func defaultConfig() *Config {
	return &Config{
		DataPath:    "./data",
		HTTPAddress: ":8080",
		FeedAddress: ":9000",
		LogLevel:    "info",
	}
}

// loadConfig merges defaults, the optional config file, and flags.
func loadConfig() (*Config, error) {
	cfg := defaultConfig()

	var configPath string
	flag.StringVar(&configPath, "config", "", "YAML config file path")
	flag.StringVar(&cfg.DataPath, "data", cfg.DataPath, "Data directory path")
	flag.StringVar(&cfg.HTTPAddress, "http", cfg.HTTPAddress, "HTTP API address")
	flag.StringVar(&cfg.FeedAddress, "feed", cfg.FeedAddress, "QUIC fact feed address (empty disables)")
	flag.StringVar(&cfg.KeyPath, "key", cfg.KeyPath, "Ed25519 private key path (generates new if missing)")
	flag.StringVar(&cfg.AdminAccount, "admin", cfg.AdminAccount, "Hex-encoded admin account (defaults to node key)")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Minimum log level")
	flag.Parse()

	if configPath != "" {
		if err := loadConfigFile(configPath, cfg); err != nil {
			return nil, err
		}

		// Flags set explicitly on the command line win over the file
		flag.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "data":
				cfg.DataPath = f.Value.String()
			case "http":
				cfg.HTTPAddress = f.Value.String()
			case "feed":
				cfg.FeedAddress = f.Value.String()
			case "key":
				cfg.KeyPath = f.Value.String()
			case "admin":
				cfg.AdminAccount = f.Value.String()
			case "log-level":
				cfg.LogLevel = f.Value.String()
			}
		})
	}

	return cfg, nil
}

// loadConfigFile overlays YAML file values onto the config.
func loadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file:\n%w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s:\n%w", path, err)
	}

	return nil
}

// resolveAdmin parses the admin account, falling back to the node's own key.
func (c *Config) resolveAdmin() error {
	if c.AdminAccount == "" {
		pub := c.PrivateKey.Public().(ed25519.PublicKey)
		copy(c.Admin[:], pub)
		return nil
	}

	raw, err := hex.DecodeString(c.AdminAccount)
	if err != nil {
		return fmt.Errorf("decode admin account:\n%w", err)
	}
	if len(raw) != 32 {
		return fmt.Errorf("invalid admin account length: got %d, want 32", len(raw))
	}

	copy(c.Admin[:], raw)
	return nil
}

// loadOrGenerateKey loads the private key from file or generates a new one.
func loadOrGenerateKey(keyPath string) (ed25519.PrivateKey, error) {
	if keyPath == "" {
		return generateNewKey()
	}

	data, err := os.ReadFile(keyPath)
	if os.IsNotExist(err) {
		return generateAndSaveKey(keyPath)
	}

	if err != nil {
		return nil, fmt.Errorf("read key file:\n%w", err)
	}

	if len(data) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid key size: got %d, want %d", len(data), ed25519.PrivateKeySize)
	}

	return ed25519.PrivateKey(data), nil
}

// generateNewKey creates a new Ed25519 private key.
func generateNewKey() (ed25519.PrivateKey, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate key:\n%w", err)
	}

	return priv, nil
}

// generateAndSaveKey creates a new key and saves it to the given path.
func generateAndSaveKey(path string) (ed25519.PrivateKey, error) {
	priv, err := generateNewKey()
	if err != nil {
		return nil, err
	}

	if err := os.WriteFile(path, priv, 0600); err != nil {
		return nil, fmt.Errorf("save key to %s:\n%w", path, err)
	}

	return priv, nil
}
