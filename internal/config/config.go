package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Defaults applied where config.toml leaves a field unset.
const (
	DefaultParserChunkSize = 1000
	DefaultSlowOpMs        = 100
)

// Config represents the global ~/.chatarc/config.toml.
type Config struct {
	DefaultProfile  string `toml:"default_profile"`
	ParserChunkSize int    `toml:"parser_chunk_size"`
	SlowOpMs        int    `toml:"slow_op_ms"`
}

// Load reads config from the given path. Returns zero config and error if file missing.
func Load(path string) (*Config, error) {
	var cfg Config
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}

// Default returns a config with all defaults applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.ParserChunkSize <= 0 {
		c.ParserChunkSize = DefaultParserChunkSize
	}
	if c.SlowOpMs <= 0 {
		c.SlowOpMs = DefaultSlowOpMs
	}
}
