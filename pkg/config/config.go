// Package config loads the optional svm64.toml tool configuration. Command
// line flags always win over the file; the file wins over the defaults.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/avoran/svm64/pkg/mem"
)

// DefaultFile is the configuration file looked up in the working directory
// when --config is not given.
const DefaultFile = "svm64.toml"

// Config holds the tool settings.
type Config struct {
	Memory  int  `toml:"memory"`  // VM memory capacity in bytes
	Verbose bool `toml:"verbose"` // default for the run command's -v flag
}

// Default returns the built-in settings.
func Default() Config {
	return Config{Memory: mem.DefaultSize}
}

// Load reads a TOML configuration file over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("loading config %s: %w", path, err)
	}
	if cfg.Memory <= 0 {
		return Config{}, fmt.Errorf("config %s: memory must be positive, got %d", path, cfg.Memory)
	}
	return cfg, nil
}

// Discover loads path when given; otherwise it loads DefaultFile if one
// exists in the working directory, or the defaults.
func Discover(path string) (Config, error) {
	if path != "" {
		return Load(path)
	}
	if _, err := os.Stat(DefaultFile); err == nil {
		return Load(DefaultFile)
	}
	return Default(), nil
}
