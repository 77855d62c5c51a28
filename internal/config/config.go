// Copyright 2025 SFX Ops, LLC
//
// Licensed under the Business Source License 1.1 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://mariadb.com/bsl11
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config provides configuration management for sfx-export with
// support for multiple configuration sources and a well-defined precedence
// order.
//
// Configuration sources (in precedence order, highest to lowest):
//  1. Command-line flags
//  2. Environment variables
//  3. Configuration file
//  4. Built-in defaults
//
// The package supports YAML configuration files and provides automatic
// discovery of configuration in standard locations.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from multiple sources and applies them in
// the correct precedence order. If configPath is provided, it loads from
// that specific file. Otherwise, it searches standard locations:
//   - .sfx-export.yaml (current directory)
//   - .sfx-export.yml (current directory)
//   - ~/.sfx-export/config.yaml
//   - ~/.sfx-export/config.yml
//
// Environment variables are applied after loading the config file, allowing
// runtime overrides. Returns an error if the specified config file cannot
// be loaded, but succeeds with defaults if no config file is found in
// standard locations.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		if err := loadConfigFile(configPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	} else {
		defaultPaths := []string{
			".sfx-export.yaml",
			".sfx-export.yml",
			filepath.Join(os.Getenv("HOME"), ".sfx-export", "config.yaml"),
			filepath.Join(os.Getenv("HOME"), ".sfx-export", "config.yml"),
		}

		for _, path := range defaultPaths {
			if _, err := os.Stat(path); err == nil {
				if err := loadConfigFile(path, cfg); err != nil {
					return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
				}
				break
			}
		}
	}

	applyEnvOverrides(cfg)

	cfg.Export.OutputDir = expandPath(cfg.Export.OutputDir)

	return cfg, nil
}

// loadConfigFile reads and parses a YAML config file
func loadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(cfg *Config) {
	if realm := os.Getenv("SFX_REALM"); realm != "" {
		cfg.SignalFx.Realm = realm
	}
	if endpoint := os.Getenv("SFX_API_ENDPOINT"); endpoint != "" {
		cfg.SignalFx.Endpoint = endpoint
	}
	if outputDir := os.Getenv("SFX_EXPORT_OUTPUT_DIR"); outputDir != "" {
		cfg.Export.OutputDir = outputDir
	}
	if pageSize := os.Getenv("SFX_EXPORT_PAGE_SIZE"); pageSize != "" {
		if size, err := parsePositiveInt(pageSize); err == nil {
			cfg.Export.PageSize = size
		}
	}
	if attempts := os.Getenv("SFX_EXPORT_RETRY_ATTEMPTS"); attempts != "" {
		if n, err := parsePositiveInt(attempts); err == nil {
			cfg.Retry.MaxAttempts = n
		}
	}
	if backoff := os.Getenv("SFX_EXPORT_INITIAL_BACKOFF"); backoff != "" {
		if d, err := time.ParseDuration(backoff); err == nil && d > 0 {
			cfg.Retry.InitialBackoff = Duration(d)
		}
	}
}

// expandPath expands ~ and environment variables in paths
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home := os.Getenv("HOME")
		if home == "" {
			home = os.Getenv("USERPROFILE") // Windows
		}
		path = filepath.Join(home, path[2:])
	}
	return os.ExpandEnv(path)
}

// parsePositiveInt parses a string to a positive integer
func parsePositiveInt(s string) (int, error) {
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("failed to parse integer from '%s': %w", s, err)
	}
	if i <= 0 {
		return 0, fmt.Errorf("value must be positive, got: %d", i)
	}
	return i, nil
}

// Validate checks if the configuration contains valid values. This should
// be called after loading configuration to catch invalid settings early.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.SignalFx.Realm) == "" {
		return fmt.Errorf("realm cannot be empty")
	}
	if c.Export.PageSize <= 0 {
		return fmt.Errorf("page size must be positive, got: %d", c.Export.PageSize)
	}
	if c.Export.PageSize > 200 {
		return fmt.Errorf("page size %d exceeds the detector API limit of 200", c.Export.PageSize)
	}
	if c.Export.OutputDir == "" {
		return fmt.Errorf("output directory cannot be empty")
	}
	if c.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("retry attempts must be positive, got: %d", c.Retry.MaxAttempts)
	}
	if c.Retry.InitialBackoff.AsDuration() <= 0 {
		return fmt.Errorf("initial backoff must be positive, got: %s", c.Retry.InitialBackoff.AsDuration())
	}
	if c.Retry.MaxBackoff.AsDuration() < c.Retry.InitialBackoff.AsDuration() {
		return fmt.Errorf("max backoff %s is below initial backoff %s",
			c.Retry.MaxBackoff.AsDuration(), c.Retry.InitialBackoff.AsDuration())
	}
	return nil
}
