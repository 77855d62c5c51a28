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

// Package config types define the configuration structures used throughout
// sfx-export. These types represent settings that can be loaded from YAML
// configuration files, environment variables, or command-line flags.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete configuration for sfx-export. It
// consolidates settings from various sources and provides a unified
// interface for accessing configuration values throughout the application.
type Config struct {
	SignalFx SignalFxConfig `yaml:"signalfx"`
	Export   ExportConfig   `yaml:"export"`
	Retry    RetryConfig    `yaml:"retry"`
}

// SignalFxConfig contains API settings: the realm, an optional endpoint
// override for proxied deployments, the environment variable the token is
// read from, and client-side request pacing.
type SignalFxConfig struct {
	Realm             string  `yaml:"realm"`
	Endpoint          string  `yaml:"endpoint"`
	TokenEnv          string  `yaml:"token_env"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// ExportConfig contains default settings for export runs unless overridden
// by command-line flags.
type ExportConfig struct {
	OutputDir string `yaml:"output_dir"`
	PageSize  int    `yaml:"page_size"`
}

// RetryConfig controls the pipeline's bounded retry policy for rate-limited
// and transient page fetch failures.
type RetryConfig struct {
	MaxAttempts    int      `yaml:"max_attempts"`
	InitialBackoff Duration `yaml:"initial_backoff"`
	MaxBackoff     Duration `yaml:"max_backoff"`
}

// Duration wraps time.Duration so YAML config can express backoff values as
// strings like "1s" or "500ms".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// AsDuration returns the underlying time.Duration.
func (d Duration) AsDuration() time.Duration { return time.Duration(d) }

// DefaultConfig returns a Config with sensible defaults suitable for most
// use cases. The retry constants follow a capped exponential policy and can
// be overridden for organizations with stricter quotas.
func DefaultConfig() *Config {
	return &Config{
		SignalFx: SignalFxConfig{
			Realm:             "us0",
			TokenEnv:          "SFX_TOKEN",
			RequestsPerSecond: 4,
		},
		Export: ExportConfig{
			OutputDir: "./alerts",
			PageSize:  50,
		},
		Retry: RetryConfig{
			MaxAttempts:    3,
			InitialBackoff: Duration(1 * time.Second),
			MaxBackoff:     Duration(30 * time.Second),
		},
	}
}
