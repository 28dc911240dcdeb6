// Copyright 2025 Flow State Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type ctxKey string

const configContextKey ctxKey = "flowd.config"

const DefaultShutdownTimeout = "30s"

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

type Config struct {
	BindAddr    string `yaml:"bindAddr"    split_words:"true"`
	MetricsPort uint   `yaml:"metricsPort" split_words:"true"`
	DataDir     string `yaml:"dataDir"     split_words:"true"`
	PostgresDSN string `yaml:"postgresDsn" envconfig:"POSTGRES_DSN"`
	// VaultKey is the hex-encoded 32-byte vault encryption key. VaultKeyFile
	// takes precedence when both are set.
	VaultKey     string   `yaml:"vaultKey"     split_words:"true"`
	VaultKeyFile string   `yaml:"vaultKeyFile" split_words:"true"`
	ChainIDs     []uint64 `yaml:"chainIds"     envconfig:"CHAIN_IDS"`

	IndexerWorkers       int    `yaml:"indexerWorkers"       split_words:"true"`
	IndexerMaxRetries    uint   `yaml:"indexerMaxRetries"    split_words:"true"`
	IndexerQueueSize     int    `yaml:"indexerQueueSize"     split_words:"true"`
	RetryInitialInterval string `yaml:"retryInitialInterval" split_words:"true"`

	SchedulerTick    string `yaml:"schedulerTick"    split_words:"true"`
	RevealInterval   int    `yaml:"revealInterval"   split_words:"true"`
	FlowrateInterval int    `yaml:"flowrateInterval" split_words:"true"`

	Tracing       bool `yaml:"tracing"`
	TracingStdout bool `yaml:"tracingStdout" split_words:"true"`

	ShutdownTimeout string `yaml:"shutdownTimeout" split_words:"true"`
}

var globalConfig = &Config{
	BindAddr:        "0.0.0.0",
	MetricsPort:     12798,
	DataDir:         ".flowd",
	SchedulerTick:   "10s",
	ShutdownTimeout: DefaultShutdownTimeout,
}

func LoadConfig(configFile string) (*Config, error) {
	// Load config file as YAML if provided
	if configFile == "" {
		// Check for config file in this path: ~/.flowd/flowd.yaml
		if homeDir, err := os.UserHomeDir(); err == nil {
			userPath := filepath.Join(homeDir, ".flowd", "flowd.yaml")
			if _, err := os.Stat(userPath); err == nil {
				configFile = userPath
			}
		}

		// Try to check for /etc/flowd/flowd.yaml if still not found
		if configFile == "" {
			systemPath := "/etc/flowd/flowd.yaml"
			if _, err := os.Stat(systemPath); err == nil {
				configFile = systemPath
			}
		}
	}

	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		err = yaml.Unmarshal(buf, globalConfig)
		if err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}
	// Process environment variables
	err := envconfig.Process("flowd", globalConfig)
	if err != nil {
		return nil, fmt.Errorf("error processing environment: %+w", err)
	}
	if globalConfig.ShutdownTimeout == "" {
		globalConfig.ShutdownTimeout = DefaultShutdownTimeout
	}
	// Validate duration fields up front so a bad value fails at startup
	for _, check := range []struct {
		name  string
		value string
	}{
		{"schedulerTick", globalConfig.SchedulerTick},
		{"retryInitialInterval", globalConfig.RetryInitialInterval},
		{"shutdownTimeout", globalConfig.ShutdownTimeout},
	} {
		if check.value == "" {
			continue
		}
		if _, err := time.ParseDuration(check.value); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", check.name, err)
		}
	}
	return globalConfig, nil
}

func GetConfig() *Config {
	return globalConfig
}

// LoadVaultKey resolves the vault encryption key from the key file or the
// inline hex value. Returns nil when no key is configured.
func (c *Config) LoadVaultKey() ([]byte, error) {
	keyHex := c.VaultKey
	if c.VaultKeyFile != "" {
		buf, err := os.ReadFile(c.VaultKeyFile)
		if err != nil {
			return nil, fmt.Errorf("error reading vault key file: %w", err)
		}
		keyHex = strings.TrimSpace(string(buf))
	}
	if keyHex == "" {
		return nil, nil
	}
	keyHex = strings.TrimPrefix(keyHex, "0x")
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("error decoding vault key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf(
			"vault key must be 32 bytes, got %d",
			len(key),
		)
	}
	return key, nil
}

// Duration parses a duration config value, returning the fallback for an
// empty string. Values are validated in LoadConfig, so parse errors here
// also fall back.
func Duration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
