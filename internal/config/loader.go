package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const maxConfigFileSize = 1024 * 1024

// Load builds the configuration from a YAML file overlaid with
// environment variables.
//
// Precedence, highest first:
//  1. Environment variables (SERVER_PORT, REASONER_MAX_TOOL_CALLS, ...)
//  2. YAML config file
//  3. Defaults
//
// With an empty configPath the default location is used:
// ~/.config/corpusd/config.yaml. The default location must carry 0600
// permissions; an operator-supplied explicit path is loaded from
// wherever it points.
//
// Environment variables map onto the YAML tree by lowercasing and
// splitting on the first underscore: SERVER_READ_TIMEOUT becomes
// server.read_timeout.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	explicit := configPath != ""
	if !explicit {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		configPath = filepath.Join(home, ".config", "corpusd", "config.yaml")
	}

	if _, err := os.Stat(configPath); err == nil {
		// Open once and validate through the descriptor, so the file
		// checked is the file read.
		f, err := os.Open(configPath)
		if err != nil {
			return nil, fmt.Errorf("open config file: %w", err)
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			return nil, fmt.Errorf("stat config file: %w", err)
		}
		if err := validateConfigFile(info, !explicit); err != nil {
			return nil, fmt.Errorf("config file %s: %w", configPath, err)
		}

		content, err := io.ReadAll(f)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envToKey), nil); err != nil {
		return nil, fmt.Errorf("load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// envToKey maps SERVER_READ_TIMEOUT to server.read_timeout: lowercase,
// split on the first underscore, keep the rest intact.
func envToKey(s string) string {
	lower := strings.ToLower(s)
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}
	return parts[0] + "." + parts[1]
}

// validateConfigFile rejects oversized files, and world-readable ones at
// the default location where credentials are expected to live.
func validateConfigFile(info os.FileInfo, enforcePerms bool) error {
	if info.Size() > maxConfigFileSize {
		return fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}
	if enforcePerms && runtime.GOOS != "windows" {
		perm := info.Mode().Perm()
		if perm != 0600 && perm != 0400 {
			return fmt.Errorf("insecure permissions %v (expected 0600 or 0400)", perm)
		}
	}
	return nil
}
