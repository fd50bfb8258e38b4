package config

import (
	"os"
	"path/filepath"
)

const (
	// EnvConfigPath is the environment variable for an explicit config path.
	EnvConfigPath = "LOREBOARD_CONFIG"
	// ConfigFileName is the config file name looked up in the working directory.
	ConfigFileName = "loreboard.toml"
	// ConfigDirName is the config directory name under XDG.
	ConfigDirName = "loreboard"
)

// FindConfigPath searches for a config file in priority order:
//  1. $LOREBOARD_CONFIG (explicit path)
//  2. ./loreboard.toml (working directory)
//  3. $XDG_CONFIG_HOME/loreboard/config.toml
//  4. ~/.config/loreboard/config.toml
//
// Returns an empty string if no config file is found.
func FindConfigPath() string {
	if path := os.Getenv(EnvConfigPath); path != "" {
		if fileExists(path) {
			return path
		}
	}

	if fileExists(ConfigFileName) {
		if abs, err := filepath.Abs(ConfigFileName); err == nil {
			return abs
		}
		return ConfigFileName
	}

	if xdgHome := os.Getenv("XDG_CONFIG_HOME"); xdgHome != "" {
		path := filepath.Join(xdgHome, ConfigDirName, "config.toml")
		if fileExists(path) {
			return path
		}
	}

	if home := os.Getenv("HOME"); home != "" {
		path := filepath.Join(home, ".config", ConfigDirName, "config.toml")
		if fileExists(path) {
			return path
		}
	}

	return ""
}

// DefaultConfigPath returns the preferred location for a new config file.
func DefaultConfigPath() string {
	if xdgHome := os.Getenv("XDG_CONFIG_HOME"); xdgHome != "" {
		return filepath.Join(xdgHome, ConfigDirName, "config.toml")
	}
	if home := os.Getenv("HOME"); home != "" {
		return filepath.Join(home, ".config", ConfigDirName, "config.toml")
	}
	return ConfigFileName
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
