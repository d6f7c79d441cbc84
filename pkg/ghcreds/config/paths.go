package config

import (
	"os"
	"path/filepath"
)

const (
	EnvConfigPath = "GH_SCOPED_CREDS_CONFIG"

	defaultConfigDirName = "gh-scoped-creds"
	defaultConfigFile    = "config.yaml"
)

func DefaultConfigPath() string {
	if env := os.Getenv(EnvConfigPath); env != "" {
		return env
	}
	base, err := os.UserConfigDir()
	if err == nil {
		return filepath.Join(base, defaultConfigDirName, defaultConfigFile)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".gh-scoped-creds", defaultConfigFile)
}
