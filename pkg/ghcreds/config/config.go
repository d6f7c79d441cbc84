package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	"github.com/telekom/gh-scoped-creds/pkg/ghcreds/credential"
	"github.com/telekom/gh-scoped-creds/pkg/ghcreds/display"
)

const (
	VersionV1 = "v1"

	EnvClientID            = "GH_SCOPED_CREDS_CLIENT_ID"
	EnvLegacyClientID      = "GITHUB_APP_CLIENT_ID"
	EnvAppURL              = "GH_SCOPED_CREDS_APP_URL"
	EnvMode                = "GH_SCOPED_CREDS_MODE"
	EnvGitCredentialsPath  = "GH_SCOPED_CREDS_GIT_CREDENTIALS_PATH"
	EnvDisplay             = "GH_SCOPED_CREDS_DISPLAY"
	EnvNoBrowser           = "GH_SCOPED_CREDS_NO_BROWSER"
	EnvMaxTransportRetries = "GH_SCOPED_CREDS_MAX_TRANSPORT_RETRIES"
	EnvMetricsTextfile     = "GH_SCOPED_CREDS_METRICS_TEXTFILE"
)

var ErrMissingClientID = errors.New("--client-id must be specified or " + EnvClientID + " environment variable must be set")

type Config struct {
	Version             string `json:"version" yaml:"version"`
	ClientID            string `json:"client-id,omitempty" yaml:"client-id,omitempty"`
	GitHubAppURL        string `json:"github-app-url,omitempty" yaml:"github-app-url,omitempty"`
	Mode                string `json:"mode,omitempty" yaml:"mode,omitempty"`
	GitCredentialsPath  string `json:"git-credentials-path,omitempty" yaml:"git-credentials-path,omitempty"`
	Display             string `json:"display,omitempty" yaml:"display,omitempty"`
	NoBrowser           bool   `json:"no-browser,omitempty" yaml:"no-browser,omitempty"`
	MaxTransportRetries int    `json:"max-transport-retries,omitempty" yaml:"max-transport-retries,omitempty"`
	MetricsTextfile     string `json:"metrics-textfile,omitempty" yaml:"metrics-textfile,omitempty"`
}

func DefaultConfig() Config {
	return Config{
		Version: VersionV1,
		Display: display.ModeAuto,
	}
}

func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is required")
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Version == "" {
		cfg.Version = VersionV1
	}
	return &cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields DefaultConfig.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		def := DefaultConfig()
		return &def, nil
	}
	return cfg, err
}

func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	if cfg.Version == "" {
		cfg.Version = VersionV1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	content, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, content, 0o600)
}

// LoadEnvFile adds the variables of a .env file to the process environment.
// Variables that are already set win.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields with the environment variables that are set.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}
	if v, ok := get(EnvClientID); ok {
		c.ClientID = v
	} else if v, ok := get(EnvLegacyClientID); ok {
		c.ClientID = v
	}
	if v, ok := get(EnvAppURL); ok {
		c.GitHubAppURL = v
	}
	if v, ok := get(EnvMode); ok {
		c.Mode = v
	}
	if v, ok := get(EnvGitCredentialsPath); ok {
		c.GitCredentialsPath = v
	}
	if v, ok := get(EnvDisplay); ok {
		c.Display = v
	}
	if v, ok := get(EnvMetricsTextfile); ok {
		c.MetricsTextfile = v
	}
	if v, ok := get(EnvNoBrowser); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvNoBrowser, err)
		}
		c.NoBrowser = b
	}
	if v, ok := get(EnvMaxTransportRetries); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvMaxTransportRetries, err)
		}
		c.MaxTransportRetries = n
	}
	return nil
}

// ResolvedMode picks file mode when a credentials path is configured and
// git-config mode otherwise, unless Mode is set explicitly.
func (c *Config) ResolvedMode() string {
	if c.Mode != "" {
		return strings.ToLower(c.Mode)
	}
	if c.GitCredentialsPath != "" {
		return credential.ModeFile
	}
	return credential.ModeGitConfig
}

// CredentialsPath is the file written in file mode.
func (c *Config) CredentialsPath() string {
	if c.GitCredentialsPath != "" {
		return c.GitCredentialsPath
	}
	return credential.DefaultPath
}

func (c *Config) Validate() error {
	var errs []error
	switch c.ResolvedMode() {
	case credential.ModeFile, credential.ModeGitConfig:
	default:
		errs = append(errs, fmt.Errorf("unsupported mode %q (expected %s or %s)", c.Mode, credential.ModeFile, credential.ModeGitConfig))
	}
	switch strings.ToLower(c.Display) {
	case "", display.ModeAuto, display.ModePlain, display.ModeRich:
	default:
		errs = append(errs, fmt.Errorf("unsupported display %q (expected %s, %s or %s)", c.Display, display.ModeAuto, display.ModePlain, display.ModeRich))
	}
	if c.ResolvedMode() == credential.ModeGitConfig && c.GitCredentialsPath != "" {
		errs = append(errs, errors.New("git-credentials-path is only used in file mode"))
	}
	return errors.Join(errs...)
}

// RequireClientID returns ErrMissingClientID when no client id is known.
func (c *Config) RequireClientID() error {
	if strings.TrimSpace(c.ClientID) == "" {
		return ErrMissingClientID
	}
	return nil
}
