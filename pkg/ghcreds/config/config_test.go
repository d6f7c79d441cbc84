package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestLoadAndSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := &Config{
		ClientID:            "Iv1.abc",
		GitHubAppURL:        "https://github.com/apps/my-app",
		Mode:                "file",
		GitCredentialsPath:  "/tmp/creds",
		Display:             "plain",
		NoBrowser:           true,
		MaxTransportRetries: 5,
	}
	require.NoError(t, Save(path, cfg))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, VersionV1, loaded.Version)
	assert.Equal(t, *cfg, *loaded)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load("")
	require.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("client-id: [unterminated"), 0o600))
	_, err = Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("client-id: Iv1.abc\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Iv1.abc", cfg.ClientID)
	assert.Equal(t, "auto", cfg.Display)
	assert.Equal(t, VersionV1, cfg.Version)
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), *cfg)
}

func TestSave_NilConfig(t *testing.T) {
	require.Error(t, Save(filepath.Join(t.TempDir(), "c.yaml"), nil))
}

func TestApplyEnv(t *testing.T) {
	t.Run("new variable wins over legacy one", func(t *testing.T) {
		cfg := DefaultConfig()
		require.NoError(t, cfg.ApplyEnv(envMap(map[string]string{
			EnvClientID:       "new",
			EnvLegacyClientID: "legacy",
		})))
		assert.Equal(t, "new", cfg.ClientID)
	})

	t.Run("legacy variable is honoured", func(t *testing.T) {
		cfg := DefaultConfig()
		require.NoError(t, cfg.ApplyEnv(envMap(map[string]string{EnvLegacyClientID: "legacy"})))
		assert.Equal(t, "legacy", cfg.ClientID)
	})

	t.Run("env overrides file values and blanks are ignored", func(t *testing.T) {
		cfg := Config{ClientID: "from-file", GitHubAppURL: "https://file"}
		require.NoError(t, cfg.ApplyEnv(envMap(map[string]string{
			EnvClientID:            "  ",
			EnvAppURL:              "https://env",
			EnvMode:                "file",
			EnvGitCredentialsPath:  "/tmp/env-creds",
			EnvDisplay:             "rich",
			EnvNoBrowser:           "true",
			EnvMaxTransportRetries: "7",
			EnvMetricsTextfile:     "/tmp/m.prom",
		})))
		assert.Equal(t, "from-file", cfg.ClientID)
		assert.Equal(t, "https://env", cfg.GitHubAppURL)
		assert.Equal(t, "file", cfg.Mode)
		assert.Equal(t, "/tmp/env-creds", cfg.GitCredentialsPath)
		assert.Equal(t, "rich", cfg.Display)
		assert.True(t, cfg.NoBrowser)
		assert.Equal(t, 7, cfg.MaxTransportRetries)
		assert.Equal(t, "/tmp/m.prom", cfg.MetricsTextfile)
	})

	t.Run("invalid values", func(t *testing.T) {
		cfg := DefaultConfig()
		require.Error(t, cfg.ApplyEnv(envMap(map[string]string{EnvNoBrowser: "maybe"})))
		require.Error(t, cfg.ApplyEnv(envMap(map[string]string{EnvMaxTransportRetries: "many"})))
	})
}

func TestResolvedModeAndPath(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		wantMode string
		wantPath string
	}{
		{name: "nothing set", cfg: Config{}, wantMode: "git-config", wantPath: "/tmp/github-app-git-credentials"},
		{name: "path selects file mode", cfg: Config{GitCredentialsPath: "/x"}, wantMode: "file", wantPath: "/x"},
		{name: "explicit file mode", cfg: Config{Mode: "FILE"}, wantMode: "file", wantPath: "/tmp/github-app-git-credentials"},
		{name: "explicit git-config mode", cfg: Config{Mode: "git-config"}, wantMode: "git-config", wantPath: "/tmp/github-app-git-credentials"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMode, tt.cfg.ResolvedMode())
			assert.Equal(t, tt.wantPath, tt.cfg.CredentialsPath())
		})
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, (&Config{}).Validate())
	assert.NoError(t, (&Config{Mode: "file", Display: "rich"}).Validate())

	err := (&Config{Mode: "keychain", Display: "fancy"}).Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported mode")
	assert.Contains(t, err.Error(), "unsupported display")

	require.Error(t, (&Config{Mode: "git-config", GitCredentialsPath: "/x"}).Validate())
}

func TestRequireClientID(t *testing.T) {
	assert.ErrorIs(t, (&Config{}).RequireClientID(), ErrMissingClientID)
	assert.ErrorIs(t, (&Config{ClientID: "   "}).RequireClientID(), ErrMissingClientID)
	assert.NoError(t, (&Config{ClientID: "Iv1.abc"}).RequireClientID())
	assert.Contains(t, ErrMissingClientID.Error(), "GH_SCOPED_CREDS_CLIENT_ID")
}

func TestLoadEnvFile(t *testing.T) {
	require.NoError(t, LoadEnvFile(""))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("GH_SCOPED_CREDS_TEST_ONLY=from-dotenv\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("GH_SCOPED_CREDS_TEST_ONLY") })

	require.NoError(t, LoadEnvFile(path))
	assert.Equal(t, "from-dotenv", os.Getenv("GH_SCOPED_CREDS_TEST_ONLY"))

	require.Error(t, LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")))
}
