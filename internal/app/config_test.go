package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glm-relay/internal/tokensource"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8317", cfg.Server.Addr)
	assert.Equal(t, int64(10<<20), cfg.Server.MaxBodyBytes)
	assert.Equal(t, "https://chat.z.ai/api", cfg.Upstream.BaseURL)
	assert.Equal(t, TokenStorageTypeEnv, cfg.Auth.Storage)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "off", cfg.Log.Export)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
addr = "0.0.0.0:9000"

[log]
level = "debug"

[models]
"gpt-4" = "glm-4.6"
`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, map[string]string{"gpt-4": "glm-4.6"}, cfg.Models)
	// Untouched keys keep their defaults.
	assert.Equal(t, "https://chat.z.ai/api", cfg.Upstream.BaseURL)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("GLMRELAY_SERVER__ADDR", "127.0.0.1:9999")
	t.Setenv("GLMRELAY_LOG__FORMAT", "json")
	t.Setenv("GLMRELAY_AUTH__STORAGE", "keyring")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9999", cfg.Server.Addr)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, TokenStorageTypeKeyring, cfg.Auth.Storage)
}

func TestLoadConfigEnvDoubleUnderscoreKeys(t *testing.T) {
	// Multi-word keys stay addressable because only the double underscore
	// separates hierarchy levels.
	t.Setenv("GLMRELAY_SERVER__MAX_BODY_BYTES", "1024")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, int64(1024), cfg.Server.MaxBodyBytes)
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"BadAddr", "GLMRELAY_SERVER__ADDR", "not-an-address"},
		{"BadBaseURL", "GLMRELAY_UPSTREAM__BASE_URL", "ftp://wrong"},
		{"BadStorage", "GLMRELAY_AUTH__STORAGE", "vault"},
		{"BadLogLevel", "GLMRELAY_LOG__LEVEL", "verbose"},
		{"BadLogExport", "GLMRELAY_LOG__EXPORT", "kafka"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := LoadConfig("")
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}

func TestNewTokenStore(t *testing.T) {
	t.Run("Env", func(t *testing.T) {
		store, err := AuthConfig{Storage: TokenStorageTypeEnv}.NewTokenStore()
		require.NoError(t, err)
		assert.IsType(t, &tokensource.EnvStore{}, store)
	})

	t.Run("FileWithExplicitPath", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cred")
		store, err := AuthConfig{Storage: TokenStorageTypeFile, File: path}.NewTokenStore()
		require.NoError(t, err)
		fileStore, ok := store.(*tokensource.FileStore)
		require.True(t, ok)
		assert.Equal(t, path, fileStore.Path)
	})

	t.Run("Keyring", func(t *testing.T) {
		store, err := AuthConfig{Storage: TokenStorageTypeKeyring}.NewTokenStore()
		require.NoError(t, err)
		assert.IsType(t, &tokensource.KeyringStore{}, store)
	})

	t.Run("Unknown", func(t *testing.T) {
		_, err := AuthConfig{Storage: "vault"}.NewTokenStore()
		assert.Error(t, err)
	})
}
