package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5000/api/comments", cfg.APIBase)
	assert.Equal(t, FlagsFile, cfg.Flags.Backend)
	assert.Equal(t, 500*time.Millisecond, cfg.UI.RetryDelay)
	assert.Equal(t, 250*time.Millisecond, cfg.UI.Debounce)
	assert.Len(t, cfg.PWA.Static, 10)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sprunki.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api_base: https://sprunki.example/api/comments
article_url: /sprunki-phase-4
flags:
  backend: redis
redis_url: redis://localhost:6379/0
ui:
  debounce: 400ms
server:
  allowed_origins:
    - https://sprunki.example
`), 0644))

	t.Setenv("SPRUNKI_ARTICLE_URL", "/from-env")
	t.Setenv("SPRUNKI_SERVER_ADDR", ":9999")

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, "https://sprunki.example/api/comments", cfg.APIBase)
	assert.Equal(t, "/from-env", cfg.ArticleURL)
	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.Equal(t, FlagsRedis, cfg.Flags.Backend)
	assert.Equal(t, 400*time.Millisecond, cfg.UI.Debounce)
	assert.Equal(t, []string{"https://sprunki.example"}, cfg.Server.AllowedOrigins)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())

	cfg.Flags.Backend = FlagsRedis
	assert.Error(t, cfg.Validate())

	cfg.RedisURL = "redis://localhost:6379"
	assert.NoError(t, cfg.Validate())

	cfg.Flags.Backend = "sqlite"
	assert.Error(t, cfg.Validate())
}
