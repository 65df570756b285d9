package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/blogapi/pkg/config"
)

type envFileConfig struct {
	Root       string   `env:"TEST_ENVFILE_ROOT"`
	MaxSize    int64    `env:"TEST_ENVFILE_MAX_SIZE"`
	Extensions []string `env:"TEST_ENVFILE_EXTENSIONS" envSeparator:","`
	BaseURL    string   `env:"TEST_ENVFILE_BASE_URL"`
}

type requiredBucketConfig struct {
	Bucket string `env:"TEST_ENVFILE_BUCKET,required"`
}

func writeEnvFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		if old, ok := os.LookupEnv(k); ok {
			t.Cleanup(func() { _ = os.Setenv(k, old) })
		} else {
			t.Cleanup(func() { _ = os.Unsetenv(k) })
		}
		_ = os.Unsetenv(k)
	}
}

func TestLoadEnv_CustomPath(t *testing.T) {
	unsetEnv(t, "TEST_ENVFILE_ROOT", "TEST_ENVFILE_MAX_SIZE", "TEST_ENVFILE_EXTENSIONS", "TEST_ENVFILE_BASE_URL")
	config.ResetCache()

	path := writeEnvFile(t, `TEST_ENVFILE_ROOT=uploads
TEST_ENVFILE_MAX_SIZE=5242880
TEST_ENVFILE_EXTENSIONS=.jpg,.png
TEST_ENVFILE_BASE_URL="https://blog.example.com"
`)
	require.NoError(t, config.LoadEnv(path))

	var cfg envFileConfig
	require.NoError(t, config.Load(&cfg))
	assert.Equal(t, "uploads", cfg.Root)
	assert.Equal(t, int64(5242880), cfg.MaxSize)
	assert.Equal(t, []string{".jpg", ".png"}, cfg.Extensions)
	assert.Equal(t, "https://blog.example.com", cfg.BaseURL)
}

func TestLoadEnv_LaterFilesOverride(t *testing.T) {
	unsetEnv(t, "TEST_ENVFILE_ROOT", "TEST_ENVFILE_MAX_SIZE", "TEST_ENVFILE_EXTENSIONS", "TEST_ENVFILE_BASE_URL")
	config.ResetCache()

	base := writeEnvFile(t, "TEST_ENVFILE_ROOT=uploads\nTEST_ENVFILE_MAX_SIZE=100\n")
	override := writeEnvFile(t, "TEST_ENVFILE_MAX_SIZE=200\n")
	require.NoError(t, config.LoadEnv(base, override))

	var cfg envFileConfig
	require.NoError(t, config.Load(&cfg))
	assert.Equal(t, "uploads", cfg.Root)
	assert.Equal(t, int64(200), cfg.MaxSize)
}

func TestLoadEnv_NonExistentPath(t *testing.T) {
	err := config.LoadEnv(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
}

func TestMustLoadEnv(t *testing.T) {
	unsetEnv(t, "TEST_ENVFILE_ROOT")
	path := writeEnvFile(t, "TEST_ENVFILE_ROOT=media\n")

	assert.NotPanics(t, func() { config.MustLoadEnv(path) })
	assert.Panics(t, func() { config.MustLoadEnv(filepath.Join(t.TempDir(), "missing.env")) })
}

func TestForceReloadConfig(t *testing.T) {
	unsetEnv(t, "TEST_ENVFILE_BUCKET")
	config.ResetCache()

	var cfg requiredBucketConfig
	require.Error(t, config.Load(&cfg))

	t.Setenv("TEST_ENVFILE_BUCKET", "blog-media")

	var reloaded requiredBucketConfig
	require.NoError(t, config.ForceReloadConfig(&reloaded))
	assert.Equal(t, "blog-media", reloaded.Bucket)

	// The reloaded value is now served from the cache
	var cached requiredBucketConfig
	require.NoError(t, config.Load(&cached))
	assert.Equal(t, "blog-media", cached.Bucket)
}
