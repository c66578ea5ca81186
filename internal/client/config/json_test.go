package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := writeTempJSON(t, dir, "flag.json", map[string]any{
		"remote_backend": "s3",
		"s3_bucket":      "glucose",
		"remote_timeout": "5s",
		"token_validity": 3600000000000,
	})

	t.Run("loads from flags", func(t *testing.T) {
		cfg := &Config{}
		cfg.LoadDefaults()
		require.NoError(t, parseJson(cfg, []string{"-config", path}))

		assert.Equal(t, RemoteS3, cfg.RemoteBackend)
		assert.Equal(t, "glucose", cfg.S3Bucket)
		assert.Equal(t, 5*time.Second, cfg.RemoteTimeout)
		assert.Equal(t, time.Hour, cfg.TokenValidity)
		assert.Equal(t, CacheSQLite, cfg.CacheBackend, "missing keys keep defaults")
		assert.Equal(t, 3*time.Second, cfg.StatusDisplayWindow)
	})

	t.Run("no config flag, no changes", func(t *testing.T) {
		cfg := &Config{CachePath: "somewhere", RemoteTimeout: 42 * time.Second}
		require.NoError(t, parseJson(cfg, []string{"-t", "1s"}))

		assert.Equal(t, "somewhere", cfg.CachePath)
		assert.Equal(t, 42*time.Second, cfg.RemoteTimeout)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		require.Error(t, parseJson(&Config{}, []string{"-c", bad}))
	})

	t.Run("missing file", func(t *testing.T) {
		require.Error(t, parseJson(&Config{}, []string{"-c", filepath.Join(dir, "nope.json")}))
	})

	t.Run("flags override json", func(t *testing.T) {
		cfg, err := load([]string{"-c", path, "-t", "1s", "-s3-bucket", "other"})
		require.NoError(t, err)
		assert.Equal(t, time.Second, cfg.RemoteTimeout)
		assert.Equal(t, "other", cfg.S3Bucket)
		assert.Equal(t, RemoteS3, cfg.RemoteBackend)
	})
}
