package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 2, cfg.Index.MinTermLength)
	assert.Equal(t, 30, cfg.Index.MaxTermLength)
	assert.Equal(t, 10, cfg.Search.DefaultLimit)
	assert.Equal(t, 100, cfg.Search.MaxResults)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "memory", cfg.Source.Backend)
	require.NoError(t, cfg.validate())
}

func TestLoadYAMLOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9999
cache:
  backend: redis
  ttl: 5m
search:
  customFields:
    - author
    - year
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, []string{"author", "year"}, cfg.Search.CustomFields)
	// Untouched sections keep their defaults.
	assert.Equal(t, 10, cfg.Search.DefaultLimit)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DS_SERVER_PORT", "7777")
	t.Setenv("DS_CACHE_BACKEND", "redis")
	t.Setenv("DS_KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7777, cfg.Server.Port)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("server: ["), 0o644))
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("invalid cache backend", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "backend.yaml")
		require.NoError(t, os.WriteFile(path, []byte("cache:\n  backend: memcached\n"), 0o644))
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("inverted term bounds", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bounds.yaml")
		require.NoError(t, os.WriteFile(path, []byte("index:\n  minTermLength: 10\n  maxTermLength: 5\n"), 0o644))
		_, err := Load(path)
		assert.Error(t, err)
	})
}
