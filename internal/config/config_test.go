package config

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigLoad_Defaults(t *testing.T) {
	t.Setenv("SOAR_STORE_DRIVER", "memory")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, 20, cfg.DefaultPageSize)
	assert.Equal(t, 100, cfg.MaxPageSize)
	assert.Equal(t, 1000, cfg.MaxOffsetWindow)
	assert.Equal(t, 200, cfg.SearchWindow)
	assert.Empty(t, cfg.AlphaUserIDs)
	assert.Equal(t, ":8080", cfg.GetHTTPAddr())
}

func TestConfigLoad_EnvOverride(t *testing.T) {
	t.Setenv("SOAR_STORE_DRIVER", "memory")
	t.Setenv("SOAR_HTTP_PORT", "9191")
	t.Setenv("SOAR_ALPHA_USER_IDS", "u-alpha,u-beta")
	t.Setenv("SOAR_MAX_PAGE_SIZE", "50")
	t.Setenv("SOAR_DEFAULT_PAGE_SIZE", "75")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, 9191, cfg.HTTPPort)
	assert.Equal(t, []string{"u-alpha", "u-beta"}, cfg.AlphaUserIDs)
	assert.Equal(t, 50, cfg.MaxPageSize)
	// default page size may not exceed the max
	assert.Equal(t, 50, cfg.DefaultPageSize)
}

func TestResolveDefaults_SQLitePath(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg := NewForTesting()
	cfg.StoreDriver = DriverSQLite

	require.NoError(t, cfg.ResolveDefaults())
	assert.Contains(t, cfg.SQLitePath, ".soar")
}

func TestResolveDefaults_Rejects(t *testing.T) {
	cases := []struct {
		name string
		mut  func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.StoreDriver = "mongo" }},
		{"postgres without dsn", func(c *Config) { c.StoreDriver = DriverPostgres }},
		{"zero max page", func(c *Config) { c.MaxPageSize = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := NewForTesting()
			tc.mut(cfg)
			assert.Error(t, cfg.ResolveDefaults())
		})
	}
}

func TestLevel(t *testing.T) {
	cfg := NewForTesting()
	assert.Equal(t, zerolog.DebugLevel, cfg.Level())
	cfg.LogLevel = "nonsense"
	assert.Equal(t, zerolog.InfoLevel, cfg.Level())
}
