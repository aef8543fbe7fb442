package config

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/world-in-progress/surfpool/caller"
)

const testConfig = `
pool:
  size: 8
  pre_connect: true
  timeout: 5
  keepalive: 1m
  health_check:
    method: head
    url: http://127.0.0.1:8000/health
    expected: [200, 204]
log:
  level: debug
mongo:
  database: probes_test
`

func newTestViper(t *testing.T, content string) *viper.Viper {
	t.Helper()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/etc/surfpool/config.yaml", []byte(content), 0o644))

	v := viper.New()
	v.SetFs(fs)
	v.SetConfigFile("/etc/surfpool/config.yaml")
	return v
}

func TestLoadPoolConfig(t *testing.T) {
	cfg, err := LoadPoolConfig(newTestViper(t, testConfig))
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Size)
	assert.True(t, cfg.PreConnect)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, time.Minute, cfg.KeepaliveInterval)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "memory", cfg.Store)

	require.NotNil(t, cfg.HealthCheck)
	assert.Equal(t, caller.HEAD, cfg.HealthCheck.Method)
	assert.Equal(t, "http://127.0.0.1:8000/health", cfg.HealthCheck.URL)
	assert.Equal(t, []int{200, 204}, cfg.HealthCheck.Expected)
}

func TestLoadPoolConfigDefaults(t *testing.T) {
	v := viper.New()
	v.SetFs(afero.NewMemMapFs())
	v.AddConfigPath("/nowhere")
	v.SetConfigName("config")

	cfg, err := LoadPoolConfig(v)
	require.NoError(t, err)
	assert.Equal(t, "surfpool", cfg.Name)
	assert.Equal(t, 4, cfg.Size)
	assert.False(t, cfg.PreConnect)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Zero(t, cfg.KeepaliveInterval)
	assert.Nil(t, cfg.HealthCheck)
}

func TestLoadPoolConfigEnvOverride(t *testing.T) {
	t.Setenv("SURFPOOL_POOL_SIZE", "12")
	t.Setenv("SURFPOOL_POOL_HEALTH_CHECK_URL", "https://example.com/ping")

	cfg, err := LoadPoolConfig(newTestViper(t, testConfig))
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.Size)
	require.NotNil(t, cfg.HealthCheck)
	assert.Equal(t, "https://example.com/ping", cfg.HealthCheck.URL)
}

func TestLoadPoolConfigInvalid(t *testing.T) {
	_, err := LoadPoolConfig(newTestViper(t, "pool:\n  timeout: soon\n"))
	assert.Error(t, err)

	_, err = LoadPoolConfig(newTestViper(t, "pool:\n  health_check:\n    url: localhost\n"))
	assert.ErrorIs(t, err, caller.ErrInvalidURL)

	_, err = LoadPoolConfig(newTestViper(t, "pool: [unclosed\n"))
	assert.Error(t, err)
}

func TestLoadMongoConfig(t *testing.T) {
	v := newTestViper(t, testConfig)
	require.NoError(t, v.ReadInConfig())

	cfg := LoadMongoConfig(v)
	assert.Equal(t, "mongodb://localhost:27017", cfg.URI)
	assert.Equal(t, "probes_test", cfg.Database)
	assert.Equal(t, "probes", cfg.Collection)
	assert.Equal(t, 10, cfg.Timeout)
}

func TestParseDuration(t *testing.T) {
	cases := map[any]time.Duration{
		nil:   0,
		"":    0,
		"2":   2 * time.Second,
		"1.5": 1500 * time.Millisecond,
		"90s": 90 * time.Second,
		3:     3 * time.Second,
	}
	for in, want := range cases {
		got, err := parseDuration(in)
		require.NoError(t, err, "%v", in)
		assert.Equal(t, want, got, "%v", in)
	}
}
