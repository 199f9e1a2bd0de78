package pkg

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, DefaultLookbackDays, cfg.LookbackDays)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.False(t, cfg.Archive)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("DASHBOARD_BASE_URL", "http://localhost:3000/v3/covid-19/")
	t.Setenv("DASHBOARD_LOOKBACK_DAYS", "90")
	t.Setenv("DASHBOARD_REQUEST_TIMEOUT", "3s")
	t.Setenv("ARANGO_DATABASE", "covid")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3000/v3/covid-19", cfg.BaseURL)
	assert.Equal(t, 90, cfg.LookbackDays)
	assert.Equal(t, 3*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "covid", cfg.Arango.Database)
}

func TestLoadConfigArchiveNeedsArango(t *testing.T) {
	t.Setenv("DASHBOARD_ARCHIVE", "true")
	t.Setenv("ARANGO_ENDPOINT", "https://arango:8529")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	valid := Config{BaseURL: DefaultBaseURL, LookbackDays: 30, RequestTimeout: time.Second}
	assert.NoError(t, valid.Validate())

	for name, mutate := range map[string]func(*Config){
		"relative url":  func(c *Config) { c.BaseURL = "/v3/covid-19" },
		"zero lookback": func(c *Config) { c.LookbackDays = 0 },
		"zero timeout":  func(c *Config) { c.RequestTimeout = 0 },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := valid
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
