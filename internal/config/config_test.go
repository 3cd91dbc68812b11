// File: internal/config/config_test.go
package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/geoprobe-cli/internal/config"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(writeConfigFile(t, ""))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 1280, cfg.Browser.ViewportWidth)
	assert.Equal(t, 720, cfg.Browser.ViewportHeight)

	assert.Equal(t, 5*time.Second, cfg.Network.OperationTimeout)
	assert.Equal(t, 10*time.Second, cfg.Network.NavigationTimeout)
	assert.Equal(t, 3*time.Second, cfg.Network.ReadyTimeout)
	assert.Equal(t, 3*time.Second, cfg.Network.SettleDelay)

	assert.Equal(t, config.ProbeModeIntercept, cfg.Probe.Mode)
	assert.Equal(t, "/api/issues", cfg.Probe.EndpointPath)

	assert.Equal(t, "http://localhost:3000", cfg.Scenario.BaseURL)
	assert.InDelta(t, 40.7128, cfg.Scenario.Lat, 1e-9)
	assert.InDelta(t, -74.0060, cfg.Scenario.Lng, 1e-9)
	assert.InDelta(t, 5.0, cfg.Scenario.RadiusKm, 1e-9)
	assert.Equal(t, "status:open", cfg.Scenario.Filter)
	assert.Equal(t, 2*time.Second, cfg.Scenario.MaxElapsed)
	assert.False(t, cfg.Scenario.ExpectationDefined)
}

func TestLoad_FileOverrides(t *testing.T) {
	path := writeConfigFile(t, `
scenario:
  base_url: "http://staging:8080"
  radius_km: 10
  expectation_defined: true
probe:
  mode: direct
network:
  settle_delay: 500ms
`)
	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://staging:8080", cfg.Scenario.BaseURL)
	assert.InDelta(t, 10.0, cfg.Scenario.RadiusKm, 1e-9)
	assert.True(t, cfg.Scenario.ExpectationDefined)
	assert.Equal(t, config.ProbeModeDirect, cfg.Probe.Mode)
	assert.Equal(t, 500*time.Millisecond, cfg.Network.SettleDelay)

	// Untouched sections keep their defaults.
	assert.Equal(t, "/api/issues", cfg.Probe.EndpointPath)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("GEOPROBE_SCENARIO_BASE_URL", "http://from-env:3000")
	t.Setenv("GEOPROBE_PROBE_MODE", "direct")

	cfg, err := config.Load(writeConfigFile(t, ""))
	require.NoError(t, err)

	assert.Equal(t, "http://from-env:3000", cfg.Scenario.BaseURL)
	assert.Equal(t, config.ProbeModeDirect, cfg.Probe.Mode)
}

func TestLoad_Invalid(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"bad probe mode", "probe:\n  mode: telepathy\n"},
		{"empty base url", "scenario:\n  base_url: \"\"\n"},
		{"non-positive radius", "scenario:\n  radius_km: 0\n"},
		{"negative epsilon", "scenario:\n  epsilon_km: -0.1\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := config.Load(writeConfigFile(t, tc.content))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	_, err := config.Load(writeConfigFile(t, "scenario: [not: a map\n"))
	assert.Error(t, err)
}

func TestFilterKV(t *testing.T) {
	sc := config.ScenarioConfig{Filter: "status:open"}
	k, v := sc.FilterKV()
	assert.Equal(t, "status", k)
	assert.Equal(t, "open", v)

	sc.Filter = "open"
	k, v = sc.FilterKV()
	assert.Equal(t, "open", k)
	assert.Empty(t, v)

	sc.Filter = ""
	k, v = sc.FilterKV()
	assert.Empty(t, k)
	assert.Empty(t, v)
}
