// File: internal/config/config.go
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config holds the full harness configuration.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Browser  BrowserConfig  `mapstructure:"browser" yaml:"browser"`
	Network  NetworkConfig  `mapstructure:"network" yaml:"network"`
	Probe    ProbeConfig    `mapstructure:"probe" yaml:"probe"`
	Scenario ScenarioConfig `mapstructure:"scenario" yaml:"scenario"`
}

// LoggerConfig controls the zap logger setup.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"` // "console" or "json"
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"` // megabytes
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"` // days
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// BrowserConfig describes how the Chrome process is launched.
type BrowserConfig struct {
	Headless       bool `mapstructure:"headless" yaml:"headless"`
	ViewportWidth  int  `mapstructure:"viewport_width" yaml:"viewport_width"`
	ViewportHeight int  `mapstructure:"viewport_height" yaml:"viewport_height"`
	// Extra command line flags appended to the containment-friendly defaults.
	Args []string `mapstructure:"args" yaml:"args"`
}

// NetworkConfig carries the per-operation time budgets.
type NetworkConfig struct {
	// OperationTimeout is the default budget for a single browser operation
	// (element resolution, click, evaluate).
	OperationTimeout time.Duration `mapstructure:"operation_timeout" yaml:"operation_timeout"`
	// NavigationTimeout bounds the commit phase of a navigation.
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	// ReadyTimeout bounds the best-effort readiness wait, applied
	// independently to the page and to each child frame.
	ReadyTimeout time.Duration `mapstructure:"ready_timeout" yaml:"ready_timeout"`
	// ObserveTimeout bounds how long the network probe waits for a matching
	// request before reporting NoMatchingRequest.
	ObserveTimeout time.Duration `mapstructure:"observe_timeout" yaml:"observe_timeout"`
	// SettleDelay is the fixed pause before every interaction, letting
	// asynchronous rendering (map tiles, lazy lists) stabilize.
	SettleDelay time.Duration `mapstructure:"settle_delay" yaml:"settle_delay"`
}

// ProbeMode selects how the spatial query is observed.
type ProbeMode string

const (
	// ProbeModeDirect issues the HTTP GET itself.
	ProbeModeDirect ProbeMode = "direct"
	// ProbeModeIntercept watches the browser's outgoing traffic for the call.
	ProbeModeIntercept ProbeMode = "intercept"
)

// ProbeConfig configures the network probe.
type ProbeConfig struct {
	Mode ProbeMode `mapstructure:"mode" yaml:"mode"`
	// EndpointPath is the path pattern of the spatial query endpoint.
	EndpointPath string `mapstructure:"endpoint_path" yaml:"endpoint_path"`
}

// ScenarioConfig is the scripted nearby-issues scenario: the query under
// test, the expected bounds, and the UI entry points.
type ScenarioConfig struct {
	BaseURL  string  `mapstructure:"base_url" yaml:"base_url"`
	Lat      float64 `mapstructure:"lat" yaml:"lat"`
	Lng      float64 `mapstructure:"lng" yaml:"lng"`
	RadiusKm float64 `mapstructure:"radius_km" yaml:"radius_km"`
	// Filter is a key:value predicate, e.g. "status:open".
	Filter string `mapstructure:"filter" yaml:"filter"`
	// MaxElapsed is the performance budget for the observed query.
	MaxElapsed time.Duration `mapstructure:"max_elapsed" yaml:"max_elapsed"`
	// EpsilonKm is the geodesic-model tolerance added to the radius check.
	EpsilonKm float64 `mapstructure:"epsilon_km" yaml:"epsilon_km"`
	// ExpectationDefined must be set by whoever finalizes the scenario.
	// An undefined expectation always resolves to a failed outcome.
	ExpectationDefined bool `mapstructure:"expectation_defined" yaml:"expectation_defined"`

	// UI entry points, as XPath expressions.
	MapToggleXPath  string   `mapstructure:"map_toggle_xpath" yaml:"map_toggle_xpath"`
	MapActionXPaths []string `mapstructure:"map_action_xpaths" yaml:"map_action_xpaths"`
	LoadMoreXPath   string   `mapstructure:"load_more_xpath" yaml:"load_more_xpath"`
}

// FilterKV splits the Filter predicate into its key and value parts.
func (s ScenarioConfig) FilterKV() (string, string) {
	k, v, ok := strings.Cut(s.Filter, ":")
	if !ok {
		return s.Filter, ""
	}
	return k, v
}

// Load reads the configuration from the given file (or the default search
// paths when empty), applies defaults and env overrides, and unmarshals it.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		if home, err := homedir.Dir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".geoprobe"))
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("GEOPROBE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// No config file; defaults and env vars carry the run.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// Logger
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.service_name", "geoprobe")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// Browser
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.viewport_width", 1280)
	v.SetDefault("browser.viewport_height", 720)

	// Network budgets
	v.SetDefault("network.operation_timeout", "5s")
	v.SetDefault("network.navigation_timeout", "10s")
	v.SetDefault("network.ready_timeout", "3s")
	v.SetDefault("network.observe_timeout", "10s")
	v.SetDefault("network.settle_delay", "3s")

	// Probe
	v.SetDefault("probe.mode", "intercept")
	v.SetDefault("probe.endpoint_path", "/api/issues")

	// Scenario
	v.SetDefault("scenario.base_url", "http://localhost:3000")
	v.SetDefault("scenario.lat", 40.7128)
	v.SetDefault("scenario.lng", -74.0060)
	v.SetDefault("scenario.radius_km", 5.0)
	v.SetDefault("scenario.filter", "status:open")
	v.SetDefault("scenario.max_elapsed", "2s")
	v.SetDefault("scenario.epsilon_km", 0.05)
	v.SetDefault("scenario.expectation_defined", false)
	v.SetDefault("scenario.map_toggle_xpath", "//header//a[2]")
	v.SetDefault("scenario.map_action_xpaths", []string{})
	v.SetDefault("scenario.load_more_xpath", "")
}

// Validate rejects configurations the harness cannot run with.
func (c *Config) Validate() error {
	if c.Scenario.BaseURL == "" {
		return fmt.Errorf("scenario.base_url must be set")
	}
	switch c.Probe.Mode {
	case ProbeModeDirect, ProbeModeIntercept:
	default:
		return fmt.Errorf("probe.mode must be %q or %q, got %q", ProbeModeDirect, ProbeModeIntercept, c.Probe.Mode)
	}
	if c.Probe.EndpointPath == "" {
		return fmt.Errorf("probe.endpoint_path must be set")
	}
	if c.Scenario.RadiusKm <= 0 {
		return fmt.Errorf("scenario.radius_km must be positive, got %v", c.Scenario.RadiusKm)
	}
	if c.Scenario.EpsilonKm < 0 {
		return fmt.Errorf("scenario.epsilon_km must not be negative, got %v", c.Scenario.EpsilonKm)
	}
	return nil
}
