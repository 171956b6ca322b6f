package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/healthkeeper/internal/client/client"
)

// Config holds runtime settings for the healthkeeper client.
type Config struct {
	APIBaseURL string
	DBPath     string

	RequestTimeout time.Duration
	RefreshTimeout time.Duration
	HealthTimeout  time.Duration

	OnlineCheckInterval time.Duration

	// DeviceSecret seeds the key that seals stored credentials.
	DeviceSecret string

	LogLevel  string
	LogFormat string

	// MetricsAddr is the listen address of the metrics endpoint; empty
	// disables it.
	MetricsAddr string

	LogoutSettleDelay time.Duration
	RedirectDelay     time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIBaseURL = "http://127.0.0.1:8000/api"
	c.DBPath = "healthkeeper.db"
	c.RequestTimeout = client.DefaultRequestTimeout
	c.RefreshTimeout = client.DefaultRefreshTimeout
	c.HealthTimeout = client.DefaultHealthTimeout
	c.OnlineCheckInterval = 3 * time.Second
	c.DeviceSecret = defaultDeviceSecret()
	c.LogLevel = "info"
	c.LogFormat = "text"
	c.MetricsAddr = ""
	c.LogoutSettleDelay = 100 * time.Millisecond
	c.RedirectDelay = 100 * time.Millisecond
}

func defaultDeviceSecret() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "localhost"
	}
	return "healthkeeper@" + host
}

// Load builds a Config from defaults, the environment and the file at path.
// An empty path falls back to HEALTHKEEPER_CONFIG; if that is empty too, no
// file is read.
func Load(path string, getenv func(string) string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := cfg.LoadEnv(getenv); err != nil {
		return nil, err
	}

	if path == "" {
		path = getenv(EnvPrefix + "CONFIG")
	}
	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// Validate reports the first setting the client cannot start with.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIBaseURL)
	if err != nil {
		return fmt.Errorf("invalid api base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid api base url %q: scheme must be http or https", c.APIBaseURL)
	}
	if strings.TrimSpace(c.DBPath) == "" {
		return errors.New("db path is empty")
	}
	if c.DeviceSecret == "" {
		return errors.New("device secret is empty")
	}

	durations := map[string]time.Duration{
		"request timeout":       c.RequestTimeout,
		"refresh timeout":       c.RefreshTimeout,
		"health timeout":        c.HealthTimeout,
		"online check interval": c.OnlineCheckInterval,
	}
	for name, d := range durations {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}

	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	return nil
}
