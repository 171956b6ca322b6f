package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
)

const EnvPrefix = "HEALTHKEEPER_"

// LoadDotEnv exports the variables from the given .env files (".env" when
// none are given) without overriding ones already set. Missing files are
// ignored.
func LoadDotEnv(files ...string) error {
	err := godotenv.Load(files...)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// LoadEnv overlays c with the HEALTHKEEPER_* variables that are set.
func (c *Config) LoadEnv(getenv func(string) string) error {
	strs := map[string]*string{
		"API_URL":       &c.APIBaseURL,
		"DB_PATH":       &c.DBPath,
		"DEVICE_SECRET": &c.DeviceSecret,
		"LOG_LEVEL":     &c.LogLevel,
		"LOG_FORMAT":    &c.LogFormat,
		"METRICS_ADDR":  &c.MetricsAddr,
	}
	for name, dst := range strs {
		if v := getenv(EnvPrefix + name); v != "" {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"REQUEST_TIMEOUT":       &c.RequestTimeout,
		"REFRESH_TIMEOUT":       &c.RefreshTimeout,
		"HEALTH_TIMEOUT":        &c.HealthTimeout,
		"ONLINE_CHECK_INTERVAL": &c.OnlineCheckInterval,
		"LOGOUT_SETTLE_DELAY":   &c.LogoutSettleDelay,
		"REDIRECT_DELAY":        &c.RedirectDelay,
	}
	for name, dst := range durations {
		v := getenv(EnvPrefix + name)
		if v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s%s: %w", EnvPrefix, name, err)
		}
		*dst = d
	}
	return nil
}
