package config

import (
	"github.com/spf13/pflag"
)

// Flag names.
const (
	FlagConfig         = "config"
	FlagAPIURL         = "api-url"
	FlagDBPath         = "db"
	FlagRequestTimeout = "request-timeout"
	FlagOnlineInterval = "online-interval"
	FlagLogLevel       = "log-level"
	FlagLogFormat      = "log-format"
	FlagMetricsAddr    = "metrics-addr"
)

// AddFlags defines the configuration flags on fs, showing defaults in the
// help text.
func AddFlags(fs *pflag.FlagSet) {
	var d Config
	d.LoadDefaults()

	fs.StringP(FlagConfig, "c", "", "config file path (JSON or YAML)")
	fs.StringP(FlagAPIURL, "a", d.APIBaseURL, "base URL of the REST API")
	fs.String(FlagDBPath, d.DBPath, "path of the local SQLite database")
	fs.Duration(FlagRequestTimeout, d.RequestTimeout, "timeout of a single API request")
	fs.DurationP(FlagOnlineInterval, "i", d.OnlineCheckInterval, "online status check interval")
	fs.String(FlagLogLevel, d.LogLevel, "log level (debug, info, warn, error)")
	fs.String(FlagLogFormat, d.LogFormat, "log format (text, json)")
	fs.String(FlagMetricsAddr, d.MetricsAddr, "serve Prometheus metrics on this address")
}

// ApplyFlags overlays c with the flags that were set explicitly, so that
// defaults printed in the help text never override environment or file
// values.
func (c *Config) ApplyFlags(fs *pflag.FlagSet) error {
	strs := map[string]*string{
		FlagAPIURL:      &c.APIBaseURL,
		FlagDBPath:      &c.DBPath,
		FlagLogLevel:    &c.LogLevel,
		FlagLogFormat:   &c.LogFormat,
		FlagMetricsAddr: &c.MetricsAddr,
	}
	for name, dst := range strs {
		if !fs.Changed(name) {
			continue
		}
		v, err := fs.GetString(name)
		if err != nil {
			return err
		}
		*dst = v
	}

	if fs.Changed(FlagRequestTimeout) {
		v, err := fs.GetDuration(FlagRequestTimeout)
		if err != nil {
			return err
		}
		c.RequestTimeout = v
	}
	if fs.Changed(FlagOnlineInterval) {
		v, err := fs.GetDuration(FlagOnlineInterval)
		if err != nil {
			return err
		}
		c.OnlineCheckInterval = v
	}
	return nil
}

// FromFlags runs the whole chain: defaults, environment, file named by the
// config flag, explicit flags. The result is validated.
func FromFlags(fs *pflag.FlagSet, getenv func(string) string) (*Config, error) {
	path, err := fs.GetString(FlagConfig)
	if err != nil {
		return nil, err
	}

	cfg, err := Load(path, getenv)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyFlags(fs); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
