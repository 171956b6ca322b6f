package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/healthkeeper/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is a DTO used exclusively for file decoding. Fields left out of
// the file keep their previous value.
type FileConfig struct {
	APIBaseURL          string          `json:"api_base_url" yaml:"api_base_url"`
	DBPath              string          `json:"db_path" yaml:"db_path"`
	RequestTimeout      *timex.Duration `json:"request_timeout" yaml:"request_timeout"`
	RefreshTimeout      *timex.Duration `json:"refresh_timeout" yaml:"refresh_timeout"`
	HealthTimeout       *timex.Duration `json:"health_timeout" yaml:"health_timeout"`
	OnlineCheckInterval *timex.Duration `json:"online_check_interval" yaml:"online_check_interval"`
	DeviceSecret        string          `json:"device_secret" yaml:"device_secret"`
	LogLevel            string          `json:"log_level" yaml:"log_level"`
	LogFormat           string          `json:"log_format" yaml:"log_format"`
	MetricsAddr         string          `json:"metrics_addr" yaml:"metrics_addr"`
	LogoutSettleDelay   *timex.Duration `json:"logout_settle_delay" yaml:"logout_settle_delay"`
	RedirectDelay       *timex.Duration `json:"redirect_delay" yaml:"redirect_delay"`
}

// LoadFile overlays c with the settings in path. Files ending in .yaml or
// .yml are read as YAML, everything else as JSON.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fc FileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	default:
		err = json.Unmarshal(data, &fc)
	}
	if err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	fc.apply(c)
	return nil
}

func (fc *FileConfig) apply(c *Config) {
	setString(&c.APIBaseURL, fc.APIBaseURL)
	setString(&c.DBPath, fc.DBPath)
	setString(&c.DeviceSecret, fc.DeviceSecret)
	setString(&c.LogLevel, fc.LogLevel)
	setString(&c.LogFormat, fc.LogFormat)
	setString(&c.MetricsAddr, fc.MetricsAddr)

	setDuration(&c.RequestTimeout, fc.RequestTimeout)
	setDuration(&c.RefreshTimeout, fc.RefreshTimeout)
	setDuration(&c.HealthTimeout, fc.HealthTimeout)
	setDuration(&c.OnlineCheckInterval, fc.OnlineCheckInterval)
	setDuration(&c.LogoutSettleDelay, fc.LogoutSettleDelay)
	setDuration(&c.RedirectDelay, fc.RedirectDelay)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v *timex.Duration) {
	if v != nil {
		*dst = v.Duration
	}
}
