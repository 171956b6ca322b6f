// Package config loads runtime configuration for the healthkeeper client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Environment variables prefixed HEALTHKEEPER_, optionally seeded from a
//     .env file (see LoadDotEnv).
//  3. Optional JSON or YAML file, chosen by extension.
//  4. Command-line flags that were set explicitly.
//
// # File schema
//
// Durations are strings like "3s" or integer nanoseconds:
//
//	{
//	  "api_base_url": "https://surveillance.example.org/api",
//	  "db_path": "healthkeeper.db",
//	  "request_timeout": "15s",
//	  "online_check_interval": "3s",
//	  "log_level": "debug"
//	}
package config
