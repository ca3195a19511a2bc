// Package config loads server configuration from an optional YAML file
// with environment-variable overrides.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTPAddr string `yaml:"http_addr"`
	MySQLDSN string `yaml:"mysql_dsn"`
	// RedisAddr enables the request-idempotency guard; empty disables it.
	RedisAddr   string `yaml:"redis_addr"`
	LogLevel    string `yaml:"log_level"`
	Development bool   `yaml:"development"`
}

func Default() Config {
	return Config{
		HTTPAddr: ":8080",
		MySQLDSN: "root:root@tcp(localhost:3306)/assembly?parseTime=true",
		LogLevel: "info",
	}
}

// Load reads path if it exists, then applies PARTS_* environment
// overrides. A missing file is not an error; defaults apply.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("unmarshal %s: %w", path, err)
		}
	}

	if v := os.Getenv("PARTS_HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("PARTS_MYSQL_DSN"); v != "" {
		cfg.MySQLDSN = v
	}
	if v := os.Getenv("PARTS_REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("PARTS_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	return cfg, nil
}
