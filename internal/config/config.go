// Package config loads service configuration from the environment and an
// optional config file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full runtime configuration of the API service.
type Config struct {
	Server struct {
		Addr            string        `mapstructure:"addr"`
		ReadTimeout     time.Duration `mapstructure:"read_timeout"`
		WriteTimeout    time.Duration `mapstructure:"write_timeout"`
		IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	} `mapstructure:"server"`

	Database struct {
		// DSN empty means the in-memory stores; useful for local runs.
		DSN string `mapstructure:"dsn"`
	} `mapstructure:"pg"`

	Auth struct {
		AccessTTL time.Duration `mapstructure:"access_ttl"`
	} `mapstructure:"auth"`

	Documents struct {
		// DefaultTTL bounds how long a sent document stays open.
		DefaultTTL time.Duration `mapstructure:"default_ttl"`
		// SweepEvery is the expiry sweep interval; zero disables the sweep.
		SweepEvery time.Duration `mapstructure:"sweep_every"`
	} `mapstructure:"documents"`

	RateLimit struct {
		RPS   float64 `mapstructure:"rps"`
		Burst int     `mapstructure:"burst"`
	} `mapstructure:"rate_limit"`
}

// Load reads configuration with env overrides under the ROOFLENS_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ROOFLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("pg.dsn", "")

	v.SetDefault("auth.access_ttl", 12*time.Hour)

	v.SetDefault("documents.default_ttl", 30*24*time.Hour)
	v.SetDefault("documents.sweep_every", time.Hour)

	v.SetDefault("rate_limit.rps", 50.0)
	v.SetDefault("rate_limit.burst", 100)

	if cfgFile := os.Getenv("ROOFLENS_CONFIG_FILE"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config read error: %w", err)
		}
	} else {
		v.SetConfigName("rooflens")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/rooflens")
		if err := v.ReadInConfig(); err != nil {
			var nf viper.ConfigFileNotFoundError
			if !errors.As(err, &nf) {
				return nil, fmt.Errorf("config read error: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config unmarshal error: %w", err)
	}
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validate(c *Config) error {
	if strings.TrimSpace(c.Server.Addr) == "" {
		return errors.New("server.addr must not be empty")
	}
	if c.Auth.AccessTTL <= 0 {
		return errors.New("auth.access_ttl must be positive")
	}
	if c.Documents.DefaultTTL <= 0 {
		return errors.New("documents.default_ttl must be positive")
	}
	if c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0 {
		return errors.New("rate_limit.rps and rate_limit.burst must be positive")
	}
	return nil
}
