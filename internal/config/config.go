// Package config loads catrelay's typed configuration from a key=value
// file (the teacher's simple config format) with environment variable
// overrides layered on top, the same two-source pattern the retro-aim
// server example uses (settings.env + envconfig).
package config

import (
	"strconv"
	"time"

	horghconfig "github.com/horgh/config"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

// Config holds a server's runtime configuration.
type Config struct {
	ListenAddress string `envconfig:"LISTEN_ADDRESS"`
	ServerName    string `envconfig:"SERVER_NAME"`
	Version       string `envconfig:"VERSION"`
	MOTD          string `envconfig:"MOTD"`

	// ConnectRatePerSecond and ConnectBurst configure the per-IP accept
	// rate limiter (internal/connlimit).
	ConnectRatePerSecond float64       `envconfig:"CONNECT_RATE_PER_SECOND"`
	ConnectBurst         int           `envconfig:"CONNECT_BURST"`
	ConnectBucketTTL     time.Duration `envconfig:"CONNECT_BUCKET_TTL"`
}

// Defaults returns a Config with the conservative defaults used when no
// file or environment override is present.
func Defaults() Config {
	return Config{
		ListenAddress:        "0.0.0.0:6667",
		ServerName:           "catrelay",
		Version:              "catrelay-0.1.0",
		MOTD:                 "Welcome to catrelay.",
		ConnectRatePerSecond: 1,
		ConnectBurst:         5,
		ConnectBucketTTL:     10 * time.Minute,
	}
}

// Load reads path (if non-empty) using the key=value format, applies it
// over Defaults(), then lets any set environment variables (prefixed
// CATRELAY_) take final precedence.
//
// Every key in a config file is optional here, unlike the teacher's
// all-keys-required GetConfig: an empty path, or a file missing some
// keys, just means Defaults() (and then the environment) supplies them.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		raw, err := horghconfig.ReadStringMap(path)
		if err != nil {
			return Config{}, errors.Wrapf(err, "unable to read config file %s", path)
		}
		applyRaw(&cfg, raw)
	}

	if err := envconfig.Process("catrelay", &cfg); err != nil {
		return Config{}, errors.Wrap(err, "unable to apply environment overrides")
	}

	return cfg, nil
}

func applyRaw(cfg *Config, raw map[string]string) {
	if v, ok := raw["listen-address"]; ok {
		cfg.ListenAddress = v
	}
	if v, ok := raw["server-name"]; ok {
		cfg.ServerName = v
	}
	if v, ok := raw["version"]; ok {
		cfg.Version = v
	}
	if v, ok := raw["motd"]; ok {
		cfg.MOTD = v
	}
	if v, ok := raw["connect-rate-per-second"]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.ConnectRatePerSecond = f
		}
	}
	if v, ok := raw["connect-burst"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ConnectBurst = n
		}
	}
	if v, ok := raw["connect-bucket-ttl"]; ok {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.ConnectBucketTTL = d
		}
	}
}
