// Package config loads server configuration from an optional YAML file
// with environment variables as the fallback (and override point for
// secrets like DATABASE_URL that should never live in a checked-in
// file).
package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full set of knobs the server needs at startup.
type Config struct {
	ListenAddr    string        `yaml:"listenAddr"`
	DatabaseURL   string        `yaml:"databaseURL"`
	RedisURL      string        `yaml:"redisURL"`
	AIServiceURL  string        `yaml:"aiServiceURL"`
	OriginSuffix  string        `yaml:"originSuffix"`
	PingInterval  time.Duration `yaml:"pingInterval"`
	PongTimeout   time.Duration `yaml:"pongTimeout"`
	RunMigrations bool          `yaml:"runMigrations"`
}

func defaults() Config {
	return Config{
		ListenAddr:   ":8080",
		PingInterval: 10 * time.Second,
		PongTimeout:  30 * time.Second,
	}
}

// Load reads configFile if it exists (silently skipped otherwise), then
// applies every set environment variable on top of it. DATABASE_URL and the
// other env vars always take precedence over the file so a deployment
// can ship a config.yaml for static knobs and still override secrets at
// the environment.
func Load(configFile string) (Config, error) {
	cfg := defaults()

	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, err
			}
		} else if !os.IsNotExist(err) {
			return Config{}, err
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.RedisURL = v
	}
	if v := os.Getenv("AI_SERVICE_URL"); v != "" {
		cfg.AIServiceURL = v
	}
	if v := os.Getenv("ORIGIN_SUFFIX"); v != "" {
		cfg.OriginSuffix = v
	}
	if v := os.Getenv("PING_INTERVAL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.PingInterval = time.Duration(n) * time.Second
		}
	}
	if v := os.Getenv("PONG_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.PongTimeout = time.Duration(n) * time.Second
		}
	}
	if v := os.Getenv("RUN_MIGRATIONS"); v != "" {
		cfg.RunMigrations = v == "1" || v == "true"
	}
}
