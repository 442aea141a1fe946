// Package config loads server configuration from a YAML file with
// environment-friendly defaults. Every field has a working default so the
// server starts with no config file at all.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML accepts "30s" style strings.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped standard duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the full server configuration.
type Config struct {
	Server  Server  `yaml:"server"`
	Storage Storage `yaml:"storage"`
	Redis   Redis   `yaml:"redis"`
	Sweep   Sweep   `yaml:"sweep"`
	Rules   Rules   `yaml:"rules"`
}

// Server holds HTTP listener settings.
type Server struct {
	Addr            string   `yaml:"addr"`
	ReadTimeout     Duration `yaml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
	// RateLimit is requests per second per client IP; RateBurst is the
	// short-term burst allowance above it.
	RateLimit float64 `yaml:"rate_limit"`
	RateBurst int     `yaml:"rate_burst"`
}

// Storage selects the persistence backend.
type Storage struct {
	// Driver is "sqlite" or "memory".
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

// Redis holds the optional Redis connection used by the distributed
// admission guard. Leave Addr empty to use the in-process guard.
type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Sweep configures the scheduled compliance sweep.
type Sweep struct {
	Enabled bool `yaml:"enabled"`
	// Schedule is a cron expression, default hourly.
	Schedule    string `yaml:"schedule"`
	HorizonDays int    `yaml:"horizon_days"`
	// Properties lists property IDs to sweep.
	Properties []string `yaml:"properties"`
}

// Rules configures the resolved-rule cache.
type Rules struct {
	CacheTTL Duration `yaml:"cache_ttl"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Server: Server{
			Addr:            ":8080",
			ReadTimeout:     Duration(10 * time.Second),
			WriteTimeout:    Duration(30 * time.Second),
			ShutdownTimeout: Duration(15 * time.Second),
			RateLimit:       20,
			RateBurst:       40,
		},
		Storage: Storage{
			Driver: "sqlite",
			Path:   "./data/admission.db",
		},
		Sweep: Sweep{
			Enabled:     true,
			Schedule:    "0 * * * *",
			HorizonDays: 30,
		},
		Rules: Rules{
			CacheTTL: Duration(time.Minute),
		},
	}
}

// Load reads the YAML file at path, overlaying it on the defaults.
// An empty path returns the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects values the server cannot start with.
func (c Config) Validate() error {
	switch c.Storage.Driver {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("unknown storage driver %q (want sqlite or memory)", c.Storage.Driver)
	}
	if c.Storage.Driver == "sqlite" && c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required for the sqlite driver")
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rate_limit must not be negative")
	}
	if c.Sweep.HorizonDays < 0 {
		return fmt.Errorf("sweep.horizon_days must not be negative")
	}
	return nil
}
