package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ICSSource configures one remote ICS feed exposed as a calendar
// entity.
type ICSSource struct {
	EntityID string `yaml:"entity_id"`
	Name     string `yaml:"name"`
	URL      string `yaml:"url"`
}

// Config is the daemon configuration, loaded from an optional YAML
// file with environment overrides on top.
type Config struct {
	Listen      string   `yaml:"listen"`
	Timezone    string   `yaml:"timezone"`
	DatabaseURL string   `yaml:"database_url"`
	CORSOrigins []string `yaml:"cors_origins"`
	// RefreshSchedule is a cron expression controlling ICS feed
	// refreshes.
	RefreshSchedule string      `yaml:"refresh_schedule"`
	SeedDemo        bool        `yaml:"seed_demo"`
	LogFile         string      `yaml:"log_file"`
	LogLevel        string      `yaml:"log_level"`
	ICSSources      []ICSSource `yaml:"ics_sources"`
}

// Default returns the configuration used when no file and no
// environment overrides are present.
func Default() Config {
	return Config{
		Listen:          ":8080",
		RefreshSchedule: "*/15 * * * *",
		LogLevel:        "info",
	}
}

// Load reads the YAML file at path (skipped when path is empty) on top
// of the defaults, then applies CALENDARD_* environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	if v := os.Getenv("CALENDARD_LISTEN"); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv("CALENDARD_TIMEZONE"); v != "" {
		cfg.Timezone = v
	}
	if v := os.Getenv("CALENDARD_DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("CALENDARD_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("CALENDARD_LOG_FILE"); v != "" {
		cfg.LogFile = v
	}
	if v := os.Getenv("CALENDARD_CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = splitList(v)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen address must not be empty")
	}
	seen := make(map[string]struct{}, len(c.ICSSources))
	for _, src := range c.ICSSources {
		if src.EntityID == "" || src.URL == "" {
			return fmt.Errorf("ics source needs entity_id and url: %+v", src)
		}
		if _, dup := seen[src.EntityID]; dup {
			return fmt.Errorf("duplicate ics source entity_id %q", src.EntityID)
		}
		seen[src.EntityID] = struct{}{}
	}
	return nil
}

// Location resolves the configured timezone. An empty setting means
// the host's local zone.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
