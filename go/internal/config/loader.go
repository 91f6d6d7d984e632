package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/mcdev12/clicker/go/clients/clicker_client"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// PathEnv names the YAML file when Load is given no path.
const PathEnv = "CLICKER_CONFIG"

// Load builds the configuration. A .env file is loaded first if present, then
// the optional YAML file at path, and finally environment overrides.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file loaded")
	}

	cfg := Default()

	if path == "" {
		path = os.Getenv(PathEnv)
	}
	if path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config from environment: %w", err)
	}

	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config file %s not found: %w", path, err)
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	return nil
}

// Validate rejects settings the binaries cannot run with.
func (c *Config) Validate() error {
	if c.ServerURL == "" {
		return errors.New("server_url is required")
	}

	switch c.Transport {
	case clicker_client.TransportJSONRPC, clicker_client.TransportConnect:
	default:
		return fmt.Errorf("invalid transport %q (must be %s or %s)",
			c.Transport, clicker_client.TransportJSONRPC, clicker_client.TransportConnect)
	}

	durations := map[string]time.Duration{
		"tick_interval":      c.TickInterval,
		"reconcile_interval": c.ReconcileInterval,
		"notice_duration":    c.NoticeDuration,
		"request_timeout":    c.RequestTimeout,
		"dedup_window":       c.DedupWindow,
		"dedup_ttl":          c.DedupTTL,
	}
	for name, d := range durations {
		if d <= 0 {
			return fmt.Errorf("invalid %s: must be positive", name)
		}
	}
	if c.ClickCooldown < 0 {
		return errors.New("invalid click_cooldown: must not be negative")
	}
	if c.DedupTTL < c.DedupWindow {
		return fmt.Errorf("invalid dedup_ttl %s: shorter than dedup_window %s", c.DedupTTL, c.DedupWindow)
	}
	if c.BigHaulThreshold < 1 {
		return fmt.Errorf("invalid big_haul_threshold: %d (must be at least 1)", c.BigHaulThreshold)
	}

	for name, port := range map[string]int{"gateway_port": c.GatewayPort, "server_port": c.ServerPort} {
		if port < 1 || port > 65535 {
			return fmt.Errorf("invalid %s: %d (must be 1-65535)", name, port)
		}
	}

	if _, err := c.Level(); err != nil {
		return fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return nil
}
