package config

import (
	"time"

	"github.com/mcdev12/clicker/go/clients/clicker_client"
	"github.com/mcdev12/clicker/go/internal/clicker"
	"github.com/mcdev12/clicker/go/internal/game"
	"github.com/rs/zerolog"
)

// Config holds the settings of both binaries. Values come from Default, then
// the YAML file, then the environment.
type Config struct {
	// Client
	ServerURL      string        `yaml:"server_url" env:"CLICKER_SERVER_URL"`
	Transport      string        `yaml:"transport" env:"CLICKER_TRANSPORT"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"CLICKER_REQUEST_TIMEOUT"`
	HealthWait     time.Duration `yaml:"health_wait" env:"CLICKER_HEALTH_WAIT"`

	// Engine timing
	TickInterval      time.Duration `yaml:"tick_interval" env:"CLICKER_TICK_INTERVAL"`
	ReconcileInterval time.Duration `yaml:"reconcile_interval" env:"CLICKER_RECONCILE_INTERVAL"`
	ClickCooldown     time.Duration `yaml:"click_cooldown" env:"CLICKER_CLICK_COOLDOWN"`
	NoticeDuration    time.Duration `yaml:"notice_duration" env:"CLICKER_NOTICE_DURATION"`
	BigHaulThreshold  int64         `yaml:"big_haul_threshold" env:"CLICKER_BIG_HAUL_THRESHOLD"`

	// UI gateway
	GatewayPort    int      `yaml:"gateway_port" env:"CLICKER_GATEWAY_PORT"`
	AllowedOrigins []string `yaml:"allowed_origins" env:"CLICKER_ALLOWED_ORIGINS" envSeparator:","`

	// Observability
	MetricsEnabled    bool   `yaml:"metrics_enabled" env:"CLICKER_METRICS_ENABLED"`
	NATSURL           string `yaml:"nats_url" env:"CLICKER_NATS_URL"`
	NATSSubjectPrefix string `yaml:"nats_subject_prefix" env:"CLICKER_NATS_SUBJECT_PREFIX"`
	LogLevel          string `yaml:"log_level" env:"CLICKER_LOG_LEVEL"`

	// Reference server
	ServerPort  int           `yaml:"server_port" env:"CLICKER_SERVER_PORT"`
	RedisAddr   string        `yaml:"redis_addr" env:"CLICKER_REDIS_ADDR"`
	DedupWindow time.Duration `yaml:"dedup_window" env:"CLICKER_DEDUP_WINDOW"`
	DedupTTL    time.Duration `yaml:"dedup_ttl" env:"CLICKER_DEDUP_TTL"`
}

func Default() *Config {
	engine := clicker.DefaultConfig()
	dedup := game.DefaultDedupConfig()
	return &Config{
		ServerURL:         "http://localhost:8069",
		Transport:         clicker_client.TransportJSONRPC,
		RequestTimeout:    10 * time.Second,
		HealthWait:        10 * time.Second,
		TickInterval:      engine.TickInterval,
		ReconcileInterval: engine.ReconcileInterval,
		ClickCooldown:     engine.ClickCooldown,
		NoticeDuration:    engine.NoticeDuration,
		BigHaulThreshold:  engine.BigHaulThreshold,
		GatewayPort:       8081,
		AllowedOrigins:    []string{"*"},
		MetricsEnabled:    true,
		NATSSubjectPrefix: "clicker.events",
		LogLevel:          "info",
		ServerPort:        8069,
		DedupWindow:       dedup.Window,
		DedupTTL:          dedup.TTL,
	}
}

// Engine maps the timing settings into the engine's config.
func (c *Config) Engine() clicker.Config {
	cfg := clicker.DefaultConfig()
	cfg.TickInterval = c.TickInterval
	cfg.ReconcileInterval = c.ReconcileInterval
	cfg.ClickCooldown = c.ClickCooldown
	cfg.NoticeDuration = c.NoticeDuration
	cfg.BigHaulThreshold = c.BigHaulThreshold
	return cfg
}

func (c *Config) Dedup() game.DedupConfig {
	cfg := game.DefaultDedupConfig()
	cfg.Window = c.DedupWindow
	cfg.TTL = c.DedupTTL
	return cfg
}

// Level parses LogLevel, falling back to info when it is empty.
func (c *Config) Level() (zerolog.Level, error) {
	if c.LogLevel == "" {
		return zerolog.InfoLevel, nil
	}
	return zerolog.ParseLevel(c.LogLevel)
}
