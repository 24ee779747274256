package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full service configuration, loaded from YAML with
// environment overrides for the secrets.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	DB        DBConfig        `yaml:"db"`
	Redis     RedisConfig     `yaml:"redis"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Events    EventsConfig    `yaml:"events"`
	Report    ReportConfig    `yaml:"report"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type DBConfig struct {
	DSN          string        `yaml:"dsn"`
	MaxOpenConns int           `yaml:"max_open_conns"`
	MaxIdleConns int           `yaml:"max_idle_conns"`
	MaxIdleTime  time.Duration `yaml:"max_idle_time"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type WebhookConfig struct {
	// Secret enables HMAC-SHA256 verification of the X-Signature header
	// when non-empty.
	Secret string `yaml:"secret"`
	// DefaultClientID tags events whose tenant cannot be resolved.
	DefaultClientID string `yaml:"default_client_id"`
}

type EventsConfig struct {
	DedupCacheSize int           `yaml:"dedup_cache_size"`
	DedupTTL       time.Duration `yaml:"dedup_ttl"`
	NATSEnabled    bool          `yaml:"nats_enabled"`
	NATSURL        string        `yaml:"nats_url"`
	NATSSubject    string        `yaml:"nats_subject"`
}

type ReportConfig struct {
	Enabled bool          `yaml:"enabled"`
	HourIST int           `yaml:"hour_ist"`
	Mailer  MailerConfig  `yaml:"mailer"`
	Timeout time.Duration `yaml:"timeout"`
}

type MailerConfig struct {
	ProviderURL string `yaml:"provider_url"`
	APIKey      string `yaml:"api_key"`
	From        string `yaml:"from"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

type RateLimitConfig struct {
	Enabled bool          `yaml:"enabled"`
	Limit   int           `yaml:"limit"`
	Window  time.Duration `yaml:"window"`
}

// Load reads the YAML file at path, fills defaults, and applies env
// overrides. A missing file is not an error; env and defaults carry it.
func Load(path string) (Config, error) {
	cfg := defaults()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		DB: DBConfig{
			MaxOpenConns: 25,
			MaxIdleConns: 25,
			MaxIdleTime:  15 * time.Minute,
		},
		Webhook: WebhookConfig{
			DefaultClientID: "default",
		},
		Events: EventsConfig{
			DedupCacheSize: 4096,
			DedupTTL:       5 * time.Minute,
			NATSSubject:    "societywatch.events",
		},
		Report: ReportConfig{
			HourIST: 9,
			Timeout: 2 * time.Minute,
		},
		Auth: AuthConfig{
			TokenTTL: 12 * time.Hour,
		},
		RateLimit: RateLimitConfig{
			Limit:  300,
			Window: time.Minute,
		},
	}
}

// applyEnv lets deployments inject secrets without touching the file.
func applyEnv(cfg *Config) {
	if v := os.Getenv("SOCIETYWATCH_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("SOCIETYWATCH_DB_DSN"); v != "" {
		cfg.DB.DSN = v
	}
	if v := os.Getenv("SOCIETYWATCH_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("SOCIETYWATCH_WEBHOOK_SECRET"); v != "" {
		cfg.Webhook.Secret = v
	}
	if v := os.Getenv("SOCIETYWATCH_DEFAULT_CLIENT_ID"); v != "" {
		cfg.Webhook.DefaultClientID = v
	}
	if v := os.Getenv("SOCIETYWATCH_JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("SOCIETYWATCH_MAILER_API_KEY"); v != "" {
		cfg.Report.Mailer.APIKey = v
	}
	if v := os.Getenv("SOCIETYWATCH_NATS_URL"); v != "" {
		cfg.Events.NATSURL = v
		cfg.Events.NATSEnabled = true
	}
	if v := os.Getenv("SOCIETYWATCH_REPORT_HOUR_IST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Report.HourIST = n
		}
	}
}
