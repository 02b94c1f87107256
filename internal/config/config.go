// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	Issuer    string `yaml:"issuer"`
}

type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
}

type PaymentConfig struct {
	Provider       string        `yaml:"provider"`
	BaseURL        string        `yaml:"base_url"`
	ShopID         string        `yaml:"shop_id"`
	SecretKey      string        `yaml:"secret_key"`
	Currency       string        `yaml:"currency"`
	ReturnURL      string        `yaml:"return_url"`
	WebhookSecret  string        `yaml:"webhook_secret"`
	VerifyWebhooks bool          `yaml:"verify_webhooks"` // re-fetch payment from gateway before applying
	MinTopUp       int64         `yaml:"min_topup"`       // minor units
	MaxTopUp       int64         `yaml:"max_topup"`       // minor units
	RequestTimeout time.Duration `yaml:"request_timeout"`
	Retry          RetryConfig   `yaml:"retry"`
	TopUpRateLimit int           `yaml:"topup_rate_limit"` // per user per minute
}

type ShopConfig struct {
	ShippingFee      int64         `yaml:"shipping_fee"`       // minor units
	FreeShippingFrom int64         `yaml:"free_shipping_from"` // 0 = never free
	CartCookieName   string        `yaml:"cart_cookie_name"`
	CartCookieTTL    time.Duration `yaml:"cart_cookie_ttl"`
	CookieDomain     string        `yaml:"cookie_domain"`
	SecureCookies    bool          `yaml:"secure_cookies"`
}

type SchedulerConfig struct {
	ReconcileInterval time.Duration `yaml:"reconcile_interval"`
	ReconcileStale    time.Duration `yaml:"reconcile_stale_after"`
	ReconcileWorkers  int           `yaml:"reconcile_workers"`
	ExpiryInterval    time.Duration `yaml:"expiry_interval"`
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Auth      AuthConfig      `yaml:"auth"`
	Payment   PaymentConfig   `yaml:"payment"`
	Shop      ShopConfig      `yaml:"shop"`
	Scheduler SchedulerConfig `yaml:"scheduler"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file at path, applies .env / environment
// overrides for secrets, fills defaults and validates the result.
func LoadConfig(path string, dev bool) (*Config, error) {
	// .env is optional; a missing file is not an error.
	_ = godotenv.Load()

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b, dev)
}

// Parse builds a Config from raw YAML. Split out of LoadConfig for tests.
func Parse(b []byte, dev bool) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("auth.jwt_secret is required")
	}
	if cfg.Payment.BaseURL == "" || cfg.Payment.ShopID == "" || cfg.Payment.SecretKey == "" {
		return nil, errors.New("payment.base_url, payment.shop_id and payment.secret_key are required")
	}
	// The webhook is the only unauthenticated write path to balances.
	if !dev && cfg.Payment.WebhookSecret == "" && !cfg.Payment.VerifyWebhooks {
		return nil, errors.New("payment.webhook_secret or payment.verify_webhooks is required outside dev mode")
	}
	if cfg.Payment.MinTopUp > cfg.Payment.MaxTopUp {
		return nil, errors.New("payment.min_topup must not exceed payment.max_topup")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&cfg.Database.URL, "DATABASE_URL")
	set(&cfg.Redis.URL, "REDIS_URL")
	set(&cfg.Redis.Password, "REDIS_PASSWORD")
	set(&cfg.Auth.JWTSecret, "JWT_SECRET")
	set(&cfg.Payment.ShopID, "PAYMENT_SHOP_ID")
	set(&cfg.Payment.SecretKey, "PAYMENT_SECRET_KEY")
	set(&cfg.Payment.WebhookSecret, "PAYMENT_WEBHOOK_SECRET")
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RequestTimeout <= 0 {
		cfg.Server.RequestTimeout = 15 * time.Second
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)

	p := &cfg.Payment
	if p.Provider == "" {
		p.Provider = "yookassa"
	}
	if p.Currency == "" {
		p.Currency = "RUB"
	}
	if p.MinTopUp <= 0 {
		p.MinTopUp = 100 // 1.00
	}
	if p.MaxTopUp <= 0 {
		p.MaxTopUp = 10_000_000 // 100 000.00
	}
	if p.RequestTimeout <= 0 {
		p.RequestTimeout = 10 * time.Second
	}
	if p.Retry.MaxAttempts <= 0 {
		p.Retry.MaxAttempts = 3
	}
	if p.Retry.BaseDelay <= 0 {
		p.Retry.BaseDelay = 200 * time.Millisecond
	}
	if p.Retry.MaxDelay <= 0 {
		p.Retry.MaxDelay = 2 * time.Second
	}
	if p.TopUpRateLimit <= 0 {
		p.TopUpRateLimit = 10
	}

	s := &cfg.Shop
	if s.CartCookieName == "" {
		s.CartCookieName = "cart_id"
	}
	if s.CartCookieTTL <= 0 {
		s.CartCookieTTL = 30 * 24 * time.Hour
	}

	sc := &cfg.Scheduler
	if sc.ReconcileInterval <= 0 {
		sc.ReconcileInterval = time.Minute
	}
	if sc.ReconcileStale <= 0 {
		sc.ReconcileStale = 10 * time.Minute
	}
	if sc.ReconcileWorkers <= 0 {
		sc.ReconcileWorkers = 4
	}
	if sc.ExpiryInterval <= 0 {
		sc.ExpiryInterval = time.Hour
	}
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
