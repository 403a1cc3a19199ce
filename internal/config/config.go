// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

type RuntimeConfig struct {
	Dev bool
}

type HTTPConfig struct {
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int    `yaml:"max_conns"`
}

type StoreConfig struct {
	Driver string `yaml:"driver"` // postgres|memory
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type OrdersConfig struct {
	PendingTTL       time.Duration `yaml:"pending_ttl"`
	Currency         string        `yaml:"currency"`
	RequireKnownPlan bool          `yaml:"require_known_plan"`
}

type CreditsConfig struct {
	CostPerGeneration int64 `yaml:"cost_per_generation"`
}

type SchedulerConfig struct {
	SweepInterval  time.Duration `yaml:"sweep_interval"`
	SweepBatch     int           `yaml:"sweep_batch"`
	RunTimeout     time.Duration `yaml:"run_timeout"`
	LockTTL        time.Duration `yaml:"lock_ttl"`
	PendingUserTTL time.Duration `yaml:"pending_user_ttl"` // 0 disables the policy
	RunOnStart     *bool         `yaml:"run_on_start"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

type RateLimitConfig struct {
	OrdersPerMinute int `yaml:"orders_per_minute"`
}

type TelegramConfig struct {
	Token        string  `yaml:"token"`
	AdminChatIDs []int64 `yaml:"admin_chat_ids"`
	Workers      int     `yaml:"workers"`
}

type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	Store     StoreConfig     `yaml:"store"`
	Redis     RedisConfig     `yaml:"redis"`
	Orders    OrdersConfig    `yaml:"orders"`
	Credits   CreditsConfig   `yaml:"credits"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Telegram  TelegramConfig  `yaml:"telegram"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file at path, applies a .env file and environment
// overrides, fills defaults and validates the result. A missing file is only
// tolerated in dev mode.
func LoadConfig(path string, dev bool) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist) && dev:
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg.Runtime.Dev = dev
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.Redis.URL = v
	}
	if v := os.Getenv("ADMIN_JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("TELEGRAM_TOKEN"); v != "" {
		c.Telegram.Token = v
	}
	if v := os.Getenv("PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		c.HTTP.Port = p
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 5000
	}
	if c.HTTP.RequestTimeout == 0 {
		c.HTTP.RequestTimeout = 15 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Database.MaxConns <= 0 {
		c.Database.MaxConns = 10
	}
	if c.Store.Driver == "" {
		c.Store.Driver = StoreDriverPostgres
	}
	c.Store.Driver = strings.ToLower(c.Store.Driver)
	c.Redis.TTL = normalizeTTL(c.Redis.TTL)

	if c.Orders.PendingTTL == 0 {
		c.Orders.PendingTTL = 48 * time.Hour
	}
	if c.Orders.Currency == "" {
		c.Orders.Currency = "FCFA"
	}
	if c.Credits.CostPerGeneration == 0 {
		c.Credits.CostPerGeneration = 1
	}
	if c.Scheduler.SweepInterval == 0 {
		c.Scheduler.SweepInterval = time.Hour
	}
	if c.Scheduler.SweepBatch <= 0 {
		c.Scheduler.SweepBatch = 200
	}
	if c.Scheduler.RunTimeout <= 0 {
		c.Scheduler.RunTimeout = 5 * time.Minute
	}
	if c.Scheduler.LockTTL <= 0 {
		c.Scheduler.LockTTL = 10 * time.Minute
	}
	if c.Scheduler.RunOnStart == nil {
		on := true
		c.Scheduler.RunOnStart = &on
	}
	if c.RateLimit.OrdersPerMinute == 0 {
		c.RateLimit.OrdersPerMinute = 20
	}
	if c.Telegram.Workers <= 0 {
		c.Telegram.Workers = 2
	}
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	if c.Orders.PendingTTL < 0 {
		return errors.New("orders.pending_ttl must be positive")
	}
	if c.Scheduler.SweepInterval < 0 {
		return errors.New("scheduler.sweep_interval must be positive")
	}
	if c.Credits.CostPerGeneration < 0 {
		return errors.New("credits.cost_per_generation must be positive")
	}
	if c.Scheduler.PendingUserTTL < 0 {
		return errors.New("scheduler.pending_user_ttl must not be negative")
	}
	switch c.Store.Driver {
	case StoreDriverPostgres:
		if c.Database.URL == "" {
			return errors.New("database.url is required")
		}
	case StoreDriverMemory:
		if !c.Runtime.Dev {
			return errors.New("store.driver=memory requires -dev")
		}
	default:
		return fmt.Errorf("unknown store.driver %q", c.Store.Driver)
	}
	if c.Auth.JWTSecret == "" && !c.Runtime.Dev {
		return errors.New("auth.jwt_secret is required")
	}
	return nil
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
