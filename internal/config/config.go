package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v9"
	yaml "go.yaml.in/yaml/v3"
)

// Config keeps runtime settings for the planner.
type Config struct {
	TelegramToken  string        `yaml:"telegram_token" env:"TELEGRAM_TOKEN"`
	DatabaseURL    string        `yaml:"database_url" env:"DATABASE_URL"`
	ReportInterval time.Duration `yaml:"report_interval"`

	KV      KVConfig      `yaml:"kv" envPrefix:"KV_"`
	Cache   CacheConfig   `yaml:"cache" envPrefix:"CACHE_"`
	Limits  LimitsConfig  `yaml:"rate_limits" envPrefix:"RATE_LIMIT_"`
	Planner PlannerConfig `yaml:"planner" envPrefix:"PLANNER_"`
	Log     LogConfig     `yaml:"log" envPrefix:"LOG_"`
}

// KVConfig selects the shared key-value backend: "memory" or "redis".
type KVConfig struct {
	Backend       string        `yaml:"backend" env:"BACKEND"`
	RedisAddr     string        `yaml:"redis_addr" env:"REDIS_ADDR"`
	RedisPassword string        `yaml:"redis_password" env:"REDIS_PASSWORD"`
	RedisDB       int           `yaml:"redis_db" env:"REDIS_DB"`
	SweepInterval time.Duration `yaml:"sweep_interval" env:"SWEEP_INTERVAL"`
}

type CacheConfig struct {
	TTL time.Duration `yaml:"ttl" env:"TTL"`
}

type Limit struct {
	Requests int           `yaml:"requests" env:"REQUESTS"`
	Window   time.Duration `yaml:"window" env:"WINDOW"`
}

type LimitsConfig struct {
	Calendar Limit `yaml:"calendar" envPrefix:"CALENDAR_"`
	Allocate Limit `yaml:"allocate" envPrefix:"ALLOCATE_"`
}

// MaxHorizonDays bounds how far ahead one allocation run may plan.
const MaxHorizonDays = 3660

type PlannerConfig struct {
	DefaultDayWorkHours  int `yaml:"default_day_work_hours" env:"DEFAULT_DAY_WORK_HOURS"`
	DefaultTaskWorkHours int `yaml:"default_task_work_hours" env:"DEFAULT_TASK_WORK_HOURS"`
	DefaultInterest      int `yaml:"default_interest" env:"DEFAULT_INTEREST"`
	DefaultImportance    int `yaml:"default_importance" env:"DEFAULT_IMPORTANCE"`
	HorizonDays          int `yaml:"horizon_days" env:"HORIZON_DAYS"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
	File   string `yaml:"file" env:"FILE"`
}

// Default returns the settings used when nothing overrides them.
func Default() Config {
	return Config{
		DatabaseURL:    "daily_planner.db",
		ReportInterval: 5 * time.Hour,
		KV: KVConfig{
			Backend:       "memory",
			RedisAddr:     "localhost:6379",
			SweepInterval: time.Minute,
		},
		Cache: CacheConfig{TTL: time.Hour},
		Limits: LimitsConfig{
			Calendar: Limit{Requests: 100, Window: time.Minute},
			Allocate: Limit{Requests: 5, Window: time.Minute},
		},
		Planner: PlannerConfig{
			DefaultDayWorkHours:  4,
			DefaultTaskWorkHours: 2,
			DefaultInterest:      5,
			DefaultImportance:    5,
			HorizonDays:          365,
		},
		Log: LogConfig{Level: "info", Format: "console"},
	}
}

// Load reads defaults, then the YAML file named by CONFIG_FILE (if any), then
// environment variables.
func Load() (Config, error) {
	cfg := Default()

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	if d := parseInterval(strings.TrimSpace(os.Getenv("REPORT_INTERVAL_HOURS"))); d > 0 {
		cfg.ReportInterval = d
	}

	cfg.TelegramToken = strings.TrimSpace(cfg.TelegramToken)
	cfg.DatabaseURL = strings.TrimSpace(cfg.DatabaseURL)

	return cfg, cfg.Validate()
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("yaml unmarshal %q: %w", path, err)
	}
	return nil
}

// Validate checks values that would otherwise fail deep inside a component.
func (c Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	switch c.KV.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown kv backend %q", c.KV.Backend)
	}
	for name, l := range map[string]Limit{"calendar": c.Limits.Calendar, "allocate": c.Limits.Allocate} {
		if l.Requests <= 0 || l.Window < time.Second {
			return fmt.Errorf("rate limit %s: need requests > 0 and window >= 1s", name)
		}
	}
	p := c.Planner
	if p.DefaultDayWorkHours < 0 || p.DefaultDayWorkHours > 24 {
		return fmt.Errorf("default_day_work_hours must be in [0,24]")
	}
	if p.DefaultTaskWorkHours < 1 {
		return fmt.Errorf("default_task_work_hours must be >= 1")
	}
	if !inScoreRange(p.DefaultInterest) || !inScoreRange(p.DefaultImportance) {
		return fmt.Errorf("default interest and importance must be in [1,10]")
	}
	if p.HorizonDays < 1 || p.HorizonDays > MaxHorizonDays {
		return fmt.Errorf("horizon_days must be in [1,%d]", MaxHorizonDays)
	}
	return nil
}

// RequireTelegram is checked only by commands that talk to Telegram.
func (c Config) RequireTelegram() error {
	if c.TelegramToken == "" {
		return fmt.Errorf("TELEGRAM_TOKEN is required")
	}
	return nil
}

func inScoreRange(v int) bool { return v >= 1 && v <= 10 }

func parseInterval(raw string) time.Duration {
	if raw == "" {
		return 0
	}
	hours, err := time.ParseDuration(raw + "h")
	if err != nil || hours <= 0 {
		return 0
	}
	return hours
}
