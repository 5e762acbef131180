package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Account struct {
		Email    string `yaml:"email"`
		Password string `yaml:"password"`
	} `yaml:"account"`
	Ledger struct {
		DefaultBudget decimal.Decimal `yaml:"default_budget"`
		CacheDir      string          `yaml:"cache_dir"`
	} `yaml:"ledger"`
	Remote struct {
		PostgresDSN string `yaml:"postgres_dsn"`
	} `yaml:"remote"`
	Events struct {
		KafkaBrokers []string `yaml:"kafka_brokers"`
		Topic        string   `yaml:"topic"`
	} `yaml:"events"`
	Notifier struct {
		WebhookURL string `yaml:"webhook_url"`
	} `yaml:"notifier"`
	Schedule struct {
		DayCron     string `yaml:"day_cron"`
		AccrualCron string `yaml:"accrual_cron"`
		ReportCron  string `yaml:"report_cron"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("PRIZEFIGHT_EMAIL"); v != "" {
		cfg.Account.Email = v
	}
	if v := os.Getenv("PRIZEFIGHT_PASSWORD"); v != "" {
		cfg.Account.Password = v
	}
	if v := os.Getenv("PRIZEFIGHT_CACHE_DIR"); v != "" {
		cfg.Ledger.CacheDir = v
	}
	if v := os.Getenv("PRIZEFIGHT_POSTGRES_DSN"); v != "" {
		cfg.Remote.PostgresDSN = v
	}
	if v := os.Getenv("PRIZEFIGHT_KAFKA_BROKERS"); v != "" {
		cfg.Events.KafkaBrokers = strings.Split(v, ",")
	}
	if v := os.Getenv("PRIZEFIGHT_WEBHOOK_URL"); v != "" {
		cfg.Notifier.WebhookURL = v
	}
	if v := os.Getenv("PRIZEFIGHT_DEFAULT_BUDGET"); v != "" {
		if budget, err := decimal.NewFromString(v); err == nil {
			cfg.Ledger.DefaultBudget = budget
		}
	}
	if v := os.Getenv("PRIZEFIGHT_SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}

	// Defaults
	if cfg.Ledger.DefaultBudget.Sign() <= 0 {
		cfg.Ledger.DefaultBudget = decimal.NewFromInt(45)
	}
	if cfg.Ledger.CacheDir == "" {
		cfg.Ledger.CacheDir = "data/cache"
	}
	if cfg.Events.Topic == "" {
		cfg.Events.Topic = "ledger_mutations"
	}
	if cfg.Schedule.DayCron == "" {
		cfg.Schedule.DayCron = "0 0 0 * * *"
	}
	if cfg.Schedule.AccrualCron == "" {
		cfg.Schedule.AccrualCron = "0 0 9 * * *"
	}
	if cfg.Schedule.ReportCron == "" {
		cfg.Schedule.ReportCron = "0 0 20 * * 0"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/prizefight.db"
	}

	return cfg, nil
}

// Validate checks that all required fields are set. Remote, event, and
// notification backends are optional: the engine degrades to local-only
// operation without them.
func (c *Config) Validate() error {
	if c.Ledger.CacheDir == "" {
		return fmt.Errorf("ledger.cache_dir is required")
	}
	if c.Ledger.DefaultBudget.Sign() <= 0 {
		return fmt.Errorf("ledger.default_budget must be positive")
	}
	if (c.Account.Email == "") != (c.Account.Password == "") {
		return fmt.Errorf("account email and password must be set together")
	}
	return nil
}
