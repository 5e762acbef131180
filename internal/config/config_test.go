package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Ledger.DefaultBudget.Equal(decimal.NewFromInt(45)) {
		t.Errorf("default budget = %s, want 45", cfg.Ledger.DefaultBudget)
	}
	if cfg.Ledger.CacheDir != "data/cache" {
		t.Errorf("cache dir = %q", cfg.Ledger.CacheDir)
	}
	if cfg.Events.Topic != "ledger_mutations" {
		t.Errorf("topic = %q", cfg.Events.Topic)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults failed validation: %v", err)
	}
}

func TestLoadYAMLAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
ledger:
  default_budget: 80
  cache_dir: /tmp/pf
remote:
  postgres_dsn: postgres://file-dsn
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PRIZEFIGHT_POSTGRES_DSN", "postgres://env-dsn")
	t.Setenv("PRIZEFIGHT_KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Ledger.DefaultBudget.Equal(decimal.NewFromInt(80)) {
		t.Errorf("budget = %s, want 80 from file", cfg.Ledger.DefaultBudget)
	}
	if cfg.Remote.PostgresDSN != "postgres://env-dsn" {
		t.Errorf("dsn = %q, env must override file", cfg.Remote.PostgresDSN)
	}
	if len(cfg.Events.KafkaBrokers) != 2 || cfg.Events.KafkaBrokers[1] != "k2:9092" {
		t.Errorf("brokers = %v", cfg.Events.KafkaBrokers)
	}
}

func TestValidate(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	cfg.Account.Email = "a@b.com"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for email without password")
	}
	cfg.Account.Password = "secret1"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}
