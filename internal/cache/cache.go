// Package cache is the device-local persistence tier: one JSON blob
// per logical record under a fixed key. It is the resilience backstop
// for every mutation; a failed read falls back to defaults and a
// failed write is logged, never fatal.
package cache

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"Prizefight/internal/model"
)

// Fixed blob keys, kept from the original client so existing data
// files remain readable.
const (
	LedgerKey     = "prizefight_data"
	InvestmentKey = "prizefight_investment_data"
)

// Cache stores JSON blobs as files under a single directory.
type Cache struct {
	dir string
}

// New creates the cache directory if needed.
func New(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &Cache{dir: dir}, nil
}

func (c *Cache) path(key string) string {
	return filepath.Join(c.dir, key+".json")
}

// LoadLedger reads the cached ledger blob. Any failure returns a
// fresh default ledger.
func (c *Cache) LoadLedger() model.UserLedger {
	ledger := model.NewUserLedger()
	if err := c.read(LedgerKey, &ledger); err != nil {
		log.Printf("[WARN] read ledger cache, using defaults: %v", err)
		return model.NewUserLedger()
	}
	if ledger.SavedBudget.Sign() <= 0 {
		ledger.SavedBudget = model.DefaultBudget
	}
	return ledger
}

// SaveLedger overwrites the ledger blob.
func (c *Cache) SaveLedger(ledger model.UserLedger) error {
	return c.write(LedgerKey, ledger)
}

// LoadInvestment reads the cached investment blob. Any failure
// returns a fresh disconnected account.
func (c *Cache) LoadInvestment() model.InvestmentAccount {
	acct := model.NewInvestmentAccount()
	if err := c.read(InvestmentKey, &acct); err != nil {
		log.Printf("[WARN] read investment cache, using defaults: %v", err)
		return model.NewInvestmentAccount()
	}
	return acct
}

// SaveInvestment overwrites the investment blob.
func (c *Cache) SaveInvestment(acct model.InvestmentAccount) error {
	return c.write(InvestmentKey, acct)
}

func (c *Cache) read(key string, v any) error {
	data, err := os.ReadFile(c.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", key, err)
	}
	return nil
}

func (c *Cache) write(key string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := os.WriteFile(c.path(key), data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}
