package remote

import (
	"context"
	"log"
	"sync/atomic"
	"time"
)

// Probe tracks remote reachability. The orchestrator consults Online
// before issuing remote writes; when offline they are skipped entirely
// rather than attempted and failed.
type Probe struct {
	store   Store
	timeout time.Duration
	online  atomic.Bool
}

// NewProbe assumes offline until the first successful check.
func NewProbe(store Store, timeout time.Duration) *Probe {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Probe{store: store, timeout: timeout}
}

// Check pings the store once and updates the flag, logging transitions.
func (p *Probe) Check(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err := p.store.Ping(ctx)
	was := p.online.Load()
	now := err == nil
	p.online.Store(now)

	if was && !now {
		log.Printf("[WARN] remote store unreachable, going offline: %v", err)
	} else if !was && now {
		log.Println("[INFO] remote store reachable, back online")
	}
}

// Online reports the last observed connectivity state.
func (p *Probe) Online() bool {
	return p.online.Load()
}
