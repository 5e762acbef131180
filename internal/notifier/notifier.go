// Package notifier delivers celebration and report messages. Events
// are fire-and-forget: a missed delivery has no durable consequence.
package notifier

import (
	"context"
	"fmt"
	"log"
	"time"
)

// CelebrationWindow is how long a celebration stays visible before it
// self-expires on the consumer side.
const CelebrationWindow = 5 * time.Second

// Event kinds.
const (
	KindMilestone = "MILESTONE"
	KindAccrual   = "ACCRUAL"
	KindReport    = "REPORT"
)

// Event is one notification, stamped with its expiry window.
type Event struct {
	Kind       string    `json:"kind"`
	Message    string    `json:"message"`
	OccurredAt time.Time `json:"occurredAt"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// NewEvent stamps an event with the celebration window.
func NewEvent(kind, message string, now time.Time) Event {
	return Event{
		Kind:       kind,
		Message:    message,
		OccurredAt: now,
		ExpiresAt:  now.Add(CelebrationWindow),
	}
}

// Notifier delivers events. Delivery failures must not propagate into
// the engine.
type Notifier interface {
	Notify(ctx context.Context, evt Event) error
}

// NotifyWithRetry delivers the event with exponential backoff retry.
func NotifyWithRetry(ctx context.Context, n Notifier, evt Event, maxRetries int) error {
	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		if err := n.Notify(ctx, evt); err != nil {
			lastErr = err
			backoff := time.Duration(1<<uint(i)) * time.Second
			log.Printf("[WARN] notify %s failed (attempt %d/%d): %v, retrying in %v", evt.Kind, i+1, maxRetries+1, err, backoff)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
				continue
			}
		}
		return nil
	}
	return fmt.Errorf("all %d retries exhausted: %w", maxRetries+1, lastErr)
}

// LogNotifier writes events to the process log. Used when no webhook
// is configured.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier { return &LogNotifier{} }

func (l *LogNotifier) Notify(_ context.Context, evt Event) error {
	log.Printf("[INFO] %s notification: %s", evt.Kind, evt.Message)
	return nil
}
