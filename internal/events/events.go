// Package events publishes settled-mutation events for downstream
// consumers. Publishing is best-effort: the engine never blocks or
// fails on a publish error.
package events

import "time"

// Topic is the stream settled mutations are published to.
const Topic = "ledger_mutations"

// MutationSettled is emitted once per settled ledger mutation.
type MutationSettled struct {
	Op            string    `json:"op"`
	UserID        string    `json:"user_id"`
	TotalOpc      int64     `json:"total_opc"`
	CurrentStreak int       `json:"current_streak"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Publisher delivers events to a stream.
type Publisher interface {
	Publish(topic string, event any) error
}

// NoopPublisher is used when no broker is configured.
type NoopPublisher struct{}

func NewNoopPublisher() *NoopPublisher { return &NoopPublisher{} }

func (n *NoopPublisher) Publish(_ string, _ any) error { return nil }
