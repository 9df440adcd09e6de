package ioutboxrepo

import (
	"context"
	"time"

	"github.com/mercatolabs/fulfillment/internal/service/models/outbox"
)

// IOutboxRepository defines the interface for outbox operations.
type IOutboxRepository interface {
	// Insert adds a new message to the outbox. Called inside the same
	// transaction as the aggregate mutation that raised the event.
	Insert(ctx context.Context, msg outbox.Message) error

	// ClaimPending atomically claims up to limit messages that are not yet
	// published and have been sent fewer than maxRetries times, flipping
	// them to the in-progress state. Claimed rows are skipped by concurrent
	// relay instances. The claim is a lease, not a final state: an
	// in-progress row whose claim is older than visibility becomes
	// claimable again, so a relay crash between claiming and marking never
	// strands a message.
	ClaimPending(ctx context.Context, limit, maxRetries int, visibility time.Duration) ([]outbox.Message, error)

	// MarkPublished records successful delivery. A message that is already
	// published stays published and its send counter is untouched.
	MarkPublished(ctx context.Context, id int64) error

	// MarkFailed records a failed delivery attempt: increments times_sent,
	// stores the error and leaves the row for the next cycle.
	MarkFailed(ctx context.Context, id int64, lastError string) error

	// CountExhausted reports how many messages have exhausted their retry
	// budget and need operator intervention.
	CountExhausted(ctx context.Context, maxRetries int) (int64, error)
}
