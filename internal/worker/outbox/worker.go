package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/viper"

	"github.com/mercatolabs/fulfillment/internal/dal/interfaces/ioutboxrepo"
)

// publisher delivers one serialized event to the broker.
type publisher interface {
	Publish(eventTypeName string, payload []byte, correlationID string) error
}

// Worker relays messages from the outbox table to the broker. Multiple
// instances may run against the same table: claiming is atomic, so each
// message is handled by at most one instance per cycle.
type Worker struct {
	outboxRepo   ioutboxrepo.IOutboxRepository
	publisher    publisher
	pollInterval time.Duration
	batchSize    int
	maxRetries   int
	visibility   time.Duration
	stopCh       chan struct{}
}

// NewWorker creates a new outbox worker.
func NewWorker(outboxRepo ioutboxrepo.IOutboxRepository, pub publisher) *Worker {
	pollIntervalSeconds := viper.GetInt("rabbitmq.outbox.poll_interval_seconds")
	if pollIntervalSeconds == 0 {
		pollIntervalSeconds = 5
	}

	batchSize := viper.GetInt("rabbitmq.outbox.batch_size")
	if batchSize == 0 {
		batchSize = 100
	}

	maxRetries := viper.GetInt("rabbitmq.outbox.max_retries")
	if maxRetries == 0 {
		maxRetries = 10
	}

	visibilitySeconds := viper.GetInt("rabbitmq.outbox.visibility_timeout_seconds")
	if visibilitySeconds == 0 {
		visibilitySeconds = 300
	}

	return &Worker{
		outboxRepo:   outboxRepo,
		publisher:    pub,
		pollInterval: time.Duration(pollIntervalSeconds) * time.Second,
		batchSize:    batchSize,
		maxRetries:   maxRetries,
		visibility:   time.Duration(visibilitySeconds) * time.Second,
		stopCh:       make(chan struct{}),
	}
}

// Start begins relaying messages. It blocks until the context is cancelled
// or Stop is called. Cancellation is checked between batches, so a batch in
// flight is always finished.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	slog.Info("Outbox worker started",
		"poll_interval", w.pollInterval,
		"batch_size", w.batchSize,
		"max_retries", w.maxRetries,
		"visibility_timeout", w.visibility,
	)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Outbox worker shutting down")

			return
		case <-w.stopCh:
			slog.Info("Outbox worker stopped")

			return
		case <-ticker.C:
			w.processBatch(ctx)
		}
	}
}

// Stop stops the worker.
func (w *Worker) Stop() {
	close(w.stopCh)
}

// processBatch claims one batch of pending messages and publishes each one.
func (w *Worker) processBatch(ctx context.Context) {
	messages, err := w.outboxRepo.ClaimPending(ctx, w.batchSize, w.maxRetries, w.visibility)
	if err != nil {
		slog.Error("Failed to claim pending outbox messages", "error", err)

		return
	}

	if len(messages) > 0 {
		slog.Info("Relaying outbox messages", "count", len(messages))
	}

	for _, msg := range messages {
		if err := w.publisher.Publish(msg.EventTypeName, msg.Content, msg.OperationID.String()); err != nil {
			slog.Warn("Failed to publish outbox message",
				"outbox_id", msg.ID,
				"event_type", msg.EventTypeName,
				"times_sent", msg.TimesSent+1,
				"error", err,
			)

			if err := w.outboxRepo.MarkFailed(ctx, msg.ID, err.Error()); err != nil {
				slog.Error("Failed to record outbox publish failure", "outbox_id", msg.ID, "error", err)
			}

			continue
		}

		if err := w.outboxRepo.MarkPublished(ctx, msg.ID); err != nil {
			slog.Error("Failed to mark outbox message as published", "outbox_id", msg.ID, "error", err)
		}
	}

	w.reportExhausted(ctx)
}

// reportExhausted logs messages that have used up their retry budget. These
// rows are no longer claimed and need operator intervention.
func (w *Worker) reportExhausted(ctx context.Context) {
	exhausted, err := w.outboxRepo.CountExhausted(ctx, w.maxRetries)
	if err != nil {
		slog.Error("Failed to count exhausted outbox messages", "error", err)

		return
	}

	if exhausted > 0 {
		slog.Error("Outbox messages exhausted their retry budget", "count", exhausted)
	}
}
