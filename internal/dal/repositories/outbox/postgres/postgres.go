package postgresrepo

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/mercatolabs/fulfillment/internal/dal/postgres"
	"github.com/mercatolabs/fulfillment/internal/service/models/outbox"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// OutboxRepository implements the outbox repository for PostgreSQL.
type OutboxRepository struct {
	conn postgres.Querier
}

// NewOutboxRepository creates a new outbox repository.
func NewOutboxRepository(conn postgres.Querier) *OutboxRepository {
	return &OutboxRepository{conn: conn}
}

// Insert adds a new message to the outbox. It runs on the same connection as
// the surrounding unit of work, so the row commits or rolls back together
// with the aggregate change.
func (r *OutboxRepository) Insert(ctx context.Context, msg outbox.Message) error {
	query, args, err := psql.Insert("outbox").
		Columns(
			"event_id",
			"event_type_name",
			"content",
			"state",
			"times_sent",
			"event_creation_time",
			"operation_id",
			"last_error",
			"created_at",
			"updated_at",
		).
		Values(
			msg.EventID,
			msg.EventTypeName,
			msg.Content,
			int(msg.State),
			msg.TimesSent,
			msg.EventCreationTime,
			msg.OperationID,
			msg.LastError,
			msg.CreatedAt,
			msg.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert query: %w", err)
	}

	_, err = r.conn.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to insert outbox message: %w", err)
	}

	return nil
}

// ClaimPending claims a batch of deliverable messages for this relay
// instance. FOR UPDATE SKIP LOCKED keeps concurrent relays off each other's
// rows, and flipping the state to in-progress in the same statement keeps a
// row from being claimed twice. The in-progress state is a lease bounded by
// the visibility timeout: a row whose claim is older than visibility is
// claimed again, so a relay that crashed between claiming and marking does
// not strand it.
func (r *OutboxRepository) ClaimPending(ctx context.Context, limit, maxRetries int, visibility time.Duration) ([]outbox.Message, error) {
	const query = `
		UPDATE outbox SET state = $1, updated_at = now()
		WHERE id IN (
			SELECT id FROM outbox
			WHERE (state = ANY($2) OR (state = $1 AND updated_at < $3)) AND times_sent < $4
			ORDER BY event_creation_time ASC
			LIMIT $5
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, event_id, event_type_name, content, state, times_sent,
			event_creation_time, operation_id, last_error, created_at, updated_at
	`

	claimable := []int{int(outbox.StateNotPublished), int(outbox.StatePublishedFailed)}
	staleBefore := time.Now().Add(-visibility)

	rows, err := r.conn.Query(ctx, query, int(outbox.StateInProgress), claimable, staleBefore, maxRetries, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to claim outbox messages: %w", err)
	}
	defer rows.Close()

	var messages []outbox.Message
	for rows.Next() {
		var (
			msg   outbox.Message
			state int
		)
		err := rows.Scan(
			&msg.ID,
			&msg.EventID,
			&msg.EventTypeName,
			&msg.Content,
			&state,
			&msg.TimesSent,
			&msg.EventCreationTime,
			&msg.OperationID,
			&msg.LastError,
			&msg.CreatedAt,
			&msg.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan outbox message: %w", err)
		}
		msg.State = outbox.State(state)
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating outbox messages: %w", err)
	}

	return messages, nil
}

// MarkPublished records successful delivery. The state guard makes repeated
// calls no-ops: an already published row keeps its state and send counter.
func (r *OutboxRepository) MarkPublished(ctx context.Context, id int64) error {
	query, args, err := psql.Update("outbox").
		Set("state", int(outbox.StatePublished)).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": id}).
		Where(sq.NotEq{"state": int(outbox.StatePublished)}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}

	_, err = r.conn.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to mark outbox message published: %w", err)
	}

	return nil
}

// MarkFailed records a failed delivery attempt and leaves the row for the
// next relay cycle.
func (r *OutboxRepository) MarkFailed(ctx context.Context, id int64, lastError string) error {
	query, args, err := psql.Update("outbox").
		Set("state", int(outbox.StatePublishedFailed)).
		Set("times_sent", sq.Expr("times_sent + 1")).
		Set("last_error", lastError).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": id}).
		Where(sq.NotEq{"state": int(outbox.StatePublished)}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}

	_, err = r.conn.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to mark outbox message failed: %w", err)
	}

	return nil
}

// CountExhausted reports how many failed messages have used up their retry
// budget. These need operator intervention, not more retries.
func (r *OutboxRepository) CountExhausted(ctx context.Context, maxRetries int) (int64, error) {
	query, args, err := psql.Select("count(*)").
		From("outbox").
		Where(sq.Eq{"state": int(outbox.StatePublishedFailed)}).
		Where(sq.GtOrEq{"times_sent": maxRetries}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build select query: %w", err)
	}

	var count int64
	if err := r.conn.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count exhausted outbox messages: %w", err)
	}

	return count, nil
}
