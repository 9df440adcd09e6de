package outbox

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mercatolabs/fulfillment/internal/service/models/event"
)

// State is the delivery state of an outbox message. Transitions are
// monotonic except PublishedFailed -> InProgress on retry.
type State int

const (
	StateNotPublished State = iota
	StateInProgress
	StatePublished
	StatePublishedFailed
)

func (s State) String() string {
	switch s {
	case StateNotPublished:
		return "not_published"
	case StateInProgress:
		return "in_progress"
	case StatePublished:
		return "published"
	case StatePublishedFailed:
		return "published_failed"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Message is a durable record of an integration event pending delivery.
// Rows are inserted in the same transaction as the aggregate mutation that
// raised the event and advanced by the relay afterwards.
type Message struct {
	ID                int64
	EventID           uuid.UUID
	EventTypeName     string
	Content           []byte
	State             State
	TimesSent         int
	EventCreationTime time.Time
	OperationID       uuid.UUID
	LastError         string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// FromEvent builds an outbox message from a raised integration event. The
// operation id correlates every message recorded by one unit of work.
func FromEvent(ev event.Event, operationID uuid.UUID, now time.Time) (Message, error) {
	content, err := json.Marshal(ev)
	if err != nil {
		return Message{}, fmt.Errorf("failed to serialize event %s: %w", ev.EventType(), err)
	}

	return Message{
		EventID:           uuid.New(),
		EventTypeName:     ev.EventType(),
		Content:           content,
		State:             StateNotPublished,
		EventCreationTime: now,
		OperationID:       operationID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// MarkInProgress claims the message for publishing.
func (m *Message) MarkInProgress(now time.Time) {
	if m.State == StatePublished {
		return
	}
	m.State = StateInProgress
	m.UpdatedAt = now
}

// MarkAsPublished records successful delivery. Marking an already published
// message again is a no-op.
func (m *Message) MarkAsPublished(now time.Time) {
	if m.State == StatePublished {
		return
	}
	m.State = StatePublished
	m.UpdatedAt = now
}

// MarkAsFailed records a failed delivery attempt.
func (m *Message) MarkAsFailed(deliveryErr error, now time.Time) {
	if m.State == StatePublished {
		return
	}
	m.State = StatePublishedFailed
	m.TimesSent++
	if deliveryErr != nil {
		m.LastError = deliveryErr.Error()
	}
	m.UpdatedAt = now
}
