package outbox

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mercatolabs/fulfillment/internal/service/models/event"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestFromEvent(t *testing.T) {
	operationID := uuid.New()

	msg, err := FromEvent(event.OrderPaid{OrderID: 42, UserID: 1}, operationID, testNow)
	require.NoError(t, err)

	assert.Equal(t, event.TypeOrderPaid, msg.EventTypeName)
	assert.Equal(t, StateNotPublished, msg.State)
	assert.Equal(t, operationID, msg.OperationID)
	assert.NotEqual(t, uuid.Nil, msg.EventID)
	assert.Contains(t, string(msg.Content), `"order_id":42`)
}

func TestMarkAsPublishedIsIdempotent(t *testing.T) {
	msg, err := FromEvent(event.OrderPaid{OrderID: 42}, uuid.New(), testNow)
	require.NoError(t, err)

	msg.MarkInProgress(testNow)
	assert.Equal(t, StateInProgress, msg.State)

	msg.MarkAsPublished(testNow)
	assert.Equal(t, StatePublished, msg.State)

	later := testNow.Add(time.Minute)
	msg.MarkAsPublished(later)
	assert.Equal(t, testNow, msg.UpdatedAt, "second publish is a no-op")

	msg.MarkAsFailed(errors.New("broker down"), later)
	assert.Equal(t, StatePublished, msg.State, "published messages never fail")
	assert.Equal(t, 0, msg.TimesSent)
}

func TestMarkAsFailedIncrementsTimesSent(t *testing.T) {
	msg, err := FromEvent(event.OrderPaid{OrderID: 42}, uuid.New(), testNow)
	require.NoError(t, err)

	msg.MarkAsFailed(errors.New("broker down"), testNow)
	assert.Equal(t, StatePublishedFailed, msg.State)
	assert.Equal(t, 1, msg.TimesSent)
	assert.Equal(t, "broker down", msg.LastError)

	msg.MarkAsFailed(errors.New("still down"), testNow)
	assert.Equal(t, 2, msg.TimesSent)
	assert.Equal(t, "still down", msg.LastError)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "not_published", StateNotPublished.String())
	assert.Equal(t, "in_progress", StateInProgress.String())
	assert.Equal(t, "published", StatePublished.String())
	assert.Equal(t, "published_failed", StatePublishedFailed.String())
}
