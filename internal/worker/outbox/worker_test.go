package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mercatolabs/fulfillment/internal/service/models/outbox"
)

// fakeOutboxRepo keeps messages in memory with the same state machine and
// claim predicate as the Postgres repository.
type fakeOutboxRepo struct {
	messages    []*outbox.Message
	published   []int64
	failed      map[int64]string
	markFailErr map[int64]error
	exhausted   int64
}

func newFakeOutboxRepo(pending ...outbox.Message) *fakeOutboxRepo {
	r := &fakeOutboxRepo{failed: map[int64]string{}, markFailErr: map[int64]error{}}
	for _, msg := range pending {
		m := msg
		r.messages = append(r.messages, &m)
	}

	return r
}

func (r *fakeOutboxRepo) find(id int64) *outbox.Message {
	for _, m := range r.messages {
		if m.ID == id {
			return m
		}
	}

	return nil
}

func (r *fakeOutboxRepo) Insert(_ context.Context, msg outbox.Message) error {
	m := msg
	r.messages = append(r.messages, &m)

	return nil
}

func (r *fakeOutboxRepo) ClaimPending(_ context.Context, limit, maxRetries int, visibility time.Duration) ([]outbox.Message, error) {
	staleBefore := time.Now().Add(-visibility)

	var claimed []outbox.Message
	for _, m := range r.messages {
		if len(claimed) == limit || m.TimesSent >= maxRetries {
			continue
		}
		deliverable := m.State == outbox.StateNotPublished || m.State == outbox.StatePublishedFailed
		staleLease := m.State == outbox.StateInProgress && m.UpdatedAt.Before(staleBefore)
		if !deliverable && !staleLease {
			continue
		}
		m.State = outbox.StateInProgress
		m.UpdatedAt = time.Now()
		claimed = append(claimed, *m)
	}

	return claimed, nil
}

func (r *fakeOutboxRepo) MarkPublished(_ context.Context, id int64) error {
	if m := r.find(id); m != nil && m.State != outbox.StatePublished {
		m.State = outbox.StatePublished
		r.published = append(r.published, id)
	}

	return nil
}

func (r *fakeOutboxRepo) MarkFailed(_ context.Context, id int64, lastError string) error {
	if err, ok := r.markFailErr[id]; ok {
		return err
	}
	if m := r.find(id); m != nil && m.State != outbox.StatePublished {
		m.State = outbox.StatePublishedFailed
		m.TimesSent++
		m.LastError = lastError
		r.failed[id] = lastError
	}

	return nil
}

func (r *fakeOutboxRepo) CountExhausted(_ context.Context, _ int) (int64, error) {
	return r.exhausted, nil
}

type fakePublisher struct {
	published []string
	failFor   map[string]error
}

func (p *fakePublisher) Publish(eventTypeName string, _ []byte, _ string) error {
	if err, ok := p.failFor[eventTypeName]; ok {
		return err
	}
	p.published = append(p.published, eventTypeName)

	return nil
}

func message(id int64, eventType string) outbox.Message {
	return outbox.Message{
		ID:                id,
		EventID:           uuid.New(),
		EventTypeName:     eventType,
		Content:           []byte(`{}`),
		State:             outbox.StateNotPublished,
		EventCreationTime: time.Now(),
		OperationID:       uuid.New(),
		UpdatedAt:         time.Now(),
	}
}

func newTestWorker(repo *fakeOutboxRepo, pub *fakePublisher) *Worker {
	return &Worker{
		outboxRepo:   repo,
		publisher:    pub,
		pollInterval: time.Millisecond,
		batchSize:    10,
		maxRetries:   3,
		visibility:   time.Minute,
		stopCh:       make(chan struct{}),
	}
}

func TestProcessBatchPublishesAndMarks(t *testing.T) {
	repo := newFakeOutboxRepo(message(1, "order.created"), message(2, "order.paid"))
	pub := &fakePublisher{}

	w := newTestWorker(repo, pub)
	w.processBatch(context.Background())

	assert.Equal(t, []string{"order.created", "order.paid"}, pub.published)
	assert.Equal(t, []int64{1, 2}, repo.published)
	assert.Empty(t, repo.failed)
}

func TestProcessBatchMarksFailuresAndKeepsGoing(t *testing.T) {
	repo := newFakeOutboxRepo(message(1, "order.created"), message(2, "order.paid"))
	pub := &fakePublisher{failFor: map[string]error{"order.created": errors.New("broker down")}}

	w := newTestWorker(repo, pub)
	w.processBatch(context.Background())

	assert.Equal(t, []string{"order.paid"}, pub.published)
	assert.Equal(t, []int64{2}, repo.published)
	assert.Equal(t, "broker down", repo.failed[1])
}

func TestFailedMessageRetriedNextCycle(t *testing.T) {
	repo := newFakeOutboxRepo(message(1, "order.created"))
	pub := &fakePublisher{failFor: map[string]error{"order.created": errors.New("broker down")}}
	w := newTestWorker(repo, pub)

	w.processBatch(context.Background())
	assert.Empty(t, repo.published)
	assert.Equal(t, outbox.StatePublishedFailed, repo.find(1).State)

	// The broker recovers and the next cycle delivers the message.
	pub.failFor = nil
	w.processBatch(context.Background())
	assert.Equal(t, []int64{1}, repo.published)
}

func TestStaleInProgressLeaseReclaimed(t *testing.T) {
	repo := newFakeOutboxRepo(message(1, "order.created"))
	pub := &fakePublisher{failFor: map[string]error{"order.created": errors.New("broker down")}}
	w := newTestWorker(repo, pub)

	// The publish fails and the failure cannot even be recorded, leaving the
	// row claimed in the in-progress state.
	repo.markFailErr[1] = errors.New("db down")
	w.processBatch(context.Background())
	require.Equal(t, outbox.StateInProgress, repo.find(1).State)

	// Everything recovers. A fresh lease is not claimable yet.
	pub.failFor = nil
	delete(repo.markFailErr, 1)
	w.processBatch(context.Background())
	assert.Empty(t, repo.published)

	// Once the lease passes the visibility timeout the row is claimed and
	// delivered again.
	repo.find(1).UpdatedAt = time.Now().Add(-2 * w.visibility)
	w.processBatch(context.Background())
	assert.Equal(t, []int64{1}, repo.published)
	assert.Equal(t, outbox.StatePublished, repo.find(1).State)
}

func TestStartStopsBetweenBatches(t *testing.T) {
	repo := newFakeOutboxRepo()
	w := newTestWorker(repo, &fakePublisher{})

	done := make(chan struct{})
	go func() {
		w.Start(context.Background())
		close(done)
	}()

	time.Sleep(5 * time.Millisecond)
	w.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestStartHonorsContextCancellation(t *testing.T) {
	repo := newFakeOutboxRepo()
	w := newTestWorker(repo, &fakePublisher{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop on context cancellation")
	}
}
