package notifier

import (
	"errors"
	"testing"
	"time"

	"fixpoint_backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOutbox struct {
	pending  []models.OutboxMessage
	sent     []string
	failed   map[string]string
	fetchErr error
}

func newFakeOutbox(pending ...models.OutboxMessage) *fakeOutbox {
	return &fakeOutbox{pending: pending, failed: make(map[string]string)}
}

func (f *fakeOutbox) Enqueue(msg *models.OutboxMessage) error {
	f.pending = append(f.pending, *msg)
	return nil
}

func (f *fakeOutbox) FetchPending(limit int) ([]models.OutboxMessage, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	if len(f.pending) > limit {
		return f.pending[:limit], nil
	}
	return f.pending, nil
}

func (f *fakeOutbox) MarkSent(id string, _ time.Time) error {
	f.sent = append(f.sent, id)
	return nil
}

func (f *fakeOutbox) MarkFailed(id string, lastError string) error {
	f.failed[id] = lastError
	return nil
}

type recordingNotifier struct {
	delivered []string
	failOn    map[string]error
}

func (n *recordingNotifier) Notify(phone, message string) error {
	if err, ok := n.failOn[phone]; ok {
		return err
	}
	n.delivered = append(n.delivered, phone)
	return nil
}

func pendingMessage(id, phone string) models.OutboxMessage {
	return models.OutboxMessage{ID: id, StoreID: 1, Phone: phone, Body: "Your repair OT-20250310-001 is ready for pickup.", Status: models.OutboxPending}
}

func TestDrainOnceDeliversBatch(t *testing.T) {
	outbox := newFakeOutbox(
		pendingMessage("m1", "+77001111111"),
		pendingMessage("m2", "+77002222222"),
	)
	sink := &recordingNotifier{}
	d := NewDispatcher(outbox, sink, time.Second, 20)

	d.drainOnce()

	assert.Equal(t, []string{"+77001111111", "+77002222222"}, sink.delivered)
	assert.Equal(t, []string{"m1", "m2"}, outbox.sent)
	assert.Empty(t, outbox.failed)
}

func TestDrainOnceMarksFailures(t *testing.T) {
	outbox := newFakeOutbox(
		pendingMessage("m1", "+77001111111"),
		pendingMessage("m2", "+77002222222"),
	)
	sink := &recordingNotifier{failOn: map[string]error{"+77001111111": errors.New("gateway timeout")}}
	d := NewDispatcher(outbox, sink, time.Second, 20)

	d.drainOnce()

	// One failure must not stop the rest of the batch.
	assert.Equal(t, []string{"+77002222222"}, sink.delivered)
	assert.Equal(t, []string{"m2"}, outbox.sent)
	require.Contains(t, outbox.failed, "m1")
	assert.Equal(t, "gateway timeout", outbox.failed["m1"])
}

func TestDrainOnceRespectsBatchSize(t *testing.T) {
	outbox := newFakeOutbox(
		pendingMessage("m1", "+77001111111"),
		pendingMessage("m2", "+77002222222"),
		pendingMessage("m3", "+77003333333"),
	)
	sink := &recordingNotifier{}
	d := NewDispatcher(outbox, sink, time.Second, 2)

	d.drainOnce()

	assert.Len(t, sink.delivered, 2)
}

func TestDrainOnceToleratesFetchError(t *testing.T) {
	outbox := newFakeOutbox()
	outbox.fetchErr = errors.New("connection refused")
	sink := &recordingNotifier{}
	d := NewDispatcher(outbox, sink, time.Second, 20)

	d.drainOnce()

	assert.Empty(t, sink.delivered)
}

func TestDispatcherStartStop(t *testing.T) {
	outbox := newFakeOutbox(pendingMessage("m1", "+77001111111"))
	sink := &recordingNotifier{}
	d := NewDispatcher(outbox, sink, 5*time.Millisecond, 20)

	d.Start()
	time.Sleep(30 * time.Millisecond)
	d.Stop()

	assert.NotEmpty(t, sink.delivered)
}
