package notifier

import (
	"time"

	"fixpoint_backend/internal/models"
	"fixpoint_backend/internal/repositories"

	"github.com/rs/zerolog/log"
)

// Dispatcher drains the notification outbox in the background. Delivery is
// best effort: a failed message is marked failed with its error and left for
// out-of-band reconciliation, never retried in a loop.
type Dispatcher struct {
	outboxRepo repositories.OutboxRepository
	notifier   Notifier
	interval   time.Duration
	batchSize  int
	stop       chan struct{}
	done       chan struct{}
}

// NewDispatcher creates a Dispatcher polling the outbox at the given interval.
func NewDispatcher(repo repositories.OutboxRepository, n Notifier, interval time.Duration, batchSize int) *Dispatcher {
	if batchSize <= 0 {
		batchSize = 20
	}
	return &Dispatcher{
		outboxRepo: repo,
		notifier:   n,
		interval:   interval,
		batchSize:  batchSize,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start launches the polling loop in its own goroutine.
func (d *Dispatcher) Start() {
	go d.run()
}

// Stop signals the loop to exit and waits for it to finish.
func (d *Dispatcher) Stop() {
	close(d.stop)
	<-d.done
}

func (d *Dispatcher) run() {
	defer close(d.done)
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-d.stop:
			return
		case <-ticker.C:
			d.drainOnce()
		}
	}
}

// drainOnce delivers one batch of pending messages.
func (d *Dispatcher) drainOnce() {
	messages, err := d.outboxRepo.FetchPending(d.batchSize)
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch pending notifications")
		return
	}

	for _, msg := range messages {
		d.deliver(msg)
	}
}

func (d *Dispatcher) deliver(msg models.OutboxMessage) {
	if err := d.notifier.Notify(msg.Phone, msg.Body); err != nil {
		log.Warn().Err(err).Str("message_id", msg.ID).Msg("Notification delivery failed")
		if markErr := d.outboxRepo.MarkFailed(msg.ID, err.Error()); markErr != nil {
			log.Error().Err(markErr).Str("message_id", msg.ID).Msg("Failed to mark notification failed")
		}
		return
	}
	if err := d.outboxRepo.MarkSent(msg.ID, time.Now()); err != nil {
		log.Error().Err(err).Str("message_id", msg.ID).Msg("Failed to mark notification sent")
	}
}
