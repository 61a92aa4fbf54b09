package outbox

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/Domenick1991/staybooking/internal/repository"
)

// Publisher is the slice of the kafka producer the relay needs.
type Publisher interface {
	PublishWithRetry(ctx context.Context, topic, key string, payload interface{}, maxRetries int) error
}

// eventEnvelope is the wire shape of a relayed booking event.
type eventEnvelope struct {
	AggregateID string          `json:"aggregate_id"`
	Type        string          `json:"type"`
	OccurredAt  time.Time       `json:"occurred_at"`
	Payload     json.RawMessage `json:"payload"`
}

const publishRetries = 3

// Relay drains the transactional outbox and publishes booking events.
// Messages are keyed by aggregate id so one booking's events stay ordered
// within a partition; delivery is at-least-once.
type Relay struct {
	repo      repository.OutboxRepository
	publisher Publisher
	topic     string
	interval  time.Duration
	batchSize int
}

func NewRelay(repo repository.OutboxRepository, publisher Publisher, topic string, interval time.Duration, batchSize int) *Relay {
	return &Relay{
		repo:      repo,
		publisher: publisher,
		topic:     topic,
		interval:  interval,
		batchSize: batchSize,
	}
}

func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			published, err := r.Sweep(ctx)
			if err != nil {
				log.Printf("outbox sweep failed: %v", err)
				continue
			}
			if published > 0 {
				log.Printf("outbox relay published %d events", published)
			}
		}
	}
}

// Sweep claims one batch of pending events and publishes each as an
// envelope carrying the stored payload. Transient broker errors get a few
// quick retries here; anything that still fails goes back to the outbox
// with its longer backoff.
func (r *Relay) Sweep(ctx context.Context) (int, error) {
	return r.repo.ProcessPending(ctx, r.batchSize, func(ctx context.Context, e repository.OutboxEvent) error {
		return r.publisher.PublishWithRetry(ctx, r.topic, e.AggregateID, eventEnvelope{
			AggregateID: e.AggregateID,
			Type:        e.EventType,
			OccurredAt:  e.OccurredAt,
			Payload:     e.Payload,
		}, publishRetries)
	})
}
