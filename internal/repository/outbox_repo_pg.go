package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type OutboxEvent struct {
	ID          int64
	AggregateID string
	EventType   string
	OccurredAt  time.Time
	Payload     []byte
	Attempts    int
}

type OutboxRepository interface {
	ProcessPending(ctx context.Context, limit int, publish func(context.Context, OutboxEvent) error) (int, error)
}

type PGOutboxRepository struct {
	db      *pgxpool.Pool
	backoff time.Duration
}

func NewOutboxRepository(db *pgxpool.Pool, backoff time.Duration) OutboxRepository {
	return &PGOutboxRepository{db: db, backoff: backoff}
}

// ProcessPending claims a batch of unpublished events with SKIP LOCKED so
// concurrent relay workers never double-claim, publishes each one, and marks
// it published or schedules a retry. Delivery downstream is at-least-once.
func (r *PGOutboxRepository) ProcessPending(ctx context.Context, limit int, publish func(context.Context, OutboxEvent) error) (int, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `SELECT id, aggregate_id, event_type, occurred_at, payload, attempts
		FROM outbox_events
		WHERE published_at IS NULL AND next_attempt_at <= now()
		ORDER BY id
		LIMIT $1
		FOR UPDATE SKIP LOCKED`, limit)
	if err != nil {
		return 0, err
	}

	events := make([]OutboxEvent, 0, limit)
	for rows.Next() {
		var e OutboxEvent
		if err := rows.Scan(&e.ID, &e.AggregateID, &e.EventType, &e.OccurredAt, &e.Payload, &e.Attempts); err != nil {
			rows.Close()
			return 0, err
		}
		events = append(events, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	published := 0
	for _, e := range events {
		if err := publish(ctx, e); err != nil {
			if _, uerr := tx.Exec(ctx, `UPDATE outbox_events SET attempts=attempts+1, next_attempt_at=now()+make_interval(secs => $1), last_error=$2 WHERE id=$3`,
				r.backoff.Seconds(), err.Error(), e.ID); uerr != nil {
				return published, uerr
			}
			continue
		}
		if _, err := tx.Exec(ctx, `UPDATE outbox_events SET published_at=now() WHERE id=$1`, e.ID); err != nil {
			return published, err
		}
		published++
	}

	return published, tx.Commit(ctx)
}

var _ OutboxRepository = (*PGOutboxRepository)(nil)
