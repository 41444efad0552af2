package outbox

import (
	"context"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/google/uuid"
	"github.com/robertarktes/table-reservations/internal/observability"
)

const batchSize = 10

type MessagePublisher interface {
	Publish(ctx context.Context, key string, msg amqp.Publishing) error
}

type Publisher struct {
	outbox    *Outbox
	rabbitPub MessagePublisher
	logger    observability.Logger
	interval  time.Duration
	drain     time.Duration
}

// NewPublisher polls the outbox every interval. On shutdown it keeps
// publishing for at most drain.
func NewPublisher(outbox *Outbox, rabbitPub MessagePublisher, logger observability.Logger, interval, drain time.Duration) *Publisher {
	return &Publisher{outbox: outbox, rabbitPub: rabbitPub, logger: logger, interval: interval, drain: drain}
}

func (p *Publisher) Run(ctx context.Context) error {
	p.logger.Info("Outbox publisher started")
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Best effort drain so events committed just before shutdown are not lost.
			drainCtx, cancel := context.WithTimeout(context.Background(), p.drain)
			defer cancel()
			if n := p.Flush(drainCtx); p.outbox.Len() > 0 {
				p.logger.WithField("published", n).WithField("left", p.outbox.Len()).Warn("outbox drain incomplete")
			}
			return nil
		case <-ticker.C:
			p.Flush(ctx)
		}
	}
}

// Flush publishes pending records in order. A failed record stays queued and
// is retried on the next tick; later records are still attempted in this one.
func (p *Publisher) Flush(ctx context.Context) int {
	published := 0
	failed := map[uuid.UUID]struct{}{}
	for ctx.Err() == nil {
		records := p.outbox.PendingExcept(failed, batchSize)
		if len(records) == 0 {
			break
		}
		for _, rec := range records {
			if rec.Attempts > 0 {
				observability.RabbitPublishRetries.Inc()
			}
			msg := amqp.Publishing{
				MessageId:   rec.ID.String(),
				ContentType: "application/json",
				Timestamp:   rec.CreatedAt,
				Body:        rec.Payload,
			}
			if err := p.rabbitPub.Publish(ctx, rec.EventType, msg); err != nil {
				p.logger.WithError(err).WithField("event_type", rec.EventType).Warn("outbox publish failed")
				p.outbox.MarkFailed(rec.ID)
				failed[rec.ID] = struct{}{}
				continue
			}
			p.outbox.MarkPublished(rec.ID)
			published++
		}
	}
	p.updateLag()
	return published
}

func (p *Publisher) updateLag() {
	oldest := p.outbox.Pending(1)
	if len(oldest) == 0 {
		observability.OutboxLag.Set(0)
		return
	}
	observability.OutboxLag.Set(time.Since(oldest[0].CreatedAt).Seconds())
}
