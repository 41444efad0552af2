package outbox

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/robertarktes/table-reservations/internal/observability"
)

type Record struct {
	ID          uuid.UUID
	AggregateID int
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
	Attempts    int
}

// Outbox holds domain events until the publisher hands them to the broker.
// Records leave the outbox only after a successful publish.
type Outbox struct {
	mu      sync.Mutex
	records []Record
	now     func() time.Time
}

func New() *Outbox {
	return &Outbox{now: time.Now}
}

func (o *Outbox) Enqueue(ctx context.Context, eventType string, aggregateID int, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrapf(err, "marshal %s payload", eventType)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.records = append(o.records, Record{
		ID:          uuid.New(),
		AggregateID: aggregateID,
		EventType:   eventType,
		Payload:     data,
		CreatedAt:   o.now(),
	})
	observability.OutboxPending.Set(float64(len(o.records)))
	return nil
}

// Pending returns up to limit records, oldest first.
func (o *Outbox) Pending(limit int) []Record {
	o.mu.Lock()
	defer o.mu.Unlock()
	if limit <= 0 || limit > len(o.records) {
		limit = len(o.records)
	}
	return append([]Record(nil), o.records[:limit]...)
}

// PendingExcept is Pending with the records in skip left out.
func (o *Outbox) PendingExcept(skip map[uuid.UUID]struct{}, limit int) []Record {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []Record
	for _, rec := range o.records {
		if limit > 0 && len(out) == limit {
			break
		}
		if _, ok := skip[rec.ID]; ok {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func (o *Outbox) MarkPublished(id uuid.UUID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i, rec := range o.records {
		if rec.ID == id {
			o.records = append(o.records[:i], o.records[i+1:]...)
			break
		}
	}
	observability.OutboxPending.Set(float64(len(o.records)))
}

func (o *Outbox) MarkFailed(id uuid.UUID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := range o.records {
		if o.records[i].ID == id {
			o.records[i].Attempts++
			return
		}
	}
}

func (o *Outbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.records)
}
