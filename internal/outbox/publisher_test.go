package outbox_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/robertarktes/table-reservations/internal/observability"
	"github.com/robertarktes/table-reservations/internal/outbox"
)

type fakeBroker struct {
	mu        sync.Mutex
	fail      bool
	failFirst int
	sent      []amqp.Publishing
	keys      []string
}

// stalledBroker never acknowledges and only returns once ctx is done.
type stalledBroker struct{}

func (stalledBroker) Publish(ctx context.Context, key string, msg amqp.Publishing) error {
	<-ctx.Done()
	return ctx.Err()
}

func (f *fakeBroker) Publish(ctx context.Context, key string, msg amqp.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFirst > 0 {
		f.failFirst--
		return errors.New("broker nack")
	}
	if f.fail {
		return errors.New("broker down")
	}
	f.sent = append(f.sent, msg)
	f.keys = append(f.keys, key)
	return nil
}

func TestPublisher_FlushDeliversInOrder(t *testing.T) {
	ctx := context.Background()
	box := outbox.New()
	for i := 1; i <= 12; i++ {
		if err := box.Enqueue(ctx, "reservation.created", i, map[string]int{"reservation_id": i}); err != nil {
			t.Fatal(err)
		}
	}

	broker := &fakeBroker{}
	pub := outbox.NewPublisher(box, broker, observability.NewLogger("error"), 0, time.Second)

	if n := pub.Flush(ctx); n != 12 {
		t.Fatalf("expected 12 published, got %d", n)
	}
	if box.Len() != 0 {
		t.Errorf("expected empty outbox, got %d", box.Len())
	}
	for i, msg := range broker.sent {
		var body map[string]int
		if err := json.Unmarshal(msg.Body, &body); err != nil {
			t.Fatal(err)
		}
		if body["reservation_id"] != i+1 {
			t.Errorf("message %d out of order: %v", i, body)
		}
		if msg.MessageId == "" || broker.keys[i] != "reservation.created" {
			t.Errorf("message %d missing id or wrong key %q", i, broker.keys[i])
		}
	}
}

func TestPublisher_FailedRecordsStayQueued(t *testing.T) {
	ctx := context.Background()
	box := outbox.New()
	if err := box.Enqueue(ctx, "reservation.created", 1, map[string]int{"reservation_id": 1}); err != nil {
		t.Fatal(err)
	}

	broker := &fakeBroker{fail: true}
	pub := outbox.NewPublisher(box, broker, observability.NewLogger("error"), 0, time.Second)

	if n := pub.Flush(ctx); n != 0 {
		t.Fatalf("expected nothing published, got %d", n)
	}
	pending := box.Pending(0)
	if len(pending) != 1 || pending[0].Attempts != 1 {
		t.Fatalf("expected one record with one attempt, got %+v", pending)
	}

	broker.fail = false
	if n := pub.Flush(ctx); n != 1 {
		t.Fatalf("expected retry to publish, got %d", n)
	}
	if box.Len() != 0 {
		t.Error("expected outbox drained after retry")
	}
}

func TestPublisher_RunDrainsOnShutdown(t *testing.T) {
	box := outbox.New()
	broker := &fakeBroker{}
	pub := outbox.NewPublisher(box, broker, observability.NewLogger("error"), 1<<40, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	if err := box.Enqueue(ctx, "reservation.created", 1, map[string]int{"reservation_id": 1}); err != nil {
		t.Fatal(err)
	}
	cancel()

	if err := pub.Run(ctx); err != nil {
		t.Fatal(err)
	}
	if len(broker.sent) != 1 {
		t.Errorf("expected drain on shutdown, got %d messages", len(broker.sent))
	}
}

func TestPublisher_FailingHeadDoesNotBlockTail(t *testing.T) {
	ctx := context.Background()
	box := outbox.New()
	for i := 1; i <= 12; i++ {
		if err := box.Enqueue(ctx, "reservation.created", i, map[string]int{"reservation_id": i}); err != nil {
			t.Fatal(err)
		}
	}

	broker := &fakeBroker{failFirst: 10}
	pub := outbox.NewPublisher(box, broker, observability.NewLogger("error"), 0, time.Second)

	if n := pub.Flush(ctx); n != 2 {
		t.Fatalf("expected the 2 records behind the failures published, got %d", n)
	}
	for i, want := range []int{11, 12} {
		var body map[string]int
		if err := json.Unmarshal(broker.sent[i].Body, &body); err != nil {
			t.Fatal(err)
		}
		if body["reservation_id"] != want {
			t.Errorf("message %d: expected reservation %d, got %v", i, want, body)
		}
	}

	pending := box.Pending(0)
	if len(pending) != 10 {
		t.Fatalf("expected 10 failed records queued, got %d", len(pending))
	}
	for _, rec := range pending {
		if rec.Attempts != 1 {
			t.Errorf("record %d: expected one attempt in a single flush, got %d", rec.AggregateID, rec.Attempts)
		}
	}
}

func TestPublisher_RunDrainRespectsTimeout(t *testing.T) {
	box := outbox.New()
	pub := outbox.NewPublisher(box, stalledBroker{}, observability.NewLogger("error"), 1<<40, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	if err := box.Enqueue(ctx, "reservation.created", 1, map[string]int{"reservation_id": 1}); err != nil {
		t.Fatal(err)
	}
	cancel()

	done := make(chan error, 1)
	go func() { done <- pub.Run(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after the drain timeout")
	}
	if box.Len() != 1 {
		t.Errorf("expected the unpublished record to stay queued, got %d", box.Len())
	}
}
