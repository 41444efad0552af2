package main

import (
	"encoding/json"
	"testing"

	"github.com/robertarktes/table-reservations/internal/adapters/memory"
	"github.com/robertarktes/table-reservations/internal/domain"
	"github.com/robertarktes/table-reservations/internal/observability"
)

type fakeAck struct {
	acked, nacked, requeued bool
}

func (f *fakeAck) Ack(multiple bool) error {
	f.acked = true
	return nil
}

func (f *fakeAck) Nack(multiple, requeue bool) error {
	f.nacked = true
	f.requeued = requeue
	return nil
}

func TestNotifier_Handle(t *testing.T) {
	n := NewNotifier(observability.NewLogger("error"))

	d, _ := domain.ParseDate("2024-01-01")
	tm, _ := domain.ParseTimeOfDay("18:00")
	table := memory.DefaultTables()[0]
	body, err := json.Marshal(domain.Reservation{
		ID: 1, CustomerID: 7, TableID: 1, Date: d, Time: tm,
		Cost: domain.CartEntry{TableID: 1, TablePrice: table.Price, TotalPrice: table.Price},
	})
	if err != nil {
		t.Fatal(err)
	}

	ack := &fakeAck{}
	n.Handle("reservation.created", "msg-1", body, ack)
	if !ack.acked || ack.nacked {
		t.Errorf("expected ack, got %+v", ack)
	}

	bad := &fakeAck{}
	n.Handle("reservation.created", "msg-2", []byte(`{"date":"not a date"}`), bad)
	if !bad.nacked || bad.requeued || bad.acked {
		t.Errorf("expected nack without requeue, got %+v", bad)
	}
}
