package memory_test

import (
	"testing"

	"github.com/robertarktes/table-reservations/internal/adapters/memory"
	"github.com/robertarktes/table-reservations/internal/domain"
)

func mustSlot(t *testing.T, date, at string) (domain.Date, domain.TimeOfDay) {
	t.Helper()
	d, err := domain.ParseDate(date)
	if err != nil {
		t.Fatal(err)
	}
	tm, err := domain.ParseTimeOfDay(at)
	if err != nil {
		t.Fatal(err)
	}
	return d, tm
}

func TestCatalog_CheckAvailability(t *testing.T) {
	c := memory.NewCatalog(memory.DefaultTables())

	tests := []struct {
		guests int
		want   []int
	}{
		{guests: 1, want: []int{1, 2, 3}},
		{guests: 2, want: []int{1, 2, 3}},
		{guests: 3, want: []int{2, 3}},
		{guests: 6, want: []int{3}},
		{guests: 7, want: nil},
	}

	for _, tt := range tests {
		got := c.CheckAvailability(tt.guests)
		if len(got) != len(tt.want) {
			t.Fatalf("guests=%d: expected %d tables, got %d", tt.guests, len(tt.want), len(got))
		}
		for i, table := range got {
			if table.ID != tt.want[i] {
				t.Errorf("guests=%d: position %d expected table %d, got %d", tt.guests, i, tt.want[i], table.ID)
			}
			if table.Capacity < tt.guests {
				t.Errorf("guests=%d: table %d has capacity %d", tt.guests, table.ID, table.Capacity)
			}
		}
	}
}

func TestCatalog_FindByID(t *testing.T) {
	c := memory.NewCatalog(memory.DefaultTables())

	table, ok := c.FindByID(2)
	if !ok || table.Capacity != 4 || table.Price.IntPart() != 1000 {
		t.Errorf("unexpected table %+v (found=%v)", table, ok)
	}
	if _, ok := c.FindByID(42); ok {
		t.Error("expected table 42 to be absent")
	}
}

func TestLedger_ExactMatchBooking(t *testing.T) {
	l := memory.NewLedger()
	d, at := mustSlot(t, "2024-01-01", "18:00")
	_, later := mustSlot(t, "2024-01-01", "18:30")
	nextDay, _ := mustSlot(t, "2024-01-02", "18:00")

	if l.IsTableBooked(1, d, at) {
		t.Fatal("empty ledger reports a booking")
	}

	r := l.CreateReservation(7, 1, d, at, domain.CartEntry{TableID: 1})
	if r.ID != 1 {
		t.Errorf("expected id 1, got %d", r.ID)
	}

	if !l.IsTableBooked(1, d, at) {
		t.Error("expected slot to be booked")
	}
	if l.IsTableBooked(1, d, later) {
		t.Error("18:00 booking must not block 18:30")
	}
	if l.IsTableBooked(1, nextDay, at) {
		t.Error("booking must not leak to another date")
	}
	if l.IsTableBooked(2, d, at) {
		t.Error("booking must not leak to another table")
	}
}

func TestLedger_IDsAreMonotonic(t *testing.T) {
	l := memory.NewLedger()
	d, at := mustSlot(t, "2024-01-01", "18:00")

	for i := 1; i <= 3; i++ {
		r := l.CreateReservation(i, i, d, at, domain.CartEntry{TableID: i})
		if r.ID != i {
			t.Errorf("expected id %d, got %d", i, r.ID)
		}
	}
	if n := len(l.List()); n != 3 {
		t.Errorf("expected 3 reservations, got %d", n)
	}
}

func TestCartStore(t *testing.T) {
	s := memory.NewCartStore()
	tables := memory.DefaultTables()

	if _, ok := s.GetCart(7); ok {
		t.Fatal("expected empty cart")
	}

	first := s.PreviewCost(7, tables[0])
	if first.TableID != 1 || !first.TotalPrice.Equal(tables[0].Price) {
		t.Errorf("unexpected entry %+v", first)
	}

	second := s.PreviewCost(7, tables[2])
	got, ok := s.GetCart(7)
	if !ok || !got.Equal(second) {
		t.Errorf("expected overwritten entry %+v, got %+v", second, got)
	}

	s.ClearCart(7)
	if _, ok := s.GetCart(7); ok {
		t.Error("expected cart to be cleared")
	}
	s.ClearCart(7)
}

func TestCatalog_AllReturnsCopy(t *testing.T) {
	c := memory.NewCatalog(memory.DefaultTables())

	all := c.All()
	if len(all) != 3 {
		t.Fatalf("expected 3 tables, got %d", len(all))
	}
	all[0].Capacity = 100
	if got, _ := c.FindByID(1); got.Capacity != 2 {
		t.Error("mutating All() result changed the catalog")
	}
}
