package memory

import (
	"sync"

	"github.com/robertarktes/table-reservations/internal/domain"
)

type Ledger struct {
	mu           sync.RWMutex
	reservations []domain.Reservation
	booked       map[domain.Slot]struct{}
}

func NewLedger() *Ledger {
	return &Ledger{booked: make(map[domain.Slot]struct{})}
}

func (l *Ledger) IsTableBooked(tableID int, date domain.Date, at domain.TimeOfDay) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.booked[domain.Slot{TableID: tableID, Date: date, Time: at}]
	return ok
}

// CreateReservation appends without checking for conflicts; callers check
// IsTableBooked first under their own lock.
func (l *Ledger) CreateReservation(customerID, tableID int, date domain.Date, at domain.TimeOfDay, cost domain.CartEntry) domain.Reservation {
	l.mu.Lock()
	defer l.mu.Unlock()

	r := domain.Reservation{
		ID:         len(l.reservations) + 1,
		CustomerID: customerID,
		TableID:    tableID,
		Date:       date,
		Time:       at,
		Cost:       cost,
	}
	l.reservations = append(l.reservations, r)
	l.booked[r.Slot()] = struct{}{}
	return r
}

func (l *Ledger) List() []domain.Reservation {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]domain.Reservation(nil), l.reservations...)
}
