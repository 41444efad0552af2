// Package reservation coordinates the table catalog, the reservation ledger
// and user carts.
package reservation

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/table-reservations/internal/domain"
	"github.com/robertarktes/table-reservations/internal/observability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const EventReservationCreated = "reservation.created"

type Catalog interface {
	CheckAvailability(guests int) []domain.Table
	FindByID(tableID int) (domain.Table, bool)
}

type Ledger interface {
	IsTableBooked(tableID int, date domain.Date, at domain.TimeOfDay) bool
	CreateReservation(customerID, tableID int, date domain.Date, at domain.TimeOfDay, cost domain.CartEntry) domain.Reservation
	List() []domain.Reservation
}

type Carts interface {
	PreviewCost(userID int, table domain.Table) domain.CartEntry
	GetCart(userID int) (domain.CartEntry, bool)
	ClearCart(userID int)
}

type Auditor interface {
	LogCartPreview(ctx context.Context, userID int, entry domain.CartEntry) error
	LogReservation(ctx context.Context, r domain.Reservation) error
}

type Outbox interface {
	Enqueue(ctx context.Context, eventType string, aggregateID int, payload interface{}) error
}

type Service struct {
	catalog Catalog
	ledger  Ledger
	carts   Carts
	logger  observability.Logger

	// nil disables the side effect
	audit  Auditor
	outbox Outbox

	// mu makes the booked check, cart read and ledger append one step.
	mu sync.Mutex
}

type Option func(*Service)

func WithAuditor(a Auditor) Option {
	return func(s *Service) { s.audit = a }
}

func WithOutbox(o Outbox) Option {
	return func(s *Service) { s.outbox = o }
}

func NewService(catalog Catalog, ledger Ledger, carts Carts, logger observability.Logger, opts ...Option) *Service {
	s := &Service{catalog: catalog, ledger: ledger, carts: carts, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var tracer = otel.Tracer("reservation")

// SearchTable lists tables seating at least guests that are free at exactly
// date and at. Catalog order is kept.
func (s *Service) SearchTable(ctx context.Context, guests int, date domain.Date, at domain.TimeOfDay) []domain.Table {
	_, span := tracer.Start(ctx, "reservation.SearchTable")
	defer span.End()
	span.SetAttributes(
		attribute.Int("guests", guests),
		attribute.String("date", date.String()),
		attribute.String("time", at.String()),
	)

	suitable := s.catalog.CheckAvailability(guests)
	available := make([]domain.Table, 0, len(suitable))
	for _, t := range suitable {
		if !s.ledger.IsTableBooked(t.ID, date, at) {
			available = append(available, t)
		}
	}
	span.SetAttributes(attribute.Int("available", len(available)))
	return available
}

func (s *Service) PreviewReservationCost(ctx context.Context, userID, tableID int) (domain.CartEntry, error) {
	ctx, span := tracer.Start(ctx, "reservation.PreviewReservationCost")
	defer span.End()
	span.SetAttributes(attribute.Int("user_id", userID), attribute.Int("table_id", tableID))

	table, ok := s.catalog.FindByID(tableID)
	if !ok {
		err := errors.Wrapf(domain.ErrNotFound, "table %d", tableID)
		span.SetStatus(codes.Error, err.Error())
		return domain.CartEntry{}, err
	}

	s.mu.Lock()
	entry := s.carts.PreviewCost(userID, table)
	s.mu.Unlock()
	observability.CartPreviews.Inc()

	if s.audit != nil {
		if err := s.audit.LogCartPreview(ctx, userID, entry); err != nil {
			s.log(ctx).WithError(err).WithField("user_id", userID).Warn("audit cart preview failed")
		}
	}
	return entry, nil
}

func (s *Service) GetCart(ctx context.Context, userID int) (domain.CartEntry, bool) {
	return s.carts.GetCart(userID)
}

// ReserveTable commits the user's cart entry as a reservation for the slot
// and empties the cart. The slot must be free and the cart non-empty; on
// failure nothing is written.
func (s *Service) ReserveTable(ctx context.Context, userID, tableID int, date domain.Date, at domain.TimeOfDay) (domain.Reservation, error) {
	ctx, span := tracer.Start(ctx, "reservation.ReserveTable")
	defer span.End()
	span.SetAttributes(
		attribute.Int("user_id", userID),
		attribute.Int("table_id", tableID),
		attribute.String("date", date.String()),
		attribute.String("time", at.String()),
	)

	r, err := s.reserve(userID, tableID, date, at)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		observability.ReservationFailures.WithLabelValues(failureReason(err)).Inc()
		return domain.Reservation{}, err
	}
	observability.ReservationsCreated.Inc()
	span.SetAttributes(attribute.Int("reservation_id", r.ID))

	s.publish(ctx, r)
	return r, nil
}

func (s *Service) reserve(userID, tableID int, date domain.Date, at domain.TimeOfDay) (domain.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ledger.IsTableBooked(tableID, date, at) {
		return domain.Reservation{}, errors.Wrapf(domain.ErrConflict, "table %d at %s %s", tableID, date, at)
	}
	cost, ok := s.carts.GetCart(userID)
	if !ok {
		return domain.Reservation{}, errors.Wrapf(domain.ErrInvalidState, "user %d has an empty cart", userID)
	}

	r := s.ledger.CreateReservation(userID, tableID, date, at, cost)
	s.carts.ClearCart(userID)
	return r, nil
}

// publish runs after the reservation is committed; failures are only logged.
func (s *Service) publish(ctx context.Context, r domain.Reservation) {
	logger := s.log(ctx).WithField("reservation_id", r.ID)
	if s.outbox != nil {
		if err := s.outbox.Enqueue(ctx, EventReservationCreated, r.ID, r); err != nil {
			logger.WithError(err).Error("enqueue reservation event failed")
		}
	}
	if s.audit != nil {
		if err := s.audit.LogReservation(ctx, r); err != nil {
			logger.WithError(err).Warn("audit reservation failed")
		}
	}
	logger.Info("reservation created")
}

func (s *Service) Reservations(ctx context.Context) []domain.Reservation {
	return s.ledger.List()
}

func (s *Service) log(ctx context.Context) observability.Logger {
	return observability.LoggerFromContext(ctx, s.logger)
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	case errors.Is(err, domain.ErrInvalidState):
		return "empty_cart"
	default:
		return "other"
	}
}
