package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/cockroachdb/errors"
	mongoadapter "github.com/robertarktes/table-reservations/internal/adapters/mongo"
	"github.com/robertarktes/table-reservations/internal/config"
	"github.com/robertarktes/table-reservations/internal/domain"
	"github.com/robertarktes/table-reservations/internal/observability"
)

type ReservationService interface {
	SearchTable(ctx context.Context, guests int, date domain.Date, at domain.TimeOfDay) []domain.Table
	PreviewReservationCost(ctx context.Context, userID, tableID int) (domain.CartEntry, error)
	GetCart(ctx context.Context, userID int) (domain.CartEntry, bool)
	ReserveTable(ctx context.Context, userID, tableID int, date domain.Date, at domain.TimeOfDay) (domain.Reservation, error)
	Reservations(ctx context.Context) []domain.Reservation
}

type ReadinessCheck func(ctx context.Context) error

// AuditHistory is satisfied by the mongo audit logger.
type AuditHistory interface {
	History(ctx context.Context, userID int, limit int64) ([]mongoadapter.AuditLog, error)
}

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 500
)

type Handlers struct {
	cfg    *config.Config
	svc    ReservationService
	logger observability.Logger
	checks map[string]ReadinessCheck
	audit  AuditHistory
}

func NewHandlers(cfg *config.Config, svc ReservationService, logger observability.Logger) *Handlers {
	return &Handlers{
		cfg:    cfg,
		svc:    svc,
		logger: logger,
		checks: map[string]ReadinessCheck{},
	}
}

// AddReadinessCheck registers a dependency probed by /readyz.
func (h *Handlers) AddReadinessCheck(name string, check ReadinessCheck) {
	h.checks[name] = check
}

// SetAuditHistory enables GET /audit. Without it the route answers 503.
func (h *Handlers) SetAuditHistory(audit AuditHistory) {
	h.audit = audit
}

func (h *Handlers) SearchTables(w http.ResponseWriter, r *http.Request) {
	guests, err := queryInt(r, "guests")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	date, at, err := querySlot(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	tables := h.svc.SearchTable(r.Context(), guests, date, at)
	if tables == nil {
		tables = []domain.Table{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"available_tables": tables})
}

func (h *Handlers) PreviewCart(w http.ResponseWriter, r *http.Request) {
	userID, err := queryInt(r, "user_id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	tableID, err := queryInt(r, "table_id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	entry, err := h.svc.PreviewReservationCost(r.Context(), userID, tableID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"cart_preview": entry})
}

func (h *Handlers) GetCart(w http.ResponseWriter, r *http.Request) {
	userID, err := queryInt(r, "user_id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	entry, ok := h.svc.GetCart(r.Context(), userID)
	if !ok {
		writeJSON(w, http.StatusOK, map[string]interface{}{"message": "Cart is empty"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"cart": entry})
}

func (h *Handlers) ReserveTable(w http.ResponseWriter, r *http.Request) {
	userID, err := queryInt(r, "user_id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	tableID, err := queryInt(r, "table_id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	date, at, err := querySlot(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.svc.ReserveTable(r.Context(), userID, tableID, date, at)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Reservation successful",
		"data":    res,
	})
}

func (h *Handlers) ListReservations(w http.ResponseWriter, r *http.Request) {
	reservations := h.svc.Reservations(r.Context())
	if reservations == nil {
		reservations = []domain.Reservation{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"reservations": reservations})
}

func (h *Handlers) AuditHistory(w http.ResponseWriter, r *http.Request) {
	if h.audit == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"detail": "audit log not configured"})
		return
	}
	userID, err := queryInt(r, "user_id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	limit := defaultAuditLimit
	if r.URL.Query().Get("limit") != "" {
		if limit, err = queryInt(r, "limit"); err != nil {
			h.writeError(w, r, err)
			return
		}
		if limit < 1 || limit > maxAuditLimit {
			h.writeError(w, r, errors.Mark(errors.Newf("limit must be between 1 and %d", maxAuditLimit), domain.ErrInvalidInput))
			return
		}
	}

	entries, err := h.audit.History(r.Context(), userID, int64(limit))
	if err != nil {
		h.writeError(w, r, errors.Wrap(err, "audit history"))
		return
	}
	if entries == nil {
		entries = []mongoadapter.AuditLog{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"audit": entries})
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	for name, check := range h.checks {
		if err := check(r.Context()); err != nil {
			observability.LoggerFromContext(r.Context(), h.logger).WithError(err).WithField("dependency", name).Warn("readiness check failed")
			http.Error(w, name+" not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Ready"))
}

// writeError maps domain errors to statuses. Messages match the public API
// contract, so wrapped detail is only logged.
func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, detail := http.StatusInternalServerError, "internal error"
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		status, detail = http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, domain.ErrNotFound):
		status, detail = http.StatusNotFound, "Table not found"
	case errors.Is(err, domain.ErrConflict):
		status, detail = http.StatusBadRequest, "Table already booked"
	case errors.Is(err, domain.ErrInvalidState):
		status, detail = http.StatusBadRequest, "Cart is empty. Preview cost first."
	}

	logger := observability.LoggerFromContext(r.Context(), h.logger).WithError(err).WithField("status", status)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed")
	} else {
		logger.Debug("request rejected")
	}
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, errors.Mark(errors.Newf("missing query parameter %s", name), domain.ErrInvalidInput)
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.Mark(errors.Newf("query parameter %s must be an integer", name), domain.ErrInvalidInput)
	}
	return n, nil
}

func querySlot(r *http.Request) (domain.Date, domain.TimeOfDay, error) {
	q := r.URL.Query()
	if q.Get("date") == "" || q.Get("time") == "" {
		return domain.Date{}, domain.TimeOfDay{}, errors.Mark(errors.New("missing query parameter date or time"), domain.ErrInvalidInput)
	}
	date, err := domain.ParseDate(q.Get("date"))
	if err != nil {
		return domain.Date{}, domain.TimeOfDay{}, err
	}
	at, err := domain.ParseTimeOfDay(q.Get("time"))
	if err != nil {
		return domain.Date{}, domain.TimeOfDay{}, err
	}
	return date, at, nil
}
