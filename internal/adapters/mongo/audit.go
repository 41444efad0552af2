package mongo

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/robertarktes/table-reservations/internal/domain"
	"github.com/robertarktes/table-reservations/internal/observability"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	ActionCartPreviewed      = "cart.previewed"
	ActionReservationCreated = "reservation.created"
)

type AuditLogger struct {
	coll   *mongo.Collection
	logger observability.Logger
	now    func() time.Time
}

func NewAuditLogger(db *mongo.Database, logger observability.Logger) *AuditLogger {
	return &AuditLogger{
		coll:   db.Collection("audit_logs"),
		logger: logger,
		now:    time.Now,
	}
}

type AuditLog struct {
	ID        string    `bson:"_id" json:"id"`
	Action    string    `bson:"action" json:"action"`
	UserID    int       `bson:"user_id" json:"user_id"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
	Data      bson.M    `bson:"data" json:"data"`
}

func (a *AuditLogger) LogEvent(ctx context.Context, action string, userID int, data bson.M) error {
	log := AuditLog{
		ID:        uuid.NewString(),
		Action:    action,
		UserID:    userID,
		Timestamp: a.now().UTC(),
		Data:      data,
	}
	_, err := a.coll.InsertOne(ctx, log)
	if err != nil {
		a.logger.WithError(err).WithField("action", action).Error("failed to insert audit log")
		return errors.Wrapf(err, "insert audit log %s", action)
	}
	return nil
}

func (a *AuditLogger) LogCartPreview(ctx context.Context, userID int, entry domain.CartEntry) error {
	return a.LogEvent(ctx, ActionCartPreviewed, userID, cartDoc(entry))
}

func (a *AuditLogger) LogReservation(ctx context.Context, r domain.Reservation) error {
	data := bson.M{
		"reservation_id": r.ID,
		"table_id":       r.TableID,
		"date":           r.Date.String(),
		"time":           r.Time.String(),
		"cost":           cartDoc(r.Cost),
	}
	return a.LogEvent(ctx, ActionReservationCreated, r.CustomerID, data)
}

// History returns the user's audit entries, newest first.
func (a *AuditLogger) History(ctx context.Context, userID int, limit int64) ([]AuditLog, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}).SetLimit(limit)
	cur, err := a.coll.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "find audit logs")
	}
	var logs []AuditLog
	if err := cur.All(ctx, &logs); err != nil {
		return nil, errors.Wrap(err, "decode audit logs")
	}
	return logs, nil
}

// Prices are stored as strings to keep decimal precision.
func cartDoc(entry domain.CartEntry) bson.M {
	return bson.M{
		"table_id":    entry.TableID,
		"table_price": entry.TablePrice.String(),
		"total_price": entry.TotalPrice.String(),
	}
}
