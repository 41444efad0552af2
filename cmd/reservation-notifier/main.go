package main

import (
	"context"
	"encoding/json"
	"log"
	"os/signal"
	"syscall"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/robertarktes/table-reservations/internal/adapters/rabbit"
	"github.com/robertarktes/table-reservations/internal/config"
	"github.com/robertarktes/table-reservations/internal/domain"
	"github.com/robertarktes/table-reservations/internal/observability"
)

const (
	queueName      = "reservations.notify"
	routingPattern = "reservation.*"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.RabbitURL == "" {
		log.Fatal("RABBIT_URL is required")
	}

	shutdownOtel, err := observability.SetupOTel(context.Background(), cfg, "tables-notifier")
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdownOtel()

	logger := observability.NewLogger(cfg.LogLevel)

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer conn.Close()
	consumer, err := rabbit.NewConsumer(conn, queueName, routingPattern)
	if err != nil {
		log.Fatalf("failed to create consumer: %v", err)
	}
	defer consumer.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	deliveries, err := consumer.Consume(ctx)
	if err != nil {
		log.Fatalf("failed to consume: %v", err)
	}

	notifier := NewNotifier(logger)
	notifier.Run(ctx, deliveries)
	logger.Info("Shutdown reservation notifier")
}

type Acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

type Notifier struct {
	logger observability.Logger
}

func NewNotifier(logger observability.Logger) *Notifier {
	return &Notifier{logger: logger}
}

func (n *Notifier) Run(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				n.logger.Warn("delivery channel closed")
				return
			}
			n.Handle(d.RoutingKey, d.MessageId, d.Body, &d)
		}
	}
}

// Handle logs one reservation event. Payloads that do not decode are dropped
// rather than requeued, since redelivery would fail the same way.
func (n *Notifier) Handle(routingKey, messageID string, body []byte, ack Acknowledger) {
	logger := n.logger.WithField("routing_key", routingKey).WithField("message_id", messageID)

	var r domain.Reservation
	if err := json.Unmarshal(body, &r); err != nil {
		logger.WithError(err).Error("malformed reservation event")
		if err := ack.Nack(false, false); err != nil {
			logger.WithError(err).Error("nack failed")
		}
		return
	}

	logger.WithField("reservation_id", r.ID).
		WithField("customer_id", r.CustomerID).
		WithField("table_id", r.TableID).
		WithField("slot", r.Date.String()+" "+r.Time.String()).
		WithField("total", r.Cost.TotalPrice.String()).
		Info("reservation confirmed")
	if err := ack.Ack(false); err != nil {
		logger.WithError(err).Error("ack failed")
	}
}
