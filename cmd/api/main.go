package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	redisclient "github.com/redis/go-redis/v9"
	"github.com/robertarktes/table-reservations/internal/adapters/memory"
	mongoadapter "github.com/robertarktes/table-reservations/internal/adapters/mongo"
	"github.com/robertarktes/table-reservations/internal/adapters/rabbit"
	redisadapter "github.com/robertarktes/table-reservations/internal/adapters/redis"
	"github.com/robertarktes/table-reservations/internal/config"
	httphandler "github.com/robertarktes/table-reservations/internal/http"
	"github.com/robertarktes/table-reservations/internal/idempotency"
	"github.com/robertarktes/table-reservations/internal/observability"
	"github.com/robertarktes/table-reservations/internal/outbox"
	"github.com/robertarktes/table-reservations/internal/rateLimit"
	"github.com/robertarktes/table-reservations/internal/reservation"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdown, err := observability.SetupOTel(context.Background(), cfg, "tables-api")
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdown()

	logger := observability.NewLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.WithError(err).Error("api stopped with error")
		os.Exit(1)
	}
	logger.Info("Server exiting")
}

func run(ctx context.Context, cfg *config.Config, logger observability.Logger) error {
	var opts []reservation.Option
	var auditHistory httphandler.AuditHistory
	checks := map[string]httphandler.ReadinessCheck{}

	if cfg.MongoURI != "" {
		mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return errors.Wrap(err, "connect to mongo")
		}
		defer mongoClient.Disconnect(context.Background())
		audit := mongoadapter.NewAuditLogger(mongoClient.Database(cfg.MongoDatabase), logger)
		opts = append(opts, reservation.WithAuditor(audit))
		auditHistory = audit
		checks["mongo"] = func(ctx context.Context) error { return mongoClient.Ping(ctx, nil) }
	}

	var rl *rateLimit.RateLimiter
	var idemp *idempotency.Idempotency
	if cfg.RedisAddr != "" {
		redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()
		redisCache := redisadapter.NewCache(redisClient)
		rl = rateLimit.NewRateLimiter(redisCache)
		idemp = idempotency.NewIdempotency(redisadapter.NewIdempotency(redisClient), cfg.IdempotencyTTL)
		checks["redis"] = redisCache.Ping
	}

	var outboxPub *outbox.Publisher
	if cfg.RabbitURL != "" {
		rabbitConn, err := amqp.Dial(cfg.RabbitURL)
		if err != nil {
			return errors.Wrap(err, "connect to rabbitmq")
		}
		defer rabbitConn.Close()
		rabbitPub, err := rabbit.NewPublisher(rabbitConn)
		if err != nil {
			return errors.Wrap(err, "create publisher")
		}
		box := outbox.New()
		opts = append(opts, reservation.WithOutbox(box))
		outboxPub = outbox.NewPublisher(box, rabbitPub, logger, cfg.OutboxInterval, cfg.ShutdownTimeout)
	}

	svc := reservation.NewService(
		memory.NewCatalog(memory.DefaultTables()),
		memory.NewLedger(),
		memory.NewCartStore(),
		logger,
		opts...,
	)

	handlers := httphandler.NewHandlers(cfg, svc, logger)
	for name, check := range checks {
		handlers.AddReadinessCheck(name, check)
	}
	if auditHistory != nil {
		handlers.SetAuditHistory(auditHistory)
	}
	r := httphandler.SetupRouter(handlers, logger, rl, idemp)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.WithField("addr", cfg.HTTPAddr).Info("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return errors.Wrap(err, "listen")
		}
		return nil
	})
	if outboxPub != nil {
		g.Go(func() error { return outboxPub.Run(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown Server ...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
