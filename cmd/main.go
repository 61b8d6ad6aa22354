package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bluespring/aqua-orders/internal/application"
	"github.com/bluespring/aqua-orders/internal/config"
	"github.com/bluespring/aqua-orders/internal/domain"
	"github.com/bluespring/aqua-orders/internal/kafka"
	"github.com/bluespring/aqua-orders/internal/logger"
	"github.com/bluespring/aqua-orders/internal/migrate"
	"github.com/bluespring/aqua-orders/internal/notify"
	"github.com/bluespring/aqua-orders/internal/presentation"
	"github.com/bluespring/aqua-orders/internal/repository"
	"github.com/bluespring/aqua-orders/internal/scheduler"
)

func main() {
	logger.Init()
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Warn("config load failed", "err", err)
		os.Exit(1)
	}

	// DB pool
	pool, err := pgxpool.New(context.Background(), cfg.DB_STRING)
	if err != nil {
		logger.Warn("pgxpool new failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(context.Background()); err != nil {
		logger.Warn("db ping failed", "err", err)
		os.Exit(1)
	}
	logger.Info("db connected")

	if err := migrate.Up(cfg.DB_STRING); err != nil {
		logger.Warn("migrations failed", "err", err)
		os.Exit(1)
	}

	// Wiring
	repo := repository.NewTrackingRepository(pool)

	mailer := notify.NewKafkaMailer(cfg.KAFKA_BROKERS, cfg.KAFKA_NOTIFY_TOPIC)
	defer mailer.Close()

	// svc and sched reference each other; the closure only runs once timers
	// fire, well after svc is assigned
	var svc *application.TrackingService
	sched := scheduler.New(scheduler.RealClock{}, repo,
		func(ctx context.Context, job domain.ScheduledTransition) error {
			return svc.AddOrderActivity(ctx, job.OrderID, job.Status, "")
		})
	defer sched.Close()

	svc = application.NewTrackingService(repo, mailer, sched, scheduler.RealClock{}, application.ScheduleDelays{
		PaymentConfirmed: cfg.DELAY_PAYMENT,
		Processing:       cfg.DELAY_PROCESSING,
		Shipped:          cfg.DELAY_SHIPPED,
		Delivered:        cfg.DELAY_DELIVERED,
	})

	// Warm the cache with the most recent orders
	if err := svc.RestoreCache(context.Background(), 1000); err != nil {
		logger.Warn("restore cache failed", "err", err)
	}

	// Re-arm transitions that were pending when the last process stopped
	if err := sched.Restore(context.Background()); err != nil {
		logger.Warn("restore scheduler failed", "err", err)
	}

	// Kafka consumer (payment confirmations create tracked orders)
	_, _ = kafka.StartConsumer(
		context.Background(),
		svc,
		kafka.ConsumerConfig{
			Brokers: cfg.KAFKA_BROKERS,
			Topic:   cfg.KAFKA_PAYMENT_TOPIC,
			GroupID: cfg.KAFKA_GROUP_ID,
		},
	)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// API
	h := presentation.NewTrackingHandler(svc)
	h.Register(r)

	// STATIC (web/index.html tracking page)
	presentation.MountStatic(r)

	addr := ":" + cfg.HTTP_PORT
	logger.Info("starting http", "addr", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		logger.Warn("http server crashed", "err", err)
		os.Exit(1)
	}
}
