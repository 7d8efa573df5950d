package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/reminderd/internal/channel/email"
	"github.com/jwalitptl/reminderd/internal/channel/push"
	"github.com/jwalitptl/reminderd/internal/config"
	healthhandler "github.com/jwalitptl/reminderd/internal/handler/health"
	"github.com/jwalitptl/reminderd/internal/handler/schedulerops"
	"github.com/jwalitptl/reminderd/internal/repository/postgres"
	"github.com/jwalitptl/reminderd/internal/router"
	"github.com/jwalitptl/reminderd/internal/scheduler"
	"github.com/jwalitptl/reminderd/internal/service/delivery"
	"github.com/jwalitptl/reminderd/internal/service/recurrence"
	"github.com/jwalitptl/reminderd/internal/service/scanner"
	"github.com/jwalitptl/reminderd/internal/worker"
	"github.com/jwalitptl/reminderd/pkg/logger"
	"github.com/jwalitptl/reminderd/pkg/messaging/redis"
	"github.com/jwalitptl/reminderd/pkg/metrics"
)

const (
	taskDueProcessing        = "due-processing"
	taskRecurrenceProcessing = "recurrence-processing"
	taskCleanup              = "cleanup"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	logg := logger.NewLogger(nil)

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		logg.Fatal(err, "Failed to connect to database")
	}
	defer db.Close()

	broker, err := redis.NewRedisBroker(cfg.Redis.ToBrokerConfig(), &logg.ZL)
	if err != nil {
		logg.Fatal(err, "Failed to create Redis broker")
	}
	defer broker.Close()

	m := metrics.New("reminderd")

	baseRepo := postgres.NewBaseRepository(db)
	reminderRepo := postgres.NewReminderRepository(baseRepo)
	userRepo := postgres.NewUserRepository(baseRepo)

	pushAdapter := push.New(push.Config{
		VAPIDPublicKey:  cfg.WebPush.VAPIDPublicKey,
		VAPIDPrivateKey: cfg.WebPush.VAPIDPrivateKey,
		Subscriber:      cfg.WebPush.Subscriber,
		RatePerSecond:   cfg.WebPush.RatePerSecond,
		RateBurst:       cfg.WebPush.RateBurst,
	}, logg)
	emailAdapter := email.New(email.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	}, logg)

	deliverySvc := delivery.NewService(reminderRepo, userRepo, pushAdapter, emailAdapter, broker, logg, m)
	dueScanner := scanner.New(reminderRepo)
	engine := recurrence.NewEngine()

	dueProcessor := worker.NewDueProcessor(dueScanner, deliverySvc, reminderRepo, worker.DueProcessorConfig{
		Concurrency: cfg.Scheduler.DeliveryConcurrency,
		ClaimTTL:    cfg.Scheduler.ClaimTTL,
	}, logg, m)
	recurrenceProcessor := worker.NewRecurrenceProcessor(reminderRepo, engine, broker, logg, m)
	cleanupWorker := worker.NewCleanupWorker(reminderRepo, worker.CleanupConfig{
		CompletedRetention: cfg.Scheduler.CompletedRetention,
		CancelledRetention: cfg.Scheduler.CancelledRetention,
	}, logg, m)

	sched := scheduler.New(logg, m)
	sched.Register(taskDueProcessing, cfg.Scheduler.DueInterval, dueProcessor.Run)
	sched.Register(taskRecurrenceProcessing, cfg.Scheduler.RecurrenceInterval, recurrenceProcessor.Run)
	sched.Register(taskCleanup, cfg.Scheduler.CleanupInterval, cleanupWorker.Run)

	r := router.NewRouter(
		healthhandler.NewHandler(db),
		schedulerops.NewHandler(sched),
		prometheus.DefaultGatherer,
	)
	r.Setup()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logg.Fatal(err, "Ops server failed")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched.Start(ctx)
	logg.Info("scheduler started",
		"due_interval", cfg.Scheduler.DueInterval.String(),
		"recurrence_interval", cfg.Scheduler.RecurrenceInterval.String(),
		"cleanup_interval", cfg.Scheduler.CleanupInterval.String())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logg.Info("shutting down")
	sched.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logg.Error(err, "failed to shut down ops server cleanly")
	}
}
