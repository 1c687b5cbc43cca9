package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/bazaar-kiosk/api/internal/auth"
	"github.com/bazaar-kiosk/api/internal/config"
	"github.com/bazaar-kiosk/api/internal/database"
	"github.com/bazaar-kiosk/api/internal/events"
	"github.com/bazaar-kiosk/api/internal/jobs"
	"github.com/bazaar-kiosk/api/internal/numbering"
	"github.com/bazaar-kiosk/api/internal/router"
	"github.com/bazaar-kiosk/api/internal/service"
	"github.com/bazaar-kiosk/api/internal/ws"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	shutdownTimeout = 10 * time.Second
	eventQueueSize  = 1024
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.MigrationsDir != "" {
		if err := database.Migrate(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
			return err
		}
		log.Println("Migrations applied")
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	queries := database.New(pool)

	alloc, err := numbering.New(cfg.Numbering, func(db database.DBTX) numbering.Store { return database.New(db) }, cfg.Location)
	if err != nil {
		return err
	}

	hub := ws.NewHub()
	go hub.Run(ctx)

	notifiers := events.Multi{hub}
	if cfg.AMQPURL != "" {
		pub, err := events.DialAMQP(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			return fmt.Errorf("connect to broker: %w", err)
		}
		defer pub.Close()
		notifiers = append(notifiers, pub)
		log.Printf("Publishing order events to exchange %q", cfg.AMQPExchange)
	}

	// Observers are fed from a background queue, drained after the server stops.
	queue := events.NewQueue(notifiers, eventQueueSize)
	queueCtx, stopQueue := context.WithCancel(context.Background())
	go queue.Run(queueCtx)
	defer func() {
		stopQueue()
		<-queue.Done()
	}()

	orders := service.NewOrderService(pool,
		func(db database.DBTX) service.OrderStore { return database.New(db) },
		alloc,
		service.Options{
			TablePolicy: cfg.TablePolicy,
			Floors:      cfg.Floors,
			Notifier:    queue,
		})

	pins, err := auth.NewPinBook(cfg.RolePins)
	if err != nil {
		return err
	}

	if cfg.Numbering == numbering.StrategySequence && cfg.SequenceResetCron != "" {
		job := jobs.NewSequenceResetJob(queries, cfg.Floors, cfg.Location)
		if err := job.Start(cfg.SequenceResetCron); err != nil {
			return fmt.Errorf("sequence reset job: %w", err)
		}
		defer job.Stop()
		log.Printf("Sequence reset scheduled at %q (%s)", cfg.SequenceResetCron, cfg.Location)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.New(cfg, queries, orders, pins, hub),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting server on :%s (numbering=%s, floors=%v)", cfg.Port, cfg.Numbering, cfg.Floors)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Println("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
