package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"khata/internal/config"
	"khata/internal/events"
	apphttp "khata/internal/http"
	applog "khata/internal/log"
	"khata/internal/receipts"
	"khata/internal/services"
	"khata/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", applog.FieldError, err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.WithComponent(applog.ComponentStorage).
			Error("Failed to open database", applog.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	receiptStore, err := receipts.NewStore(cfg.ReceiptsDir)
	if err != nil {
		logger.WithComponent(applog.ComponentReceipts).
			Error("Failed to open receipt store", applog.FieldError, err, "dir", cfg.ReceiptsDir)
		os.Exit(1)
	}

	// Event publishing is optional: without an AMQP URL the services run
	// with a disabled publisher.
	var publisher services.EventPublisher
	if cfg.AMQPURL != "" {
		client, err := events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.WithComponent(applog.ComponentEvents).
				Error("Failed to connect to AMQP", applog.FieldError, err)
			os.Exit(1)
		}
		defer client.Close()
		publisher = client
		logger.WithComponent(applog.ComponentEvents).
			Info("Event publishing enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	}

	contactService := services.NewContactService(repo, publisher)
	transactionService := services.NewTransactionService(repo, receiptStore, publisher)
	reportingService := services.NewReportingService(repo)

	srv := apphttp.NewServer(":"+cfg.Port, contactService, transactionService, reportingService, cfg.ReceiptsDir)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting server", "port", cfg.Port, "db", cfg.SQLiteDBPath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
