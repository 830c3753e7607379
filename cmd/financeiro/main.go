package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Vynetoob/Financeiro/internal/amqp"
	"github.com/Vynetoob/Financeiro/internal/config"
	apphttp "github.com/Vynetoob/Financeiro/internal/http"
	applog "github.com/Vynetoob/Financeiro/internal/log"
	"github.com/Vynetoob/Financeiro/internal/services"
	"github.com/Vynetoob/Financeiro/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.Config{Level: slog.LevelInfo, Component: applog.ComponentApp})
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err.Error())
		os.Exit(1)
	}

	// NewSQLiteRepository runs the embedded migrations before returning.
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to open SQLite repository", applog.FieldError, err.Error(), "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// The broker is optional for the API server: writes succeed without it,
	// they just will not be mirrored until the worker catches up.
	var amqpClient *amqp.Client
	if client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue); err != nil {
		logger.Warn("AMQP unavailable, ledger events will not be published", applog.FieldError, err.Error())
	} else {
		amqpClient = client
		defer amqpClient.Close()
	}

	deps := apphttp.Dependencies{
		Ledger:     services.NewLedgerService(repo, amqpClient),
		Joints:     services.NewJointService(repo, repo.Joints(), amqpClient),
		Mutations:  services.NewMutationService(repo, repo.Joints(), amqpClient),
		Cards:      services.NewCardService(repo.Cards(), repo, cfg.FutureInvoices),
		Categories: repo.Categories(),
		Profiles:   services.NewProfileService(repo.Profiles()),
		Logger:     logger,
	}

	srv := apphttp.NewServer(":"+cfg.Port, deps)
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err.Error())
		}
		cancel()
	}()

	logger.Info("Starting financeiro server", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", applog.FieldError, err.Error(), "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
