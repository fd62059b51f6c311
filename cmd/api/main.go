package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/tally/internal/config"
	"github.com/MrJamesThe3rd/tally/internal/database"
	tallyHttp "github.com/MrJamesThe3rd/tally/internal/http"
	"github.com/MrJamesThe3rd/tally/internal/http/auth"
	bankHandler "github.com/MrJamesThe3rd/tally/internal/http/bank"
	importHandler "github.com/MrJamesThe3rd/tally/internal/http/imports"
	mappingHandler "github.com/MrJamesThe3rd/tally/internal/http/mapping"
	txHandler "github.com/MrJamesThe3rd/tally/internal/http/transaction"
	"github.com/MrJamesThe3rd/tally/internal/importer/bank"
	"github.com/MrJamesThe3rd/tally/internal/importer/executor"
	"github.com/MrJamesThe3rd/tally/internal/mapping"
	mappingStore "github.com/MrJamesThe3rd/tally/internal/mapping/store"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
	txStore "github.com/MrJamesThe3rd/tally/internal/transaction/store"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := database.New(cfg.ConnectionString(), database.PoolOptions{
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
	})
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := database.Migrate(ctx, db); err != nil {
		slog.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	var (
		banks              = bank.Default()
		transactionService = transaction.NewService(txStore.New(db))
		mappingService     = mapping.NewService(mappingStore.New(db))
		importService      = executor.NewService(transactionService, banks, mappingService, cfg.Import.Workers)
	)

	var (
		bankH        = bankHandler.NewHandler(banks)
		importH      = importHandler.NewHandler(importService, cfg.Import.MaxUploadBytes)
		mappingH     = mappingHandler.NewHandler(mappingService)
		transactionH = txHandler.NewHandler(transactionService)
	)

	router := tallyHttp.New(
		cfg.CORS.AllowedOrigins,
		auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer),
		bankH,
		importH,
		mappingH,
		transactionH,
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.Timeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("failed to shut down server", "error", err)
		}
	}()

	slog.Info("starting server", "app", cfg.App.Name, "addr", srv.Addr)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
