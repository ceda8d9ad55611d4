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

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/MrJamesThe3rd/gastos/internal/bootstrap"
	"github.com/MrJamesThe3rd/gastos/internal/config"
	"github.com/MrJamesThe3rd/gastos/internal/export"
	gastosHttp "github.com/MrJamesThe3rd/gastos/internal/http"
	"github.com/MrJamesThe3rd/gastos/internal/http/auth"
	expenseHandler "github.com/MrJamesThe3rd/gastos/internal/http/expense"
	householdHandler "github.com/MrJamesThe3rd/gastos/internal/http/household"
	"github.com/MrJamesThe3rd/gastos/internal/importer"
	"github.com/MrJamesThe3rd/gastos/internal/localcache"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := bootstrap.Logger(cfg, os.Stderr)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	var (
		importService = importer.NewService(logger)
		exportService = export.NewService(cfg.App.Locale)
	)

	var (
		ledgers    expenseHandler.LedgerProvider
		householdH *householdHandler.Handler
		verifier   *auth.Verifier
	)

	if cfg.Auth.JWTSecret != "" {
		verifier = auth.NewVerifier(cfg.Auth.JWTSecret)
	}

	switch cfg.App.Mode {
	case config.ModeRemote:
		remote, err := bootstrap.OpenRemote(ctx, cfg, logger)
		if err != nil {
			return fmt.Errorf("opening remote store: %w", err)
		}
		defer remote.Close()

		ledgers = expenseHandler.NewSessions(remote.Households, remote.Sessions)
		householdH = householdHandler.NewHandler(remote.Households)
	default:
		book, closeBook, err := bootstrap.OpenLocalBook(ctx, cfg, localcache.NewHub(), logger)
		if err != nil {
			return err
		}
		defer closeBook()

		ledgers = expenseHandler.Static{L: book}
	}

	expenseH := expenseHandler.NewHandler(ledgers, importService, exportService)

	router := gastosHttp.New(gastosHttp.Options{
		Verifier:       verifier,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, expenseH, householdH)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting server", "app", cfg.App.Name, "port", srv.Addr, "mode", cfg.App.Mode)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.Timeout)
		defer cancel()

		logger.Info("shutting down server")

		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
