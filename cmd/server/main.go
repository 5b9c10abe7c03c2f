package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"space-notes-backend/pkg/config"
	"space-notes-backend/pkg/database"
	"space-notes-backend/pkg/server"
	"space-notes-backend/pkg/utils"

	"go.uber.org/zap"
)

func main() {
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger, err := utils.NewLogger(cfg.LogLevel, cfg.IsProduction())
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	deps, err := server.BuildDeps(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("startup failed", zap.Error(err))
	}
	defer deps.Close()

	if pg, ok := deps.DB.(*database.PostgresDatabase); ok {
		if err := pg.Migrate(ctx); err != nil {
			logger.Fatal("schema migration failed", zap.Error(err))
		}
	}
	deps.StartBackground(ctx)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server starting",
			zap.String("addr", srv.Addr),
			zap.String("environment", cfg.Environment),
			zap.String("otp_mode", cfg.OTPMode))
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("shutting down gracefully")
		// stop background loops first so streams see their relay end
		stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", zap.Error(err))
		}
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}

	if err := deps.DB.Close(); err != nil {
		logger.Warn("database close failed", zap.Error(err))
	}
}
