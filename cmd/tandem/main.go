package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/calebwray/tandem/internal/config"
	"github.com/calebwray/tandem/internal/database"
	"github.com/calebwray/tandem/internal/logging"
	"github.com/calebwray/tandem/internal/server"
	"github.com/calebwray/tandem/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.LogLevel)

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		logger.Error("open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	srv := server.New(db, cfg.SessionTTL, cfg.SyncInterval, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go srv.SyncWorker().Run(ctx)
	go runMaintenance(ctx, srv, store.NewLinkCodeStore(db), logger)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("tandem listening", "port", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}

// runMaintenance sweeps expired sessions, link codes, and stale pending
// changes on an hourly cadence.
func runMaintenance(ctx context.Context, srv *server.Server, codes *store.LinkCodeStore, logger *slog.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := srv.SessionStore().DeleteExpired(); err != nil {
				logger.Warn("expire sessions", "error", err)
			} else if n > 0 {
				logger.Info("expired sessions", "count", n)
			}
			if n, err := codes.DeleteExpired(time.Now()); err != nil {
				logger.Warn("expire link codes", "error", err)
			} else if n > 0 {
				logger.Info("expired link codes", "count", n)
			}
			if n, err := srv.LinkService().ExpireStaleChanges(); err != nil {
				logger.Warn("expire stale changes", "error", err)
			} else if n > 0 {
				logger.Info("expired stale changes", "count", n)
			}
			srv.RateLimiter().Cleanup()
		}
	}
}
