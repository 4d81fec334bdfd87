// Package main starts the HTTP server of the Tejon store.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/carmonterr/tejon/internal/cloudinary"
	"github.com/carmonterr/tejon/internal/config"
	"github.com/carmonterr/tejon/internal/handler"
	"github.com/carmonterr/tejon/internal/mail"
	"github.com/carmonterr/tejon/internal/middleware"
	"github.com/carmonterr/tejon/internal/repository"
	"github.com/carmonterr/tejon/internal/service"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}
	defer repo.Close()

	mailer := mail.NewSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass)
	uploads := cloudinary.NewClient(cfg.CloudinaryName, cfg.CloudinaryKey, cfg.CloudinarySecret)

	svc := service.NewService(repo, mailer, uploads, logger, cfg.ClientURL)
	defer svc.Close()

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWTSecret, repo)
	h := handler.NewHandler(svc, authMiddleware, uploads, logger)

	server := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: h.Router(cfg.ClientURL),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Periodic removal of stale unverified accounts.
	g.Go(func() error {
		svc.StartCleanup(ctx, cfg.CleanupInterval)
		return nil
	})

	g.Go(func() error {
		sugar.Infow("starting tejon server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown on signal or on a failure in another goroutine.
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
