package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ukydev/freight-dispatch/internal/app"
	"github.com/ukydev/freight-dispatch/internal/auth"
	"github.com/ukydev/freight-dispatch/internal/config"
	"github.com/ukydev/freight-dispatch/internal/dispatch"
	"github.com/ukydev/freight-dispatch/internal/handlers"
	"github.com/ukydev/freight-dispatch/internal/reports"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}
	cfg.ConfigureLogging()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.WithError(err).Fatal("Server stopped with error")
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	rt, err := app.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := rt.Close(closeCtx); err != nil {
			log.WithError(err).Warn("Failed to close backends")
		}
	}()

	handler, err := newHandler(ctx, cfg, rt)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithFields(log.Fields{"port": cfg.Port, "env": cfg.AppEnv}).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// newHandler builds the services and the router, creating the administrator
// account when a password is configured.
func newHandler(ctx context.Context, cfg *config.Config, rt *app.Runtime) (http.Handler, error) {
	authService, err := auth.NewService(cfg.JWTSecret, cfg.JWTExpiry)
	if err != nil {
		return nil, err
	}
	if cfg.AdminPassword != "" {
		if err := authService.EnsureAdmin(ctx, rt.Store.Users, cfg.AdminUsername, cfg.AdminPassword); err != nil {
			return nil, err
		}
	} else {
		log.Warn("ADMIN_PASSWORD not set; no administrator account is bootstrapped")
	}

	return handlers.NewRouter(handlers.RouterConfig{
		Store:       &rt.Store,
		Auth:        authService,
		Dispatch:    dispatch.NewService(&rt.Store, rt.Orders, rt.Notifier),
		Reports:     reports.NewService(&rt.Store, time.Now),
		Production:  cfg.IsProduction(),
		RateLimit:   cfg.RateLimitRequests,
		RateWindow:  cfg.RateLimitWindow,
		HandlerTime: cfg.WriteTimeout,
	}), nil
}
