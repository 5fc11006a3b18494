package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"planos/internal/auth"
	"planos/internal/config"
	"planos/internal/goals"
	transporthttp "planos/internal/http"
	"planos/internal/importer"
	"planos/internal/metrics"
	"planos/internal/platform/logging"
	"planos/internal/session"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the web application",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
}

func serve(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.New(cfg.LogLevel)

	st, err := buildStores(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize repository", "error", err)
		return err
	}
	defer st.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)

	userSvc := auth.NewService(st.users)
	goalSvc := goals.NewService(st.goals)

	var authenticator transporthttp.Authenticator
	if cfg.HasOAuthCredentials() {
		authenticator = auth.NewGoogleAuthenticator(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL, cfg.GoogleAllowedDomains, cfg.GoogleAllowedEmails)
	}
	entry := transporthttp.NewEntryController(cfg, authenticator, userSvc, collector, logger)
	if entry.OAuthAvailable() {
		logger.Info("google sign-in enabled", "redirect_url", cfg.GoogleRedirectURL)
	} else {
		logger.Warn("google sign-in unavailable; every visitor shares the guest account")
	}

	limiter := transporthttp.NewRateLimiter(transporthttp.DefaultRateLimitConfig(), logger)
	defer limiter.Stop()
	sessions := session.NewManager(cfg.SessionIdleTimeout, !cfg.IsDevelopment(), logger)
	defer sessions.Stop()

	router, err := transporthttp.NewRouter(cfg, transporthttp.Dependencies{
		Sessions:    sessions,
		Entry:       entry,
		Goals:       goalSvc,
		Importer:    importer.NewCSVImporter(goalSvc),
		RateLimiter: limiter,
		Metrics:     collector,
		Gatherer:    registry,
	}, logger)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    http.DefaultMaxHeaderBytes,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Planos listening", "addr", srv.Addr, "store", cfg.DataStore)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", "error", err)
		return err
	}
	return nil
}
