package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"taichinh/internal/backend"
	"taichinh/internal/cache"
	"taichinh/internal/cli"
	apphttp "taichinh/internal/http"
	applog "taichinh/internal/log"
	"taichinh/internal/services"
	"taichinh/internal/session"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err, applog.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := res.Close(); err != nil {
			logger.Error("Backend cleanup failed", applog.FieldError, err)
		}
	}()

	accountList := cfg.DemoAccounts
	if accountList == "" {
		logger.Warn("DEMO_ACCOUNTS not set, using built-in demo accounts")
		accountList = session.DefaultDemoAccounts
	}
	accounts, err := session.ParseAccounts(accountList)
	if err != nil {
		logger.Error("Invalid DEMO_ACCOUNTS", applog.FieldError, err)
		os.Exit(1)
	}
	var store session.Store = session.NewMemoryStore()
	if res.Sessions != nil {
		store = res.Sessions
	}
	sessions := session.NewManager(accounts, store, cfg.SessionSecret, cfg.SessionTTL)

	reports := services.NewReportService(res.Backend, services.ReportServiceConfig{
		Location: cfg.Location(),
		CacheTTL: cfg.ReportCacheTTL,
	}, logger)

	caches := cache.NewManager(logger)
	caches.Register(reports.Cache())
	caches.StartCleanup(time.Minute)
	defer caches.Stop()

	opts := apphttp.Options{
		Reports:       reports,
		Sessions:      sessions,
		Logger:        logger,
		SecureCookies: cfg.CookieSecure,
	}
	if syncer, ok := res.Backend.(backend.SyncRequester); ok {
		opts.Syncer = syncer
	}
	if pinger, ok := res.Backend.(apphttp.Pinger); ok {
		opts.Ready = pinger
	}
	srv := apphttp.NewServer(":"+cfg.Port, opts)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting taichinh server", "port", cfg.Port, applog.FieldBackend, cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := sessions.RunExpirySweep(gctx, 10*time.Minute, logger); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
