package main

import (
	"budgetwise/internal/cli"
	"budgetwise/internal/export"
	apphttp "budgetwise/internal/http"
	"budgetwise/internal/log"
	"budgetwise/internal/services"
	"context"
	"errors"
	"net/http"
	"os"
	"time"
)

func main() {
	cfg, logger := cli.MustLoad(log.ComponentApp)

	ctx, stop := cli.SignalContext()
	defer stop()

	res, err := cli.CreateBackend(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := res.Close(); err != nil {
			logger.Warn("Backend cleanup failed", "error", err)
		}
	}()

	calendar := services.NewBillCalendar(res.Backend, res.Backend, res.Publisher)
	portfolio := services.NewPortfolioService(res.Backend, res.Backend, res.Backend, services.NewSimulator())

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Calendar:  calendar,
		Portfolio: portfolio,
		Reports:   export.NewService(calendar, portfolio, nil),
		Logger:    logger.WithComponent(log.ComponentHTTP),
		Ready:     res.Ping,
	}, apphttp.Options{
		RateLimit: cfg.HTTPRateLimit,
		RateBurst: cfg.HTTPRateBurst,
	})

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	}()

	logger.Info("Starting budgetwise server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"events", res.Publisher != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
