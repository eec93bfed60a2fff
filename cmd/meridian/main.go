package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/meridian-erp/meridian/internal/accounting"
	"github.com/meridian-erp/meridian/internal/accounting/coa"
	"github.com/meridian-erp/meridian/internal/accounting/control"
	"github.com/meridian-erp/meridian/internal/accounting/dimensions"
	"github.com/meridian-erp/meridian/internal/accounting/fx"
	"github.com/meridian-erp/meridian/internal/accounting/journals"
	"github.com/meridian-erp/meridian/internal/accounting/periods"
	"github.com/meridian-erp/meridian/internal/accounting/reports"
	"github.com/meridian-erp/meridian/internal/app"
	"github.com/meridian-erp/meridian/internal/observability"
	"github.com/meridian-erp/meridian/internal/outbox"
	"github.com/meridian-erp/meridian/internal/platform/db"
	"github.com/meridian-erp/meridian/internal/shared"
	"github.com/meridian-erp/meridian/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping server startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	metrics := observability.NewMetrics()

	outboxRepo := outbox.NewRepository(pool)
	dimRepo := dimensions.NewRepository(pool)
	dimPublisher := outbox.NewDimensionPublisher(pool, outboxRepo)
	dimService := dimensions.NewService(dimRepo, dimPublisher)
	dimValidator := dimensions.NewValidator(dimRepo, dimensions.NewValidationMetrics(metrics.Registerer()))

	fxProvider := fx.NewProvider(fx.NewStore(pool))
	controlService := control.NewService(control.NewRepository(pool))
	auditLogger := shared.NewAuditLogger(pool)

	journalRepo := journals.NewRepository(pool, outboxRepo)
	journalService := journals.NewService(journalRepo, dimValidator, dimRepo, fxProvider, auditLogger)
	reportService := reports.NewService(reports.NewRepository(pool))

	accountingHandler := accounting.NewHandler(accounting.HandlerParams{
		Logger:     logger,
		Journals:   journalService,
		Reports:    reportService,
		Control:    controlService,
		Rates:      fxProvider,
		Dimensions: dimService,
		Policies:   dimValidator,
		Charts:     coa.NewRepository(pool),
		Periods:    periods.NewRepository(pool),
		Metrics:    metrics,
	})

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, jobClient, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		AccountingHandler: accountingHandler,
		JobHandler:        jobHandler,
		Metrics:           metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
