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

	"go.uber.org/zap"

	"github.com/mamadbah2/bakery/internal/config"
	"github.com/mamadbah2/bakery/internal/metrics"
	"github.com/mamadbah2/bakery/internal/repository"
	"github.com/mamadbah2/bakery/internal/repository/memory"
	"github.com/mamadbah2/bakery/internal/repository/mongodb"
	"github.com/mamadbah2/bakery/internal/repository/postgres"
	"github.com/mamadbah2/bakery/internal/repository/sheets"
	"github.com/mamadbah2/bakery/internal/repository/supabase"
	"github.com/mamadbah2/bakery/internal/scheduler"
	"github.com/mamadbah2/bakery/internal/server/handlers"
	"github.com/mamadbah2/bakery/internal/server/router"
	analyticssvc "github.com/mamadbah2/bakery/internal/service/analytics"
	bakerysvc "github.com/mamadbah2/bakery/internal/service/bakery"
	commandsvc "github.com/mamadbah2/bakery/internal/service/commands"
	"github.com/mamadbah2/bakery/internal/service/reconciliation"
	reportingsvc "github.com/mamadbah2/bakery/internal/service/reporting"
	whatsappsvc "github.com/mamadbah2/bakery/internal/service/whatsapp"
	"github.com/mamadbah2/bakery/pkg/clients/anthropic"
	whatsappclient "github.com/mamadbah2/bakery/pkg/clients/whatsapp"
	"github.com/mamadbah2/bakery/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.NewWithLevel(cfg.Log.Level))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	loc, err := cfg.Location()
	if err != nil {
		baseLogger.Fatal("invalid timezone", zap.Error(err))
	}
	pricing, err := reconciliation.ParsePricingPolicy(cfg.Reporting.PricingPolicy)
	if err != nil {
		baseLogger.Fatal("invalid pricing policy", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, baseLogger)
	if err != nil {
		baseLogger.Fatal("failed to init store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	defer closeStore()

	reg := metrics.NewRegistry()

	bakery := bakerysvc.NewService(store, baseLogger,
		bakerysvc.WithLocation(loc),
		bakerysvc.WithPricing(pricing),
		bakerysvc.WithFetchTimeout(cfg.Store.FetchTimeout),
		bakerysvc.WithMetrics(reg),
	)
	analytics := analyticssvc.NewService(bakery, pricing, baseLogger)

	reportOpts := []reportingsvc.Option{reportingsvc.WithMetrics(reg)}

	var mongoRepo *mongodb.MongoDBRepository
	if cfg.MongoDB.Enabled() {
		mongoRepo, err = mongodb.NewMongoDBRepository(ctx, cfg.MongoDB.URI, cfg.MongoDB.DBName)
		if err != nil {
			baseLogger.Fatal("failed to init mongodb repository", zap.Error(err))
		}
		defer func() {
			if err := mongoRepo.Close(context.Background()); err != nil {
				baseLogger.Error("failed to close mongodb connection", zap.Error(err))
			}
		}()
		reportOpts = append(reportOpts, reportingsvc.WithArchive(mongoRepo))
	} else {
		baseLogger.Warn("mongodb not configured, digests will not be archived")
	}

	if cfg.Sheets.Enabled() {
		sheetsRepo, err := sheets.NewGoogleSheetRepository(ctx, cfg.Sheets, baseLogger)
		if err != nil {
			baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
		}
		reportOpts = append(reportOpts, reportingsvc.WithSheet(sheetsRepo))
	}

	var webhookHandler *handlers.WebhookHandler
	if cfg.WhatsApp.Enabled() {
		commandDispatcher := commandsvc.NewService(bakery, baseLogger)
		whatsClient := whatsappclient.NewClient(cfg.WhatsApp)
		var waOpts []whatsappsvc.Option
		if cfg.AI.Enabled() {
			waOpts = append(waOpts, whatsappsvc.WithTranslator(anthropic.NewClient(cfg.AI)))
			baseLogger.Info("free-text command translation enabled", zap.String("model", cfg.AI.Model))
		}
		messagingSvc := whatsappsvc.NewMetaWhatsAppService(cfg.WhatsApp, whatsClient, commandDispatcher, baseLogger, waOpts...)
		webhookHandler = handlers.NewWebhookHandler(messagingSvc, baseLogger.Named("handlers.whatsapp"))
		reportOpts = append(reportOpts, reportingsvc.WithNotifier(messagingSvc, cfg.Reporting.Recipient))
	} else {
		baseLogger.Warn("whatsapp not configured, chat commands disabled")
	}

	reporting := reportingsvc.NewService(bakery, baseLogger, reportOpts...)

	bakeryHandler := handlers.NewBakeryHandler(bakery, analytics, reporting, baseLogger.Named("handlers.bakery"))
	if mongoRepo != nil {
		bakeryHandler.SetArchive(mongoRepo)
	}

	engine := router.New(router.Handlers{
		Bakery:  bakeryHandler,
		Webhook: webhookHandler,
		Metrics: reg.Handler(),
	}, baseLogger.Named("router"))

	sched := scheduler.NewScheduler(cfg.Reporting.CronSchedule, loc, reporting, baseLogger)
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		baseLogger.Info("server starting",
			zap.String("port", cfg.Server.Port),
			zap.String("store", cfg.Store.Driver),
			zap.String("timezone", loc.String()),
			zap.String("pricing", string(pricing)),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// openStore selects the collaborator store named by STORE_DRIVER.
func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (repository.Store, func(), error) {
	noop := func() {}

	switch cfg.Store.Driver {
	case config.DriverMemory:
		log.Warn("using in-memory store, data is lost on restart")
		return memory.New(), noop, nil
	case config.DriverSupabase:
		return supabase.NewStore(cfg.Supabase, log), noop, nil
	case config.DriverPostgres:
		if cfg.Database.MigrateOnStart {
			if err := postgres.Migrate(ctx, cfg.Database.URL, log.Named("repo.migrate")); err != nil {
				return nil, nil, err
			}
		}
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		return postgres.NewStore(pool, log), pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}
}
