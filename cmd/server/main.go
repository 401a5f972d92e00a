package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/mamadbah2/pondwatch/internal/aggregate"
	"github.com/mamadbah2/pondwatch/internal/config"
	"github.com/mamadbah2/pondwatch/internal/instrumentation"
	"github.com/mamadbah2/pondwatch/internal/realtime"
	"github.com/mamadbah2/pondwatch/internal/realtime/redisfeed"
	"github.com/mamadbah2/pondwatch/internal/repository"
	"github.com/mamadbah2/pondwatch/internal/repository/mongodb"
	"github.com/mamadbah2/pondwatch/internal/repository/sheets"
	"github.com/mamadbah2/pondwatch/internal/scheduler"
	"github.com/mamadbah2/pondwatch/internal/server/handlers"
	"github.com/mamadbah2/pondwatch/internal/server/router"
	"github.com/mamadbah2/pondwatch/internal/service/analysis"
	"github.com/mamadbah2/pondwatch/internal/service/commands"
	reportingsvc "github.com/mamadbah2/pondwatch/internal/service/reporting"
	whatsappsvc "github.com/mamadbah2/pondwatch/internal/service/whatsapp"
	"github.com/mamadbah2/pondwatch/internal/view"
	"github.com/mamadbah2/pondwatch/pkg/clients/anthropic"
	whatsappclient "github.com/mamadbah2/pondwatch/pkg/clients/whatsapp"
	"github.com/mamadbah2/pondwatch/pkg/logger"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Server.LogLevel))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	loc, err := cfg.Reporting.Location()
	if err != nil {
		baseLogger.Fatal("invalid timezone", zap.Error(err))
	}
	prices := aggregate.Prices{FishPerKg: cfg.Pricing.FishPerKg, FeedPerKg: cfg.Pricing.FeedPerKg}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := instrumentation.NewMetrics(reg)

	mongoRepo, err := mongodb.NewMongoDBRepository(context.Background(), cfg.MongoDB.URI, cfg.MongoDB.DBName, cfg.MongoDB.Timeout, baseLogger.Named("repo.mongodb"))
	if err != nil {
		baseLogger.Fatal("failed to init mongodb repository", zap.Error(err))
	}
	defer func() {
		if err := mongoRepo.Close(context.Background()); err != nil {
			baseLogger.Error("failed to close mongodb connection", zap.Error(err))
		}
	}()

	notifier, publisher, closeFeed := changeFeed(cfg.Realtime, mongoRepo, baseLogger)
	defer closeFeed()
	store := repository.NewNotifyingStore(mongoRepo, publisher, baseLogger.Named("repo.notify"))

	registry := view.NewRegistry(view.Options{
		Store:    mongoRepo,
		Notifier: notifier,
		Intervals: map[view.Kind]time.Duration{
			view.KindDashboard:    cfg.Views.PollDashboard,
			view.KindFeeding:      cfg.Views.PollFeeding,
			view.KindHealth:       cfg.Views.PollHealth,
			view.KindWaterQuality: cfg.Views.PollWaterQuality,
			view.KindAdmin:        cfg.Views.PollAdmin,
		},
		Prices:   prices,
		Location: loc,
		Logger:   baseLogger,
		Metrics:  metrics,
	}, cfg.Views.IdleTimeout)
	defer registry.Close()

	var aiClient anthropic.Client
	if cfg.AI.AnthropicKey != "" {
		aiClient = anthropic.NewClient(anthropic.Config{APIKey: cfg.AI.AnthropicKey, Model: cfg.AI.Model})
		baseLogger.Info("anthropic ai client enabled", zap.String("model", cfg.AI.Model))
	} else {
		baseLogger.Warn("anthropic api key missing, analysis and assistant disabled")
	}
	analysisSvc := analysis.NewService(aiClient, metrics, baseLogger.Named("svc.analysis"))

	var (
		webhookHandler *handlers.WebhookHandler
		sender         reportingsvc.Sender
	)
	if cfg.WhatsApp.Enabled() {
		messagingSvc := whatsappsvc.NewMetaWhatsAppService(whatsappsvc.Options{
			Config:    cfg.WhatsApp,
			Client:    whatsappclient.NewClient(cfg.WhatsApp),
			Store:     mongoRepo,
			Assistant: analysisSvc,
			Commands:  commands.NewService(store, nil, baseLogger.Named("svc.commands")),
			Sessions:  whatsappsvc.NewSessionManager(whatsappsvc.DefaultMaxHistory),
			Prices:    prices,
			Location:  loc,
			Logger:    baseLogger.Named("svc.whatsapp"),
		})
		webhookHandler = handlers.NewWebhookHandler(messagingSvc, baseLogger.Named("handlers.whatsapp"))
		sender = messagingSvc
	} else {
		baseLogger.Warn("whatsapp credentials missing, webhook and report delivery disabled")
	}

	var sheetsRepo sheets.Repository
	if cfg.Sheets.Enabled() {
		repo, err := sheets.NewGoogleSheetRepository(context.Background(), cfg.Sheets, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
		}
		sheetsRepo = repo
	}

	reportingSvc := reportingsvc.NewService(reportingsvc.Options{
		Store:    mongoRepo,
		Sheets:   sheetsRepo,
		Sender:   sender,
		Prices:   prices,
		Location: loc,
		Logger:   baseLogger.Named("svc.reporting"),
	})

	sched := scheduler.NewScheduler(cfg.Reporting.CronSchedule, loc, reportingSvc, registry, baseLogger.Named("scheduler"))
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	records := handlers.NewRecordsHandler(store, nil, baseLogger.Named("handlers.records"))
	engine := router.New(router.Deps{
		Profiles: mongoRepo,
		Records:  records,
		Views:    handlers.NewViewHandler(registry, baseLogger.Named("handlers.views")),
		Analysis: handlers.NewAnalysisHandler(records, analysisSvc, prices, loc, baseLogger.Named("handlers.analysis")),
		Webhook:  webhookHandler,
		Gatherer: reg,
	}, baseLogger.Named("router"))

	// No WriteTimeout: snapshot streams stay open.
	srv := &http.Server{
		Addr:        ":" + cfg.Server.Port,
		Handler:     engine,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port), zap.String("realtime", cfg.Realtime.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	// Streams end when their views close.
	registry.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// changeFeed picks the transport views subscribe to and writes announce on.
func changeFeed(cfg config.RealtimeConfig, repo *mongodb.MongoDBRepository, logger *zap.Logger) (realtime.Notifier, realtime.Publisher, func()) {
	switch cfg.Driver {
	case config.RealtimeRedis:
		feed, err := redisfeed.New(context.Background(), cfg.RedisURL, cfg.RedisPassword, logger.Named("realtime.redis"))
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		return feed, feed, func() { _ = feed.Close() }
	case config.RealtimeLocal:
		hub := realtime.NewHub()
		return hub, hub, func() {}
	default:
		// Change streams see every write, ours included.
		return mongodb.NewChangeStreams(repo), realtime.NopPublisher{}, func() {}
	}
}
