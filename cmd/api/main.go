package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	httptransport "github.com/safe2go/support-import/internal/api/http"
	"github.com/safe2go/support-import/internal/api/http/handlers"
	"github.com/safe2go/support-import/internal/auth"
	"github.com/safe2go/support-import/internal/config"
	"github.com/safe2go/support-import/internal/domain"
	"github.com/safe2go/support-import/internal/events"
	"github.com/safe2go/support-import/internal/extraction"
	"github.com/safe2go/support-import/internal/observability"
	"github.com/safe2go/support-import/internal/ocr"
	"github.com/safe2go/support-import/internal/ocr/tesseract"
	"github.com/safe2go/support-import/internal/persistence"
	"github.com/safe2go/support-import/internal/repository"
	"github.com/safe2go/support-import/internal/service"
	"github.com/safe2go/support-import/internal/worker"
)

// multipart framing on top of the largest accepted image
const bodyOverhead = 1 << 20

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()
	if pg.PoolHandle() == nil {
		logger.Fatal("ticket store unavailable: POSTGRES_DSN is required")
	}

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	rules := extraction.DefaultRules()
	if cfg.Import.RulesPath != "" {
		if rules, err = extraction.LoadRules(cfg.Import.RulesPath); err != nil {
			logger.Fatal("failed to load extraction rules", zap.String("path", cfg.Import.RulesPath), zap.Error(err))
		}
		logger.Info("extraction rules loaded", zap.String("path", cfg.Import.RulesPath))
	}

	engine := tesseract.NewEngine(tesseract.Options{
		Languages:      cfg.OCR.Languages,
		PageSegMode:    cfg.OCR.PageSegMode,
		MaxConcurrency: cfg.OCR.MaxConcurrency,
	})
	recognizer := ocr.NewCachedRecognizer(engine, redis.Client, cfg.OCR.CacheTTL(), logger)

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	checks := []handlers.DependencyCheck{
		{Name: "postgres", Ping: pg.Ping},
		{Name: "redis", Optional: true, Ping: redis.Ping},
	}

	var forwarder *events.Forwarder
	if cfg.Nats.URL != "" {
		nc, err := nats.Connect(cfg.Nats.URL, nats.Name(cfg.App.Name))
		if err != nil {
			logger.Warn("nats unavailable; events stay local", zap.String("url", cfg.Nats.URL), zap.Error(err))
		} else {
			defer nc.Drain() //nolint:errcheck
			forwarder = events.NewForwarder(nc, cfg.Nats.SubjectPrefix)
			checks = append(checks, handlers.DependencyCheck{Name: "nats", Optional: true, Ping: func(context.Context) error {
				if !nc.IsConnected() {
					return nats.ErrConnectionClosed
				}
				return nil
			}})
			logger.Info("forwarding events to nats", zap.String("prefix", cfg.Nats.SubjectPrefix))
		}
	}
	notifications := service.NewNotificationService(forwarder, logger, cfg.Notification)
	notifier := worker.StartNotificationWorker(ctx, dispatcher, notifications, cfg.Notification, logger)

	pool := pg.PoolHandle()
	importService := service.NewImportService(service.ImportDependencies{
		Extractor:   extraction.New(rules),
		Recognizer:  recognizer,
		Languages:   cfg.OCR.Languages,
		TicketRepo:  repository.NewTicketRepository(pool),
		HistoryRepo: repository.NewTicketHistoryRepository(pool),
		SummaryRepo: repository.NewImportSummaryRepository(redis.Client, cfg.Import.SummaryTTL()),
		Dispatcher:  dispatcher,
		Metrics:     metrics,
		Logger:      logger,
	})

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret)
	authMiddleware := auth.NewAuthMiddleware(tokens)

	app := fiber.New(fiber.Config{
		AppName:   cfg.App.Name,
		BodyLimit: cfg.OCR.MaxImageBytes + bodyOverhead,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, cfg.OCR.Languages, checks...),
		Metrics:        handlers.NewMetricsHandler(metrics),
		Imports:        handlers.NewImportHandler(importService, cfg.OCR.MaxImageBytes),
		AuthMiddleware: authMiddleware,
		ImportRole:     domain.OperatorRole(cfg.Auth.ImportRole),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
	notifier.Stop()
	cancel()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
