package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	httptransport "github.com/spec-kit/grievance-service/internal/api/http"
	"github.com/spec-kit/grievance-service/internal/api/http/handlers"
	"github.com/spec-kit/grievance-service/internal/auth"
	"github.com/spec-kit/grievance-service/internal/cache"
	"github.com/spec-kit/grievance-service/internal/clock"
	"github.com/spec-kit/grievance-service/internal/config"
	"github.com/spec-kit/grievance-service/internal/events"
	"github.com/spec-kit/grievance-service/internal/lock"
	"github.com/spec-kit/grievance-service/internal/notify"
	"github.com/spec-kit/grievance-service/internal/observability"
	"github.com/spec-kit/grievance-service/internal/persistence"
	"github.com/spec-kit/grievance-service/internal/repository"
	"github.com/spec-kit/grievance-service/internal/repository/memory"
	"github.com/spec-kit/grievance-service/internal/service"
	"github.com/spec-kit/grievance-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App.Name)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, cfg.App.Name, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	var repos repository.Set
	if pg.Enabled() {
		repos = repository.NewPostgresSet(pg.PoolHandle())
	} else {
		repos = memory.NewStore().Set()
	}

	var locker lock.Locker = lock.NewLocal()
	if cfg.Lock.Backend == "redis" {
		if !redis.Reachable {
			logger.Fatal("LOCK_BACKEND=redis but redis is unreachable", zap.String("addr", cfg.Redis.Addr))
		}
		locker = lock.NewRedis(redis.Client, cfg.Lock.TTL(), logger.Named("lock"))
	}

	var analyticsCache cache.Cache = cache.Noop{}
	if redis.Reachable {
		analyticsCache = cache.NewRedis(redis.Client)
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(events.WithLogger(logger.Named("events")))
	coreDeps := service.CoreDependencies{
		Repos:        repos,
		Locker:       locker,
		Clock:        clock.Real{},
		Dispatcher:   dispatcher,
		Logger:       logger,
		StoreTimeout: cfg.App.StoreTimeout(),
	}

	policy := service.NewSLAPolicyService(coreDeps)
	assignment := service.NewAssignmentService(service.AssignmentDependencies{
		CoreDependencies: coreDeps,
		DefaultAssignee:  cfg.Assignment.DefaultAssignee,
	})
	tickets := service.NewTicketService(service.TicketDependencies{
		CoreDependencies: coreDeps,
		Policy:           policy,
		Assignment:       assignment,
		ReopenGrace:      cfg.Workflow.ReopenGrace(),
	})
	escalation := service.NewEscalationService(service.EscalationDependencies{
		CoreDependencies: coreDeps,
		Assignment:       assignment,
		Metrics:          metrics,
		MaxLevel:         cfg.Escalation.MaxLevel,
		CapAction:        cfg.Escalation.CapAction,
		ReassignOnSLA:    cfg.Escalation.ReassignOnSLA,
	})
	monitor := service.NewSLAMonitor(service.MonitorDependencies{
		CoreDependencies: coreDeps,
		Escalation:       escalation,
		Metrics:          metrics,
		Workers:          cfg.SLA.Workers,
		BatchSize:        cfg.SLA.BatchSize,
		TicketTimeout:    cfg.SLA.TicketTimeout(),
	})
	resolutions := service.NewResolutionService(coreDeps)
	surveys := service.NewSurveyService(service.SurveyDependencies{
		CoreDependencies: coreDeps,
		AutoSend:         cfg.Workflow.AutoSurvey,
	})
	feedback := service.NewAnonymousFeedbackService(service.AnonymousFeedbackDependencies{
		CoreDependencies: coreDeps,
		TokenPepper:      cfg.Anonymous.TokenPepper,
	})
	analytics := service.NewAnalyticsService(service.AnalyticsDependencies{
		CoreDependencies: coreDeps,
		Cache:            analyticsCache,
		CacheTTL:         cfg.Analytics.CacheTTL(),
	})

	notifier := notify.Multi{notify.NewLog(logger)}
	if cfg.Notification.EmailEnabled {
		notifier = append(notifier, notify.NewEmail(cfg.Notification))
	}
	if cfg.Notification.WebhookURL != "" {
		notifier = append(notifier, notify.NewWebhook(cfg.Notification.WebhookURL, cfg.Notification.Timeout()))
	}
	notifications := service.NewNotificationService(service.NotificationDependencies{
		Dispatcher:          dispatcher,
		Notifier:            notifier,
		Logger:              logger,
		Metrics:             metrics,
		EscalationRecipient: cfg.Notification.EscalationRecipient,
		CapRecipient:        cfg.Escalation.CapRecipient,
		Timeout:             cfg.Notification.Timeout(),
	})
	worker.StartNotificationWorker(dispatcher, notifications, surveys)

	scheduler := worker.NewSLAScheduler(monitor, logger, cfg.SLA.MonitorSchedule, cfg.SLA.TickTimeout())
	if cfg.SLA.MonitorEnabled {
		if err := scheduler.Start(); err != nil {
			logger.Fatal("failed to start sla monitor", zap.Error(err))
		}
	}

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes, auth.WithIssuer(cfg.Auth.JWTIssuer))

	app := httptransport.NewApp(cfg.App.Name, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version,
			handlers.Dependency{Name: "postgres", Check: pg, Optional: !pg.Enabled()},
			handlers.Dependency{Name: "redis", Check: redis, Optional: cfg.Lock.Backend != "redis"},
		),
		Tickets:        handlers.NewTicketsHandler(tickets),
		Workflow:       handlers.NewWorkflowHandler(resolutions, surveys),
		Escalation:     handlers.NewEscalationHandler(escalation, scheduler),
		Policy:         handlers.NewPolicyHandler(policy, assignment),
		Feedback:       handlers.NewFeedbackHandler(feedback),
		Analytics:      handlers.NewAnalyticsHandler(analytics),
		Metrics:        metrics,
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
	})

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := scheduler.Stop(shutdownCtx); err != nil {
		logger.Warn("sla monitor did not stop cleanly", zap.Error(err))
	}
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	notifications.Wait()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
