package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/support-engine/internal/api/http"
	"github.com/spec-kit/support-engine/internal/api/http/handlers"
	"github.com/spec-kit/support-engine/internal/auth"
	"github.com/spec-kit/support-engine/internal/config"
	"github.com/spec-kit/support-engine/internal/domain"
	"github.com/spec-kit/support-engine/internal/escalation"
	"github.com/spec-kit/support-engine/internal/events"
	"github.com/spec-kit/support-engine/internal/observability"
	"github.com/spec-kit/support-engine/internal/persistence"
	"github.com/spec-kit/support-engine/internal/repository"
	"github.com/spec-kit/support-engine/internal/routing"
	"github.com/spec-kit/support-engine/internal/sentiment"
	"github.com/spec-kit/support-engine/internal/service"
	"github.com/spec-kit/support-engine/internal/sla"
	"github.com/spec-kit/support-engine/internal/worker"
)

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

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	agentRepo := repository.NewAgentRepository(pool)
	departmentRepo := repository.NewDepartmentRepository(pool)
	slaPolicyRepo := repository.NewSlaPolicyRepository(pool)
	ruleRepo := repository.NewRoutingRuleRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	historyRepo := repository.NewTicketHistoryRepository(pool)
	sentimentLogRepo := repository.NewSentimentLogRepository(pool)

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)
	metrics.RegisterEventHandlers(dispatcher)

	var calc sla.DeadlineCalculator = sla.WallClockCalculator{}
	if cfg.Sla.BusinessHoursOnly {
		calc = sla.NewBusinessHoursCalculator(cfg.Sla.WorkStartHour, cfg.Sla.WorkEndHour)
	}
	resolver := sla.NewResolver(slaPolicyRepo, calc, domain.SlaRecomputePolicy(cfg.Sla.RecomputePolicy))

	analyzer := sentiment.NewDefaultAnalyzer(cfg.Sentiment.Weights(), logger)
	router := routing.NewEngine(cfg.Routing.WeightThreshold, logger)
	machine := escalation.NewMachine(logger)

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:  userRepo,
		AgentRepo: agentRepo,
	})
	agentService := service.NewAgentService(*cfg, service.AgentDependencies{
		AgentRepo:      agentRepo,
		TicketRepo:     ticketRepo,
		DepartmentRepo: departmentRepo,
		Cache:          redis.Client,
		Logger:         logger,
	})
	sentimentService := service.NewSentimentService(service.SentimentDependencies{
		Analyzer:   analyzer,
		LogRepo:    sentimentLogRepo,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:     ticketRepo,
		DepartmentRepo: departmentRepo,
		RuleRepo:       ruleRepo,
		HistoryRepo:    historyRepo,
		Agents:         agentService,
		Sentiments:     sentimentService,
		Resolver:       resolver,
		Router:         router,
		Machine:        machine,
		Dispatcher:     dispatcher,
		Logger:         logger,
		RepeatWindow:   cfg.Monitor.RepeatWindow(),
	})
	adminService := service.NewAdminService(service.AdminDependencies{
		DepartmentRepo: departmentRepo,
		SlaPolicyRepo:  slaPolicyRepo,
		RuleRepo:       ruleRepo,
		AgentRepo:      agentRepo,
		Logger:         logger,
	})

	sinks := []worker.DeliverySink{
		worker.NewRedisSink(redis.Client, logger),
		worker.NewEmailSink(cfg.Notification.EmailFrom, logger),
	}
	if cfg.Notification.WebhookURL != "" {
		sinks = append(sinks, worker.NewWebhookSink(cfg.Notification.WebhookURL, logger))
	}
	notifWorker := worker.NewNotificationWorker(cfg.Notification.Queue(), cfg.Notification.MaxAttempts(), sinks, metrics, logger)
	notifWorker.Start(ctx)

	notificationService := service.NewNotificationService(dispatcher, notifWorker, logger)
	notificationService.RegisterHandlers()

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo, agentRepo)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		AgentTickets:   handlers.NewAgentTicketsHandler(ticketService),
		Agents:         handlers.NewAgentsHandler(agentService),
		Admin:          handlers.NewAdminHandler(adminService),
		Sentiment:      handlers.NewSentimentHandler(sentimentService),
		AuthMiddleware: authMiddleware,
		Metrics:        metrics,
	})

	runner := worker.NewRunner(logger)
	if cfg.Monitor.Enabled {
		runner.Register(worker.NewSlaMonitorTask(ticketService, metrics, logger, cfg.Monitor.Interval()))
	}
	runner.Register(worker.NewNotificationRetryTask(notifWorker, logger, cfg.Notification.RetryInterval()))
	if err := runner.Start(ctx); err != nil {
		logger.Fatal("failed to start task runner", zap.Error(err))
	}

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	runner.Stop()
	notifWorker.Stop()
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
