package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	httptransport "github.com/pioneer-isp/helpdesk/internal/api/http"
	"github.com/pioneer-isp/helpdesk/internal/api/http/handlers"
	"github.com/pioneer-isp/helpdesk/internal/auth"
	"github.com/pioneer-isp/helpdesk/internal/cache"
	"github.com/pioneer-isp/helpdesk/internal/config"
	"github.com/pioneer-isp/helpdesk/internal/domain"
	"github.com/pioneer-isp/helpdesk/internal/events"
	"github.com/pioneer-isp/helpdesk/internal/lifecycle"
	"github.com/pioneer-isp/helpdesk/internal/messaging/kafka"
	"github.com/pioneer-isp/helpdesk/internal/observability"
	"github.com/pioneer-isp/helpdesk/internal/persistence"
	"github.com/pioneer-isp/helpdesk/internal/repository"
	"github.com/pioneer-isp/helpdesk/internal/repository/memory"
	"github.com/pioneer-isp/helpdesk/internal/service"
	"github.com/pioneer-isp/helpdesk/internal/sla"
	"github.com/pioneer-isp/helpdesk/internal/worker"
	apperrors "github.com/pioneer-isp/helpdesk/pkg/util/errorutil"
)

const shutdownTimeout = 10 * time.Second

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pg, err := persistence.OpenPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	postgresCheck := handlers.DependencyCheck{Name: "postgres", Fallback: "memory", Required: true}
	var store repository.Store
	if pg != nil {
		if cfg.Postgres.RunMigrations {
			if err := pg.Migrate(ctx, cfg.Postgres.MigrationsDir, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		store = repository.NewPostgresStore(pg.Pool())
		postgresCheck.Ping = pg.Ping
	} else {
		store = memory.NewStore()
	}

	rdb := persistence.OpenRedis(ctx, cfg.Redis, logger)
	defer rdb.Close()
	redisCheck := handlers.DependencyCheck{Name: "redis", Fallback: "disabled"}
	var customerCache service.CustomerCache
	if rdb != nil {
		customerCache = cache.NewCustomerCache(rdb.Client(), cfg.Redis.CustomerTTL())
		redisCheck.Ping = rdb.Ping
	}

	policy, err := sla.LoadPolicyFile(cfg.SLA.PolicyFile)
	if err != nil {
		logger.Fatal("failed to load sla policy", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	staffService := service.NewStaffService(service.StaffDependencies{
		Store:      store,
		BcryptCost: cfg.Auth.BcryptCost,
		AdminGroup: cfg.Access.AdminGroup,
		Logger:     logger,
	})
	if err := bootstrapAdmin(ctx, staffService, cfg, logger); err != nil {
		logger.Fatal("failed to bootstrap admin", zap.Error(err))
	}

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL())
	authService := service.NewAuthService(staffService, tokenManager, logger)
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), staffService)

	ticketService := service.NewTicketService(service.TicketDependencies{
		Store:      store,
		Machine:    lifecycle.NewMachine(policy),
		Assignees:  staffService,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})
	assignmentService := service.NewAssignmentService(ticketService)
	customerService := service.NewCustomerService(store, customerCache, logger)
	reportService := service.NewReportService(store, nil)
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)

	var publisher *kafka.Publisher
	if cfg.Kafka.Enabled() {
		publisher = kafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.TicketEventTopic, logger)
		defer publisher.Close() //nolint:errcheck
		worker.StartNotificationWorker(dispatcher, notificationService, publisher)
	} else {
		worker.StartNotificationWorker(dispatcher, notificationService)
	}

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, postgresCheck, redisCheck),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Assignment:     handlers.NewAssignmentHandler(assignmentService),
		Staff:          handlers.NewStaffHandler(authService, staffService),
		Customers:      handlers.NewCustomersHandler(customerService),
		Reports:        handlers.NewReportsHandler(reportService),
		Metrics:        metrics,
		AuthMiddleware: authMiddleware,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()))
		return app.Listen(cfg.App.Addr())
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		return app.ShutdownWithTimeout(shutdownTimeout)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server stopped", zap.Error(err))
	}
}

// bootstrapAdmin seeds the protected admin account when a bootstrap password
// is configured and the account does not exist yet.
func bootstrapAdmin(ctx context.Context, staff *service.StaffService, cfg *config.Config, logger *zap.Logger) error {
	if cfg.Auth.BootstrapAdminPassword == "" {
		return nil
	}
	_, err := staff.Credentials(ctx, domain.ProtectedUsername)
	if err == nil {
		return nil
	}
	if !apperrors.IsNoRows(err) {
		return err
	}
	created, err := staff.BootstrapStaff(ctx, service.CreateStaffInput{
		Username:    domain.ProtectedUsername,
		DisplayName: "Administrator",
		Group:       cfg.Access.AdminGroup,
		Password:    cfg.Auth.BootstrapAdminPassword,
	})
	if err != nil {
		return err
	}
	logger.Info("admin account created", zap.String("username", created.Username))
	return nil
}
