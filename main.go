package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"consultbook/config"
	"consultbook/cron"
	"consultbook/database"
	invoiceRepo "consultbook/database/repository/invoice"
	notificationRepo "consultbook/database/repository/notification"
	schedulerRepo "consultbook/database/repository/scheduler"
	userRepo "consultbook/database/repository/user"
	"consultbook/handlers"
	"consultbook/middleware"
	"consultbook/obs"
	"consultbook/routes"
	"consultbook/services/billing"
	"consultbook/services/booking"
	"consultbook/services/notification"
	"consultbook/services/subscription"
	"consultbook/services/tasks"
	"consultbook/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const serviceName = "consultbook"

func main() {
	root := &cobra.Command{
		Use:   serviceName,
		Short: "Appointment scheduling and billing for a single-practitioner practice",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			config.LoadConfig()
			utils.InitializeLogger()
		},
	}
	root.AddCommand(serveCmd(), ensureIndexesCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

type repositories struct {
	scheduler     *schedulerRepo.MongoSchedulerRepo
	invoices      *invoiceRepo.MongoInvoiceRepo
	users         *userRepo.MongoUserRepo
	notifications *notificationRepo.MongoQueueRepo
}

func newRepositories() repositories {
	db := database.GetDatabase()
	return repositories{
		scheduler:     schedulerRepo.NewMongoSchedulerRepo(db),
		invoices:      invoiceRepo.NewMongoInvoiceRepo(db),
		users:         userRepo.NewMongoUserRepo(db),
		notifications: notificationRepo.NewMongoQueueRepo(db),
	}
}

func (r repositories) ensureIndexes(ctx context.Context) error {
	for _, ensure := range []func(context.Context) error{
		r.scheduler.EnsureIndexes,
		r.invoices.EnsureIndexes,
		r.users.EnsureIndexes,
		r.notifications.EnsureIndexes,
	} {
		if err := ensure(ctx); err != nil {
			return err
		}
	}
	return nil
}

func ensureIndexesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ensure-indexes",
		Short: "Create the MongoDB indexes the engine relies on and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := utils.GetLogger()
			database.InitDB()
			defer database.Disconnect(context.Background())

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			if err := newRepositories().ensureIndexes(ctx); err != nil {
				logger.Error("Failed to ensure indexes", zap.Error(err))
				return err
			}
			logger.Info("Indexes are up to date")
			return nil
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the reminder worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}
}

func serve() error {
	logger := utils.GetLogger()
	cfg := config.AppConfig

	database.InitDB()
	utils.InitTaskQueueRedis()

	repos := newRepositories()
	indexCtx, cancelIndexes := context.WithTimeout(context.Background(), 30*time.Second)
	err := repos.ensureIndexes(indexCtx)
	cancelIndexes()
	if err != nil {
		// The unique indexes back slot and invoice exclusivity; refuse to serve without them.
		logger.Fatal("main: failed to ensure indexes", zap.Error(err))
	}

	shutdownTracer := func(context.Context) error { return nil }
	if cfg.OtelEnabled {
		shutdownTracer, err = obs.InitTracer(context.Background(), serviceName)
		if err != nil {
			logger.Fatal("main: failed to initialize tracing", zap.Error(err))
		}
	}

	// services.
	notifier, err := notification.NewDefaultNotificationService(repos.notifications, logger)
	if err != nil {
		logger.Fatal("main: failed to initialize notification service", zap.Error(err))
	}

	taskClient := asynq.NewClient(cron.RedisConnOpt())
	reminders := &tasks.AsynqReminderScheduler{Client: taskClient}

	loc := config.Location()
	subscriptionService := subscription.NewDefaultSubscriptionService(repos.users, loc, logger)
	appointmentService := booking.NewDefaultAppointmentService(
		repos.scheduler,
		notifier,
		reminders,
		loc,
		cfg.LateRescheduleWindow,
		cfg.ReminderLead,
		logger,
	)
	billingService := billing.NewDefaultBillingService(
		repos.invoices,
		appointmentService,
		subscriptionService,
		notifier,
		billing.RateCardFromConfig(cfg),
		loc,
		logger,
	)

	worker := cron.InitReminderWorker(appointmentService, logger)

	monitorCtx, stopMonitor := context.WithCancel(context.Background())
	defer stopMonitor()
	utils.StartHealthMonitor(monitorCtx, []*redis.Client{utils.GetTaskQueueClient()}, database.MongoClient)

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	if err := router.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		logger.Fatal("main: invalid TRUSTED_PROXIES", zap.Error(err))
	}
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	if cfg.OtelEnabled {
		router.Use(middleware.TracingMiddleware(serviceName))
	}

	routes.RegisterRoutes(router, &handlers.HandlerBundle{
		Appointments:      handlers.NewAppointmentHandler(appointmentService),
		Invoices:          handlers.NewInvoiceHandler(billingService),
		Plans:             handlers.NewSubscriptionHandler(subscriptionService),
		Payments:          handlers.NewPaymentHandler(billingService, cfg.StripeWebhookSecret),
		JWTSecret:         cfg.JWTSecret,
		AdminToken:        cfg.AdminToken,
		MaxRequestsPerMin: cfg.MaxRequestsPerMin,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: router,
	}

	go func() {
		logger.Info("Server starting", zap.String("port", cfg.AppPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	worker.Shutdown()
	if err := taskClient.Close(); err != nil {
		logger.Warn("Failed to close task client", zap.Error(err))
	}
	if err := shutdownTracer(ctx); err != nil {
		logger.Warn("Failed to flush traces", zap.Error(err))
	}
	if err := database.Disconnect(ctx); err != nil {
		logger.Warn("Failed to disconnect from MongoDB", zap.Error(err))
	}
	_ = logger.Sync()

	logger.Info("Server exiting")
	return nil
}
