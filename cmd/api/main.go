package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/stagepass/stagepass-backend/api/routes"
	"github.com/stagepass/stagepass-backend/internal/checkin"
	"github.com/stagepass/stagepass-backend/internal/checkout"
	"github.com/stagepass/stagepass-backend/internal/codes"
	"github.com/stagepass/stagepass-backend/internal/fulfillment"
	"github.com/stagepass/stagepass-backend/internal/inventory"
	"github.com/stagepass/stagepass-backend/internal/notifications"
	"github.com/stagepass/stagepass-backend/internal/orders"
	"github.com/stagepass/stagepass-backend/internal/performers"
	"github.com/stagepass/stagepass-backend/internal/sessions"
	"github.com/stagepass/stagepass-backend/internal/tickets"
	stripewebhook "github.com/stagepass/stagepass-backend/internal/webhooks/stripe"
	"github.com/stagepass/stagepass-backend/pkg/config"
	"github.com/stagepass/stagepass-backend/pkg/db"
	"github.com/stagepass/stagepass-backend/pkg/logger"
	"github.com/stagepass/stagepass-backend/pkg/metrics"
	"github.com/stagepass/stagepass-backend/pkg/migrate"
	"github.com/stagepass/stagepass-backend/pkg/redis"
	"github.com/stagepass/stagepass-backend/pkg/stripe"
)

const shutdownGrace = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	stripeClient, err := stripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create stripe client", err)
		os.Exit(1)
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	ticketingMetrics := metrics.NewTicketingMetrics(promRegistry)

	sessionsRepo := sessions.NewRepository(dbClient.DB())
	codesRepo := codes.NewRepository(dbClient.DB())
	ordersRepo := orders.NewRepository(dbClient.DB())
	ticketsRepo := tickets.NewRepository(dbClient.DB())
	inventoryRepo := inventory.NewRepository(dbClient.DB())
	performersRepo := performers.NewRepository(dbClient.DB())

	sessionsSvc, err := sessions.NewService(sessionsRepo)
	exitOn(logg, "sessions service", err)
	performersSvc, err := performers.NewService(performersRepo)
	exitOn(logg, "performers service", err)
	codesSvc, err := codes.NewService(codesRepo)
	exitOn(logg, "codes service", err)
	ticketsSvc, err := tickets.NewService(ticketsRepo)
	exitOn(logg, "tickets service", err)
	inventorySvc, err := inventory.NewService(inventoryRepo, logg)
	exitOn(logg, "inventory service", err)
	ordersSvc, err := orders.NewService(ordersRepo)
	exitOn(logg, "orders service", err)

	var notifier notifications.Notifier = notifications.Noop{}
	if cfg.SMTP.Enabled() {
		mailer, err := notifications.NewMailer(cfg.SMTP)
		exitOn(logg, "mailer", err)
		notifier = mailer
	} else {
		logg.Warn(context.Background(), "smtp not configured, confirmation mail disabled")
	}

	fulfillmentSvc, err := fulfillment.NewService(
		dbClient,
		ordersRepo,
		inventorySvc,
		codesSvc,
		ticketsSvc,
		notifier,
		logg,
		ticketingMetrics,
	)
	exitOn(logg, "fulfillment service", err)

	checkoutSvc, err := checkout.NewService(
		sessionsRepo,
		codesSvc,
		ordersRepo,
		fulfillmentSvc,
		checkout.NewStripeProvider(stripeClient),
		cfg.Checkout,
		cfg.Stripe,
		logg,
		ticketingMetrics,
	)
	exitOn(logg, "checkout service", err)

	checkinSvc, err := checkin.NewService(ticketsSvc, logg, ticketingMetrics)
	exitOn(logg, "check-in service", err)

	webhookSvc, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Orders:      ordersSvc,
		Fulfillment: fulfillmentSvc,
		Logger:      logg,
		Metrics:     ticketingMetrics,
	})
	exitOn(logg, "stripe webhook service", err)

	webhookGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, cfg.Eventing.WebhookIdempotencyTTL, "stripe-webhook")
	exitOn(logg, "webhook idempotency guard", err)

	router := routes.NewRouter(routes.RouterParams{
		Config:       cfg,
		Logger:       logg,
		DB:           dbClient,
		Redis:        redisClient,
		PromRegistry: promRegistry,
		Sessions:     sessionsSvc,
		Performers:   performersSvc,
		Codes:        codesSvc,
		Checkout:     checkoutSvc,
		Orders:       ordersSvc,
		Tickets:      ticketsSvc,
		CheckIn:      checkinSvc,
		StripeCli:    stripeClient,
		StripeHooks:  webhookSvc,
		HookGuard:    webhookGuard,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case sig := <-stop:
		logg.Info(logg.WithField(ctx, "signal", sig.String()), "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
			os.Exit(1)
		}
	}
}

func exitOn(logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), "failed to create "+resource, err)
	os.Exit(1)
}
