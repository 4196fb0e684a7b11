package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	pubnub "github.com/pubnub/go/v7"
	"github.com/redis/go-redis/v9"

	"ticket-marketplace/config"
	"ticket-marketplace/internal/handlers"
	"ticket-marketplace/internal/services"
	"ticket-marketplace/internal/services/payment"
	"ticket-marketplace/internal/services/scorer"
	"ticket-marketplace/internal/store"
	"ticket-marketplace/monitoring"
	"ticket-marketplace/security"
	"ticket-marketplace/utils"
)

func Start() error {
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	logger := cfg.Logger()
	slog.SetDefault(logger)

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve", "--http=0.0.0.0:"+cfg.Port)
	}

	app := pocketbase.New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Redis
	redisClient, err := utils.NewRedisClient(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	// Initialize PubNub
	var pn *pubnub.PubNub
	var notifier services.Notifier = services.NopNotifier{}
	if cfg.PubNubEnabled() {
		pnConfig := pubnub.NewConfigWithUserId(pubnub.UserId(cfg.PubNubUserID))
		pnConfig.PublishKey = cfg.PubNubPublishKey
		pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
		pnConfig.SecretKey = cfg.PubNubSecretKey
		pn = pubnub.NewPubNub(pnConfig)
		notifier = services.NewPubNubNotifier(pn, logger)
	} else {
		logger.Warn("pubnub keys not configured, realtime notifications disabled")
	}

	// Payment gateways
	gateways := payment.NewRegistry(payment.NewFactory())
	if err := gateways.Register(ctx, payment.Config{
		Provider:      payment.Provider(cfg.PaymentProvider),
		SecretKey:     cfg.StripeSecretKey,
		WebhookSecret: cfg.StripeWebhookSecret,
		Currency:      cfg.Currency,
	}); err != nil {
		return err
	}

	// Enable migrations
	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: true,
	})

	app.OnServe().BindFunc(func(se *core.ServeEvent) error {
		db, err := openDatabase(ctx, cfg, se.App)
		if err != nil {
			return err
		}

		api, sweeper, payments := wire(cfg, logger, store.New(db), redisClient, gateways, notifier)
		api.Register(se.Router)

		se.Router.GET("/health", func(e *core.RequestEvent) error {
			reqCtx := e.Request.Context()
			if err := utils.RedisHealthCheck(reqCtx, redisClient); err != nil {
				return e.JSON(503, map[string]string{"status": "unhealthy", "error": err.Error()})
			}
			if err := store.New(db).Ping(reqCtx); err != nil {
				return e.JSON(503, map[string]string{"status": "unhealthy", "error": err.Error()})
			}
			return e.JSON(200, map[string]string{"status": "healthy"})
		})

		// Background sweeps
		app.Cron().MustAdd("order-expiry", "0 * * * *", sweeper.ExpireOrders)
		app.Cron().MustAdd("trade-expiry", "0 * * * *", sweeper.ExpireTrades)
		app.Cron().MustAdd("order-recovery", "*/5 * * * *", sweeper.RecoverOrders)
		app.Cron().MustAdd("event-completion", "* * * * *", sweeper.CompleteEvents)

		if pn != nil {
			go payments.Listen(ctx, pn, cfg.PaymentChannel)
		}

		logger.Info("server routes registered", "environment", cfg.Environment, "payment_provider", cfg.PaymentProvider)
		return se.Next()
	})

	if cfg.EnableMetrics {
		go monitoring.Serve(ctx, cfg.MetricsPort)
	}

	// Setup graceful shutdown
	go handleShutdown(cancel)

	return app.Start()
}

// openDatabase returns the external Postgres database when DATABASE_URL is
// set, otherwise the embedded SQLite database whose schema the registered
// migration maintains.
func openDatabase(ctx context.Context, cfg *config.Config, app core.App) (dbx.Builder, error) {
	if cfg.DatabaseURL == "" {
		return app.NonconcurrentDB(), nil
	}
	db, err := store.OpenPostgres(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func wire(
	cfg *config.Config,
	logger *slog.Logger,
	st *store.Store,
	redisClient *redis.Client,
	gateways *payment.Registry,
	notifier services.Notifier,
) (*handlers.API, *services.Sweeper, *services.PaymentService) {
	monitor := monitoring.NewMonitor()
	tokens := security.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	sessions := services.NewCheckoutRegistry(redisClient, cfg.CheckoutSessionTTL)
	checkout := services.NewCheckoutService(gateways, sessions, logger)

	inventory := services.NewInventoryService(st, monitor, logger)
	events := services.NewEventService(st, logger)
	reputation := services.NewReputationLedger(st, logger)
	users := services.NewUserService(st, tokens, logger)
	tickets := services.NewTicketService(st, logger)
	orders := services.NewOrderService(st, inventory, checkout, notifier, monitor, services.OrderConfig{
		PublicURL:    cfg.PublicURL,
		Expiry:       cfg.OrderExpiry,
		StallTimeout: cfg.OrderStallTimeout,
	}, logger)
	trades := services.NewTradeService(st, reputation, checkout, notifier, monitor, services.TradeConfig{
		PublicURL: cfg.PublicURL,
		Expiry:    cfg.TradeExpiry,
	}, logger)
	scalper := services.NewScalperService(st,
		&scorer.Command{Path: cfg.ScalperCommand, Args: cfg.ScalperArgs, Timeout: cfg.ScalperTimeout},
		utils.NewBreaker("scalper-scorer", cfg.ScalperTimeout*6, scorer.ErrRejected),
		cfg.ScalperConcurrency, monitor, logger)
	payments := services.NewPaymentService(orders, trades, sessions, gateways.Verifiers(), logger)

	api := &handlers.API{
		Auth:        handlers.NewAuthenticator(tokens),
		RateLimiter: security.NewRateLimiter(redisClient, int64(cfg.RateLimit), cfg.RateLimitWindow),
		Accounts:    handlers.NewAuthHandler(users),
		Events:      handlers.NewEventHandler(events, inventory),
		Orders:      handlers.NewOrderHandler(orders),
		Tickets:     handlers.NewTicketHandler(tickets, trades),
		Payments:    handlers.NewPaymentHandler(payments),
		Admin:       handlers.NewAdminHandler(users, trades, scalper),
		Development: cfg.Environment == "development",
	}
	return api, services.NewSweeper(orders, trades, events, monitor, logger), payments
}

// handleShutdown cancels background work on SIGINT or SIGTERM.
func handleShutdown(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	slog.Info("shutdown signal received, cleaning up")
	cancel()
}
