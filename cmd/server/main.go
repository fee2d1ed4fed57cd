package main

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/menumate/menumate/internal/api"
	"github.com/menumate/menumate/internal/api/cron"
	v1 "github.com/menumate/menumate/internal/api/v1"
	"github.com/menumate/menumate/internal/cache"
	"github.com/menumate/menumate/internal/config"
	"github.com/menumate/menumate/internal/httpclient"
	"github.com/menumate/menumate/internal/integration/hubspot"
	"github.com/menumate/menumate/internal/integration/stripe"
	"github.com/menumate/menumate/internal/logger"
	"github.com/menumate/menumate/internal/notification"
	notificationHandler "github.com/menumate/menumate/internal/notification/handler"
	"github.com/menumate/menumate/internal/postgres"
	"github.com/menumate/menumate/internal/pubsub"
	"github.com/menumate/menumate/internal/pubsub/memory"
	pubsubRouter "github.com/menumate/menumate/internal/pubsub/router"
	"github.com/menumate/menumate/internal/repository"
	"github.com/menumate/menumate/internal/service"
	"github.com/menumate/menumate/internal/validator"
	"go.uber.org/fx"
)

func init() {
	// Set UTC timezone for the entire application
	time.Local = time.UTC

	// Load .env if present, real env always wins
	_ = godotenv.Load()
}

func main() {
	var opts []fx.Option

	opts = append(opts,
		fx.Provide(
			// Validator
			validator.NewValidator,

			// Config
			config.NewConfig,

			// Logger
			logger.NewLogger,

			// Cache
			cache.NewInMemoryCache,

			// Postgres
			postgres.NewDB,

			// HTTP client
			httpclient.NewDefaultClient,

			// Repositories
			repository.NewPlanRepository,
			repository.NewCheckoutLinkRepository,
			repository.NewSubscriptionRepository,
			repository.NewWebhookEventRepository,

			// Payment provider
			stripe.NewClient,
			stripe.NewGateway,

			// CRM bridge
			hubspot.NewSignatureVerifier,

			// Notification transport
			memory.NewPubSub,
			pubsubRouter.NewRouter,
			provideFanout,
			provideNotificationHandler,
		),
	)

	opts = append(opts,
		fx.Provide(
			service.NewServiceParams,
			service.NewPlanService,
			service.NewCheckoutLinkService,
			service.NewSubscriptionService,
			service.NewCouponService,
			service.NewWebhookReconciler,
		),
	)

	opts = append(opts,
		fx.Provide(
			provideHandlers,
			provideRouter,
		),
		fx.Invoke(startServer),
	)

	app := fx.New(opts...)
	app.Run()
}

// provideFanout assembles the notification sinks. The log sink is always on,
// the pubsub sink only when outbound delivery is configured.
func provideFanout(
	cfg *config.Configuration,
	pubSub pubsub.PubSub,
	log *logger.Logger,
) *notification.Fanout {
	sinks := []notification.Sink{
		notification.NewLogSink(log),
	}
	if cfg.Webhook.Enabled {
		sinks = append(sinks, notification.NewPubSubSink(pubSub, cfg, log))
	}
	return notification.NewFanout(log, sinks...)
}

func provideNotificationHandler(
	pubSub pubsub.PubSub,
	cfg *config.Configuration,
	client httpclient.Client,
	log *logger.Logger,
) notificationHandler.Handler {
	return notificationHandler.NewHandler(pubSub, cfg, client, log)
}

func provideHandlers(
	logger *logger.Logger,
	verifier *hubspot.SignatureVerifier,
	planService service.PlanService,
	checkoutLinkService service.CheckoutLinkService,
	subscriptionService service.SubscriptionService,
	couponService service.CouponService,
	reconciler service.WebhookReconciler,
) api.Handlers {
	return api.Handlers{
		Health:       v1.NewHealthHandler(),
		CheckoutLink: v1.NewCheckoutLinkHandler(checkoutLinkService, logger),
		Subscription: v1.NewSubscriptionHandler(subscriptionService, logger),
		Plan:         v1.NewPlanHandler(planService, logger),
		Coupon:       v1.NewCouponHandler(couponService, logger),
		Webhook:      v1.NewWebhookHandler(verifier, reconciler, logger),
		CronLink:     cron.NewCheckoutLinkHandler(checkoutLinkService, logger),
	}
}

func provideRouter(handlers api.Handlers) *gin.Engine {
	return api.NewRouter(handlers)
}

func startServer(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	r *gin.Engine,
	router *pubsubRouter.Router,
	handler notificationHandler.Handler,
	checkoutLinkService service.CheckoutLinkService,
	log *logger.Logger,
) {
	startAPIServer(lc, r, cfg, log)
	startMessageRouter(lc, router, handler, log)
	startSweeper(lc, cfg, checkoutLinkService, log)
}

func startAPIServer(
	lc fx.Lifecycle,
	r *gin.Engine,
	cfg *config.Configuration,
	log *logger.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Starting API server...")
			go func() {
				if err := r.Run(cfg.Server.Address); err != nil {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down server...")
			return nil
		},
	})
}

func startMessageRouter(
	lc fx.Lifecycle,
	router *pubsubRouter.Router,
	handler notificationHandler.Handler,
	log *logger.Logger,
) {
	handler.RegisterHandler(router)

	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				if err := router.Run(ctx); err != nil {
					log.Errorw("notification router stopped", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return router.Close()
		},
	})
}

// startSweeper runs the expiry sweep on a fixed interval. The cron endpoint
// triggers the same sweep on demand.
func startSweeper(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	checkoutLinkService service.CheckoutLinkService,
	log *logger.Logger,
) {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				ticker := time.NewTicker(cfg.CheckoutLink.SweepInterval)
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
						if _, err := checkoutLinkService.SweepExpired(ctx); err != nil {
							log.Errorw("checkout link sweep failed", "error", err)
						}
					}
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}
