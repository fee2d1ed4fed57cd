package api

import (
	"github.com/gin-gonic/gin"
	"github.com/menumate/menumate/internal/api/cron"
	v1 "github.com/menumate/menumate/internal/api/v1"
	"github.com/menumate/menumate/internal/rest/middleware"
)

type Handlers struct {
	Health       *v1.HealthHandler
	CheckoutLink *v1.CheckoutLinkHandler
	Subscription *v1.SubscriptionHandler
	Plan         *v1.PlanHandler
	Coupon       *v1.CouponHandler
	Webhook      *v1.WebhookHandler
	CronLink     *cron.CheckoutLinkHandler
}

func NewRouter(handlers Handlers) *gin.Engine {
	router := gin.New()

	router.Use(
		gin.Recovery(),
		middleware.RequestIDMiddleware,
		middleware.CORSMiddleware,
		middleware.ErrorHandler(),
	)

	router.GET("/health", handlers.Health.Health)

	v1Group := router.Group("/v1")
	registerV1Routes(v1Group, handlers)

	cronGroup := router.Group("/cron")
	registerCronRoutes(cronGroup, handlers)

	return router
}

func registerV1Routes(router *gin.RouterGroup, handlers Handlers) {
	links := router.Group("/checkout-links")
	{
		links.POST("", handlers.CheckoutLink.CreateCheckoutLink)
		links.GET("", handlers.CheckoutLink.ListCheckoutLinks)
		links.GET("/:id", handlers.CheckoutLink.GetCheckoutLink)
		links.POST("/:id/mark-used", handlers.CheckoutLink.MarkUsed)
	}

	subs := router.Group("/subscriptions")
	{
		subs.GET("", handlers.Subscription.ListSubscriptions)
		subs.GET("/:id", handlers.Subscription.GetSubscription)
		subs.POST("/:id/cancel", handlers.Subscription.CancelSubscription)
		subs.POST("/:id/undo-cancel", handlers.Subscription.UndoCancelSubscription)
		subs.POST("/:id/extend-trial", handlers.Subscription.ExtendTrial)
		subs.POST("/:id/validate-card", handlers.Subscription.ValidateCardFunds)
	}

	plans := router.Group("/plans")
	{
		plans.GET("", handlers.Plan.ListPlans)
		plans.GET("/:id", handlers.Plan.GetPlan)
	}

	coupons := router.Group("/coupons")
	{
		coupons.POST("/validate", handlers.Coupon.ValidateCoupon)
	}

	webhooks := router.Group("/webhooks")
	{
		webhooks.POST("/crm", handlers.Webhook.HandleCRMWebhook)
	}
}

func registerCronRoutes(router *gin.RouterGroup, handlers Handlers) {
	links := router.Group("/checkout-links")
	{
		links.POST("/sweep-expired", handlers.CronLink.SweepExpiredLinks)
	}
}
