// Package app assembles the service from its configuration and infrastructure.
package app

import (
	"database/sql"

	"github.com/01moynul/familyhub-golang/internal/billing"
	"github.com/01moynul/familyhub-golang/internal/config"
	"github.com/01moynul/familyhub-golang/internal/email"
	"github.com/01moynul/familyhub-golang/internal/entitlement"
	"github.com/01moynul/familyhub-golang/internal/handlers"
	"github.com/01moynul/familyhub-golang/internal/notify"
	"github.com/01moynul/familyhub-golang/internal/routes"
	"github.com/01moynul/familyhub-golang/internal/store"
	"github.com/01moynul/familyhub-golang/internal/subscriptions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// App is the wired service.
type App struct {
	Handlers *handlers.Handlers
	Sweeper  *subscriptions.Sweeper
	Router   *gin.Engine
}

// New wires stores, the lifecycle engine and the HTTP router.
func New(cfg *config.Config, db *sql.DB, gw billing.Gateway, sender email.Sender, logger zerolog.Logger) *App {
	records := store.NewSubscriptionStore(db)
	programs := store.NewProgramStore(db)
	planner := store.NewPlannerStore(db)
	catalog := subscriptions.CatalogFromConfig(cfg)

	checkout := &subscriptions.Checkout{
		Records: records,
		Gateway: gw,
		Catalog: catalog,
		Logger:  logger.With().Str("component", "checkout").Logger(),
	}
	h := &handlers.Handlers{
		Subscriptions: records,
		Programs:      programs,
		Planner:       planner,
		Checkout:      checkout,
		Reconciler: &subscriptions.Reconciler{
			Records:       records,
			Programs:      programs,
			Gateway:       gw,
			Notifier:      notify.New(sender, cfg.AppURL),
			Catalog:       catalog,
			WebhookSecret: cfg.StripeWebhookSecret,
			Logger:        logger.With().Str("component", "reconciler").Logger(),
		},
		Plans: &subscriptions.PlanChanger{
			Records:  records,
			Gateway:  gw,
			Catalog:  catalog,
			Checkout: checkout,
			Logger:   logger.With().Str("component", "plan_change").Logger(),
		},
		Guard: &entitlement.Guard{
			Gateway:       gw,
			PlannerPrices: cfg.PlannerPriceSet(),
			Counter:       planner,
			Limits:        cfg.FreeLimits,
			Logger:        logger.With().Str("component", "entitlement").Logger(),
		},
		Logger: logger,
	}

	return &App{
		Handlers: h,
		Sweeper: &subscriptions.Sweeper{
			Records:  records,
			MaxAge:   cfg.PendingCheckoutTTL,
			Interval: cfg.SweepInterval,
			Logger:   logger.With().Str("component", "sweeper").Logger(),
		},
		Router: routes.SetupRouter(h, cfg),
	}
}
