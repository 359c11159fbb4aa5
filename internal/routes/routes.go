package routes

import (
	"net/http"
	"time"

	"github.com/01moynul/familyhub-golang/internal/config"
	"github.com/01moynul/familyhub-golang/internal/handlers"
	"github.com/01moynul/familyhub-golang/internal/logging"
	"github.com/01moynul/familyhub-golang/internal/metrics"
	"github.com/01moynul/familyhub-golang/internal/middleware"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORSMiddleware allows only the configured frontend origin.
func CORSMiddleware(origin string) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:     []string{origin},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "Cache-Control", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

func SetupRouter(h *handlers.Handlers, cfg *config.Config) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), logging.RequestLogger(h.Logger))

	// --- APPLY THE CORS GUARD ---
	router.Use(CORSMiddleware(cfg.FrontendOrigin))

	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := router.Group("/v1")
	{
		// --- Ping Route (Public) ---
		v1.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "pong!"})
		})

		// --- Billing Webhook (Public, signature-verified) ---
		v1.POST("/webhooks/stripe", h.StripeWebhook)

		// --- Authenticated Routes ---
		authed := v1.Group("/")
		authed.Use(middleware.AuthMiddleware([]byte(cfg.JWTSecret)))
		{
			featured := authed.Group("/featured")
			{
				featured.POST("/checkout", h.StartFeaturedCheckout)
				featured.GET("/subscriptions", h.ListMyFeaturedSubscriptions)
				featured.DELETE("/subscriptions/:id", h.DeleteFeaturedSubscription)
				featured.POST("/subscriptions/:id/reactivate", h.ReactivateFeaturedSubscription)
				featured.POST("/subscriptions/:id/cancel", h.CancelFeaturedSubscription)
			}

			authed.POST("/subscriptions/change-plan", h.ChangePlan)
			authed.POST("/billing/portal", h.BillingPortal)

			planner := authed.Group("/planner")
			{
				planner.POST("/checkout", h.StartPlannerCheckout)
				planner.GET("/plan", h.GetPlannerPlan)
				planner.POST("/subscriptions/:id/reactivate", h.ReactivatePlannerSubscription)
				planner.POST("/subscriptions/:id/cancel", h.CancelPlannerSubscription)

				planner.GET("/saved-programs", h.ListSavedPrograms)
				planner.POST("/saved-programs", h.SaveProgram)
				planner.DELETE("/saved-programs/:id", h.DeleteSavedProgram)
				planner.GET("/children", h.ListChildren)
				planner.POST("/children", h.AddChild)
				planner.GET("/adults", h.ListAdults)
				planner.POST("/adults", h.AddAdult)
			}

			// --- Admin Routes ---
			admin := authed.Group("/admin")
			admin.Use(middleware.AdminMiddleware(cfg))
			{
				admin.GET("/subscriptions", h.AdminListSubscriptions)
				admin.DELETE("/programs/:id", h.AdminDeleteProgram)
			}
		}
	}

	return router
}
