package handlers

import (
	"errors"
	"net/http"

	"github.com/01moynul/familyhub-golang/internal/apperr"
	"github.com/01moynul/familyhub-golang/internal/entitlement"
	"github.com/01moynul/familyhub-golang/internal/middleware"
	"github.com/01moynul/familyhub-golang/internal/store"
	"github.com/01moynul/familyhub-golang/internal/subscriptions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Handlers struct holds all dependencies for our handlers.
type Handlers struct {
	Subscriptions *store.SubscriptionStore
	Programs      *store.ProgramStore
	Planner       *store.PlannerStore
	Checkout      *subscriptions.Checkout
	Reconciler    *subscriptions.Reconciler
	Plans         *subscriptions.PlanChanger
	Guard         *entitlement.Guard
	Logger        zerolog.Logger
}

// actor reads the caller set by AuthMiddleware.
func actor(c *gin.Context) subscriptions.Actor {
	return subscriptions.Actor{
		AccountID: c.GetString(middleware.KeyAccountID),
		Email:     c.GetString(middleware.KeyAccountEmail),
		Name:      c.GetString(middleware.KeyAccountName),
	}
}

// respondError renders err with the status its kind maps to. Only the public
// message is rendered; the cause is logged.
func (h *Handlers) respondError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	body := gin.H{"error": apperr.PublicMessage(err)}

	var le *apperr.LimitExceededError
	if errors.As(err, &le) {
		body["limit"] = le.Limit
		body["resource"] = le.Resource
	}

	evt := h.Logger.Debug()
	if status >= http.StatusInternalServerError {
		evt = h.Logger.Error()
	}
	evt.Err(err).Str("method", c.Request.Method).Str("path", c.FullPath()).Int("status", status).Msg("request failed")
	c.JSON(status, body)
}

func badInput(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
}
