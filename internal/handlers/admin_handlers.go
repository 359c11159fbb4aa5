package handlers

import (
	"net/http"
	"strconv"

	"github.com/01moynul/familyhub-golang/internal/models"
	"github.com/gin-gonic/gin"
)

//
// --- Admin: Subscription Console ---
//

// AdminListSubscriptions is the handler for GET /v1/admin/subscriptions
// Optional query params: status (one lifecycle status) and limit (default 100).
func (h *Handlers) AdminListSubscriptions(c *gin.Context) {
	// 1. --- Parse Filters ---
	status := c.Query("status")
	switch models.SubscriptionStatus(status) {
	case "", models.StatusPending, models.StatusTrialing, models.StatusActive,
		models.StatusPastDue, models.StatusCanceled, models.StatusExpired:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status filter"})
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 500"})
			return
		}
		limit = n
	}

	// 2. --- Query ---
	recs, err := h.Subscriptions.ListAll(c.Request.Context(), status, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if recs == nil {
		recs = []*models.SubscriptionRecord{}
	}

	// 3. --- Send Response ---
	c.JSON(http.StatusOK, gin.H{"subscriptions": recs, "count": len(recs)})
}

// AdminDeleteProgram is the handler for DELETE /v1/admin/programs/:id
// Subscriptions that featured the listing are kept and become orphans.
func (h *Handlers) AdminDeleteProgram(c *gin.Context) {
	id := c.Param("id")
	if err := h.Programs.Delete(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	h.Logger.Info().Str("program_id", id).Str("admin", actor(c).Email).Msg("program deleted by admin")
	c.JSON(http.StatusOK, gin.H{"message": "Program deleted"})
}
