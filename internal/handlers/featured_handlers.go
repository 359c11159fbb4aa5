package handlers

import (
	"net/http"

	"github.com/01moynul/familyhub-golang/internal/models"
	"github.com/01moynul/familyhub-golang/internal/subscriptions"
	"github.com/gin-gonic/gin"
)

// featuredCheckoutInput is the body of a featured-listing signup.
type featuredCheckoutInput struct {
	ProgramID      *string              `json:"programId"`
	ProgramData    *models.ProgramDraft `json:"programData"`
	PlanType       string               `json:"planType" binding:"required"`
	ContactName    string               `json:"contactName" binding:"required"`
	ContactEmail   string               `json:"contactEmail" binding:"required,email"`
	ContactPhone   *string              `json:"contactPhone"`
	ProgramLogoURL *string              `json:"programLogoUrl"`
}

// StartFeaturedCheckout handles POST /v1/featured/checkout
func (h *Handlers) StartFeaturedCheckout(c *gin.Context) {
	// 1. --- Bind Input ---
	var input featuredCheckoutInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badInput(c, err)
		return
	}

	// 2. --- Start Checkout ---
	sess, err := h.Checkout.StartFeatured(c.Request.Context(), subscriptions.FeaturedRequest{
		AccountID:      actor(c).AccountID,
		ProgramID:      input.ProgramID,
		ProgramData:    input.ProgramData,
		PlanType:       input.PlanType,
		ContactName:    input.ContactName,
		ContactEmail:   input.ContactEmail,
		ContactPhone:   input.ContactPhone,
		ProgramLogoURL: input.ProgramLogoURL,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	// 3. --- Send Response ---
	c.JSON(http.StatusCreated, sess)
}

// ListMyFeaturedSubscriptions handles GET /v1/featured/subscriptions
func (h *Handlers) ListMyFeaturedSubscriptions(c *gin.Context) {
	recs, err := h.Subscriptions.ListByAccount(c.Request.Context(), actor(c).AccountID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if recs == nil {
		recs = []*models.SubscriptionRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"subscriptions": recs})
}

// DeleteFeaturedSubscription handles DELETE /v1/featured/subscriptions/:id
func (h *Handlers) DeleteFeaturedSubscription(c *gin.Context) {
	if err := h.Plans.DeleteRecord(c.Request.Context(), actor(c), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Subscription deleted"})
}

// ReactivateFeaturedSubscription handles POST /v1/featured/subscriptions/:id/reactivate
func (h *Handlers) ReactivateFeaturedSubscription(c *gin.Context) {
	res, err := h.Plans.ReactivateFeatured(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// CancelFeaturedSubscription handles POST /v1/featured/subscriptions/:id/cancel
func (h *Handlers) CancelFeaturedSubscription(c *gin.Context) {
	res, err := h.Plans.CancelFeatured(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ChangePlan handles POST /v1/subscriptions/change-plan for both products.
func (h *Handlers) ChangePlan(c *gin.Context) {
	var input subscriptions.ChangeRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		badInput(c, err)
		return
	}
	res, err := h.Plans.ChangePlan(c.Request.Context(), actor(c), input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// BillingPortal handles POST /v1/billing/portal
func (h *Handlers) BillingPortal(c *gin.Context) {
	url, err := h.Plans.PortalURL(c.Request.Context(), actor(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}
