package handlers

import (
	"net/http"

	"github.com/01moynul/familyhub-golang/internal/models"
	"github.com/gin-gonic/gin"
)

//
// --- Planner Pro Subscription ---
//

// StartPlannerCheckout handles POST /v1/planner/checkout
func (h *Handlers) StartPlannerCheckout(c *gin.Context) {
	var input struct {
		Plan string `json:"plan" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		badInput(c, err)
		return
	}
	sess, err := h.Checkout.StartPlanner(c.Request.Context(), actor(c), input.Plan)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sess)
}

// GetPlannerPlan handles GET /v1/planner/plan
func (h *Handlers) GetPlannerPlan(c *gin.Context) {
	a := actor(c)
	plan, err := h.Guard.Summary(c.Request.Context(), a.AccountID, a.Email)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// ReactivatePlannerSubscription handles POST /v1/planner/subscriptions/:id/reactivate
// where :id is the billing provider's subscription id.
func (h *Handlers) ReactivatePlannerSubscription(c *gin.Context) {
	res, err := h.Plans.ReactivatePlanner(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// CancelPlannerSubscription handles POST /v1/planner/subscriptions/:id/cancel
func (h *Handlers) CancelPlannerSubscription(c *gin.Context) {
	res, err := h.Plans.CancelPlanner(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

//
// --- Plan-Limited Planner Resources ---
//

// checkLimit runs the entitlement guard and renders the rejection.
func (h *Handlers) checkLimit(c *gin.Context, resource models.PlannerResource) bool {
	a := actor(c)
	if err := h.Guard.CheckLimit(c.Request.Context(), a.AccountID, a.Email, resource); err != nil {
		h.respondError(c, err)
		return false
	}
	return true
}

// SaveProgram handles POST /v1/planner/saved-programs
func (h *Handlers) SaveProgram(c *gin.Context) {
	// 1. --- Bind Input ---
	var input struct {
		ProgramID string  `json:"programId" binding:"required"`
		Notes     *string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		badInput(c, err)
		return
	}

	// 2. --- Enforce Plan Limit ---
	if !h.checkLimit(c, models.ResourceSavedPrograms) {
		return
	}

	// 3. --- Insert ---
	sp, err := h.Planner.AddSavedProgram(c.Request.Context(), actor(c).AccountID, input.ProgramID, input.Notes)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sp)
}

// ListSavedPrograms handles GET /v1/planner/saved-programs
func (h *Handlers) ListSavedPrograms(c *gin.Context) {
	items, err := h.Planner.ListSavedPrograms(c.Request.Context(), actor(c).AccountID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if items == nil {
		items = []*models.SavedProgram{}
	}
	c.JSON(http.StatusOK, gin.H{"savedPrograms": items})
}

// DeleteSavedProgram handles DELETE /v1/planner/saved-programs/:id
func (h *Handlers) DeleteSavedProgram(c *gin.Context) {
	if err := h.Planner.DeleteSavedProgram(c.Request.Context(), actor(c).AccountID, c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Saved program removed"})
}

// AddChild handles POST /v1/planner/children
func (h *Handlers) AddChild(c *gin.Context) {
	var input struct {
		Name      string `json:"name" binding:"required"`
		BirthYear *int   `json:"birthYear" binding:"omitempty,gte=1900,lte=2100"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		badInput(c, err)
		return
	}
	if !h.checkLimit(c, models.ResourceChildren) {
		return
	}
	child, err := h.Planner.AddChild(c.Request.Context(), actor(c).AccountID, input.Name, input.BirthYear)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, child)
}

// ListChildren handles GET /v1/planner/children
func (h *Handlers) ListChildren(c *gin.Context) {
	items, err := h.Planner.ListChildren(c.Request.Context(), actor(c).AccountID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if items == nil {
		items = []*models.Child{}
	}
	c.JSON(http.StatusOK, gin.H{"children": items})
}

// AddAdult handles POST /v1/planner/adults
func (h *Handlers) AddAdult(c *gin.Context) {
	var input struct {
		Name  string  `json:"name" binding:"required"`
		Email *string `json:"email" binding:"omitempty,email"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		badInput(c, err)
		return
	}
	if !h.checkLimit(c, models.ResourceAdults) {
		return
	}
	adult, err := h.Planner.AddAdult(c.Request.Context(), actor(c).AccountID, input.Name, input.Email)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, adult)
}

// ListAdults handles GET /v1/planner/adults
func (h *Handlers) ListAdults(c *gin.Context) {
	items, err := h.Planner.ListAdults(c.Request.Context(), actor(c).AccountID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if items == nil {
		items = []*models.Adult{}
	}
	c.JSON(http.StatusOK, gin.H{"adults": items})
}
