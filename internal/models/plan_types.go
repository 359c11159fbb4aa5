package models

import "fmt"

// PlanType is the featured-listing tier.
type PlanType string

const (
	PlanTrial   PlanType = "trial"
	PlanWeekly  PlanType = "weekly"
	PlanMonthly PlanType = "monthly"
)

// ParsePlanType accepts the tier names used by the signup form, including the
// legacy "free_trial" spelling.
func ParsePlanType(s string) (PlanType, error) {
	switch s {
	case "trial", "free_trial":
		return PlanTrial, nil
	case "weekly":
		return PlanWeekly, nil
	case "monthly":
		return PlanMonthly, nil
	}
	return "", fmt.Errorf("unknown plan type %q", s)
}

// PlannerTier is the derived family-planner entitlement. It is never stored.
type PlannerTier string

const (
	PlannerFree PlannerTier = "free"
	PlannerPro  PlannerTier = "pro"
)

// PlannerInterval is the billing interval of a planner pro subscription.
type PlannerInterval string

const (
	PlannerMonthly PlannerInterval = "planner_monthly"
	PlannerYearly  PlannerInterval = "planner_yearly"
)

// PlanChangeType is the 'type' field of a plan-change request.
type PlanChangeType string

const (
	ChangeFeaturedMonthly PlanChangeType = "featured_monthly"
	ChangeFeaturedWeekly  PlanChangeType = "featured_weekly"
	ChangePlannerYearly   PlanChangeType = "planner_yearly"
	ChangePlannerMonthly  PlanChangeType = "planner_monthly"
)
