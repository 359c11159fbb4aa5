package subscriptions

import (
	"context"
	"fmt"
	"strings"

	"github.com/01moynul/familyhub-golang/internal/apperr"
	"github.com/01moynul/familyhub-golang/internal/billing"
	"github.com/01moynul/familyhub-golang/internal/metrics"
	"github.com/01moynul/familyhub-golang/internal/models"
	"github.com/rs/zerolog"
)

// PlanChanger performs user-initiated billing mutations on existing subscriptions.
type PlanChanger struct {
	Records  RecordStore
	Gateway  billing.Gateway
	Catalog  Catalog
	Checkout *Checkout
	Logger   zerolog.Logger
}

// ChangeRequest is the body of a plan-change call. Featured changes address the
// local record; planner changes address the gateway subscription directly.
type ChangeRequest struct {
	Type                 models.PlanChangeType `json:"type" binding:"required"`
	SubscriptionID       string                `json:"subscriptionId"`
	StripeSubscriptionID string                `json:"stripeSubscriptionId"`
}

// transition is one allowed tier switch.
type transition struct {
	from string
	to   string
	mode billing.ProrationMode
}

var featuredTransitions = map[models.PlanChangeType]transition{
	models.ChangeFeaturedMonthly: {from: string(models.PlanWeekly), to: string(models.PlanMonthly), mode: billing.ProrateAlwaysInvoice},
	models.ChangeFeaturedWeekly:  {from: string(models.PlanMonthly), to: string(models.PlanWeekly), mode: billing.ProrateNone},
}

var plannerTransitions = map[models.PlanChangeType]transition{
	models.ChangePlannerYearly:  {from: string(models.PlannerMonthly), to: string(models.PlannerYearly), mode: billing.ProrateAlwaysInvoice},
	models.ChangePlannerMonthly: {from: string(models.PlannerYearly), to: string(models.PlannerMonthly), mode: billing.ProrateNone},
}

// ChangePlan switches a subscription between billing intervals.
func (p *PlanChanger) ChangePlan(ctx context.Context, actor Actor, req ChangeRequest) (res *Result, err error) {
	defer func() { metrics.PlanChanges.WithLabelValues(string(req.Type), metrics.Outcome(err)).Inc() }()

	if t, ok := featuredTransitions[req.Type]; ok {
		return p.changeFeatured(ctx, actor, req.SubscriptionID, t)
	}
	if t, ok := plannerTransitions[req.Type]; ok {
		return p.changePlanner(ctx, actor, req.StripeSubscriptionID, t)
	}
	return nil, apperr.Validation("unknown plan change type %q", req.Type)
}

func (p *PlanChanger) changeFeatured(ctx context.Context, actor Actor, recordID string, t transition) (*Result, error) {
	// 1. --- Load and authorize ---
	rec, err := p.ownedRecord(ctx, actor, recordID)
	if err != nil {
		return nil, err
	}

	// 2. --- Check the transition ---
	if !isLive(rec.Status) {
		return nil, apperr.InvalidState("only active or trialing subscriptions can change plan (status is %s)", rec.Status)
	}
	if string(rec.PlanType) != t.from {
		return nil, apperr.InvalidTransition("cannot switch to %s: subscription is on the %s plan, expected %s",
			t.to, rec.PlanType, t.from)
	}
	if rec.StripeSubscriptionID == nil {
		return nil, apperr.InvalidState("subscription has not completed checkout")
	}
	target := models.PlanType(t.to)
	priceID, err := p.Catalog.FeaturedPrice(target)
	if err != nil {
		return nil, err
	}

	// 3. --- Mutate at the gateway, then mirror locally ---
	sub, err := p.Gateway.UpdateSubscriptionItem(ctx, *rec.StripeSubscriptionID, priceID, t.mode)
	if err != nil {
		return nil, gatewayErr("change_plan.update", err)
	}
	patch := gatewayPatch(sub)
	status := DeriveStatus(sub.Status)
	patch.Status = &status
	patch.PlanType = &target
	patch.StripePriceID = &priceID
	if err := p.Records.Update(ctx, rec.ID, patch); err != nil {
		return nil, err
	}

	p.Logger.Info().Str("subscription_id", rec.ID).Str("from", t.from).Str("to", t.to).
		Str("proration", string(t.mode)).Msg("featured plan changed")

	msg := fmt.Sprintf("Your listing now renews %s.", target)
	if t.mode == billing.ProrateAlwaysInvoice {
		msg += " The prorated difference has been invoiced."
	} else {
		msg += " The new price applies from your next billing cycle."
	}
	return p.result(ctx, rec.StripeCustomerID, p.Catalog.FeaturedReturnURL(), msg), nil
}

func (p *PlanChanger) changePlanner(ctx context.Context, actor Actor, stripeSubID string, t transition) (*Result, error) {
	// 1. --- Load and authorize ---
	sub, interval, err := p.ownedPlannerSubscription(ctx, actor, stripeSubID)
	if err != nil {
		return nil, err
	}

	// 2. --- Check the transition ---
	if !gatewayIsLive(sub.Status) {
		return nil, apperr.InvalidState("only active or trialing subscriptions can change plan (status is %s)", sub.Status)
	}
	if string(interval) != t.from {
		return nil, apperr.InvalidTransition("cannot switch to %s: subscription is on %s, expected %s", t.to, interval, t.from)
	}
	priceID, err := p.Catalog.PlannerPrice(models.PlannerInterval(t.to))
	if err != nil {
		return nil, err
	}

	// 3. --- Mutate at the gateway ---
	if _, err := p.Gateway.UpdateSubscriptionItem(ctx, sub.ID, priceID, t.mode); err != nil {
		return nil, gatewayErr("change_plan.update", err)
	}
	p.Logger.Info().Str("stripe_subscription_id", sub.ID).Str("from", t.from).Str("to", t.to).
		Str("proration", string(t.mode)).Msg("planner plan changed")

	msg := "Your family planner now renews yearly. The prorated difference has been invoiced."
	if t.mode == billing.ProrateNone {
		msg = "Your family planner switches to monthly billing at the next renewal."
	}
	return p.result(ctx, sub.CustomerID, p.Catalog.PlannerReturnURL(), msg), nil
}

// ReactivateFeatured undoes a cancellation. A subscription still live at the
// gateway only has its scheduled cancellation cleared; one that has lapsed gets a
// fresh checkout and the record returns to pending.
func (p *PlanChanger) ReactivateFeatured(ctx context.Context, actor Actor, recordID string) (res *Result, err error) {
	defer func() { metrics.PlanChanges.WithLabelValues("featured_reactivate", metrics.Outcome(err)).Inc() }()

	rec, err := p.ownedRecord(ctx, actor, recordID)
	if err != nil {
		return nil, err
	}
	if !isLive(rec.Status) && rec.Status != models.StatusCanceled {
		return nil, apperr.InvalidState("subscription cannot be reactivated (status is %s)", rec.Status)
	}
	if rec.StripeSubscriptionID == nil {
		return nil, apperr.InvalidState("subscription has not completed checkout")
	}

	sub, err := p.Gateway.RetrieveSubscription(ctx, *rec.StripeSubscriptionID)
	if err != nil && !isNotFoundAtGateway(err) {
		return nil, apperr.Gateway("reactivate.retrieve", err)
	}

	if sub != nil && gatewayIsLive(sub.Status) {
		if !sub.CancelAtPeriodEnd {
			return nil, apperr.InvalidState("subscription is not scheduled for cancellation")
		}
		updated, err := p.Gateway.SetCancelAtPeriodEnd(ctx, sub.ID, false)
		if err != nil {
			return nil, gatewayErr("reactivate.update", err)
		}
		patch := gatewayPatch(updated)
		patch.ClearCanceledAt = true
		patch.CanceledAt = nil
		status := DeriveStatus(updated.Status)
		patch.Status = &status
		if err := p.Records.Update(ctx, rec.ID, patch); err != nil {
			return nil, err
		}
		p.Logger.Info().Str("subscription_id", rec.ID).Msg("featured subscription reactivated")
		return p.result(ctx, rec.StripeCustomerID, p.Catalog.FeaturedReturnURL(),
			"Your subscription has been reactivated. You will not be charged until your next renewal."), nil
	}

	// The gateway subscription has lapsed: start over with a new checkout. The
	// record lets go of the old subscription so its late events no longer match.
	pending := models.StatusPending
	reopen := models.SubscriptionPatch{Status: &pending, ClearCanceledAt: true, ClearStripeSubscriptionID: true}
	if err := p.Records.Update(ctx, rec.ID, reopen); err != nil {
		return nil, err
	}
	sess, err := p.Checkout.openFeaturedSession(ctx, rec, rec.StripePriceID, 0)
	if err != nil {
		prev := rec.Status
		if rerr := p.Records.Update(ctx, rec.ID, models.SubscriptionPatch{
			Status:               &prev,
			CanceledAt:           rec.CanceledAt,
			StripeSubscriptionID: rec.StripeSubscriptionID,
		}); rerr != nil {
			p.Logger.Error().Err(rerr).Str("subscription_id", rec.ID).Msg("restoring status after failed checkout")
		}
		return nil, err
	}
	p.Logger.Info().Str("subscription_id", rec.ID).Str("session_id", sess.ID).Msg("featured resubscribe checkout started")
	return &Result{Success: true, RedirectURL: sess.URL, Message: "Complete checkout to reactivate your listing."}, nil
}

// ReactivatePlanner undoes a planner cancellation; lapsed subscriptions get a new checkout.
func (p *PlanChanger) ReactivatePlanner(ctx context.Context, actor Actor, stripeSubID string) (res *Result, err error) {
	defer func() { metrics.PlanChanges.WithLabelValues("planner_reactivate", metrics.Outcome(err)).Inc() }()

	sub, interval, err := p.ownedPlannerSubscription(ctx, actor, stripeSubID)
	if err != nil {
		return nil, err
	}

	if gatewayIsLive(sub.Status) {
		if !sub.CancelAtPeriodEnd {
			return nil, apperr.InvalidState("subscription is not scheduled for cancellation")
		}
		if _, err := p.Gateway.SetCancelAtPeriodEnd(ctx, sub.ID, false); err != nil {
			return nil, gatewayErr("reactivate.update", err)
		}
		return p.result(ctx, sub.CustomerID, p.Catalog.PlannerReturnURL(),
			"Your family planner subscription has been reactivated."), nil
	}
	if sub.Status != billing.StatusCanceled && sub.Status != billing.StatusIncompleteExpired {
		return nil, apperr.InvalidState("subscription cannot be reactivated (status is %s)", sub.Status)
	}

	priceID, err := p.Catalog.PlannerPrice(interval)
	if err != nil {
		return nil, err
	}
	sess, err := p.Checkout.openPlannerSession(ctx, actor.AccountID, sub.CustomerID, interval, priceID)
	if err != nil {
		return nil, err
	}
	return &Result{Success: true, RedirectURL: sess.URL, Message: "Complete checkout to reactivate your family planner."}, nil
}

// CancelFeatured schedules cancellation at the end of the current period.
func (p *PlanChanger) CancelFeatured(ctx context.Context, actor Actor, recordID string) (res *Result, err error) {
	defer func() { metrics.PlanChanges.WithLabelValues("featured_cancel", metrics.Outcome(err)).Inc() }()

	rec, err := p.ownedRecord(ctx, actor, recordID)
	if err != nil {
		return nil, err
	}
	if !isLive(rec.Status) && rec.Status != models.StatusPastDue {
		return nil, apperr.InvalidState("subscription cannot be canceled (status is %s)", rec.Status)
	}
	if rec.StripeSubscriptionID == nil {
		return nil, apperr.InvalidState("subscription has not completed checkout")
	}

	sub, err := p.Gateway.SetCancelAtPeriodEnd(ctx, *rec.StripeSubscriptionID, true)
	if err != nil {
		return nil, gatewayErr("cancel.update", err)
	}
	patch := gatewayPatch(sub)
	status := DeriveStatus(sub.Status)
	patch.Status = &status
	if err := p.Records.Update(ctx, rec.ID, patch); err != nil {
		return nil, err
	}
	p.Logger.Info().Str("subscription_id", rec.ID).Msg("featured subscription scheduled for cancellation")

	msg := "Your subscription will end at the close of the current billing period."
	if sub.CurrentPeriodEnd != nil {
		msg = fmt.Sprintf("Your subscription will end on %s.", sub.CurrentPeriodEnd.UTC().Format("January 2, 2006"))
	}
	return p.result(ctx, rec.StripeCustomerID, p.Catalog.FeaturedReturnURL(), msg), nil
}

// CancelPlanner schedules a planner subscription to end with its current period.
func (p *PlanChanger) CancelPlanner(ctx context.Context, actor Actor, stripeSubID string) (res *Result, err error) {
	defer func() { metrics.PlanChanges.WithLabelValues("planner_cancel", metrics.Outcome(err)).Inc() }()

	sub, _, err := p.ownedPlannerSubscription(ctx, actor, stripeSubID)
	if err != nil {
		return nil, err
	}
	if !gatewayIsLive(sub.Status) && sub.Status != billing.StatusPastDue {
		return nil, apperr.InvalidState("subscription cannot be canceled (status is %s)", sub.Status)
	}
	if _, err := p.Gateway.SetCancelAtPeriodEnd(ctx, sub.ID, true); err != nil {
		return nil, gatewayErr("cancel.update", err)
	}
	return p.result(ctx, sub.CustomerID, p.Catalog.PlannerReturnURL(),
		"Your family planner will return to the free plan at the end of the billing period."), nil
}

// DeleteRecord removes a record that never became billable or has ended.
func (p *PlanChanger) DeleteRecord(ctx context.Context, actor Actor, recordID string) error {
	rec, err := p.ownedRecord(ctx, actor, recordID)
	if err != nil {
		return err
	}
	if !rec.Status.Deletable() {
		return apperr.InvalidState("only pending, canceled or expired subscriptions can be deleted (status is %s)", rec.Status)
	}
	return p.Records.Delete(ctx, rec.ID)
}

// PortalURL opens a billing-portal session for the caller's billing customer.
func (p *PlanChanger) PortalURL(ctx context.Context, actor Actor) (string, error) {
	customerID, found, err := p.Records.FindCustomerIDForAccount(ctx, actor.AccountID)
	if err != nil {
		return "", err
	}
	returnURL := p.Catalog.FeaturedReturnURL()
	if !found {
		id, ok, err := p.Gateway.FindCustomerByEmail(ctx, actor.Email)
		if err != nil {
			return "", apperr.Gateway("portal.customer", err)
		}
		if !ok {
			return "", apperr.NotFound("no billing account found")
		}
		customerID = id
		returnURL = p.Catalog.PlannerReturnURL()
	}
	url, err := p.Gateway.CreateBillingPortalSession(ctx, customerID, returnURL)
	if err != nil {
		return "", apperr.Gateway("portal.session", err)
	}
	return url, nil
}

func (p *PlanChanger) ownedRecord(ctx context.Context, actor Actor, recordID string) (*models.SubscriptionRecord, error) {
	if strings.TrimSpace(recordID) == "" {
		return nil, apperr.Validation("subscriptionId is required")
	}
	rec, err := p.Records.Get(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if rec.AccountID != actor.AccountID {
		return nil, apperr.Forbidden("subscription belongs to another account")
	}
	return rec, nil
}

// ownedPlannerSubscription loads a planner subscription and checks that its
// gateway customer shares the caller's email.
func (p *PlanChanger) ownedPlannerSubscription(ctx context.Context, actor Actor, stripeSubID string) (*billing.Subscription, models.PlannerInterval, error) {
	if strings.TrimSpace(stripeSubID) == "" {
		return nil, "", apperr.Validation("stripeSubscriptionId is required")
	}
	sub, err := p.Gateway.RetrieveSubscription(ctx, stripeSubID)
	if err != nil {
		return nil, "", gatewayErr("planner.retrieve", err)
	}
	cust, err := p.Gateway.RetrieveCustomer(ctx, sub.CustomerID)
	if err != nil {
		return nil, "", gatewayErr("planner.customer", err)
	}
	if actor.Email == "" || !strings.EqualFold(cust.Email, actor.Email) {
		return nil, "", apperr.Forbidden("subscription belongs to another account")
	}
	interval, ok := p.Catalog.PlannerIntervalFor(sub.PriceID)
	if !ok {
		return nil, "", apperr.InvalidState("not a family planner subscription")
	}
	return sub, interval, nil
}

// result opens a billing-portal session for the confirmation redirect. By now the
// mutation has committed, so a portal failure only drops the redirect.
func (p *PlanChanger) result(ctx context.Context, customerID, returnURL, msg string) *Result {
	res := &Result{Success: true, Message: msg}
	if customerID == "" {
		return res
	}
	url, err := p.Gateway.CreateBillingPortalSession(ctx, customerID, returnURL)
	if err != nil {
		p.Logger.Warn().Err(err).Str("customer_id", customerID).Msg("billing portal session failed")
		return res
	}
	res.RedirectURL = url
	return res
}
