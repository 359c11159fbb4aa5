package subscriptions

import (
	"context"
	"errors"
	"time"

	"github.com/01moynul/familyhub-golang/internal/apperr"
	"github.com/01moynul/familyhub-golang/internal/billing"
	"github.com/01moynul/familyhub-golang/internal/metrics"
	"github.com/01moynul/familyhub-golang/internal/models"
	"github.com/rs/zerolog"
)

// Outcome describes what the reconciler did with an event.
type Outcome string

const (
	OutcomeApplied Outcome = "applied"
	OutcomeIgnored Outcome = "ignored"
)

// followUp is a best-effort side effect run after the state change committed.
type followUp struct {
	kind string
	run  func(ctx context.Context) error
}

// Reconciler turns verified billing events into local state changes. Every
// handler re-reads the gateway instead of trusting earlier local writes, so a
// replayed or reordered event converges on the same state.
type Reconciler struct {
	Records       RecordStore
	Programs      ProgramStore
	Gateway       billing.Gateway
	Notifier      Notifier
	Catalog       Catalog
	WebhookSecret string
	Logger        zerolog.Logger
	Now           func() time.Time
}

// HandleWebhook verifies the payload signature and applies the event.
func (r *Reconciler) HandleWebhook(ctx context.Context, payload []byte, signature string) (Outcome, error) {
	evt, err := r.Gateway.VerifyWebhookSignature(payload, signature, r.WebhookSecret)
	if err != nil {
		metrics.WebhookEvents.WithLabelValues("unknown", "rejected").Inc()
		return "", apperr.Signature(err)
	}
	return r.Apply(ctx, evt)
}

// Apply processes one verified event. A returned error means the commit phase
// failed and the gateway should redeliver; notification failures never surface.
func (r *Reconciler) Apply(ctx context.Context, evt *billing.Event) (Outcome, error) {
	log := r.Logger.With().Str("event_id", evt.ID).Str("event_type", string(evt.Type)).Logger()

	var (
		outcome Outcome
		follow  []followUp
		err     error
	)
	switch evt.Type {
	case billing.EventCheckoutCompleted:
		outcome, follow, err = r.checkoutCompleted(ctx, log, evt.Session)
	case billing.EventSubscriptionUpdated:
		outcome, err = r.subscriptionUpdated(ctx, log, evt.Subscription)
	case billing.EventSubscriptionDeleted:
		outcome, err = r.subscriptionDeleted(ctx, log, evt.Subscription)
	case billing.EventSubscriptionTrialEnds:
		outcome, follow, err = r.trialWillEnd(ctx, evt.Subscription)
	case billing.EventInvoiceUpcoming:
		outcome, follow, err = r.invoiceUpcoming(ctx, evt.Invoice)
	case billing.EventInvoicePaymentFailed:
		outcome, err = r.paymentFailed(ctx, log, evt.Invoice)
	default:
		outcome = OutcomeIgnored
	}

	if err != nil {
		metrics.WebhookEvents.WithLabelValues(string(evt.Type), "failed").Inc()
		log.Error().Err(err).Msg("webhook event processing failed")
		return "", err
	}

	for _, f := range follow {
		if ferr := f.run(ctx); ferr != nil {
			metrics.NotificationFailures.WithLabelValues(f.kind).Inc()
			log.Warn().Err(ferr).Str("notification", f.kind).Msg("notification failed")
		}
	}

	metrics.WebhookEvents.WithLabelValues(string(evt.Type), string(outcome)).Inc()
	log.Info().Str("outcome", string(outcome)).Msg("webhook event processed")
	return outcome, nil
}

func (r *Reconciler) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now().UTC().Truncate(time.Second)
}

// lookup resolves the record mapped to an external subscription id.
func (r *Reconciler) lookup(ctx context.Context, stripeSubID string) (*models.SubscriptionRecord, bool, error) {
	if stripeSubID == "" {
		return nil, false, nil
	}
	return r.Records.FindByExternalSubscriptionID(ctx, stripeSubID)
}

func (r *Reconciler) checkoutCompleted(ctx context.Context, log zerolog.Logger, s *billing.CheckoutSession) (Outcome, []followUp, error) {
	if s == nil {
		return OutcomeIgnored, nil, nil
	}

	// 1. --- Resolve the record ---
	recordID := s.Metadata[MetaRecordID]
	if recordID == "" {
		log.Debug().Str("product", s.Metadata[MetaProduct]).Msg("checkout without subscription record")
		return OutcomeIgnored, nil, nil
	}
	rec, err := r.Records.Get(ctx, recordID)
	if isNotFound(err) {
		log.Warn().Str("subscription_id", recordID).Msg("checkout references an unknown subscription record")
		return OutcomeIgnored, nil, nil
	}
	if err != nil {
		return "", nil, err
	}
	if s.SubscriptionID == "" {
		log.Warn().Str("subscription_id", rec.ID).Msg("completed checkout carries no subscription")
		return OutcomeIgnored, nil, nil
	}

	// 2. --- One record per external subscription ---
	other, found, err := r.Records.FindByExternalSubscriptionID(ctx, s.SubscriptionID)
	if err != nil {
		return "", nil, err
	}
	if found && other.ID != rec.ID {
		log.Warn().Str("subscription_id", rec.ID).Str("mapped_to", other.ID).
			Str("stripe_subscription_id", s.SubscriptionID).Msg("external subscription already mapped")
		return OutcomeIgnored, nil, nil
	}

	// 3. --- Re-derive from the gateway ---
	sub, err := r.Gateway.RetrieveSubscription(ctx, s.SubscriptionID)
	if isNotFoundAtGateway(err) {
		log.Warn().Str("subscription_id", rec.ID).Str("stripe_subscription_id", s.SubscriptionID).
			Msg("completed checkout references a subscription the gateway does not have")
		return OutcomeIgnored, nil, nil
	}
	if err != nil {
		return "", nil, gatewayErr("webhook.checkout.retrieve", err)
	}
	status := DeriveStatus(sub.Status)

	// A terminal record only comes back for a subscription it was not bound to
	// that the gateway reports live: a payment that outran the pending sweep, or
	// the checkout opened by a reactivation.
	if rec.Status.IsTerminal() {
		bound := rec.StripeSubscriptionID != nil && *rec.StripeSubscriptionID == sub.ID
		if bound || !gatewayIsLive(sub.Status) {
			log.Info().Str("subscription_id", rec.ID).Str("status", string(rec.Status)).
				Str("gateway_status", sub.Status).Msg("checkout completed for a terminal record; leaving it")
			return OutcomeIgnored, nil, nil
		}
		log.Warn().Str("subscription_id", rec.ID).Str("status", string(rec.Status)).
			Str("stripe_subscription_id", sub.ID).Msg("live checkout revives a terminal record")
	}
	firstLive := rec.Status == models.StatusPending || rec.Status.IsTerminal()

	// 4. --- Materialize the listing once ---
	programID := rec.ProgramID
	listingName := ""
	if programID == nil {
		if rec.ProgramData == nil {
			return "", nil, apperr.Internal("webhook.checkout", errors.New("record has neither program id nor program data"))
		}
		p, err := r.Programs.Materialize(ctx, rec.ID, *rec.ProgramData)
		if err != nil {
			return "", nil, err
		}
		programID = &p.ID
		listingName = p.Name
		if err := r.Records.Update(ctx, rec.ID, models.SubscriptionPatch{ProgramID: programID}); err != nil {
			return "", nil, err
		}
		log.Info().Str("subscription_id", rec.ID).Str("program_id", p.ID).Msg("listing materialized")
	}

	// 5. --- Commit the gateway state ---
	patch := gatewayPatch(sub)
	patch.StripeSubscriptionID = &sub.ID
	patch.Status = &status
	if s.CustomerID != "" {
		patch.StripeCustomerID = &s.CustomerID
	}
	if sub.PriceID != "" {
		patch.StripePriceID = &sub.PriceID
	}
	if err := r.Records.Update(ctx, rec.ID, patch); err != nil {
		return "", nil, err
	}

	if isLive(status) {
		if err := r.feature(ctx, log, programID, true); err != nil {
			return "", nil, err
		}
	}

	if !firstLive || !isLive(status) {
		return OutcomeApplied, nil, nil
	}

	// 6. --- Welcome email, only on the transition into a live status ---
	updated := *rec
	updated.Status = status
	updated.TrialEnd = sub.TrialEnd
	updated.ProgramID = programID
	welcome := followUp{kind: "featured_welcome", run: func(ctx context.Context) error {
		name := listingName
		if name == "" {
			name = r.listingName(ctx, *programID, &updated)
		}
		return r.Notifier.FeaturedWelcome(ctx, &updated, name)
	}}
	return OutcomeApplied, []followUp{welcome}, nil
}

// feature sets the listing's featured flag. A listing deleted since is tolerated.
func (r *Reconciler) feature(ctx context.Context, log zerolog.Logger, programID *string, featured bool) error {
	if programID == nil {
		return nil
	}
	if err := r.Programs.SetFeatured(ctx, *programID, featured); err != nil {
		if !isNotFound(err) {
			return err
		}
		log.Warn().Str("program_id", *programID).Msg("featured listing no longer exists")
	}
	return nil
}

func (r *Reconciler) listingName(ctx context.Context, programID string, rec *models.SubscriptionRecord) string {
	p, err := r.Programs.Get(ctx, programID)
	if err == nil {
		return p.Name
	}
	if rec.ProgramData != nil {
		return rec.ProgramData.Name
	}
	return "your listing"
}

func (r *Reconciler) subscriptionUpdated(ctx context.Context, log zerolog.Logger, evtSub *billing.Subscription) (Outcome, error) {
	if evtSub == nil {
		return OutcomeIgnored, nil
	}
	rec, found, err := r.lookup(ctx, evtSub.ID)
	if err != nil {
		return "", err
	}
	if !found {
		return OutcomeIgnored, nil
	}

	sub, err := r.Gateway.RetrieveSubscription(ctx, evtSub.ID)
	if isNotFoundAtGateway(err) {
		log.Warn().Str("subscription_id", rec.ID).Str("stripe_subscription_id", evtSub.ID).
			Msg("updated event for a subscription the gateway does not have")
		return OutcomeIgnored, nil
	}
	if err != nil {
		return "", gatewayErr("webhook.updated.retrieve", err)
	}
	status := DeriveStatus(sub.Status)
	if rec.Status.IsTerminal() && !status.IsTerminal() {
		log.Warn().Str("subscription_id", rec.ID).Str("status", string(rec.Status)).
			Str("gateway_status", sub.Status).Msg("not reviving a terminal subscription from an update event")
		return OutcomeIgnored, nil
	}

	patch := gatewayPatch(sub)
	patch.Status = &status
	if sub.PriceID != "" && sub.PriceID != rec.StripePriceID {
		// Plan changed outside the app, e.g. in the billing portal.
		if plan, ok := r.Catalog.FeaturedPlanFor(sub.PriceID); ok {
			patch.StripePriceID = &sub.PriceID
			patch.PlanType = &plan
		}
	}
	if err := r.Records.Update(ctx, rec.ID, patch); err != nil {
		return "", err
	}

	// Payment can settle after checkout, e.g. incomplete then active.
	switch {
	case isLive(status):
		err = r.feature(ctx, log, rec.ProgramID, true)
	case status.IsTerminal():
		err = r.feature(ctx, log, rec.ProgramID, false)
	}
	if err != nil {
		return "", err
	}
	return OutcomeApplied, nil
}

func (r *Reconciler) subscriptionDeleted(ctx context.Context, log zerolog.Logger, evtSub *billing.Subscription) (Outcome, error) {
	if evtSub == nil {
		return OutcomeIgnored, nil
	}
	rec, found, err := r.lookup(ctx, evtSub.ID)
	if err != nil {
		return "", err
	}
	if !found {
		return OutcomeIgnored, nil
	}

	if !rec.Status.IsTerminal() {
		canceled := models.StatusCanceled
		at := r.now()
		if evtSub.CanceledAt != nil {
			at = *evtSub.CanceledAt
		}
		if err := r.Records.Update(ctx, rec.ID, models.SubscriptionPatch{Status: &canceled, CanceledAt: &at}); err != nil {
			return "", err
		}
	}

	if err := r.feature(ctx, log, rec.ProgramID, false); err != nil {
		return "", err
	}
	return OutcomeApplied, nil
}

func (r *Reconciler) trialWillEnd(ctx context.Context, evtSub *billing.Subscription) (Outcome, []followUp, error) {
	if evtSub == nil {
		return OutcomeIgnored, nil, nil
	}
	rec, found, err := r.lookup(ctx, evtSub.ID)
	if err != nil {
		return "", nil, err
	}
	if !found || rec.Status.IsTerminal() {
		return OutcomeIgnored, nil, nil
	}
	trialEnd := evtSub.TrialEnd
	if trialEnd == nil {
		trialEnd = rec.TrialEnd
	}
	return OutcomeApplied, []followUp{{kind: "trial_ending", run: func(ctx context.Context) error {
		return r.Notifier.TrialEnding(ctx, rec, trialEnd)
	}}}, nil
}

func (r *Reconciler) invoiceUpcoming(ctx context.Context, inv *billing.Invoice) (Outcome, []followUp, error) {
	if inv == nil {
		return OutcomeIgnored, nil, nil
	}
	rec, found, err := r.lookup(ctx, inv.SubscriptionID)
	if err != nil {
		return "", nil, err
	}
	if !found || rec.Status.IsTerminal() {
		return OutcomeIgnored, nil, nil
	}
	return OutcomeApplied, []followUp{{kind: "upcoming_charge", run: func(ctx context.Context) error {
		return r.Notifier.UpcomingCharge(ctx, rec, inv.AmountDue, inv.Currency, inv.NextPaymentAttempt)
	}}}, nil
}

func (r *Reconciler) paymentFailed(ctx context.Context, log zerolog.Logger, inv *billing.Invoice) (Outcome, error) {
	if inv == nil {
		return OutcomeIgnored, nil
	}
	rec, found, err := r.lookup(ctx, inv.SubscriptionID)
	if err != nil {
		return "", err
	}
	if !found {
		return OutcomeIgnored, nil
	}
	if rec.Status.IsTerminal() {
		log.Info().Str("subscription_id", rec.ID).Msg("payment failure for a terminal subscription")
		return OutcomeIgnored, nil
	}
	pastDue := models.StatusPastDue
	if err := r.Records.Update(ctx, rec.ID, models.SubscriptionPatch{Status: &pastDue}); err != nil {
		return "", err
	}
	return OutcomeApplied, nil
}
