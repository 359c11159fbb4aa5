package subscriptions

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/01moynul/familyhub-golang/internal/billing"
	"github.com/01moynul/familyhub-golang/internal/database/dbtest"
	"github.com/01moynul/familyhub-golang/internal/email"
	"github.com/01moynul/familyhub-golang/internal/models"
	"github.com/01moynul/familyhub-golang/internal/notify"
	"github.com/01moynul/familyhub-golang/internal/store"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const appURL = "https://kids.example.com"

func testCatalog() Catalog {
	return Catalog{
		FeaturedPrices: map[models.PlanType]string{
			models.PlanTrial:   "price_trial",
			models.PlanWeekly:  "price_weekly",
			models.PlanMonthly: "price_monthly",
		},
		PlannerPrices: map[models.PlannerInterval]string{
			models.PlannerMonthly: "price_planner_monthly",
			models.PlannerYearly:  "price_planner_yearly",
		},
		TrialDays: 7,
		AppURL:    appURL,
	}
}

type harness struct {
	ctx      context.Context
	db       *sql.DB
	records  *store.SubscriptionStore
	programs *store.ProgramStore
	gw       *billing.MockGateway
	sender   *email.RecordingSender
	checkout *Checkout
	recon    *Reconciler
	plans    *PlanChanger
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := dbtest.New(t)
	h := &harness{
		ctx:      context.Background(),
		db:       db,
		records:  store.NewSubscriptionStore(db),
		programs: store.NewProgramStore(db),
		gw:       billing.NewMockGateway(),
		sender:   &email.RecordingSender{},
	}
	log := zerolog.Nop()
	cat := testCatalog()
	h.checkout = &Checkout{Records: h.records, Gateway: h.gw, Catalog: cat, Logger: log}
	h.recon = &Reconciler{
		Records:       h.records,
		Programs:      h.programs,
		Gateway:       h.gw,
		Notifier:      notify.New(h.sender, appURL),
		Catalog:       cat,
		WebhookSecret: "whsec_test",
		Logger:        log,
	}
	h.plans = &PlanChanger{Records: h.records, Gateway: h.gw, Catalog: cat, Checkout: h.checkout, Logger: log}
	return h
}

var jane = Actor{AccountID: "acct-jane", Email: "jane@x.com", Name: "Jane"}

func (h *harness) program(t *testing.T, name string) *models.Program {
	t.Helper()
	p, err := h.programs.Create(h.ctx, models.ProgramDraft{Name: name})
	require.NoError(t, err)
	return p
}

func (h *harness) startFeatured(t *testing.T, programID string, plan string) *Session {
	t.Helper()
	sess, err := h.checkout.StartFeatured(h.ctx, FeaturedRequest{
		AccountID:    jane.AccountID,
		ProgramID:    &programID,
		PlanType:     plan,
		ContactName:  "Jane",
		ContactEmail: "jane@x.com",
	})
	require.NoError(t, err)
	return sess
}

// completionEvent registers a gateway subscription for the most recent checkout
// and returns the matching checkout.session.completed event.
func (h *harness) completionEvent(t *testing.T, subID, status string) *billing.Event {
	t.Helper()
	require.NotEmpty(t, h.gw.CheckoutCalls)
	call := h.gw.CheckoutCalls[len(h.gw.CheckoutCalls)-1]

	start := time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 7)
	sub := billing.Subscription{
		ID:                 subID,
		CustomerID:         call.CustomerID,
		Status:             status,
		PriceID:            call.PriceID,
		CurrentPeriodStart: &start,
		CurrentPeriodEnd:   &end,
	}
	if status == billing.StatusTrialing {
		sub.TrialStart = &start
		sub.TrialEnd = &end
	}
	h.gw.AddSubscription(sub)

	return &billing.Event{
		ID:   "evt_" + subID,
		Type: billing.EventCheckoutCompleted,
		Session: &billing.CheckoutSession{
			ID:             "cs_done",
			CustomerID:     call.CustomerID,
			SubscriptionID: subID,
			Metadata:       call.Metadata,
		},
	}
}

func (h *harness) apply(t *testing.T, evt *billing.Event) Outcome {
	t.Helper()
	out, err := h.recon.Apply(h.ctx, evt)
	require.NoError(t, err)
	return out
}

// activeRecord runs a featured checkout through completion.
func (h *harness) activeRecord(t *testing.T, plan models.PlanType, subID string) *models.SubscriptionRecord {
	t.Helper()
	p := h.program(t, "Little Movers "+subID)
	sess := h.startFeatured(t, p.ID, string(plan))
	h.apply(t, h.completionEvent(t, subID, billing.StatusActive))
	rec, err := h.records.Get(h.ctx, sess.RecordID)
	require.NoError(t, err)
	return rec
}

func (h *harness) record(t *testing.T, id string) *models.SubscriptionRecord {
	t.Helper()
	rec, err := h.records.Get(h.ctx, id)
	require.NoError(t, err)
	return rec
}

func (h *harness) countPrograms(t *testing.T) int {
	t.Helper()
	var n int
	require.NoError(t, h.db.QueryRowContext(h.ctx, "SELECT COUNT(*) FROM programs").Scan(&n))
	return n
}

func subEvent(typ billing.EventType, sub billing.Subscription) *billing.Event {
	return &billing.Event{ID: "evt_" + string(typ) + "_" + sub.ID, Type: typ, Subscription: &sub}
}
