package routes_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/01moynul/familyhub-golang/internal/app"
	"github.com/01moynul/familyhub-golang/internal/auth"
	"github.com/01moynul/familyhub-golang/internal/billing"
	"github.com/01moynul/familyhub-golang/internal/config"
	"github.com/01moynul/familyhub-golang/internal/database/dbtest"
	"github.com/01moynul/familyhub-golang/internal/email"
	"github.com/01moynul/familyhub-golang/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jwtSecret = "test-secret"

type env struct {
	t   *testing.T
	svc *app.App
	gw  *billing.MockGateway
}

func newEnv(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		JWTSecret:           jwtSecret,
		AppURL:              "https://kids.example.com",
		FrontendOrigin:      "https://kids.example.com",
		StripeWebhookSecret: "whsec_test",
		FeaturedPrices: map[models.PlanType]string{
			models.PlanTrial:   "price_trial",
			models.PlanWeekly:  "price_weekly",
			models.PlanMonthly: "price_monthly",
		},
		PlannerPrices: map[models.PlannerInterval]string{
			models.PlannerMonthly: "price_planner_monthly",
			models.PlannerYearly:  "price_planner_yearly",
		},
		FeaturedTrialDays: 7,
		FreeLimits: map[models.PlannerResource]int{
			models.ResourceSavedPrograms: 5,
			models.ResourceChildren:      1,
			models.ResourceAdults:        1,
		},
		PendingCheckoutTTL: 48 * time.Hour,
		SweepInterval:      time.Hour,
		AdminEmails:        []string{"admin@x.com"},
	}
	gw := billing.NewMockGateway()
	return &env{
		t:   t,
		svc: app.New(cfg, dbtest.New(t), gw, &email.RecordingSender{}, zerolog.Nop()),
		gw:  gw,
	}
}

func (e *env) token(accountID, mail string) string {
	tok, err := auth.GenerateToken([]byte(jwtSecret), auth.Identity{AccountID: accountID, Email: mail, Name: "Test"}, time.Hour)
	require.NoError(e.t, err)
	return tok
}

func (e *env) do(method, path, token string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(e.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.svc.Router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

// checkout starts a weekly featured checkout for a fresh program and returns the record id.
func (e *env) checkout(token string) string {
	e.t.Helper()
	p, err := e.svc.Handlers.Programs.Create(context.Background(), models.ProgramDraft{Name: "Little Movers"})
	require.NoError(e.t, err)

	w := e.do(http.MethodPost, "/v1/featured/checkout", token, gin.H{
		"programId":    p.ID,
		"planType":     "weekly",
		"contactName":  "Jane",
		"contactEmail": "jane@x.com",
	})
	require.Equal(e.t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(e.t, w)
	assert.NotEmpty(e.t, body["url"])
	return body["subscriptionId"].(string)
}

func completionPayload(recordID, subID string) gin.H {
	return gin.H{
		"id":   "evt_" + subID,
		"type": "checkout.session.completed",
		"data": gin.H{"object": gin.H{
			"id":           "cs_done",
			"customer":     "cus_mock_1",
			"subscription": subID,
			"metadata":     gin.H{"subscription_record_id": recordID},
		}},
	}
}

func TestPing(t *testing.T) {
	e := newEnv(t)
	w := e.do(http.MethodGet, "/v1/ping", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong!", decode(t, w)["message"])
}

func TestAuthRequired(t *testing.T) {
	e := newEnv(t)
	w := e.do(http.MethodPost, "/v1/featured/checkout", "", gin.H{"planType": "weekly"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestFeaturedCheckoutValidation(t *testing.T) {
	e := newEnv(t)
	w := e.do(http.MethodPost, "/v1/featured/checkout", e.token("acct-jane", "jane@x.com"), gin.H{
		"planType":     "weekly",
		"contactName":  "Jane",
		"contactEmail": "jane@x.com",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, e.gw.CheckoutCalls)
}

func TestWebhookLifecycle(t *testing.T) {
	e := newEnv(t)
	jane := e.token("acct-jane", "jane@x.com")
	recordID := e.checkout(jane)

	t.Run("bad signature is rejected", func(t *testing.T) {
		e.gw.VerifyErr = errors.New("no signatures found")
		defer func() { e.gw.VerifyErr = nil }()

		w := e.do(http.MethodPost, "/v1/webhooks/stripe", "", completionPayload(recordID, "sub_1"))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Invalid signature", decode(t, w)["error"])
	})

	t.Run("gateway failure asks for a retry", func(t *testing.T) {
		e.gw.RetrieveSubscriptionErr = errors.New("connection reset")
		defer func() { e.gw.RetrieveSubscriptionErr = nil }()

		w := e.do(http.MethodPost, "/v1/webhooks/stripe", "", completionPayload(recordID, "sub_1"))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("completion activates the listing", func(t *testing.T) {
		e.gw.AddSubscription(billing.Subscription{ID: "sub_1", CustomerID: "cus_mock_1", Status: billing.StatusActive, PriceID: "price_weekly"})

		w := e.do(http.MethodPost, "/v1/webhooks/stripe", "", completionPayload(recordID, "sub_1"))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		body := decode(t, w)
		assert.Equal(t, true, body["received"])
		assert.Equal(t, "applied", body["outcome"])

		list := decode(t, e.do(http.MethodGet, "/v1/featured/subscriptions", jane, nil))
		subs := list["subscriptions"].([]any)
		require.Len(t, subs, 1)
	})

	t.Run("unknown event types are acknowledged", func(t *testing.T) {
		w := e.do(http.MethodPost, "/v1/webhooks/stripe", "", gin.H{"id": "evt_x", "type": "customer.created", "data": gin.H{"object": gin.H{}}})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ignored", decode(t, w)["outcome"])
	})

	t.Run("other accounts cannot change the plan", func(t *testing.T) {
		bob := e.token("acct-bob", "bob@x.com")
		w := e.do(http.MethodPost, "/v1/subscriptions/change-plan", bob, gin.H{"type": "featured_monthly", "subscriptionId": recordID})
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Empty(t, e.gw.UpdateCalls)
	})

	t.Run("owner upgrades with immediate invoice", func(t *testing.T) {
		w := e.do(http.MethodPost, "/v1/subscriptions/change-plan", jane, gin.H{"type": "featured_monthly", "subscriptionId": recordID})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, true, decode(t, w)["success"])
		require.Len(t, e.gw.UpdateCalls, 1)
		assert.Equal(t, billing.ProrateAlwaysInvoice, e.gw.UpdateCalls[0].Mode)
	})
}

func TestPlannerLimits(t *testing.T) {
	e := newEnv(t)
	tok := e.token("acct-jane", "jane@x.com")

	w := e.do(http.MethodPost, "/v1/planner/children", tok, gin.H{"name": "Ada"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = e.do(http.MethodPost, "/v1/planner/children", tok, gin.H{"name": "Grace"})
	require.Equal(t, http.StatusForbidden, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(1), body["limit"])
	assert.Equal(t, "children", body["resource"])

	plan := decode(t, e.do(http.MethodGet, "/v1/planner/plan", tok, nil))
	assert.Equal(t, "free", plan["tier"])

	// A pro subscription lifts the limit.
	e.gw.AddCustomer("cus_pro", "jane@x.com")
	e.gw.AddSubscription(billing.Subscription{ID: "sub_pro", CustomerID: "cus_pro", Status: billing.StatusActive, PriceID: "price_planner_monthly"})
	w = e.do(http.MethodPost, "/v1/planner/children", tok, gin.H{"name": "Grace"})
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	children := decode(t, e.do(http.MethodGet, "/v1/planner/children", tok, nil))
	assert.Len(t, children["children"], 2)
}

func TestAdminRoutes(t *testing.T) {
	e := newEnv(t)
	e.checkout(e.token("acct-jane", "jane@x.com"))

	w := e.do(http.MethodGet, "/v1/admin/subscriptions", e.token("acct-jane", "jane@x.com"), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	admin := e.token("acct-admin", "admin@x.com")
	w = e.do(http.MethodGet, "/v1/admin/subscriptions?status=pending", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["count"])

	w = e.do(http.MethodGet, "/v1/admin/subscriptions?status=bogus", admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(http.MethodGet, fmt.Sprintf("/v1/admin/subscriptions?limit=%d", 1000), admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	e := newEnv(t)
	w := e.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
