package config

import (
	"testing"
	"time"

	"github.com/01moynul/familyhub-golang/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv(envMap(nil))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, int64(DefaultTrialDays), cfg.FeaturedTrialDays)
	assert.Equal(t, DefaultSavedProgramsLimit, cfg.FreeLimits[models.ResourceSavedPrograms])
	assert.Equal(t, DefaultChildrenLimit, cfg.FreeLimits[models.ResourceChildren])
	assert.Equal(t, DefaultAdultsLimit, cfg.FreeLimits[models.ResourceAdults])
	assert.Empty(t, cfg.FeaturedPrices)
	assert.Empty(t, cfg.PlannerPrices)
	assert.Equal(t, 48*time.Hour, cfg.PendingCheckoutTTL)
	assert.Equal(t, time.Hour, cfg.SweepInterval)
}

func TestFromEnvPricesAndAdmins(t *testing.T) {
	cfg, err := FromEnv(envMap(map[string]string{
		"STRIPE_PRICE_FEATURED_WEEKLY":  "price_w",
		"STRIPE_PRICE_FEATURED_MONTHLY": "price_m",
		"STRIPE_PRICE_PLANNER_YEARLY":   "price_py",
		"ADMIN_EMAILS":                  " owner@example.com, ops@example.com ,",
		"APP_URL":                       "https://kids.example.com/",
		"FREE_LIMIT_CHILDREN":           "4",
	}))
	require.NoError(t, err)

	assert.Equal(t, "price_w", cfg.FeaturedPrices[models.PlanWeekly])
	_, hasTrial := cfg.FeaturedPrices[models.PlanTrial]
	assert.False(t, hasTrial, "unset prices must not get a default")
	assert.Equal(t, map[string]bool{"price_py": true}, cfg.PlannerPriceSet())
	assert.Equal(t, "https://kids.example.com", cfg.AppURL)
	assert.Equal(t, 4, cfg.FreeLimits[models.ResourceChildren])
	assert.True(t, cfg.IsAdmin("OPS@example.com"))
	assert.False(t, cfg.IsAdmin("parent@example.com"))
}

func TestFromEnvRejectsBadNumbers(t *testing.T) {
	_, err := FromEnv(envMap(map[string]string{"FEATURED_TRIAL_DAYS": "seven"}))
	assert.Error(t, err)

	_, err = FromEnv(envMap(map[string]string{"FREE_LIMIT_ADULTS": "-1"}))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg, err := FromEnv(envMap(map[string]string{"DB_DSN_PRIMARY": "dsn"}))
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
	assert.Contains(t, err.Error(), "STRIPE_WEBHOOK_SECRET")
	assert.NotContains(t, err.Error(), "DB_DSN_PRIMARY")
}
