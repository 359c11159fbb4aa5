package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/01moynul/familyhub-golang/internal/models"
	"github.com/joho/godotenv"
)

// Config is built once at startup and passed to everything that needs it.
type Config struct {
	Port           string
	DatabaseDSN    string
	JWTSecret      string
	AppURL         string // used to build checkout success/cancel and portal return URLs
	FrontendOrigin string
	LogLevel       string
	LogPretty      bool

	StripeSecretKey     string
	StripeWebhookSecret string

	// FeaturedPrices maps a featured-listing tier to its Stripe price id.
	FeaturedPrices map[models.PlanType]string
	// PlannerPrices maps a planner billing interval to its Stripe price id.
	PlannerPrices map[models.PlannerInterval]string

	FeaturedTrialDays int64
	FreeLimits        map[models.PlannerResource]int

	// PendingCheckoutTTL is how long a pending record may sit before the sweeper
	// expires it; SweepInterval is how often the sweeper runs.
	PendingCheckoutTTL time.Duration
	SweepInterval      time.Duration

	AdminEmails []string
}

// Default free-tier limits for the family planner.
const (
	DefaultSavedProgramsLimit = 5
	DefaultChildrenLimit      = 2
	DefaultAdultsLimit        = 1
	DefaultTrialDays          = 7
	DefaultPendingTTLHours    = 48
	DefaultSweepMinutes       = 60
)

// Load reads the .env file (if present) and the process environment.
func Load() (*Config, error) {
	// A missing .env is normal in production; the environment is the fallback.
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function.
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		Port:                valueOr(getenv("PORT"), "8080"),
		DatabaseDSN:         getenv("DB_DSN_PRIMARY"),
		JWTSecret:           getenv("JWT_SECRET"),
		AppURL:              strings.TrimRight(valueOr(getenv("APP_URL"), "http://localhost:5173"), "/"),
		FrontendOrigin:      valueOr(getenv("FRONTEND_ORIGIN"), "http://localhost:5173"),
		LogLevel:            valueOr(getenv("LOG_LEVEL"), "info"),
		LogPretty:           getenv("LOG_PRETTY") == "true",
		StripeSecretKey:     getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: getenv("STRIPE_WEBHOOK_SECRET"),
		FeaturedPrices:      map[models.PlanType]string{},
		PlannerPrices:       map[models.PlannerInterval]string{},
		FreeLimits:          map[models.PlannerResource]int{},
		AdminEmails:         splitList(getenv("ADMIN_EMAILS")),
	}

	// Unset prices stay out of the maps so callers fail with a configuration error
	// instead of guessing a default.
	setIf(cfg.FeaturedPrices, models.PlanTrial, getenv("STRIPE_PRICE_FEATURED_TRIAL"))
	setIf(cfg.FeaturedPrices, models.PlanWeekly, getenv("STRIPE_PRICE_FEATURED_WEEKLY"))
	setIf(cfg.FeaturedPrices, models.PlanMonthly, getenv("STRIPE_PRICE_FEATURED_MONTHLY"))
	setIf(cfg.PlannerPrices, models.PlannerMonthly, getenv("STRIPE_PRICE_PLANNER_MONTHLY"))
	setIf(cfg.PlannerPrices, models.PlannerYearly, getenv("STRIPE_PRICE_PLANNER_YEARLY"))

	var err error
	if cfg.FeaturedTrialDays, err = intOr(getenv, "FEATURED_TRIAL_DAYS", DefaultTrialDays); err != nil {
		return nil, err
	}

	ttl, err := intOr(getenv, "PENDING_CHECKOUT_TTL_HOURS", DefaultPendingTTLHours)
	if err != nil {
		return nil, err
	}
	cfg.PendingCheckoutTTL = time.Duration(ttl) * time.Hour
	sweep, err := intOr(getenv, "SWEEP_INTERVAL_MINUTES", DefaultSweepMinutes)
	if err != nil {
		return nil, err
	}
	if sweep == 0 {
		sweep = DefaultSweepMinutes
	}
	cfg.SweepInterval = time.Duration(sweep) * time.Minute

	limits := []struct {
		resource models.PlannerResource
		key      string
		def      int
	}{
		{models.ResourceSavedPrograms, "FREE_LIMIT_SAVED_PROGRAMS", DefaultSavedProgramsLimit},
		{models.ResourceChildren, "FREE_LIMIT_CHILDREN", DefaultChildrenLimit},
		{models.ResourceAdults, "FREE_LIMIT_ADULTS", DefaultAdultsLimit},
	}
	for _, l := range limits {
		n, err := intOr(getenv, l.key, int64(l.def))
		if err != nil {
			return nil, err
		}
		cfg.FreeLimits[l.resource] = int(n)
	}

	return cfg, nil
}

// Validate checks the settings the HTTP server cannot run without.
func (c *Config) Validate() error {
	var missing []string
	if c.DatabaseDSN == "" {
		missing = append(missing, "DB_DSN_PRIMARY")
	}
	if c.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if c.StripeSecretKey == "" {
		missing = append(missing, "STRIPE_SECRET_KEY")
	}
	if c.StripeWebhookSecret == "" {
		missing = append(missing, "STRIPE_WEBHOOK_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}

// IsAdmin reports whether email is on the admin allow-list.
func (c *Config) IsAdmin(email string) bool {
	for _, a := range c.AdminEmails {
		if strings.EqualFold(a, email) {
			return true
		}
	}
	return false
}

// PlannerPriceSet returns every configured planner price id.
func (c *Config) PlannerPriceSet() map[string]bool {
	set := make(map[string]bool, len(c.PlannerPrices))
	for _, id := range c.PlannerPrices {
		set[id] = true
	}
	return set
}

func setIf[K comparable](m map[K]string, k K, v string) {
	if v != "" {
		m[k] = v
	}
}

func valueOr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func intOr(getenv func(string) string, key string, def int64) (int64, error) {
	raw := getenv(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("config: %s must be a non-negative integer, got %q", key, raw)
	}
	return n, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
