// Package notify builds the featured-listing lifecycle emails.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/01moynul/familyhub-golang/internal/email"
	"github.com/01moynul/familyhub-golang/internal/models"
)

// Notifier renders lifecycle messages and hands them to a Sender.
type Notifier struct {
	Sender email.Sender
	AppURL string
}

// New returns a Notifier.
func New(sender email.Sender, appURL string) *Notifier {
	return &Notifier{Sender: sender, AppURL: strings.TrimRight(appURL, "/")}
}

// FeaturedWelcome confirms a completed checkout.
func (n *Notifier) FeaturedWelcome(ctx context.Context, rec *models.SubscriptionRecord, listingName string) error {
	var subject, body string
	if rec.Status == models.StatusTrialing {
		subject = fmt.Sprintf("Your free trial for %s has started", listingName)
		body = fmt.Sprintf("Hi %s,\n\n%s is now featured in the directory.", rec.ContactName, listingName)
		if rec.TrialEnd != nil {
			body += fmt.Sprintf(" Your trial runs until %s; you will not be charged before then.", formatDate(*rec.TrialEnd))
		}
	} else {
		subject = fmt.Sprintf("%s is now a featured listing", listingName)
		body = fmt.Sprintf("Hi %s,\n\nThanks for subscribing. %s is now featured on your %s plan.",
			rec.ContactName, listingName, rec.PlanType)
	}
	body += n.manageFooter()
	return n.Sender.Send(ctx, email.Message{To: rec.ContactEmail, Subject: subject, Body: body})
}

// TrialEnding reminds the contact that the trial is about to convert.
func (n *Notifier) TrialEnding(ctx context.Context, rec *models.SubscriptionRecord, trialEnd *time.Time) error {
	when := "in a few days"
	if trialEnd != nil {
		when = "on " + formatDate(*trialEnd)
	}
	body := fmt.Sprintf("Hi %s,\n\nYour featured listing trial ends %s. If you do nothing, your subscription "+
		"continues and the card on file will be charged.", rec.ContactName, when)
	body += n.manageFooter()
	return n.Sender.Send(ctx, email.Message{
		To:      rec.ContactEmail,
		Subject: "Your featured listing trial is ending soon",
		Body:    body,
	})
}

// UpcomingCharge warns about the next invoice. Trials converting to paid get
// different wording from recurring renewals.
func (n *Notifier) UpcomingCharge(ctx context.Context, rec *models.SubscriptionRecord, amountDue int64, currency string, chargeAt *time.Time) error {
	amount := formatAmount(amountDue, currency)
	when := "soon"
	if chargeAt != nil {
		when = "on " + formatDate(*chargeAt)
	}

	var subject, body string
	if rec.Status == models.StatusTrialing {
		subject = "Your free trial converts to a paid plan tomorrow"
		body = fmt.Sprintf("Hi %s,\n\nYour trial is ending and your first payment of %s will be charged %s.",
			rec.ContactName, amount, when)
	} else {
		subject = "Upcoming featured listing renewal"
		body = fmt.Sprintf("Hi %s,\n\nYour %s featured listing renews %s and %s will be charged.",
			rec.ContactName, rec.PlanType, when, amount)
	}
	body += n.manageFooter()
	return n.Sender.Send(ctx, email.Message{To: rec.ContactEmail, Subject: subject, Body: body})
}

func (n *Notifier) manageFooter() string {
	return fmt.Sprintf("\n\nManage your subscription: %s/account/subscriptions", n.AppURL)
}

func formatDate(t time.Time) string {
	return t.UTC().Format("January 2, 2006")
}

func formatAmount(cents int64, currency string) string {
	cur := strings.ToUpper(currency)
	if cur == "" || cur == "USD" {
		return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
	}
	return fmt.Sprintf("%d.%02d %s", cents/100, cents%100, cur)
}
