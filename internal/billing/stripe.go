package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v79"
	portal "github.com/stripe/stripe-go/v79/billingportal/session"
	"github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/customer"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/codebugsleuth/bughunter/internal/config"
	"github.com/codebugsleuth/bughunter/internal/models"
	"github.com/codebugsleuth/bughunter/internal/plans"
	"github.com/codebugsleuth/bughunter/internal/store"
	"github.com/codebugsleuth/bughunter/internal/subscription"
)

// ErrNotConfigured indicates Stripe credentials or price IDs are missing.
var ErrNotConfigured = errors.New("billing: stripe not configured")

// Service creates checkout sessions and applies Stripe webhook events.
type Service struct {
	users    *store.UserStore
	payments *store.PaymentStore
	subs     *subscription.Service
	cfg      config.StripeConfig
}

// NewService constructs the billing Service and wires the Stripe API key
// and per-tier price IDs.
func NewService(users *store.UserStore, payments *store.PaymentStore, subs *subscription.Service, cfg config.StripeConfig) *Service {
	if cfg.SecretKey != "" {
		stripe.Key = cfg.SecretKey
	}
	plans.SetStripePriceIDs(map[models.Tier]string{
		models.TierBasic:      cfg.PriceIDBasic,
		models.TierPro:        cfg.PriceIDPro,
		models.TierEnterprise: cfg.PriceIDEnterprise,
	})
	return &Service{users: users, payments: payments, subs: subs, cfg: cfg}
}

// Configured reports whether the Stripe secret key is present.
func (s *Service) Configured() bool {
	return s.cfg.SecretKey != ""
}

// CheckoutSession is the caller-facing result of starting a checkout.
type CheckoutSession struct {
	SessionID   string `json:"session_id"`
	CheckoutURL string `json:"checkout_url"`
}

// CreateCheckoutSession starts a subscription checkout for a paid tier and
// records a pending payment keyed by the session ID.
func (s *Service) CreateCheckoutSession(ctx context.Context, user *models.User, tier models.Tier) (*CheckoutSession, error) {
	plan, errPlan := plans.Get(tier)
	if errPlan != nil || tier == models.TierFree {
		return nil, subscription.ErrInvalidTier
	}
	if !s.Configured() || plan.StripePriceID == "" {
		return nil, ErrNotConfigured
	}
	frontendURL := strings.TrimRight(s.cfg.FrontendURL, "/")
	if frontendURL == "" {
		return nil, ErrNotConfigured
	}

	customerID, errCustomer := s.ensureCustomer(ctx, user)
	if errCustomer != nil {
		return nil, errCustomer
	}

	params := &stripe.CheckoutSessionParams{
		Mode:     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer: stripe.String(customerID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(plan.StripePriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(frontendURL + "/billing/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(frontendURL + "/billing/cancel"),
		Metadata: map[string]string{
			"user_id": user.ID,
			"tier":    string(tier),
		},
	}
	sess, errSession := session.New(params)
	if errSession != nil {
		return nil, fmt.Errorf("billing: create checkout session: %w", errSession)
	}

	description := fmt.Sprintf("%s plan subscription", plan.Name)
	if _, errPending := s.payments.CreatePending(ctx, user.ID, sess.ID, description, plan.MonthlyPrice); errPending != nil {
		return nil, errPending
	}
	return &CheckoutSession{SessionID: sess.ID, CheckoutURL: sess.URL}, nil
}

// CreatePortalSession opens the Stripe customer portal for the user.
func (s *Service) CreatePortalSession(ctx context.Context, user *models.User) (string, error) {
	if !s.Configured() {
		return "", ErrNotConfigured
	}
	if user.StripeCustomerID == "" {
		return "", fmt.Errorf("billing: no stripe customer for user %s", user.ID)
	}
	frontendURL := strings.TrimRight(s.cfg.FrontendURL, "/")
	if frontendURL == "" {
		return "", ErrNotConfigured
	}

	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(user.StripeCustomerID),
		ReturnURL: stripe.String(frontendURL + "/settings/billing"),
	}
	sess, errSession := portal.New(params)
	if errSession != nil {
		return "", fmt.Errorf("billing: create portal session: %w", errSession)
	}
	return sess.URL, nil
}

// PaymentHistory lists the user's payment records, newest first.
func (s *Service) PaymentHistory(ctx context.Context, userID string, limit int) ([]models.PaymentRecord, error) {
	return s.payments.ListByUser(ctx, userID, limit)
}

// ensureCustomer finds or creates the Stripe customer for a user and stores
// the ID on first creation.
func (s *Service) ensureCustomer(ctx context.Context, user *models.User) (string, error) {
	if user.StripeCustomerID != "" {
		return user.StripeCustomerID, nil
	}

	params := &stripe.CustomerParams{
		Email: stripe.String(user.Email),
		Metadata: map[string]string{
			"user_id": user.ID,
		},
	}
	cust, errCreate := customer.New(params)
	if errCreate != nil {
		return "", fmt.Errorf("billing: create stripe customer: %w", errCreate)
	}

	user.StripeCustomerID = cust.ID
	if errSave := s.users.Save(ctx, user); errSave != nil {
		return "", errSave
	}
	return cust.ID, nil
}

// VerifyWebhook checks the Stripe signature and decodes the event.
func (s *Service) VerifyWebhook(payload []byte, signatureHeader string) (stripe.Event, error) {
	if s.cfg.WebhookSecret == "" {
		return stripe.Event{}, ErrNotConfigured
	}
	event, errVerify := webhook.ConstructEventWithOptions(
		payload,
		signatureHeader,
		s.cfg.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if errVerify != nil {
		return stripe.Event{}, fmt.Errorf("billing: verify webhook: %w", errVerify)
	}
	return event, nil
}

// HandleEvent applies a verified Stripe event. Unhandled event types are
// ignored. The handlers are idempotent against webhook redelivery.
func (s *Service) HandleEvent(ctx context.Context, event stripe.Event) error {
	switch event.Type {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if errDecode := json.Unmarshal(event.Data.Raw, &sess); errDecode != nil {
			return fmt.Errorf("billing: decode checkout session: %w", errDecode)
		}
		return s.applyCheckoutCompleted(ctx, &sess)
	case "checkout.session.expired":
		var sess stripe.CheckoutSession
		if errDecode := json.Unmarshal(event.Data.Raw, &sess); errDecode != nil {
			return fmt.Errorf("billing: decode checkout session: %w", errDecode)
		}
		if _, errFail := s.payments.MarkFailed(ctx, sess.ID); errFail != nil {
			return errFail
		}
		return nil
	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if errDecode := json.Unmarshal(event.Data.Raw, &sub); errDecode != nil {
			return fmt.Errorf("billing: decode subscription: %w", errDecode)
		}
		return s.applySubscriptionDeleted(ctx, &sub)
	default:
		log.WithField("type", event.Type).Debug("ignoring stripe event")
		return nil
	}
}

// applyCheckoutCompleted completes the payment record and upgrades the user
// named in the session metadata.
func (s *Service) applyCheckoutCompleted(ctx context.Context, sess *stripe.CheckoutSession) error {
	applied, errComplete := s.payments.MarkCompleted(ctx, sess.ID)
	if errComplete != nil {
		return errComplete
	}
	if !applied {
		// Redelivered event, the upgrade already ran.
		return nil
	}

	user, errUser := s.resolveUser(ctx, sess.Metadata["user_id"], customerIDOf(sess.Customer))
	if errUser != nil {
		return errUser
	}

	tier := models.Tier(sess.Metadata["tier"])
	subscriptionID := ""
	if sess.Subscription != nil {
		subscriptionID = sess.Subscription.ID
	}
	return s.subs.Upgrade(ctx, user, tier, customerIDOf(sess.Customer), subscriptionID)
}

// applySubscriptionDeleted drops the subscription owner back to the free tier.
func (s *Service) applySubscriptionDeleted(ctx context.Context, sub *stripe.Subscription) error {
	customerID := customerIDOf(sub.Customer)
	if customerID == "" {
		return fmt.Errorf("billing: subscription event missing customer")
	}
	user, errUser := s.users.ByStripeCustomer(ctx, customerID)
	if errUser != nil {
		if errors.Is(errUser, store.ErrUserNotFound) {
			log.WithField("customer", customerID).Warn("subscription deleted for unknown customer")
			return nil
		}
		return errUser
	}
	return s.subs.DowngradeToFree(ctx, user)
}

// resolveUser prefers the metadata user ID and falls back to the customer ID.
func (s *Service) resolveUser(ctx context.Context, userID, customerID string) (*models.User, error) {
	if userID != "" {
		if user, errFind := s.users.ByID(ctx, userID); errFind == nil {
			return user, nil
		}
	}
	return s.users.ByStripeCustomer(ctx, customerID)
}

func customerIDOf(c *stripe.Customer) string {
	if c == nil {
		return ""
	}
	return c.ID
}
