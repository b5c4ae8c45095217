package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/codebugsleuth/bughunter/internal/billing"
	"github.com/codebugsleuth/bughunter/internal/models"
	"github.com/codebugsleuth/bughunter/internal/plans"
	"github.com/codebugsleuth/bughunter/internal/subscription"
)

// SubscriptionHandler serves plan, usage, and billing endpoints.
type SubscriptionHandler struct {
	subs    *subscription.Service
	billing *billing.Service
}

// NewSubscriptionHandler constructs a subscription handler.
func NewSubscriptionHandler(subs *subscription.Service, bill *billing.Service) *SubscriptionHandler {
	return &SubscriptionHandler{subs: subs, billing: bill}
}

// planResponse is the public view of a plan.
type planResponse struct {
	Tier         string   `json:"tier"`
	Name         string   `json:"name"`
	MonthlyPrice float64  `json:"monthly_price"`
	MonthlyQuota int      `json:"monthly_quota"`
	Unlimited    bool     `json:"unlimited"`
	Features     []string `json:"features"`
}

// Plans lists the plan catalog in stable order.
func (h *SubscriptionHandler) Plans(c *gin.Context) {
	catalog := plans.List()
	out := make([]planResponse, 0, len(catalog))
	for _, plan := range catalog {
		out = append(out, planResponse{
			Tier:         string(plan.Tier),
			Name:         plan.Name,
			MonthlyPrice: plan.MonthlyPrice,
			MonthlyQuota: plan.MonthlyQuota,
			Unlimited:    plan.Unlimited(),
			Features:     plan.Features,
		})
	}
	c.JSON(http.StatusOK, gin.H{"plans": out})
}

// Usage reports the caller's current quota state.
func (h *SubscriptionHandler) Usage(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	decision, errEvaluate := h.subs.Evaluate(c.Request.Context(), user)
	if errEvaluate != nil {
		log.WithError(errEvaluate).Error("usage evaluation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load usage"})
		return
	}

	events, errEvents := h.subs.RecentActivity(c.Request.Context(), user.ID, 10)
	if errEvents != nil {
		log.WithError(errEvents).Warn("list recent activity failed")
	}
	activity := make([]gin.H, 0, len(events))
	for _, event := range events {
		activity = append(activity, gin.H{"action": event.Action, "timestamp": event.CreatedAt})
	}

	c.JSON(http.StatusOK, gin.H{
		"tier":            decision.Tier,
		"status":          decision.Status,
		"quota_used":      user.QuotaUsed,
		"quota_limit":     decision.Limit,
		"remaining":       decision.Remaining,
		"unlimited":       decision.Limit == plans.UnlimitedQuota,
		"quota_reset_at":  decision.ResetAt,
		"trial_ends_at":   user.TrialEndsAt,
		"recent_activity": activity,
	})
}

// checkoutRequest captures the checkout payload.
type checkoutRequest struct {
	Tier string `json:"tier"`
}

// Checkout starts a Stripe checkout session for a paid tier.
func (h *SubscriptionHandler) Checkout(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	var body checkoutRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	session, errCheckout := h.billing.CreateCheckoutSession(c.Request.Context(), user, models.Tier(body.Tier))
	if errCheckout != nil {
		switch {
		case errors.Is(errCheckout, subscription.ErrInvalidTier):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tier"})
		case errors.Is(errCheckout, billing.ErrNotConfigured):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "billing not configured"})
		default:
			log.WithError(errCheckout).Error("create checkout session failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create checkout session"})
		}
		return
	}
	c.JSON(http.StatusOK, session)
}

// paymentEntry is one row of the billing history listing.
type paymentEntry struct {
	ID          string     `json:"id"`
	Amount      float64    `json:"amount"`
	Currency    string     `json:"currency"`
	Status      string     `json:"status"`
	Description string     `json:"description"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Payments lists the caller's billing history, newest first.
func (h *SubscriptionHandler) Payments(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	records, errList := h.billing.PaymentHistory(c.Request.Context(), user.ID, 50)
	if errList != nil {
		log.WithError(errList).Error("list payments failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve payments"})
		return
	}

	out := make([]paymentEntry, 0, len(records))
	for _, record := range records {
		out = append(out, paymentEntry{
			ID:          record.ID,
			Amount:      record.Amount,
			Currency:    record.Currency,
			Status:      string(record.Status),
			Description: record.Description,
			CreatedAt:   record.CreatedAt,
			CompletedAt: record.CompletedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"payments": out})
}

// Portal opens the Stripe billing portal for the caller.
func (h *SubscriptionHandler) Portal(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	url, errPortal := h.billing.CreatePortalSession(c.Request.Context(), user)
	if errPortal != nil {
		if errors.Is(errPortal, billing.ErrNotConfigured) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "billing not configured"})
			return
		}
		log.WithError(errPortal).Error("create portal session failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create portal session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// Cancel marks the caller's subscription cancelled. Paid access continues
// until the billing period ends.
func (h *SubscriptionHandler) Cancel(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	if user.Tier == models.TierFree {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no paid subscription to cancel"})
		return
	}

	if errCancel := h.subs.Cancel(c.Request.Context(), user); errCancel != nil {
		log.WithError(errCancel).Error("cancel subscription failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to cancel subscription"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cancelled", "tier": user.Tier})
}
