package subscription

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/codebugsleuth/bughunter/internal/models"
	"github.com/codebugsleuth/bughunter/internal/plans"
	"github.com/codebugsleuth/bughunter/internal/store"
)

// Notifier delivers subscription lifecycle emails. Implementations must be
// safe for concurrent use; sends are fire-and-forget from this package.
type Notifier interface {
	SendTrialExpired(ctx context.Context, user *models.User) error
	SendSubscriptionConfirmation(ctx context.Context, user *models.User, plan plans.Plan) error
}

// Decision is the outcome of a quota evaluation. Remaining and Limit are
// plans.UnlimitedQuota for tiers without a monthly cap.
type Decision struct {
	Allowed   bool
	Remaining int
	Limit     int
	Tier      models.Tier
	Status    models.SubscriptionStatus
	ResetAt   time.Time
}

// Service implements quota tracking and billing state transitions.
type Service struct {
	users    *store.UserStore
	usage    *store.UsageStore
	notifier Notifier
	now      func() time.Time
}

// NewService constructs a subscription Service. notifier may be nil.
func NewService(users *store.UserStore, usage *store.UsageStore, notifier Notifier) *Service {
	return &Service{
		users:    users,
		usage:    usage,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// sameAccountingPeriod reports whether two instants fall in the same
// calendar month.
func sameAccountingPeriod(a, b time.Time) bool {
	return a.UTC().Year() == b.UTC().Year() && a.UTC().Month() == b.UTC().Month()
}

// Evaluate checks the user's quota, applying period rollover and trial
// expiry side effects first. The passed user is updated in place to match
// the persisted state.
func (s *Service) Evaluate(ctx context.Context, user *models.User) (Decision, error) {
	now := s.now()

	if !sameAccountingPeriod(user.QuotaResetAt, now) {
		if errReset := s.users.ResetQuota(ctx, user.ID, now); errReset != nil {
			return Decision{}, fmt.Errorf("subscription: period rollover: %w", errReset)
		}
		user.QuotaUsed = 0
		user.QuotaResetAt = now
	}

	if user.Status == models.StatusTrialing && user.TrialEndsAt != nil && now.After(*user.TrialEndsAt) {
		if errDowngrade := s.DowngradeToFree(ctx, user); errDowngrade != nil {
			return Decision{}, errDowngrade
		}
		s.notifyAsync("trial expired", func(bg context.Context) error {
			return s.notifier.SendTrialExpired(bg, user)
		})
	}

	plan, errPlan := plans.Get(user.Tier)
	if errPlan != nil {
		return Decision{}, errPlan
	}

	decision := Decision{
		Limit:   plan.MonthlyQuota,
		Tier:    user.Tier,
		Status:  user.Status,
		ResetAt: user.QuotaResetAt,
	}
	if plan.Unlimited() {
		decision.Allowed = true
		decision.Remaining = plans.UnlimitedQuota
		return decision, nil
	}

	decision.Remaining = plan.MonthlyQuota - user.QuotaUsed
	if decision.Remaining < 0 {
		decision.Remaining = 0
	}
	decision.Allowed = decision.Remaining > 0
	return decision, nil
}

// Record consumes one quota unit for a successful chargeable action. The
// consumption is a single conditional update, so concurrent calls near the
// limit cannot overspend. Denial is reported as a QuotaExceededError.
func (s *Service) Record(ctx context.Context, user *models.User, action string, metadata map[string]any) (Decision, error) {
	decision, errEvaluate := s.Evaluate(ctx, user)
	if errEvaluate != nil {
		return Decision{}, errEvaluate
	}
	if !decision.Allowed {
		return decision, &QuotaExceededError{Tier: user.Tier, Limit: decision.Limit, Used: user.QuotaUsed}
	}

	consumed, errConsume := s.users.ConsumeQuota(ctx, user.ID, decision.Limit)
	if errConsume != nil {
		return Decision{}, errConsume
	}
	if !consumed {
		// Lost the race to another request on the last remaining unit.
		return decision, &QuotaExceededError{Tier: user.Tier, Limit: decision.Limit, Used: decision.Limit}
	}
	user.QuotaUsed++
	if decision.Remaining != plans.UnlimitedQuota {
		decision.Remaining--
	}

	if errAppend := s.usage.Append(ctx, user.ID, action, metadata); errAppend != nil {
		log.WithError(errAppend).WithField("user_id", user.ID).Warn("record usage event failed")
	}
	return decision, nil
}

// RecentActivity lists the user's latest recorded usage events.
func (s *Service) RecentActivity(ctx context.Context, userID string, limit int) ([]models.UsageEvent, error) {
	return s.usage.ListByUser(ctx, userID, limit)
}

// Upgrade moves the user onto a paid tier after payment confirmation.
// Upgrading to the same active tier is a no-op, so replayed webhook
// deliveries are safe.
func (s *Service) Upgrade(ctx context.Context, user *models.User, tier models.Tier, customerID, subscriptionID string) error {
	plan, errPlan := plans.Get(tier)
	if errPlan != nil {
		return ErrInvalidTier
	}
	if tier == models.TierFree {
		return ErrInvalidTier
	}
	if user.Tier == tier && user.Status == models.StatusActive {
		return nil
	}

	snapshot := *user
	user.Tier = tier
	user.Status = models.StatusActive
	user.TrialEndsAt = nil
	if customerID != "" {
		user.StripeCustomerID = customerID
	}
	if subscriptionID != "" {
		user.StripeSubscriptionID = subscriptionID
	}
	user.QuotaUsed = 0
	user.QuotaResetAt = s.now()

	if errSave := s.users.Save(ctx, user); errSave != nil {
		*user = snapshot
		return errSave
	}

	s.notifyAsync("subscription confirmation", func(bg context.Context) error {
		return s.notifier.SendSubscriptionConfirmation(bg, user, plan)
	})
	return nil
}

// Cancel marks the subscription cancelled. Tier and quota are left in place
// until the billing period elapses.
func (s *Service) Cancel(ctx context.Context, user *models.User) error {
	if user.Status == models.StatusCancelled {
		return nil
	}
	snapshot := *user
	user.Status = models.StatusCancelled
	if errSave := s.users.Save(ctx, user); errSave != nil {
		*user = snapshot
		return errSave
	}
	return nil
}

// DowngradeToFree drops the user to the free tier with a fresh period.
func (s *Service) DowngradeToFree(ctx context.Context, user *models.User) error {
	snapshot := *user
	user.Tier = models.TierFree
	user.Status = models.StatusActive
	user.TrialEndsAt = nil
	user.StripeSubscriptionID = ""
	if errSave := s.users.Save(ctx, user); errSave != nil {
		*user = snapshot
		return fmt.Errorf("subscription: downgrade to free: %w", errSave)
	}
	return nil
}

// notifyAsync runs a notification send in the background and logs failures.
func (s *Service) notifyAsync(kind string, send func(context.Context) error) {
	if s.notifier == nil {
		return
	}
	go func() {
		bg, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if errSend := send(bg); errSend != nil {
			log.WithError(errSend).WithField("notification", kind).Warn("notification send failed")
		}
	}()
}
