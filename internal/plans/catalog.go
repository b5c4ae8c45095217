// Package plans defines the fixed subscription plan catalog.
package plans

import (
	"fmt"

	"github.com/codebugsleuth/bughunter/internal/models"
)

// UnlimitedQuota is the sentinel monthly quota meaning no numeric cap applies.
const UnlimitedQuota = -1

// Plan describes one subscription tier. Plans are immutable after init.
type Plan struct {
	Tier          models.Tier // Tier identifier.
	Name          string      // Display name.
	MonthlyPrice  float64     // Monthly price in USD.
	MonthlyQuota  int         // Analyses per month, UnlimitedQuota for no cap.
	Features      []string    // Ordered feature descriptions.
	StripePriceID string      // Stripe recurring price ID, empty for free.
}

// Unlimited reports whether the plan has no monthly analysis cap.
func (p Plan) Unlimited() bool { return p.MonthlyQuota == UnlimitedQuota }

// ErrUnknownTier indicates a tier outside the fixed catalog.
var ErrUnknownTier = fmt.Errorf("plans: unknown tier")

// catalogOrder fixes the display ordering of the catalog.
var catalogOrder = []models.Tier{
	models.TierFree,
	models.TierBasic,
	models.TierPro,
	models.TierEnterprise,
}

// catalog holds the fixed plan table, keyed by tier.
var catalog = map[models.Tier]Plan{
	models.TierFree: {
		Tier:         models.TierFree,
		Name:         "Free",
		MonthlyPrice: 0,
		MonthlyQuota: 5,
		Features: []string{
			"5 analyses per month",
			"Basic error detection",
			"Community support",
		},
	},
	models.TierBasic: {
		Tier:         models.TierBasic,
		Name:         "Basic",
		MonthlyPrice: 9,
		MonthlyQuota: 50,
		Features: []string{
			"50 analyses per month",
			"Advanced error detection",
			"Private code analysis",
			"Email support",
		},
	},
	models.TierPro: {
		Tier:         models.TierPro,
		Name:         "Pro",
		MonthlyPrice: 19,
		MonthlyQuota: UnlimitedQuota,
		Features: []string{
			"Unlimited code analyses",
			"Advanced security scanning",
			"Priority support",
			"API access",
		},
	},
	models.TierEnterprise: {
		Tier:         models.TierEnterprise,
		Name:         "Enterprise",
		MonthlyPrice: 49,
		MonthlyQuota: UnlimitedQuota,
		Features: []string{
			"Unlimited analyses",
			"Team collaboration",
			"Dedicated support",
			"SLA guarantee",
		},
	},
}

// Get returns the plan for a tier, or ErrUnknownTier.
func Get(tier models.Tier) (Plan, error) {
	plan, ok := catalog[tier]
	if !ok {
		return Plan{}, fmt.Errorf("%w: %q", ErrUnknownTier, tier)
	}
	return plan, nil
}

// List returns all plans in catalog order.
func List() []Plan {
	out := make([]Plan, 0, len(catalogOrder))
	for _, tier := range catalogOrder {
		out = append(out, catalog[tier])
	}
	return out
}

// SetStripePriceIDs binds Stripe recurring price IDs onto the paid plans.
// Called once at startup from configuration; tiers without an entry keep
// an empty price ID and cannot be checked out.
func SetStripePriceIDs(priceIDs map[models.Tier]string) {
	for tier, priceID := range priceIDs {
		plan, ok := catalog[tier]
		if !ok || tier == models.TierFree {
			continue
		}
		plan.StripePriceID = priceID
		catalog[tier] = plan
	}
}
