package subscription

import (
	"errors"
	"fmt"

	"github.com/codebugsleuth/bughunter/internal/models"
)

// ErrInvalidTier indicates an upgrade to a tier that checkout cannot target.
var ErrInvalidTier = errors.New("subscription: invalid target tier")

// QuotaExceededError reports a denied analysis with the caller's quota state.
type QuotaExceededError struct {
	Tier  models.Tier
	Limit int
	Used  int
}

// Error implements the error interface.
func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("subscription: monthly quota exhausted (%d/%d on %s)", e.Used, e.Limit, e.Tier)
}

// IsQuotaExceeded reports whether err wraps a QuotaExceededError.
func IsQuotaExceeded(err error) (*QuotaExceededError, bool) {
	var quotaErr *QuotaExceededError
	if errors.As(err, &quotaErr) {
		return quotaErr, true
	}
	return nil, false
}
