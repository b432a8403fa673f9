package usecase

import (
	"time"

	"github.com/shandysiswandi/gonotif/internal/notification/entity"
)

var (
	oneTimeCodePolicy = entity.RetryPolicy{MaxRetries: 5, InitialDelay: 500 * time.Millisecond, Multiplier: 1.5, MaxDelay: 30 * time.Second}
	lifecyclePolicy   = entity.RetryPolicy{MaxRetries: 3, InitialDelay: 5 * time.Second, Multiplier: 2, MaxDelay: 5 * time.Minute}
	systemPolicy      = entity.RetryPolicy{}
)

type retryPolicies struct {
	def entity.RetryPolicy
}

func newRetryPolicies(def entity.RetryPolicy) retryPolicies {
	return retryPolicies{def: def}
}

// For returns the deferred retry policy of t.
func (r retryPolicies) For(t entity.NotificationType) entity.RetryPolicy {
	switch {
	case t == entity.TypeOneTimeCode:
		return oneTimeCodePolicy
	case t == entity.TypeSystem:
		return systemPolicy
	case t.IsTicket(), t.IsQuote():
		return lifecyclePolicy
	default:
		return r.def
	}
}
