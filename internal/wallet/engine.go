package wallet

import (
	"sync"

	"github.com/rahulpdmehta/hungerwood-core/pkg/config"
)

// MaxUsable computes the wallet amount spendable against an order total:
// capped by the balance and by the configured percentage of the total.
func MaxUsable(balance, orderTotal int64, maxPercent int) int64 {
	if balance < 0 {
		balance = 0
	}
	if orderTotal < 0 {
		orderTotal = 0
	}
	if maxPercent < 0 {
		maxPercent = 0
	}
	if maxPercent > 100 {
		maxPercent = 100
	}
	byPercent := orderTotal * int64(maxPercent) / 100
	if balance < byPercent {
		return balance
	}
	return byPercent
}

// Clamp folds a requested amount into [0, max]. Out-of-range input is
// normalized, never rejected.
func Clamp(requested, max int64) int64 {
	if requested < 0 {
		return 0
	}
	if max < 0 {
		max = 0
	}
	if requested > max {
		return max
	}
	return requested
}

// State owns the wallet amount applied to the current checkout session. All
// mutations funnel through its methods and every mutation re-clamps, so the
// requested amount can never exceed what the order allows.
type State struct {
	mu sync.Mutex

	balance    int64
	orderTotal int64
	requested  int64

	maxPercent    int
	stepAmount    int64
	defaultEnable int64
}

// NewState builds wallet state from the billing and wallet configuration.
func NewState(billing config.BillingConfig, cfg config.WalletConfig) *State {
	step := cfg.StepAmount
	if step <= 0 {
		step = 10
	}
	defaultEnable := cfg.DefaultEnable
	if defaultEnable <= 0 {
		defaultEnable = 50
	}
	return &State{
		maxPercent:    billing.MaxWalletUsagePercent,
		stepAmount:    step,
		defaultEnable: defaultEnable,
	}
}

// SetBalance records a freshly fetched balance and re-clamps.
func (s *State) SetBalance(balance int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if balance < 0 {
		balance = 0
	}
	s.balance = balance
	return s.reclampLocked()
}

// SetOrderTotal records the current order subtotal and re-clamps. A cart
// mutation mid-checkout lands here; a stale amount exceeding the new max is
// silently reduced.
func (s *State) SetOrderTotal(total int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if total < 0 {
		total = 0
	}
	s.orderTotal = total
	return s.reclampLocked()
}

// Toggle enables or disables wallet usage. Enabling from zero applies the
// default step, capped at the usable maximum; disabling resets to zero.
func (s *State) Toggle(enabled bool) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !enabled {
		s.requested = 0
		return 0
	}
	if s.requested == 0 {
		s.requested = Clamp(s.defaultEnable, s.maxUsableLocked())
	}
	return s.requested
}

// Increment raises the requested amount by one step, saturating at max.
func (s *State) Increment() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requested = Clamp(s.requested+s.stepAmount, s.maxUsableLocked())
	return s.requested
}

// Decrement lowers the requested amount by one step, saturating at zero.
func (s *State) Decrement() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requested = Clamp(s.requested-s.stepAmount, s.maxUsableLocked())
	return s.requested
}

// SetRequested applies an explicit amount, clamped into range.
func (s *State) SetRequested(amount int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requested = Clamp(amount, s.maxUsableLocked())
	return s.requested
}

// Requested returns the currently applied amount.
func (s *State) Requested() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requested
}

// Balance returns the last known balance.
func (s *State) Balance() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balance
}

// MaxUsable returns the cap for the current balance and order total.
func (s *State) MaxUsable() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxUsableLocked()
}

func (s *State) maxUsableLocked() int64 {
	return MaxUsable(s.balance, s.orderTotal, s.maxPercent)
}

func (s *State) reclampLocked() int64 {
	s.requested = Clamp(s.requested, s.maxUsableLocked())
	return s.requested
}
