package wallet

import (
	"testing"

	"github.com/rahulpdmehta/hungerwood-core/pkg/config"
)

func newTestState(balance, orderTotal int64) *State {
	s := NewState(
		config.BillingConfig{MaxWalletUsagePercent: 50},
		config.WalletConfig{StepAmount: 10, DefaultEnable: 50},
	)
	s.SetBalance(balance)
	s.SetOrderTotal(orderTotal)
	return s
}

func TestMaxUsableScenario(t *testing.T) {
	// balance 500, total 300, percent 50 -> min(500, 150) = 150.
	if got := MaxUsable(500, 300, 50); got != 150 {
		t.Fatalf("expected 150, got %d", got)
	}
}

func TestMaxUsableBalanceCapped(t *testing.T) {
	if got := MaxUsable(40, 300, 50); got != 40 {
		t.Fatalf("expected balance cap 40, got %d", got)
	}
}

func TestMaxUsableFloors(t *testing.T) {
	// floor(99 * 50 / 100) = 49
	if got := MaxUsable(1000, 99, 50); got != 49 {
		t.Fatalf("expected floor 49, got %d", got)
	}
}

func TestMaxUsableMonotonicity(t *testing.T) {
	prev := int64(-1)
	for balance := int64(0); balance <= 400; balance += 25 {
		got := MaxUsable(balance, 300, 50)
		if got < prev {
			t.Fatalf("maxUsable decreased when balance grew: %d -> %d", prev, got)
		}
		prev = got
	}

	prev = -1
	for total := int64(0); total <= 2000; total += 100 {
		got := MaxUsable(500, total, 50)
		if got < prev {
			t.Fatalf("maxUsable decreased when order total grew: %d -> %d", prev, got)
		}
		prev = got
	}
}

func TestClampIdempotence(t *testing.T) {
	for _, requested := range []int64{-50, 0, 25, 150, 9999} {
		for _, max := range []int64{0, 10, 150} {
			once := Clamp(requested, max)
			twice := Clamp(once, max)
			if once != twice {
				t.Fatalf("clamp not idempotent for (%d,%d): %d vs %d", requested, max, once, twice)
			}
			if once < 0 || once > max {
				t.Fatalf("clamp out of range for (%d,%d): %d", requested, max, once)
			}
		}
	}
}

func TestToggleOnUsesDefaultStep(t *testing.T) {
	s := newTestState(500, 300)
	if got := s.Toggle(true); got != 50 {
		t.Fatalf("expected default enable min(150,50)=50, got %d", got)
	}
}

func TestToggleOnCappedByMaxUsable(t *testing.T) {
	s := newTestState(30, 300)
	if got := s.Toggle(true); got != 30 {
		t.Fatalf("expected enable capped at balance 30, got %d", got)
	}
}

func TestToggleOffResets(t *testing.T) {
	s := newTestState(500, 300)
	s.Toggle(true)
	if got := s.Toggle(false); got != 0 {
		t.Fatalf("expected reset to 0, got %d", got)
	}
}

func TestIncrementSaturatesAtMax(t *testing.T) {
	s := newTestState(500, 100) // max usable 50
	s.Toggle(true)              // -> 50 already at max
	if got := s.Increment(); got != 50 {
		t.Fatalf("expected no-op at max, got %d", got)
	}
}

func TestIncrementSteps(t *testing.T) {
	s := newTestState(500, 300) // max usable 150
	s.Toggle(true)              // 50
	if got := s.Increment(); got != 60 {
		t.Fatalf("expected 60, got %d", got)
	}
	if got := s.Increment(); got != 70 {
		t.Fatalf("expected 70, got %d", got)
	}
}

func TestDecrementSaturatesAtZero(t *testing.T) {
	s := newTestState(500, 300)
	if got := s.Decrement(); got != 0 {
		t.Fatalf("expected no-op at zero, got %d", got)
	}
	s.SetRequested(10)
	if got := s.Decrement(); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestReclampOnOrderTotalShrink(t *testing.T) {
	s := newTestState(500, 300)
	s.SetRequested(150)
	// Cart mutated mid-checkout: total drops, stale request must shrink.
	if got := s.SetOrderTotal(100); got != 50 {
		t.Fatalf("expected re-clamp to 50, got %d", got)
	}
	if got := s.Requested(); got != 50 {
		t.Fatalf("expected requested 50 after re-clamp, got %d", got)
	}
}

func TestReclampOnBalanceShrink(t *testing.T) {
	s := newTestState(500, 300)
	s.SetRequested(150)
	if got := s.SetBalance(20); got != 20 {
		t.Fatalf("expected re-clamp to 20, got %d", got)
	}
}
