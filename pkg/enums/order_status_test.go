package enums

import "testing"

func TestOrderStatusTransitionTable(t *testing.T) {
	cases := []struct {
		from OrderStatus
		next []OrderStatus
	}{
		{OrderStatusReceived, []OrderStatus{OrderStatusConfirmed, OrderStatusCancelled}},
		{OrderStatusConfirmed, []OrderStatus{OrderStatusPreparing, OrderStatusCancelled}},
		{OrderStatusPreparing, []OrderStatus{OrderStatusReady, OrderStatusCancelled}},
		{OrderStatusReady, []OrderStatus{OrderStatusOutForDelivery, OrderStatusCancelled}},
		{OrderStatusOutForDelivery, []OrderStatus{OrderStatusCompleted}},
		{OrderStatusCompleted, nil},
		{OrderStatusCancelled, nil},
	}
	for _, tc := range cases {
		got := tc.from.AllowedNext()
		if len(got) != len(tc.next) {
			t.Fatalf("%s: expected %d transitions, got %v", tc.from, len(tc.next), got)
		}
		for i, want := range tc.next {
			if got[i] != want {
				t.Fatalf("%s: expected transition %s at %d, got %s", tc.from, want, i, got[i])
			}
		}
	}
}

func TestTerminalStatusesHaveNoOutgoingTransitions(t *testing.T) {
	for _, status := range validOrderStatuses {
		terminal := status.IsTerminal()
		next := status.AllowedNext()
		if terminal && len(next) != 0 {
			t.Fatalf("terminal status %s has outgoing transitions %v", status, next)
		}
		if !terminal && len(next) == 0 {
			t.Fatalf("non-terminal status %s has no outgoing transitions", status)
		}
	}
}

func TestNoStatusReachesTerminalStates(t *testing.T) {
	// No status may be reachable from COMPLETED or CANCELLED, and nothing
	// transitions into RECEIVED (it is the entry state).
	for _, from := range validOrderStatuses {
		if from.CanTransitionTo(OrderStatusReceived) {
			t.Fatalf("%s must not transition back to RECEIVED", from)
		}
	}
	if OrderStatusCompleted.CanTransitionTo(OrderStatusCancelled) {
		t.Fatal("COMPLETED must not transition to CANCELLED")
	}
	if OrderStatusCancelled.CanTransitionTo(OrderStatusCompleted) {
		t.Fatal("CANCELLED must not transition to COMPLETED")
	}
}

func TestOutForDeliveryOnlyCompletes(t *testing.T) {
	if OrderStatusOutForDelivery.CanTransitionTo(OrderStatusCancelled) {
		t.Fatal("no cancellation after dispatch")
	}
	if !OrderStatusOutForDelivery.CanTransitionTo(OrderStatusCompleted) {
		t.Fatal("OUT_FOR_DELIVERY must reach COMPLETED")
	}
}

func TestParseOrderStatusNormalizesLegacyPending(t *testing.T) {
	got, err := ParseOrderStatus("pending")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != OrderStatusReceived {
		t.Fatalf("expected pending to normalize to RECEIVED, got %s", got)
	}
}

func TestParseOrderStatusRejectsUnknown(t *testing.T) {
	if _, err := ParseOrderStatus("SHIPPED"); err == nil {
		t.Fatal("expected unknown status to be rejected")
	}
}

func TestIsActive(t *testing.T) {
	if !OrderStatusPreparing.IsActive() {
		t.Fatal("PREPARING should be active")
	}
	if OrderStatusCompleted.IsActive() || OrderStatusCancelled.IsActive() {
		t.Fatal("terminal statuses must not be active")
	}
	if OrderStatus("bogus").IsActive() {
		t.Fatal("invalid status must not be active")
	}
}
