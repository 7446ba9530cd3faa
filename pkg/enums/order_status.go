package enums

import (
	"encoding/json"
	"fmt"
)

// OrderStatus describes the lifecycle position of an order. The backend is
// the only writer; clients reflect status, they never decide it.
type OrderStatus string

const (
	OrderStatusReceived       OrderStatus = "RECEIVED"
	OrderStatusConfirmed      OrderStatus = "CONFIRMED"
	OrderStatusPreparing      OrderStatus = "PREPARING"
	OrderStatusReady          OrderStatus = "READY"
	OrderStatusOutForDelivery OrderStatus = "OUT_FOR_DELIVERY"
	OrderStatusCompleted      OrderStatus = "COMPLETED"
	OrderStatusCancelled      OrderStatus = "CANCELLED"
)

// legacyOrderStatusAliases maps wire values older backends still emit onto
// the canonical enum. Normalization happens once, at the ingestion boundary.
var legacyOrderStatusAliases = map[string]OrderStatus{
	"pending": OrderStatusReceived,
}

var validOrderStatuses = []OrderStatus{
	OrderStatusReceived,
	OrderStatusConfirmed,
	OrderStatusPreparing,
	OrderStatusReady,
	OrderStatusOutForDelivery,
	OrderStatusCompleted,
	OrderStatusCancelled,
}

// orderStatusTransitions is the full forward-transition table. Cancellation
// is reachable from every non-terminal state except OUT_FOR_DELIVERY, which
// may only complete.
var orderStatusTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusReceived:       {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:      {OrderStatusPreparing, OrderStatusCancelled},
	OrderStatusPreparing:      {OrderStatusReady, OrderStatusCancelled},
	OrderStatusReady:          {OrderStatusOutForDelivery, OrderStatusCancelled},
	OrderStatusOutForDelivery: {OrderStatusCompleted},
	OrderStatusCompleted:      {},
	OrderStatusCancelled:      {},
}

// IsValid reports whether the value matches the canonical order status enum.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status has no outgoing transitions.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// IsActive reports whether the order still needs tracking.
func (s OrderStatus) IsActive() bool {
	return s.IsValid() && !s.IsTerminal()
}

// AllowedNext returns the legal forward transitions from the status. The
// result is a copy; callers may reorder it freely.
func (s OrderStatus) AllowedNext() []OrderStatus {
	next, ok := orderStatusTransitions[s]
	if !ok {
		return nil
	}
	out := make([]OrderStatus, len(next))
	copy(out, next)
	return out
}

// CanTransitionTo reports whether moving from s to next is legal.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, candidate := range orderStatusTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// UnmarshalJSON decodes and normalizes the wire value. Every JSON ingestion
// path funnels through here, so legacy aliases never leak past the boundary.
func (s *OrderStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseOrderStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseOrderStatus converts the raw wire string to OrderStatus, folding
// legacy aliases into their canonical value.
func ParseOrderStatus(value string) (OrderStatus, error) {
	if canonical, ok := legacyOrderStatusAliases[value]; ok {
		return canonical, nil
	}
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
