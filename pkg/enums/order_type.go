package enums

import "fmt"

// OrderType determines whether the delivery fee applies.
type OrderType string

const (
	OrderTypeDelivery OrderType = "Delivery"
	OrderTypePickup   OrderType = "Pickup"
)

var validOrderTypes = []OrderType{
	OrderTypeDelivery,
	OrderTypePickup,
}

// IsValid reports whether the value matches the canonical order type enum.
func (o OrderType) IsValid() bool {
	for _, candidate := range validOrderTypes {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOrderType converts the raw string to OrderType.
func ParseOrderType(value string) (OrderType, error) {
	for _, candidate := range validOrderTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order type %q", value)
}
