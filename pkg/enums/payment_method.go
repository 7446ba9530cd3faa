package enums

import "fmt"

// PaymentMethod names how an order is paid for.
type PaymentMethod string

const (
	PaymentMethodWallet         PaymentMethod = "wallet"
	PaymentMethodGateway        PaymentMethod = "gateway"
	PaymentMethodCashOnDelivery PaymentMethod = "cod"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodWallet,
	PaymentMethodGateway,
	PaymentMethodCashOnDelivery,
}

// IsValid reports whether the value matches the canonical payment method enum.
func (p PaymentMethod) IsValid() bool {
	for _, candidate := range validPaymentMethods {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentMethod converts the raw string to PaymentMethod.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	for _, candidate := range validPaymentMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}
