package orderapi

import (
	"time"

	"github.com/rahulpdmehta/hungerwood-core/pkg/enums"
)

// StatusChange is one entry of an order's status history.
type StatusChange struct {
	Status    enums.OrderStatus `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
}

// OrderItem is a line item as the backend reports it.
type OrderItem struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Price           int64   `json:"price"`
	DiscountPercent float64 `json:"discount"`
	Quantity        int     `json:"quantity"`
	Image           string  `json:"image,omitempty"`
}

// Order mirrors the backend's order resource. Status is only ever written by
// the backend; this client reflects it.
type Order struct {
	OrderID       string              `json:"orderId"`
	Status        enums.OrderStatus   `json:"status"`
	StatusHistory []StatusChange      `json:"statusHistory"`
	Items         []OrderItem         `json:"items"`
	TotalAmount   int64               `json:"totalAmount"`
	WalletUsed    int64               `json:"walletUsed"`
	PaymentMethod enums.PaymentMethod `json:"paymentMethod"`
	OrderType     enums.OrderType     `json:"type"`
	Address       string              `json:"address,omitempty"`
	CreatedAt     time.Time           `json:"createdAt"`
	UpdatedAt     time.Time           `json:"updatedAt"`
}

// OrderDraft is the payload sent on order creation. Totals are computed
// client-side and re-validated by the backend.
type OrderDraft struct {
	Items         []OrderItem         `json:"items"`
	OrderType     enums.OrderType     `json:"type"`
	Address       string              `json:"address,omitempty"`
	PaymentMethod enums.PaymentMethod `json:"paymentMethod"`
	ItemTotal     int64               `json:"itemTotal"`
	Taxes         int64               `json:"taxes"`
	PackagingFee  int64               `json:"packagingFee"`
	DeliveryFee   int64               `json:"deliveryFee"`
	WalletUsed    int64               `json:"walletUsed"`
	TotalPayable  int64               `json:"totalPayable"`
}

// GatewayOrder references a payment-gateway order created by the backend.
type GatewayOrder struct {
	GatewayOrderID string `json:"gatewayOrderId"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	KeyID          string `json:"keyId"`
}

// CreatePaymentOrderRequest asks the backend for a gateway order covering the
// draft's payable amount.
type CreatePaymentOrderRequest struct {
	Amount int64      `json:"amount"`
	Draft  OrderDraft `json:"draft"`
}

// PaymentProof carries the gateway's success callback identifiers.
type PaymentProof struct {
	GatewayOrderID   string `json:"gatewayOrderId"`
	GatewayPaymentID string `json:"gatewayPaymentId"`
	Signature        string `json:"signature"`
}

// VerifyPaymentRequest submits the proof plus the original draft; the backend
// creates the order only when the signature checks out.
type VerifyPaymentRequest struct {
	Proof PaymentProof `json:"proof"`
	Draft OrderDraft   `json:"draft"`
}

// Wallet is the caller's wallet balance.
type Wallet struct {
	Balance int64 `json:"balance"`
}

// WalletSummary adds referral information to the balance.
type WalletSummary struct {
	Balance          int64 `json:"balance"`
	ReferralCount    int   `json:"referralCount"`
	ReferralEarnings int64 `json:"referralEarnings"`
}

// StatusEvent is one message of the order event stream.
type StatusEvent struct {
	Type          string            `json:"type"`
	OrderID       string            `json:"orderId"`
	Status        enums.OrderStatus `json:"status"`
	StatusHistory []StatusChange    `json:"statusHistory"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

// EventTypeStatusUpdate is the only stream message type the sync layer
// consumes; anything else is ignored.
const EventTypeStatusUpdate = "statusUpdate"
