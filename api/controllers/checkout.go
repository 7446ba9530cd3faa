package controllers

import (
	"net/http"

	"github.com/rahulpdmehta/hungerwood-core/api/middleware"
	"github.com/rahulpdmehta/hungerwood-core/api/responses"
	"github.com/rahulpdmehta/hungerwood-core/api/validators"
	cartsvc "github.com/rahulpdmehta/hungerwood-core/internal/cart"
	"github.com/rahulpdmehta/hungerwood-core/internal/payment"
	"github.com/rahulpdmehta/hungerwood-core/pkg/enums"
	pkgerrors "github.com/rahulpdmehta/hungerwood-core/pkg/errors"
	"github.com/rahulpdmehta/hungerwood-core/pkg/logger"
	"github.com/rahulpdmehta/hungerwood-core/pkg/orderapi"
)

type checkoutQuoteRequest struct {
	OrderType  string `json:"type" validate:"required"`
	WalletUsed int64  `json:"walletUsed" validate:"min=0"`
}

// CheckoutQuote returns the delivery-aware bill for the current cart.
func CheckoutQuote(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload checkoutQuoteRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderType, err := enums.ParseOrderType(payload.OrderType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order type"))
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		summary, err := svc.CheckoutQuote(r.Context(), userID, orderType, payload.WalletUsed)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

type placeOrderRequest struct {
	OrderType     string `json:"type" validate:"required"`
	Address       string `json:"address"`
	PaymentMethod string `json:"paymentMethod" validate:"required"`
	WalletUsed    int64  `json:"walletUsed" validate:"min=0"`
}

func (p placeOrderRequest) toInput() (payment.PlaceOrderRequest, error) {
	orderType, err := enums.ParseOrderType(p.OrderType)
	if err != nil {
		return payment.PlaceOrderRequest{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order type")
	}
	method, err := enums.ParsePaymentMethod(p.PaymentMethod)
	if err != nil {
		return payment.PlaceOrderRequest{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method")
	}
	return payment.PlaceOrderRequest{
		OrderType:     orderType,
		Address:       validators.SanitizeString(p.Address, 512),
		PaymentMethod: method,
		WalletUsed:    p.WalletUsed,
	}, nil
}

// PlaceOrder submits a wallet or cash order.
func PlaceOrder(coord *payment.Coordinator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload placeOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		order, err := coord.PlaceOrder(r.Context(), userID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

type gatewayCheckoutRequest struct {
	OrderType  string `json:"type" validate:"required"`
	Address    string `json:"address"`
	WalletUsed int64  `json:"walletUsed" validate:"min=0"`
}

// GatewayCheckoutBegin opens a gateway payment for the cart's payable amount.
func GatewayCheckoutBegin(coord *payment.Coordinator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload gatewayCheckoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderType, err := enums.ParseOrderType(payload.OrderType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order type"))
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		checkout, err := coord.BeginGatewayCheckout(r.Context(), userID, payment.PlaceOrderRequest{
			OrderType:  orderType,
			Address:    validators.SanitizeString(payload.Address, 512),
			WalletUsed: payload.WalletUsed,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status := http.StatusOK
		if checkout.Order != nil {
			status = http.StatusCreated
		}
		responses.WriteSuccessStatus(w, status, checkout)
	}
}

type gatewayConfirmRequest struct {
	GatewayOrderID   string `json:"gatewayOrderId" validate:"required"`
	GatewayPaymentID string `json:"gatewayPaymentId" validate:"required"`
	Signature        string `json:"signature" validate:"required"`
}

// GatewayCheckoutConfirm submits the gateway's success proof.
func GatewayCheckoutConfirm(coord *payment.Coordinator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload gatewayConfirmRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		order, err := coord.ConfirmGatewayPayment(r.Context(), userID, orderapi.PaymentProof{
			GatewayOrderID:   payload.GatewayOrderID,
			GatewayPaymentID: payload.GatewayPaymentID,
			Signature:        payload.Signature,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// GatewayCheckoutDismiss abandons the open gateway checkout; the cart stays.
func GatewayCheckoutDismiss(coord *payment.Coordinator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())
		dismissed := coord.DismissGatewayCheckout(userID)
		responses.WriteSuccess(w, map[string]bool{"dismissed": dismissed})
	}
}
