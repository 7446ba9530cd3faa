package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rahulpdmehta/hungerwood-core/api/middleware"
	"github.com/rahulpdmehta/hungerwood-core/api/responses"
	"github.com/rahulpdmehta/hungerwood-core/api/validators"
	cartsvc "github.com/rahulpdmehta/hungerwood-core/internal/cart"
	pkgerrors "github.com/rahulpdmehta/hungerwood-core/pkg/errors"
	"github.com/rahulpdmehta/hungerwood-core/pkg/logger"
)

type cartLineResponse struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Price           int64   `json:"price"`
	DiscountPercent float64 `json:"discount"`
	Quantity        int     `json:"quantity"`
	Image           string  `json:"image,omitempty"`
}

type cartResponse struct {
	Items []cartLineResponse `json:"items"`
	Bill  any                `json:"bill"`
}

func newCartLineResponses(lines []cartsvc.Line) []cartLineResponse {
	out := make([]cartLineResponse, len(lines))
	for i, line := range lines {
		out[i] = cartLineResponse{
			ID:              line.ItemID,
			Name:            line.Name,
			Price:           line.Price,
			DiscountPercent: line.DiscountPercent,
			Quantity:        line.Quantity,
			Image:           line.Image,
		}
	}
	return out
}

func writeCart(w http.ResponseWriter, r *http.Request, svc cartsvc.Service, logg *logger.Logger, lines []cartsvc.Line) {
	bill, err := svc.Quote(r.Context(), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	responses.WriteSuccess(w, cartResponse{Items: newCartLineResponses(lines), Bill: bill})
}

// CartFetch returns the cart snapshot with its bill.
func CartFetch(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())
		lines, err := svc.Snapshot(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeCart(w, r, svc, logg, lines)
	}
}

type addItemRequest struct {
	ID              string  `json:"id" validate:"required"`
	Name            string  `json:"name" validate:"required"`
	Price           int64   `json:"price" validate:"min=0"`
	DiscountPercent float64 `json:"discount" validate:"min=0,max=100"`
	Image           string  `json:"image"`
}

// CartAddItem adds one unit of the item, merging with an existing line.
func CartAddItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload addItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		lines, err := svc.AddItem(r.Context(), userID, cartsvc.Item{
			ID:              payload.ID,
			Name:            validators.SanitizeString(payload.Name, 128),
			Price:           payload.Price,
			DiscountPercent: payload.DiscountPercent,
			Image:           validators.SanitizeString(payload.Image, 512),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeCart(w, r, svc, logg, lines)
	}
}

// CartIncrement raises the line's quantity by one.
func CartIncrement(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return cartQuantityHandler(svc, logg, svc.IncrementQuantity)
}

// CartDecrement lowers the line's quantity by one, removing it at zero.
func CartDecrement(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return cartQuantityHandler(svc, logg, svc.DecrementQuantity)
}

// CartRemoveItem drops the line regardless of quantity.
func CartRemoveItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return cartQuantityHandler(svc, logg, svc.RemoveItem)
}

func cartQuantityHandler(svc cartsvc.Service, logg *logger.Logger, op func(ctx context.Context, userID, itemID string) ([]cartsvc.Line, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID := chi.URLParam(r, "itemId")
		if itemID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "item id required"))
			return
		}
		userID := middleware.UserIDFromContext(r.Context())
		lines, err := op(r.Context(), userID, itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeCart(w, r, svc, logg, lines)
	}
}

// CartClear empties the cart.
func CartClear(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())
		if err := svc.ClearCart(r.Context(), userID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeCart(w, r, svc, logg, nil)
	}
}
