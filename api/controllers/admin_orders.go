package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rahulpdmehta/hungerwood-core/api/responses"
	"github.com/rahulpdmehta/hungerwood-core/api/validators"
	"github.com/rahulpdmehta/hungerwood-core/internal/orders"
	"github.com/rahulpdmehta/hungerwood-core/pkg/enums"
	pkgerrors "github.com/rahulpdmehta/hungerwood-core/pkg/errors"
	"github.com/rahulpdmehta/hungerwood-core/pkg/logger"
)

// AdminOrdersList returns every order decorated with its legal next statuses.
func AdminOrdersList(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		views, err := svc.ListAdminViews(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, views)
	}
}

type statusUpdateRequest struct {
	Status string `json:"status" validate:"required"`
}

// AdminOrderStatusUpdate applies an operator transition. An illegal move is
// rejected locally; a stale snapshot is rejected by the backend and the
// response carries the authoritative current state in the error details.
func AdminOrderStatusUpdate(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload statusUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseOrderStatus(payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		order, err := svc.UpdateStatus(r.Context(), chi.URLParam(r, "orderId"), status)
		if err != nil {
			typed := pkgerrors.As(err)
			if typed != nil && typed.Code() == pkgerrors.CodeStateConflict && order != nil {
				err = typed.WithDetails(map[string]any{
					"current":     order.Status,
					"allowedNext": order.Status.AllowedNext(),
				})
			}
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}
