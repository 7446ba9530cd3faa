package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rahulpdmehta/hungerwood-core/api/responses"
	"github.com/rahulpdmehta/hungerwood-core/internal/orders"
	"github.com/rahulpdmehta/hungerwood-core/internal/ordersync"
	pkgerrors "github.com/rahulpdmehta/hungerwood-core/pkg/errors"
	"github.com/rahulpdmehta/hungerwood-core/pkg/logger"
)

// OrdersList returns the caller's orders from the backend, newest first.
func OrdersList(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := svc.ListOrders(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, out)
	}
}

// OrderDetail returns a single order.
func OrderDetail(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order, err := svc.GetOrder(r.Context(), chi.URLParam(r, "orderId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// TrackedOrders returns the sync engine's local mirror. Unlike OrdersList it
// never touches the backend, so it stays available during backend outages.
func TrackedOrders(engine *ordersync.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, engine.Orders())
	}
}

// TrackedOrderDetail returns one mirrored order.
func TrackedOrderDetail(engine *ordersync.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order, ok := engine.Order(chi.URLParam(r, "orderId"))
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "order not tracked"))
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// OrdersRefresh forces one poll cycle. Overlapping calls collapse into the
// cycle already in flight.
func OrdersRefresh(engine *ordersync.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		engine.PollNow(r.Context())
		responses.WriteSuccess(w, engine.Orders())
	}
}
