package orders

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rahulpdmehta/hungerwood-core/pkg/enums"
	pkgerrors "github.com/rahulpdmehta/hungerwood-core/pkg/errors"
	"github.com/rahulpdmehta/hungerwood-core/pkg/logger"
	"github.com/rahulpdmehta/hungerwood-core/pkg/orderapi"
)

// backendAPI is the slice of the ordering backend this service consumes.
type backendAPI interface {
	ListMyOrders(ctx context.Context) ([]orderapi.Order, error)
	GetOrder(ctx context.Context, orderID string) (*orderapi.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status enums.OrderStatus) (*orderapi.Order, error)
}

// AdminView decorates an order with the transitions an operator may pick.
// Terminal orders carry an empty option list.
type AdminView struct {
	Order       orderapi.Order      `json:"order"`
	AllowedNext []enums.OrderStatus `json:"allowedNext"`
}

// Service exposes order reads and the admin status transition.
type Service interface {
	ListOrders(ctx context.Context) ([]orderapi.Order, error)
	GetOrder(ctx context.Context, orderID string) (*orderapi.Order, error)
	ListAdminViews(ctx context.Context) ([]AdminView, error)
	UpdateStatus(ctx context.Context, orderID string, next enums.OrderStatus) (*orderapi.Order, error)
}

// ServiceParams groups dependencies for the orders service.
type ServiceParams struct {
	Backend backendAPI
	Logger  *logger.Logger
}

type service struct {
	backend backendAPI
	logg    *logger.Logger
}

// NewService builds an orders service.
func NewService(params ServiceParams) (Service, error) {
	if params.Backend == nil {
		return nil, fmt.Errorf("backend client required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{backend: params.Backend, logg: params.Logger}, nil
}

// ListOrders returns the caller's orders, newest first.
func (s *service) ListOrders(ctx context.Context) ([]orderapi.Order, error) {
	orders, err := s.backend.ListMyOrders(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders, nil
}

func (s *service) GetOrder(ctx context.Context, orderID string) (*orderapi.Order, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	return s.backend.GetOrder(ctx, orderID)
}

// ListAdminViews returns every order with its legal next statuses attached.
func (s *service) ListAdminViews(ctx context.Context) ([]AdminView, error) {
	orders, err := s.ListOrders(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]AdminView, len(orders))
	for i, order := range orders {
		views[i] = AdminView{Order: order, AllowedNext: order.Status.AllowedNext()}
	}
	return views, nil
}

// UpdateStatus applies an operator transition. Legality is checked locally
// against the transition table before the backend call; the backend remains
// authoritative and may still reject, in which case the order is reloaded so
// the caller sees the real current state.
func (s *service) UpdateStatus(ctx context.Context, orderID string, next enums.OrderStatus) (*orderapi.Order, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !next.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid target status")
	}

	current, err := s.backend.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !current.Status.CanTransitionTo(next) {
		return current, pkgerrors.New(pkgerrors.CodeStateConflict, "status transition disallowed").
			WithDetails(map[string]any{
				"from":    current.Status,
				"to":      next,
				"allowed": current.Status.AllowedNext(),
			})
	}

	updated, err := s.backend.UpdateOrderStatus(ctx, orderID, next)
	if err == nil {
		return updated, nil
	}

	if pkgerrors.Is(err, pkgerrors.CodeStateConflict) || pkgerrors.Is(err, pkgerrors.CodeConflict) {
		// Our snapshot was stale. Reload so the caller gets the backend's
		// current state alongside the rejection.
		refreshed, reloadErr := s.backend.GetOrder(ctx, orderID)
		if reloadErr != nil {
			s.logg.Error(s.logg.WithOrderID(ctx, orderID), "reload after rejected transition failed", reloadErr)
			return nil, err
		}
		return refreshed, err
	}
	return nil, err
}
