package orders

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/rahulpdmehta/hungerwood-core/pkg/enums"
	pkgerrors "github.com/rahulpdmehta/hungerwood-core/pkg/errors"
	"github.com/rahulpdmehta/hungerwood-core/pkg/logger"
	"github.com/rahulpdmehta/hungerwood-core/pkg/orderapi"
)

type stubBackend struct {
	orders       map[string]*orderapi.Order
	listErr      error
	updateErr    error
	updateCalls  int
	lastStatus   enums.OrderStatus
	rejectReload *orderapi.Order
}

func (s *stubBackend) ListMyOrders(context.Context) ([]orderapi.Order, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]orderapi.Order, 0, len(s.orders))
	for _, order := range s.orders {
		out = append(out, *order)
	}
	return out, nil
}

func (s *stubBackend) GetOrder(_ context.Context, orderID string) (*orderapi.Order, error) {
	if s.rejectReload != nil && s.updateCalls > 0 {
		clone := *s.rejectReload
		return &clone, nil
	}
	order, ok := s.orders[orderID]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	clone := *order
	return &clone, nil
}

func (s *stubBackend) UpdateOrderStatus(_ context.Context, orderID string, status enums.OrderStatus) (*orderapi.Order, error) {
	s.updateCalls++
	s.lastStatus = status
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	order := s.orders[orderID]
	order.Status = status
	clone := *order
	return &clone, nil
}

func newTestService(t *testing.T, backend *stubBackend) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Backend: backend,
		Logger:  logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	if err != nil {
		t.Fatalf("building service: %v", err)
	}
	return svc
}

func order(id string, status enums.OrderStatus, createdAt time.Time) *orderapi.Order {
	return &orderapi.Order{OrderID: id, Status: status, CreatedAt: createdAt}
}

func TestListOrdersNewestFirst(t *testing.T) {
	now := time.Now()
	backend := &stubBackend{orders: map[string]*orderapi.Order{
		"o1": order("o1", enums.OrderStatusReceived, now.Add(-2*time.Hour)),
		"o2": order("o2", enums.OrderStatusConfirmed, now),
		"o3": order("o3", enums.OrderStatusCompleted, now.Add(-time.Hour)),
	}}
	svc := newTestService(t, backend)

	orders, err := svc.ListOrders(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(orders) != 3 {
		t.Fatalf("expected 3 orders, got %d", len(orders))
	}
	if orders[0].OrderID != "o2" || orders[2].OrderID != "o1" {
		t.Fatalf("wrong sort order: %s, %s, %s", orders[0].OrderID, orders[1].OrderID, orders[2].OrderID)
	}
}

func TestAdminViewsCarryAllowedNext(t *testing.T) {
	backend := &stubBackend{orders: map[string]*orderapi.Order{
		"o1": order("o1", enums.OrderStatusOutForDelivery, time.Now()),
	}}
	svc := newTestService(t, backend)

	views, err := svc.ListAdminViews(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("expected 1 view, got %d", len(views))
	}
	next := views[0].AllowedNext
	if len(next) != 1 || next[0] != enums.OrderStatusCompleted {
		t.Fatalf("expected only COMPLETED, got %v", next)
	}
}

func TestAdminViewTerminalHasNoOptions(t *testing.T) {
	backend := &stubBackend{orders: map[string]*orderapi.Order{
		"o1": order("o1", enums.OrderStatusCancelled, time.Now()),
	}}
	svc := newTestService(t, backend)

	views, err := svc.ListAdminViews(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(views[0].AllowedNext) != 0 {
		t.Fatalf("expected no options for terminal order, got %v", views[0].AllowedNext)
	}
}

func TestUpdateStatusHappyPath(t *testing.T) {
	backend := &stubBackend{orders: map[string]*orderapi.Order{
		"o1": order("o1", enums.OrderStatusReceived, time.Now()),
	}}
	svc := newTestService(t, backend)

	updated, err := svc.UpdateStatus(context.Background(), "o1", enums.OrderStatusConfirmed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != enums.OrderStatusConfirmed {
		t.Fatalf("expected CONFIRMED, got %s", updated.Status)
	}
	if backend.updateCalls != 1 {
		t.Fatalf("expected 1 backend call, got %d", backend.updateCalls)
	}
}

func TestUpdateStatusIllegalSkipsBackend(t *testing.T) {
	backend := &stubBackend{orders: map[string]*orderapi.Order{
		"o1": order("o1", enums.OrderStatusReceived, time.Now()),
	}}
	svc := newTestService(t, backend)

	current, err := svc.UpdateStatus(context.Background(), "o1", enums.OrderStatusReady)
	if !pkgerrors.Is(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if backend.updateCalls != 0 {
		t.Fatalf("illegal transition must not reach the backend, got %d calls", backend.updateCalls)
	}
	if current == nil || current.Status != enums.OrderStatusReceived {
		t.Fatalf("expected current snapshot alongside the rejection")
	}
}

func TestUpdateStatusBackendRejectionReloads(t *testing.T) {
	backend := &stubBackend{
		orders: map[string]*orderapi.Order{
			"o1": order("o1", enums.OrderStatusReceived, time.Now()),
		},
		updateErr:    pkgerrors.New(pkgerrors.CodeStateConflict, "already confirmed"),
		rejectReload: order("o1", enums.OrderStatusConfirmed, time.Now()),
	}
	svc := newTestService(t, backend)

	refreshed, err := svc.UpdateStatus(context.Background(), "o1", enums.OrderStatusConfirmed)
	if !pkgerrors.Is(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if refreshed == nil || refreshed.Status != enums.OrderStatusConfirmed {
		t.Fatalf("expected the authoritative state after rejection, got %+v", refreshed)
	}
}

func TestUpdateStatusValidation(t *testing.T) {
	svc := newTestService(t, &stubBackend{orders: map[string]*orderapi.Order{}})

	if _, err := svc.UpdateStatus(context.Background(), "", enums.OrderStatusConfirmed); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for empty id, got %v", err)
	}
	if _, err := svc.UpdateStatus(context.Background(), "o1", enums.OrderStatus("BOGUS")); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for bogus status, got %v", err)
	}
}
