package cart

import (
	"context"
	"fmt"
	"strings"

	"github.com/rahulpdmehta/hungerwood-core/internal/billing"
	"github.com/rahulpdmehta/hungerwood-core/pkg/config"
	"github.com/rahulpdmehta/hungerwood-core/pkg/enums"
	pkgerrors "github.com/rahulpdmehta/hungerwood-core/pkg/errors"
)

// Item is the input shape for adding a product to the cart.
type Item struct {
	ID              string
	Name            string
	Price           int64
	DiscountPercent float64
	Image           string
}

// Service exposes the cart operations. All operations are synchronous and
// their effect is immediately observable by the billing calculator.
type Service interface {
	AddItem(ctx context.Context, userID string, item Item) ([]Line, error)
	IncrementQuantity(ctx context.Context, userID, itemID string) ([]Line, error)
	DecrementQuantity(ctx context.Context, userID, itemID string) ([]Line, error)
	RemoveItem(ctx context.Context, userID, itemID string) ([]Line, error)
	ClearCart(ctx context.Context, userID string) error
	Snapshot(ctx context.Context, userID string) ([]Line, error)
	Quote(ctx context.Context, userID string) (billing.Summary, error)
	CheckoutQuote(ctx context.Context, userID string, orderType enums.OrderType, walletUsed int64) (billing.Summary, error)
}

// ServiceParams groups dependencies for the cart service.
type ServiceParams struct {
	Repo    Repository
	Billing config.BillingConfig
}

type service struct {
	repo    Repository
	billing config.BillingConfig
}

// NewService builds a cart service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	return &service{repo: params.Repo, billing: params.Billing}, nil
}

func (s *service) AddItem(ctx context.Context, userID string, item Item) ([]Line, error) {
	if err := validateUser(userID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(item.ID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}
	if item.Price < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item price must not be negative")
	}
	if item.DiscountPercent < 0 || item.DiscountPercent > 100 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item discount must be within [0,100]")
	}

	existing, err := s.repo.Find(ctx, userID, item.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart line")
	}
	if existing != nil {
		existing.Quantity++
		if err := s.repo.Save(ctx, existing); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "saving cart line")
		}
		return s.Snapshot(ctx, userID)
	}

	line := &Line{
		ItemID:          item.ID,
		UserID:          userID,
		Name:            item.Name,
		Price:           item.Price,
		DiscountPercent: item.DiscountPercent,
		Quantity:        1,
		Image:           item.Image,
	}
	if err := s.repo.Save(ctx, line); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "saving cart line")
	}
	return s.Snapshot(ctx, userID)
}

func (s *service) IncrementQuantity(ctx context.Context, userID, itemID string) ([]Line, error) {
	if err := validateUser(userID); err != nil {
		return nil, err
	}
	line, err := s.repo.Find(ctx, userID, itemID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart line")
	}
	if line == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
	}
	line.Quantity++
	if err := s.repo.Save(ctx, line); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "saving cart line")
	}
	return s.Snapshot(ctx, userID)
}

// DecrementQuantity lowers the quantity by one; a line never persists at
// zero, it is removed instead.
func (s *service) DecrementQuantity(ctx context.Context, userID, itemID string) ([]Line, error) {
	if err := validateUser(userID); err != nil {
		return nil, err
	}
	line, err := s.repo.Find(ctx, userID, itemID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart line")
	}
	if line == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
	}

	line.Quantity--
	if line.Quantity <= 0 {
		if err := s.repo.Delete(ctx, userID, itemID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "removing cart line")
		}
		return s.Snapshot(ctx, userID)
	}
	if err := s.repo.Save(ctx, line); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "saving cart line")
	}
	return s.Snapshot(ctx, userID)
}

func (s *service) RemoveItem(ctx context.Context, userID, itemID string) ([]Line, error) {
	if err := validateUser(userID); err != nil {
		return nil, err
	}
	if err := s.repo.Delete(ctx, userID, itemID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "removing cart line")
	}
	return s.Snapshot(ctx, userID)
}

func (s *service) ClearCart(ctx context.Context, userID string) error {
	if err := validateUser(userID); err != nil {
		return err
	}
	if err := s.repo.DeleteByUser(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clearing cart")
	}
	return nil
}

func (s *service) Snapshot(ctx context.Context, userID string) ([]Line, error) {
	if err := validateUser(userID); err != nil {
		return nil, err
	}
	lines, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart")
	}
	return lines, nil
}

// Quote rebuilds the cart-view bill from the current snapshot.
func (s *service) Quote(ctx context.Context, userID string) (billing.Summary, error) {
	lines, err := s.Snapshot(ctx, userID)
	if err != nil {
		return billing.Summary{}, err
	}
	return billing.ComputeBill(toLineItems(lines), s.billing), nil
}

// CheckoutQuote rebuilds the delivery-aware bill.
func (s *service) CheckoutQuote(ctx context.Context, userID string, orderType enums.OrderType, walletUsed int64) (billing.Summary, error) {
	lines, err := s.Snapshot(ctx, userID)
	if err != nil {
		return billing.Summary{}, err
	}
	return billing.ComputeCheckout(toLineItems(lines), s.billing, orderType, walletUsed), nil
}

func toLineItems(lines []Line) []billing.LineItem {
	items := make([]billing.LineItem, len(lines))
	for i, line := range lines {
		items[i] = billing.LineItem{
			Price:           line.Price,
			DiscountPercent: line.DiscountPercent,
			Quantity:        line.Quantity,
		}
	}
	return items
}

func validateUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	return nil
}
