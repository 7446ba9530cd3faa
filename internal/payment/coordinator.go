package payment

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rahulpdmehta/hungerwood-core/internal/billing"
	"github.com/rahulpdmehta/hungerwood-core/internal/cart"
	"github.com/rahulpdmehta/hungerwood-core/internal/wallet"
	"github.com/rahulpdmehta/hungerwood-core/pkg/config"
	"github.com/rahulpdmehta/hungerwood-core/pkg/enums"
	pkgerrors "github.com/rahulpdmehta/hungerwood-core/pkg/errors"
	"github.com/rahulpdmehta/hungerwood-core/pkg/logger"
	"github.com/rahulpdmehta/hungerwood-core/pkg/metrics"
	"github.com/rahulpdmehta/hungerwood-core/pkg/orderapi"
	"github.com/rahulpdmehta/hungerwood-core/pkg/redis"
)

type cartService interface {
	Snapshot(ctx context.Context, userID string) ([]cart.Line, error)
	CheckoutQuote(ctx context.Context, userID string, orderType enums.OrderType, walletUsed int64) (billing.Summary, error)
	ClearCart(ctx context.Context, userID string) error
}

type backendAPI interface {
	CreateOrder(ctx context.Context, draft orderapi.OrderDraft) (*orderapi.Order, error)
	CreatePaymentOrder(ctx context.Context, req orderapi.CreatePaymentOrderRequest) (*orderapi.GatewayOrder, error)
	VerifyPayment(ctx context.Context, req orderapi.VerifyPaymentRequest) (*orderapi.Order, error)
	GetWallet(ctx context.Context) (*orderapi.Wallet, error)
}

type tracker interface {
	Track(order orderapi.Order)
}

// PlaceOrderRequest carries the checkout choices for one submission.
type PlaceOrderRequest struct {
	OrderType     enums.OrderType
	Address       string
	PaymentMethod enums.PaymentMethod
	WalletUsed    int64
}

// Checkout is the outcome of starting a gateway checkout. When the wallet
// covers the whole bill the gateway is skipped and Order is set directly;
// otherwise Gateway carries the handoff parameters.
type Checkout struct {
	Gateway *orderapi.GatewayOrder `json:"gateway,omitempty"`
	Order   *orderapi.Order        `json:"order,omitempty"`
	Summary billing.Summary        `json:"summary"`
}

type pendingCheckout struct {
	draft          orderapi.OrderDraft
	gatewayOrderID string
}

// Coordinator owns the order submission flow: duplicate suppression, draft
// building, the gateway handoff, and post-creation bookkeeping. The cart is
// cleared and the order tracked only after the backend confirms creation.
type Coordinator struct {
	cart      cartService
	backend   backendAPI
	tracker   tracker
	debounce  redis.DebounceStore
	logg      *logger.Logger
	metr      *metrics.PaymentMetrics
	billing   config.BillingConfig
	walletCfg config.WalletConfig
	window    time.Duration
	now       func() time.Time

	mu      sync.Mutex
	guards  map[string]*Guard
	pending map[string]pendingCheckout
}

// CoordinatorParams groups dependencies for the payment coordinator.
// Debounce and Metrics are optional; Now defaults to time.Now.
type CoordinatorParams struct {
	Cart     cartService
	Backend  backendAPI
	Tracker  tracker
	Debounce redis.DebounceStore
	Logger   *logger.Logger
	Metrics  *metrics.PaymentMetrics
	Billing  config.BillingConfig
	Wallet   config.WalletConfig
	Payment  config.PaymentConfig
	Now      func() time.Time
}

// NewCoordinator builds a payment coordinator.
func NewCoordinator(params CoordinatorParams) (*Coordinator, error) {
	if params.Cart == nil {
		return nil, fmt.Errorf("cart service required")
	}
	if params.Backend == nil {
		return nil, fmt.Errorf("backend client required")
	}
	if params.Tracker == nil {
		return nil, fmt.Errorf("order tracker required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Payment.DebounceWindow <= 0 {
		params.Payment.DebounceWindow = 3 * time.Second
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &Coordinator{
		cart:      params.Cart,
		backend:   params.Backend,
		tracker:   params.Tracker,
		debounce:  params.Debounce,
		logg:      params.Logger,
		metr:      params.Metrics,
		billing:   params.Billing,
		walletCfg: params.Wallet,
		window:    params.Payment.DebounceWindow,
		now:       params.Now,
		guards:    map[string]*Guard{},
		pending:   map[string]pendingCheckout{},
	}, nil
}

// PlaceOrder submits a wallet or cash order directly. A gateway order is
// accepted only when the wallet covers the whole bill; anything payable has
// to go through BeginGatewayCheckout.
func (c *Coordinator) PlaceOrder(ctx context.Context, userID string, req PlaceOrderRequest) (*orderapi.Order, error) {
	if err := c.validate(userID, req); err != nil {
		return nil, err
	}
	release, err := c.acquire(ctx, userID, string(req.PaymentMethod))
	if err != nil {
		return nil, err
	}
	defer release()

	lines, summary, err := c.loadCheckout(ctx, userID, req)
	if err != nil {
		return nil, err
	}

	method := req.PaymentMethod
	if method == enums.PaymentMethodGateway {
		if summary.TotalPayable > 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "payable amount requires a gateway checkout")
		}
		// Wallet covers everything; the gateway is bypassed.
		method = enums.PaymentMethodWallet
	}

	order, err := c.backend.CreateOrder(ctx, buildDraft(lines, summary, req, method))
	if err != nil {
		c.metr.IncAttempt(string(method), "error")
		return nil, err
	}
	c.finalize(ctx, userID, *order, string(method))
	return order, nil
}

// BeginGatewayCheckout opens a gateway payment for the cart's payable amount.
// The draft is held until the payment is confirmed or dismissed. When the
// wallet covers the whole bill the order is placed immediately instead.
func (c *Coordinator) BeginGatewayCheckout(ctx context.Context, userID string, req PlaceOrderRequest) (*Checkout, error) {
	req.PaymentMethod = enums.PaymentMethodGateway
	if err := c.validate(userID, req); err != nil {
		return nil, err
	}
	release, err := c.acquire(ctx, userID, string(enums.PaymentMethodGateway))
	if err != nil {
		return nil, err
	}
	defer release()

	lines, summary, err := c.loadCheckout(ctx, userID, req)
	if err != nil {
		return nil, err
	}

	if summary.TotalPayable == 0 {
		order, err := c.backend.CreateOrder(ctx, buildDraft(lines, summary, req, enums.PaymentMethodWallet))
		if err != nil {
			c.metr.IncAttempt(string(enums.PaymentMethodWallet), "error")
			return nil, err
		}
		c.finalize(ctx, userID, *order, string(enums.PaymentMethodWallet))
		return &Checkout{Order: order, Summary: summary}, nil
	}

	draft := buildDraft(lines, summary, req, enums.PaymentMethodGateway)
	gateway, err := c.backend.CreatePaymentOrder(ctx, orderapi.CreatePaymentOrderRequest{
		Amount: summary.TotalPayable,
		Draft:  draft,
	})
	if err != nil {
		c.metr.IncAttempt(string(enums.PaymentMethodGateway), "error")
		return nil, err
	}

	c.mu.Lock()
	c.pending[userID] = pendingCheckout{draft: draft, gatewayOrderID: gateway.GatewayOrderID}
	c.mu.Unlock()
	return &Checkout{Gateway: gateway, Summary: summary}, nil
}

// ConfirmGatewayPayment submits the gateway's success proof. The open
// checkout is taken before the verify call, so concurrent confirms for the
// same checkout reach the backend at most once; the loser observes no open
// checkout. The cart is cleared only after the backend verifies the payment
// and creates the order; a failed verification restores the checkout and
// keeps the cart so the caller can retry.
func (c *Coordinator) ConfirmGatewayPayment(ctx context.Context, userID string, proof orderapi.PaymentProof) (*orderapi.Order, error) {
	c.mu.Lock()
	pending, ok := c.pending[userID]
	if ok && proof.GatewayOrderID != pending.gatewayOrderID {
		c.mu.Unlock()
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment proof does not match the open checkout")
	}
	if ok {
		delete(c.pending, userID)
	}
	c.mu.Unlock()
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "no gateway checkout in progress")
	}

	order, err := c.backend.VerifyPayment(ctx, orderapi.VerifyPaymentRequest{Proof: proof, Draft: pending.draft})
	if err != nil {
		c.mu.Lock()
		if _, exists := c.pending[userID]; !exists {
			c.pending[userID] = pending
		}
		c.mu.Unlock()
		outcome := "error"
		if pkgerrors.Is(err, pkgerrors.CodePaymentVerification) {
			outcome = "verify_failed"
		}
		c.metr.IncAttempt(string(enums.PaymentMethodGateway), outcome)
		return nil, err
	}

	c.finalize(ctx, userID, *order, string(enums.PaymentMethodGateway))
	return order, nil
}

// DismissGatewayCheckout abandons the open checkout. The cart is untouched.
func (c *Coordinator) DismissGatewayCheckout(userID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.pending[userID]
	delete(c.pending, userID)
	return ok
}

func (c *Coordinator) validate(userID string, req PlaceOrderRequest) error {
	if strings.TrimSpace(userID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if !req.OrderType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid order type")
	}
	if !req.PaymentMethod.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	if req.OrderType == enums.OrderTypeDelivery && strings.TrimSpace(req.Address) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "delivery orders require an address")
	}
	if req.WalletUsed < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "wallet amount must not be negative")
	}
	return nil
}

// acquire claims both the in-process guard and, when configured, the shared
// redis debounce key. A redis outage never blocks order placement.
func (c *Coordinator) acquire(ctx context.Context, userID, method string) (func(), error) {
	guard := c.guardFor(userID)
	if !guard.TryAcquire() {
		c.metr.IncAttempt(method, "debounced")
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "order submission already in progress")
	}
	if c.debounce != nil {
		ok, err := c.debounce.SetNX(ctx, c.debounce.DebounceKey("order", userID), "1", c.window)
		if err != nil {
			c.logg.Error(c.logg.WithUserID(ctx, userID), "debounce store unavailable", err)
		} else if !ok {
			guard.Release()
			c.metr.IncAttempt(method, "debounced")
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "order submission already in progress")
		}
	}
	return guard.Release, nil
}

func (c *Coordinator) guardFor(userID string) *Guard {
	c.mu.Lock()
	defer c.mu.Unlock()
	guard, ok := c.guards[userID]
	if !ok {
		guard = NewGuard(c.window)
		guard.nowFunc = c.now
		c.guards[userID] = guard
	}
	return guard
}

// loadCheckout snapshots the cart and quotes the bill. A requested wallet
// amount is clamped against the live balance and the usage cap before the
// quote is final; the draft can never apply more than the wallet allows.
func (c *Coordinator) loadCheckout(ctx context.Context, userID string, req PlaceOrderRequest) ([]cart.Line, billing.Summary, error) {
	lines, err := c.cart.Snapshot(ctx, userID)
	if err != nil {
		return nil, billing.Summary{}, err
	}
	if len(lines) == 0 {
		return nil, billing.Summary{}, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	summary, err := c.cart.CheckoutQuote(ctx, userID, req.OrderType, req.WalletUsed)
	if err != nil {
		return nil, billing.Summary{}, err
	}
	if req.WalletUsed > 0 {
		balance, err := c.backend.GetWallet(ctx)
		if err != nil {
			return nil, billing.Summary{}, err
		}
		state := wallet.NewState(c.billing, c.walletCfg)
		state.SetBalance(balance.Balance)
		state.SetOrderTotal(summary.Subtotal)
		if applied := state.SetRequested(req.WalletUsed); applied != summary.WalletUsed {
			summary, err = c.cart.CheckoutQuote(ctx, userID, req.OrderType, applied)
			if err != nil {
				return nil, billing.Summary{}, err
			}
		}
	}
	return lines, summary, nil
}

// finalize runs the after-creation bookkeeping. The order exists on the
// backend at this point; a cart clear failure is logged, never surfaced.
func (c *Coordinator) finalize(ctx context.Context, userID string, order orderapi.Order, method string) {
	if err := c.cart.ClearCart(ctx, userID); err != nil {
		c.logg.Error(c.logg.WithOrderID(ctx, order.OrderID), "clearing cart after order creation failed", err)
	}
	c.tracker.Track(order)
	c.metr.IncAttempt(method, "success")
	c.logg.Info(c.logg.WithOrderID(c.logg.WithUserID(ctx, userID), order.OrderID), "order placed")
}

func buildDraft(lines []cart.Line, summary billing.Summary, req PlaceOrderRequest, method enums.PaymentMethod) orderapi.OrderDraft {
	items := make([]orderapi.OrderItem, len(lines))
	for i, line := range lines {
		items[i] = orderapi.OrderItem{
			ID:              line.ItemID,
			Name:            line.Name,
			Price:           line.Price,
			DiscountPercent: line.DiscountPercent,
			Quantity:        line.Quantity,
			Image:           line.Image,
		}
	}
	return orderapi.OrderDraft{
		Items:         items,
		OrderType:     req.OrderType,
		Address:       strings.TrimSpace(req.Address),
		PaymentMethod: method,
		ItemTotal:     summary.ItemTotal,
		Taxes:         summary.Taxes,
		PackagingFee:  summary.PackagingFee,
		DeliveryFee:   summary.DeliveryFee,
		WalletUsed:    summary.WalletUsed,
		TotalPayable:  summary.TotalPayable,
	}
}
