package billing

import (
	"github.com/rahulpdmehta/hungerwood-core/pkg/config"
	"github.com/rahulpdmehta/hungerwood-core/pkg/enums"
	"github.com/shopspring/decimal"
)

// LineItem is the minimal shape the calculator needs from a cart line.
type LineItem struct {
	Price           int64
	DiscountPercent float64
	Quantity        int
}

// Summary is the derived bill. It is never stored or mutated in place;
// callers rebuild it from the cart snapshot on every change.
type Summary struct {
	OriginalTotal int64 `json:"originalTotal"`
	ItemTotal     int64 `json:"itemTotal"`
	TotalDiscount int64 `json:"totalDiscount"`
	Taxes         int64 `json:"taxes"`
	PackagingFee  int64 `json:"packagingFee"`
	DeliveryFee   int64 `json:"deliveryFee"`
	Subtotal      int64 `json:"subtotal"`
	WalletUsed    int64 `json:"walletUsed"`
	GrandTotal    int64 `json:"grandTotal"`
	TotalPayable  int64 `json:"totalPayable"`
}

// unitPrice applies the line's discount to a single unit and rounds to the
// nearest integer currency unit. Rounding happens per unit, before the
// quantity multiply; the backend computes totals the same way, and a
// per-line rounding would drift off by one.
func unitPrice(price int64, discountPercent float64) int64 {
	if price < 0 {
		return 0
	}
	if discountPercent <= 0 {
		return price
	}
	if discountPercent >= 100 {
		return 0
	}
	factor := decimal.NewFromFloat(1).Sub(decimal.NewFromFloat(discountPercent).Div(decimal.NewFromInt(100)))
	discounted := decimal.NewFromInt(price).Mul(factor)
	return discounted.Round(0).IntPart()
}

func totals(items []LineItem) (original, discounted int64) {
	for _, item := range items {
		if item.Quantity <= 0 || item.Price < 0 {
			continue
		}
		qty := int64(item.Quantity)
		original += item.Price * qty
		discounted += unitPrice(item.Price, item.DiscountPercent) * qty
	}
	return original, discounted
}

func roundTax(itemTotal int64, rate float64) int64 {
	if itemTotal <= 0 || rate <= 0 {
		return 0
	}
	return decimal.NewFromInt(itemTotal).Mul(decimal.NewFromFloat(rate)).Round(0).IntPart()
}

func clampAtZero(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}

// ComputeBill produces the cart-view bill: item totals, discount, taxes and
// packaging fee. Pure; identical inputs yield identical output.
func ComputeBill(items []LineItem, cfg config.BillingConfig) Summary {
	original, itemTotal := totals(items)
	if itemTotal == 0 && original == 0 {
		return Summary{}
	}

	taxes := roundTax(itemTotal, cfg.TaxRate)
	return Summary{
		OriginalTotal: original,
		ItemTotal:     itemTotal,
		TotalDiscount: clampAtZero(original - itemTotal),
		Taxes:         taxes,
		PackagingFee:  cfg.PackagingFee,
		GrandTotal:    clampAtZero(itemTotal + taxes + cfg.PackagingFee),
	}
}

// ComputeCheckout produces the delivery-aware checkout bill. The delivery fee
// applies only to delivery orders; walletUsed is subtracted last and the
// payable amount never goes negative.
func ComputeCheckout(items []LineItem, cfg config.BillingConfig, orderType enums.OrderType, walletUsed int64) Summary {
	summary := ComputeBill(items, cfg)
	if summary.ItemTotal == 0 && summary.OriginalTotal == 0 {
		return Summary{}
	}

	if orderType == enums.OrderTypeDelivery {
		summary.DeliveryFee = cfg.DeliveryFee
	}
	summary.Subtotal = clampAtZero(summary.ItemTotal + summary.DeliveryFee + summary.Taxes)
	summary.WalletUsed = clampAtZero(walletUsed)
	if summary.WalletUsed > summary.Subtotal {
		summary.WalletUsed = summary.Subtotal
	}
	summary.TotalPayable = clampAtZero(summary.Subtotal - summary.WalletUsed)
	return summary
}

// FullyCoveredByWallet reports whether the wallet absorbs the whole subtotal,
// which forces the wallet-only payment path.
func (s Summary) FullyCoveredByWallet() bool {
	return s.Subtotal > 0 && s.WalletUsed == s.Subtotal
}
