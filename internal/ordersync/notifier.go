package ordersync

import (
	"context"

	"github.com/rahulpdmehta/hungerwood-core/pkg/enums"
	"github.com/rahulpdmehta/hungerwood-core/pkg/logger"
)

// Notifier receives exactly one call per genuine status transition,
// regardless of how many channels reported it.
type Notifier interface {
	OrderStatusChanged(orderID string, from, to enums.OrderStatus)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(orderID string, from, to enums.OrderStatus)

func (f NotifierFunc) OrderStatusChanged(orderID string, from, to enums.OrderStatus) {
	f(orderID, from, to)
}

// NewLogNotifier returns a notifier that writes transitions to the log.
func NewLogNotifier(logg *logger.Logger) Notifier {
	return NotifierFunc(func(orderID string, from, to enums.OrderStatus) {
		ctx := logg.WithFields(logg.WithOrderID(context.Background(), orderID), map[string]any{
			"from": from,
			"to":   to,
		})
		logg.Info(ctx, "order status notification")
	})
}
