package ordersync

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/rahulpdmehta/hungerwood-core/pkg/config"
	"github.com/rahulpdmehta/hungerwood-core/pkg/enums"
	pkgerrors "github.com/rahulpdmehta/hungerwood-core/pkg/errors"
	"github.com/rahulpdmehta/hungerwood-core/pkg/logger"
	"github.com/rahulpdmehta/hungerwood-core/pkg/metrics"
	"github.com/rahulpdmehta/hungerwood-core/pkg/orderapi"
)

// Update channels, used as metric labels and log fields.
const (
	ChannelPush = "push"
	ChannelPoll = "poll"
)

// Backend is the slice of the ordering backend the engine consumes.
// *orderapi.Client satisfies it.
type Backend interface {
	ListMyOrders(ctx context.Context) ([]orderapi.Order, error)
	StreamOrder(ctx context.Context, orderID string) (*orderapi.Stream, error)
}

// Engine mirrors the backend's order state locally. It merges three update
// channels (initial seed, the push stream, and a safety-net poll) into a
// single store, and emits exactly one notification per genuine status
// transition no matter how many channels report it.
//
// The poll loop stops itself once every tracked order is terminal and is
// restarted when a new active order is tracked.
type Engine struct {
	backend       Backend
	notifier      Notifier
	logg          *logger.Logger
	metr          *metrics.SyncMetrics
	pollInterval  time.Duration
	initialDelay  time.Duration
	streamBackoff time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	orders   map[string]orderapi.Order
	known    map[string]enums.OrderStatus
	watchers map[string]context.CancelFunc
	streams  map[string]*orderapi.Stream
	polling  bool
	looping  bool
	closed   bool
}

// EngineParams groups dependencies for the sync engine.
type EngineParams struct {
	Backend       Backend
	Notifier      Notifier
	Logger        *logger.Logger
	Metrics       *metrics.SyncMetrics
	Sync          config.SyncConfig
	StreamBackoff time.Duration
}

// NewEngine builds a sync engine. The engine owns its goroutines; callers
// must Close it on shutdown.
func NewEngine(params EngineParams) (*Engine, error) {
	if params.Backend == nil {
		return nil, fmt.Errorf("backend client required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Sync.PollInterval <= 0 {
		params.Sync.PollInterval = 30 * time.Second
	}
	if params.Sync.InitialPollDelay <= 0 {
		params.Sync.InitialPollDelay = 2 * time.Second
	}
	if params.StreamBackoff <= 0 {
		params.StreamBackoff = 5 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		backend:       params.Backend,
		notifier:      params.Notifier,
		logg:          params.Logger,
		metr:          params.Metrics,
		pollInterval:  params.Sync.PollInterval,
		initialDelay:  params.Sync.InitialPollDelay,
		streamBackoff: params.StreamBackoff,
		ctx:           ctx,
		cancel:        cancel,
		orders:        map[string]orderapi.Order{},
		known:         map[string]enums.OrderStatus{},
		watchers:      map[string]context.CancelFunc{},
		streams:       map[string]*orderapi.Stream{},
	}, nil
}

// Seed loads the caller's orders and starts tracking the active ones. Seeded
// statuses are the baseline; they never produce notifications.
func (e *Engine) Seed(ctx context.Context) error {
	orders, err := e.backend.ListMyOrders(ctx)
	if err != nil {
		return err
	}
	for _, order := range orders {
		e.Track(order)
	}
	return nil
}

// Track adds an order to the store. For an unknown order the current status
// becomes the baseline with no notification; for a known order a changed
// status goes through the regular dedup-and-notify path. Active orders get a
// stream watcher, and the poll loop is (re)started.
func (e *Engine) Track(order orderapi.Order) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	if _, ok := e.known[order.OrderID]; ok {
		e.mu.Unlock()
		e.applyUpdate(order.OrderID, order.Status, order.StatusHistory, order.UpdatedAt, ChannelPoll)
		return
	}
	e.orders[order.OrderID] = order
	e.known[order.OrderID] = order.Status
	e.mu.Unlock()

	if order.Status.IsActive() {
		e.startWatcher(order.OrderID)
		e.ensureLoop()
	}
}

// Orders returns a snapshot of all tracked orders, newest first.
func (e *Engine) Orders() []orderapi.Order {
	e.mu.Lock()
	out := make([]orderapi.Order, 0, len(e.orders))
	for _, order := range e.orders {
		out = append(out, order)
	}
	e.mu.Unlock()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Order returns the tracked order, if any.
func (e *Engine) Order(orderID string) (orderapi.Order, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	order, ok := e.orders[orderID]
	return order, ok
}

// ActiveCount reports how many tracked orders still need watching.
func (e *Engine) ActiveCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	count := 0
	for _, status := range e.known {
		if status.IsActive() {
			count++
		}
	}
	return count
}

// PollNow runs one poll cycle immediately. Overlapping calls collapse into
// one; a cycle already in flight makes this a no-op.
func (e *Engine) PollNow(ctx context.Context) {
	e.mu.Lock()
	if e.polling || e.closed {
		e.mu.Unlock()
		return
	}
	e.polling = true
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.polling = false
		e.mu.Unlock()
	}()

	start := time.Now()
	orders, err := e.backend.ListMyOrders(ctx)
	if err != nil {
		e.metr.ObservePoll("error", time.Since(start))
		e.metr.IncPollFailure(string(pkgerrors.As(err).Code()))
		e.logg.Error(e.logg.WithChannel(ctx, ChannelPoll), "order poll failed", err)
		return
	}
	e.metr.ObservePoll("success", time.Since(start))
	for _, order := range orders {
		e.Track(order)
	}
}

// applyUpdate is the single merge point for every channel. It drops updates
// for untracked orders and updates whose status is already known, and
// notifies exactly once per genuine transition.
func (e *Engine) applyUpdate(orderID string, status enums.OrderStatus, history []orderapi.StatusChange, updatedAt time.Time, channel string) {
	e.mu.Lock()
	prev, ok := e.known[orderID]
	if !ok || e.closed {
		e.mu.Unlock()
		return
	}
	if prev == status {
		e.mu.Unlock()
		e.metr.IncDedupDrop(channel)
		return
	}

	order := e.orders[orderID]
	order.Status = status
	if len(history) > 0 {
		order.StatusHistory = history
	}
	if !updatedAt.IsZero() {
		order.UpdatedAt = updatedAt
	}
	e.orders[orderID] = order
	e.known[orderID] = status

	var stopWatcher context.CancelFunc
	if status.IsTerminal() {
		stopWatcher = e.watchers[orderID]
	}
	notifier := e.notifier
	e.mu.Unlock()

	e.metr.IncTransition(channel)
	lctx := e.logg.WithChannel(e.logg.WithOrderID(context.Background(), orderID), channel)
	e.logg.Info(e.logg.WithField(lctx, "status", status), "order status changed")
	if notifier != nil {
		notifier.OrderStatusChanged(orderID, prev, status)
	}
	if stopWatcher != nil {
		stopWatcher()
	}
}

func (e *Engine) ensureLoop() {
	e.mu.Lock()
	if e.closed || e.looping {
		e.mu.Unlock()
		return
	}
	e.looping = true
	e.wg.Add(1)
	e.mu.Unlock()
	go e.loop()
}

func (e *Engine) loop() {
	defer e.wg.Done()

	delay := time.NewTimer(e.initialDelay)
	defer delay.Stop()
	select {
	case <-e.ctx.Done():
		e.stopLoop()
		return
	case <-delay.C:
	}
	e.PollNow(e.ctx)

	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-e.ctx.Done():
			e.stopLoop()
			return
		case <-ticker.C:
			if e.stopIfIdle() {
				return
			}
			e.PollNow(e.ctx)
		}
	}
}

func (e *Engine) stopLoop() {
	e.mu.Lock()
	e.looping = false
	e.mu.Unlock()
}

// stopIfIdle exits the loop only when no active order remains. The activity
// check and the running-flag clear share one critical section, so a Track
// landing concurrently either keeps the loop running or restarts it; it can
// never observe a loop that is about to exit.
func (e *Engine) stopIfIdle() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, status := range e.known {
		if status.IsActive() {
			return false
		}
	}
	e.looping = false
	return true
}

func (e *Engine) startWatcher(orderID string) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	if _, ok := e.watchers[orderID]; ok {
		e.mu.Unlock()
		return
	}
	wctx, cancel := context.WithCancel(e.ctx)
	e.watchers[orderID] = cancel
	e.wg.Add(1)
	e.mu.Unlock()
	go e.watch(wctx, orderID)
}

func (e *Engine) watch(ctx context.Context, orderID string) {
	defer e.wg.Done()
	defer e.clearWatcher(orderID)

	for {
		stream, err := e.backend.StreamOrder(ctx, orderID)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			e.metr.IncStreamReconnect("open_error")
			e.logg.Error(e.logg.WithOrderID(ctx, orderID), "opening order stream failed", err)
			if !e.pause(ctx, e.streamBackoff) {
				return
			}
			continue
		}
		e.registerStream(orderID, stream)

		receiving := true
		for receiving {
			select {
			case <-ctx.Done():
				_ = stream.Close()
				e.unregisterStream(orderID)
				return
			case event, ok := <-stream.Events:
				if !ok {
					receiving = false
					break
				}
				id := event.OrderID
				if id == "" {
					id = orderID
				}
				e.applyUpdate(id, event.Status, event.StatusHistory, event.UpdatedAt, ChannelPush)
			}
		}
		err = <-stream.Done
		_ = stream.Close()
		e.unregisterStream(orderID)

		if ctx.Err() != nil {
			return
		}
		e.mu.Lock()
		terminal := e.known[orderID].IsTerminal()
		e.mu.Unlock()
		if terminal {
			return
		}

		reason := "eof"
		if err != nil {
			reason = "read_error"
			e.logg.Error(e.logg.WithOrderID(ctx, orderID), "order stream broke", err)
		}
		e.metr.IncStreamReconnect(reason)
		if !e.pause(ctx, e.streamBackoff) {
			return
		}
	}
}

func (e *Engine) clearWatcher(orderID string) {
	e.mu.Lock()
	cancel := e.watchers[orderID]
	delete(e.watchers, orderID)
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (e *Engine) registerStream(orderID string, stream *orderapi.Stream) {
	e.mu.Lock()
	e.streams[orderID] = stream
	e.mu.Unlock()
}

func (e *Engine) unregisterStream(orderID string) {
	e.mu.Lock()
	delete(e.streams, orderID)
	e.mu.Unlock()
}

func (e *Engine) pause(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Close stops the poll loop and all watchers, waits for them, and clears the
// store. Safe to call more than once.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	streams := make([]*orderapi.Stream, 0, len(e.streams))
	for _, stream := range e.streams {
		streams = append(streams, stream)
	}
	e.mu.Unlock()

	e.cancel()
	var err error
	for _, stream := range streams {
		err = multierr.Append(err, stream.Close())
	}
	e.wg.Wait()

	e.mu.Lock()
	e.orders = map[string]orderapi.Order{}
	e.known = map[string]enums.OrderStatus{}
	e.watchers = map[string]context.CancelFunc{}
	e.streams = map[string]*orderapi.Stream{}
	e.mu.Unlock()
	return err
}
