package ordersync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rahulpdmehta/hungerwood-core/pkg/config"
	"github.com/rahulpdmehta/hungerwood-core/pkg/enums"
	"github.com/rahulpdmehta/hungerwood-core/pkg/logger"
	"github.com/rahulpdmehta/hungerwood-core/pkg/orderapi"
)

type fakeStream struct {
	events chan orderapi.StatusEvent
	done   chan error
	stream *orderapi.Stream
}

func newFakeStream() *fakeStream {
	events := make(chan orderapi.StatusEvent)
	done := make(chan error, 1)
	return &fakeStream{
		events: events,
		done:   done,
		stream: &orderapi.Stream{Events: events, Done: done},
	}
}

func (f *fakeStream) push(event orderapi.StatusEvent) {
	f.events <- event
}

func (f *fakeStream) end(err error) {
	close(f.events)
	f.done <- err
}

type stubBackend struct {
	mu        sync.Mutex
	orders    map[string]orderapi.Order
	listCalls int
	listGate  chan struct{}
	openErrs  int
	opened    chan *fakeStream
}

func newStubBackend(orders ...orderapi.Order) *stubBackend {
	s := &stubBackend{
		orders: map[string]orderapi.Order{},
		opened: make(chan *fakeStream, 32),
	}
	for _, order := range orders {
		s.orders[order.OrderID] = order
	}
	return s
}

func (s *stubBackend) setStatus(orderID string, status enums.OrderStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order := s.orders[orderID]
	order.Status = status
	s.orders[orderID] = order
}

func (s *stubBackend) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listCalls
}

func (s *stubBackend) ListMyOrders(context.Context) ([]orderapi.Order, error) {
	s.mu.Lock()
	s.listCalls++
	gate := s.listGate
	out := make([]orderapi.Order, 0, len(s.orders))
	for _, order := range s.orders {
		out = append(out, order)
	}
	s.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return out, nil
}

func (s *stubBackend) StreamOrder(context.Context, string) (*orderapi.Stream, error) {
	s.mu.Lock()
	if s.openErrs > 0 {
		s.openErrs--
		s.mu.Unlock()
		return nil, errors.New("stream refused")
	}
	s.mu.Unlock()
	f := newFakeStream()
	s.opened <- f
	return f.stream, nil
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordingNotifier) OrderStatusChanged(orderID string, from, to enums.OrderStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, fmt.Sprintf("%s:%s->%s", orderID, from, to))
}

func (r *recordingNotifier) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	copy(out, r.calls)
	return out
}

func newTestEngine(t *testing.T, backend *stubBackend, sync config.SyncConfig, backoff time.Duration) (*Engine, *recordingNotifier) {
	t.Helper()
	notifier := &recordingNotifier{}
	engine, err := NewEngine(EngineParams{
		Backend:       backend,
		Notifier:      notifier,
		Logger:        logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Sync:          sync,
		StreamBackoff: backoff,
	})
	if err != nil {
		t.Fatalf("building engine: %v", err)
	}
	t.Cleanup(func() { _ = engine.Close() })
	return engine, notifier
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func activeOrder(id string) orderapi.Order {
	return orderapi.Order{OrderID: id, Status: enums.OrderStatusReceived, CreatedAt: time.Now()}
}

func TestSeedEstablishesBaselineWithoutNotifications(t *testing.T) {
	backend := newStubBackend(
		activeOrder("o1"),
		orderapi.Order{OrderID: "o2", Status: enums.OrderStatusCompleted, CreatedAt: time.Now().Add(-time.Hour)},
	)
	engine, notifier := newTestEngine(t, backend, config.SyncConfig{PollInterval: time.Hour, InitialPollDelay: time.Hour}, time.Hour)

	if err := engine.Seed(context.Background()); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if got := len(engine.Orders()); got != 2 {
		t.Fatalf("expected 2 tracked orders, got %d", got)
	}
	if got := engine.ActiveCount(); got != 1 {
		t.Fatalf("expected 1 active order, got %d", got)
	}
	if calls := notifier.snapshot(); len(calls) != 0 {
		t.Fatalf("seed must not notify, got %v", calls)
	}
	// only the active order gets a watcher
	waitFor(t, "watcher to connect", func() bool { return len(backend.opened) == 1 })
}

func TestPushSequenceNotifiesOncePerGenuineTransition(t *testing.T) {
	backend := newStubBackend(activeOrder("o1"))
	engine, notifier := newTestEngine(t, backend, config.SyncConfig{PollInterval: time.Hour, InitialPollDelay: time.Hour}, time.Hour)

	if err := engine.Seed(context.Background()); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	stream := <-backend.opened

	sequence := []enums.OrderStatus{
		enums.OrderStatusReceived,
		enums.OrderStatusReceived,
		enums.OrderStatusConfirmed,
		enums.OrderStatusConfirmed,
		enums.OrderStatusConfirmed,
	}
	for _, status := range sequence {
		stream.push(orderapi.StatusEvent{Type: orderapi.EventTypeStatusUpdate, OrderID: "o1", Status: status})
	}

	waitFor(t, "status to reach CONFIRMED", func() bool {
		order, ok := engine.Order("o1")
		return ok && order.Status == enums.OrderStatusConfirmed
	})
	time.Sleep(20 * time.Millisecond)

	calls := notifier.snapshot()
	if len(calls) != 1 || calls[0] != "o1:RECEIVED->CONFIRMED" {
		t.Fatalf("expected exactly one RECEIVED->CONFIRMED notification, got %v", calls)
	}
}

func TestPushForUnknownOrderIsDropped(t *testing.T) {
	backend := newStubBackend(activeOrder("o1"))
	engine, notifier := newTestEngine(t, backend, config.SyncConfig{PollInterval: time.Hour, InitialPollDelay: time.Hour}, time.Hour)

	if err := engine.Seed(context.Background()); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	stream := <-backend.opened
	stream.push(orderapi.StatusEvent{Type: orderapi.EventTypeStatusUpdate, OrderID: "ghost", Status: enums.OrderStatusConfirmed})
	stream.push(orderapi.StatusEvent{Type: orderapi.EventTypeStatusUpdate, OrderID: "o1", Status: enums.OrderStatusConfirmed})

	waitFor(t, "known order update", func() bool { return len(notifier.snapshot()) == 1 })
	if _, ok := engine.Order("ghost"); ok {
		t.Fatal("untracked order must not be created from a push")
	}
}

func TestPollDetectsMissedTransition(t *testing.T) {
	backend := newStubBackend(activeOrder("o1"))
	backend.openErrs = 1 << 30 // stream channel unavailable, poll is the safety net
	engine, notifier := newTestEngine(t, backend, config.SyncConfig{PollInterval: 10 * time.Millisecond, InitialPollDelay: 5 * time.Millisecond}, time.Hour)

	if err := engine.Seed(context.Background()); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	backend.setStatus("o1", enums.OrderStatusConfirmed)

	waitFor(t, "poll to notify", func() bool { return len(notifier.snapshot()) == 1 })
	time.Sleep(50 * time.Millisecond)
	if calls := notifier.snapshot(); len(calls) != 1 {
		t.Fatalf("repeated polls of the same status must dedup, got %v", calls)
	}
}

func TestPollNowCollapsesOverlappingCycles(t *testing.T) {
	backend := newStubBackend(activeOrder("o1"))
	gate := make(chan struct{})
	backend.listGate = gate
	engine, _ := newTestEngine(t, backend, config.SyncConfig{PollInterval: time.Hour, InitialPollDelay: time.Hour}, time.Hour)

	released := make(chan struct{})
	go func() {
		engine.PollNow(context.Background())
		close(released)
	}()
	waitFor(t, "first poll to start", func() bool { return backend.calls() == 1 })

	engine.PollNow(context.Background()) // in-flight cycle absorbs this one
	if got := backend.calls(); got != 1 {
		t.Fatalf("expected overlapping poll to be skipped, got %d list calls", got)
	}
	close(gate)
	<-released
}

func TestLoopStopsWhenAllOrdersTerminalAndRestartsOnTrack(t *testing.T) {
	backend := newStubBackend(activeOrder("o1"))
	backend.openErrs = 1 << 30
	engine, _ := newTestEngine(t, backend, config.SyncConfig{PollInterval: 10 * time.Millisecond, InitialPollDelay: 5 * time.Millisecond}, time.Hour)

	if err := engine.Seed(context.Background()); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	backend.setStatus("o1", enums.OrderStatusCancelled)
	waitFor(t, "order to go terminal", func() bool { return engine.ActiveCount() == 0 })

	time.Sleep(60 * time.Millisecond)
	stopped := backend.calls()
	time.Sleep(60 * time.Millisecond)
	if got := backend.calls(); got != stopped {
		t.Fatalf("loop kept polling with no active orders: %d -> %d", stopped, got)
	}

	engine.Track(activeOrder("o2"))
	waitFor(t, "loop to restart", func() bool { return backend.calls() > stopped })
}

func TestIdleExitClearsRunningFlagOnlyWhenNothingActive(t *testing.T) {
	backend := newStubBackend()
	engine, _ := newTestEngine(t, backend, config.SyncConfig{PollInterval: time.Hour, InitialPollDelay: time.Hour}, time.Hour)

	engine.mu.Lock()
	engine.looping = true
	engine.mu.Unlock()

	if !engine.stopIfIdle() {
		t.Fatal("expected the loop to exit with no tracked orders")
	}
	engine.mu.Lock()
	looping := engine.looping
	engine.mu.Unlock()
	if looping {
		t.Fatal("running flag must be cleared in the same critical section as the idle check")
	}

	engine.mu.Lock()
	engine.looping = true
	engine.known["o1"] = enums.OrderStatusReceived
	engine.mu.Unlock()

	if engine.stopIfIdle() {
		t.Fatal("loop must keep running while an order is still active")
	}
	engine.mu.Lock()
	looping = engine.looping
	engine.mu.Unlock()
	if !looping {
		t.Fatal("running flag must stay set while an order is still active")
	}
}

func TestStreamReconnectsAfterFailure(t *testing.T) {
	backend := newStubBackend(activeOrder("o1"))
	backend.openErrs = 1
	engine, notifier := newTestEngine(t, backend, config.SyncConfig{PollInterval: time.Hour, InitialPollDelay: time.Hour}, 5*time.Millisecond)

	if err := engine.Seed(context.Background()); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	stream := <-backend.opened // second attempt succeeds
	stream.push(orderapi.StatusEvent{Type: orderapi.EventTypeStatusUpdate, OrderID: "o1", Status: enums.OrderStatusConfirmed})

	waitFor(t, "notification after reconnect", func() bool { return len(notifier.snapshot()) == 1 })
}

func TestStreamEndTriggersReconnect(t *testing.T) {
	backend := newStubBackend(activeOrder("o1"))
	engine, notifier := newTestEngine(t, backend, config.SyncConfig{PollInterval: time.Hour, InitialPollDelay: time.Hour}, 5*time.Millisecond)

	if err := engine.Seed(context.Background()); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	first := <-backend.opened
	first.end(errors.New("connection reset"))

	second := <-backend.opened
	second.push(orderapi.StatusEvent{Type: orderapi.EventTypeStatusUpdate, OrderID: "o1", Status: enums.OrderStatusConfirmed})
	waitFor(t, "notification on reconnected stream", func() bool { return len(notifier.snapshot()) == 1 })
}

func TestTerminalPushStopsWatching(t *testing.T) {
	backend := newStubBackend(activeOrder("o1"))
	engine, notifier := newTestEngine(t, backend, config.SyncConfig{PollInterval: time.Hour, InitialPollDelay: time.Hour}, time.Millisecond)

	if err := engine.Seed(context.Background()); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	stream := <-backend.opened
	stream.push(orderapi.StatusEvent{Type: orderapi.EventTypeStatusUpdate, OrderID: "o1", Status: enums.OrderStatusCancelled})

	waitFor(t, "cancellation notification", func() bool { return len(notifier.snapshot()) == 1 })
	waitFor(t, "watcher to stop", func() bool {
		engine.mu.Lock()
		defer engine.mu.Unlock()
		return len(engine.watchers) == 0
	})
	if extra := len(backend.opened); extra != 0 {
		t.Fatalf("terminal order must not reconnect, got %d extra streams", extra)
	}
}

func TestCloseClearsStateAndIsIdempotent(t *testing.T) {
	backend := newStubBackend(activeOrder("o1"))
	engine, _ := newTestEngine(t, backend, config.SyncConfig{PollInterval: time.Hour, InitialPollDelay: time.Hour}, time.Hour)

	if err := engine.Seed(context.Background()); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	<-backend.opened

	if err := engine.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if got := len(engine.Orders()); got != 0 {
		t.Fatalf("expected cleared store, got %d orders", got)
	}

	engine.Track(activeOrder("o2"))
	if got := len(engine.Orders()); got != 0 {
		t.Fatalf("track after close must be a no-op, got %d orders", got)
	}
	if err := engine.Close(); err != nil {
		t.Fatalf("second close failed: %v", err)
	}
}
