// Package eventbus is the synchronous publish/subscribe channel shared by
// the plugin manager, the plugins and the application shell.
package eventbus

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	apperrors "github.com/leeforge/globaltree/errors"
	"github.com/leeforge/globaltree/logging"
	"go.uber.org/zap"
)

// DefaultHistorySize is the number of records kept by History.
const DefaultHistorySize = 1000

// Event is one emitted record. It is both what handlers receive and what
// History returns.
type Event struct {
	Type      string    `json:"type"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Handler receives an emitted event. A returned error is logged and does
// not stop sibling handlers.
type Handler func(ctx context.Context, event Event) error

// Subscription identifies one registered handler. Handlers are funcs and
// cannot be compared, so removal goes through the handle.
type Subscription struct {
	bus   *Bus
	event string
	id    uint64
	once  bool
}

// Event returns the event name the subscription listens to.
func (s *Subscription) Event() string { return s.event }

// Unsubscribe removes the handler. Calling it more than once is harmless.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.bus == nil {
		return
	}
	s.bus.Off(s.event, s)
}

type entry struct {
	id      uint64
	handler Handler
}

// Bus is a synchronous event bus with separate persistent and once handler
// lists per event and a bounded history.
type Bus struct {
	mu     sync.Mutex
	on     map[string][]entry
	once   map[string][]entry
	nextID atomic.Uint64

	history     []Event
	historyHead int
	historySize int

	logger logging.Logger
}

// Option configures a Bus.
type Option func(*Bus)

// WithHistorySize sets the history capacity. Zero disables history.
func WithHistorySize(n int) Option {
	return func(b *Bus) {
		if n < 0 {
			n = 0
		}
		b.historySize = n
	}
}

// New creates a Bus. A nil logger discards handler failures.
func New(logger logging.Logger, opts ...Option) *Bus {
	b := &Bus{
		on:          make(map[string][]entry),
		once:        make(map[string][]entry),
		historySize: DefaultHistorySize,
		logger:      logging.OrNop(logger),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// On registers a persistent handler. Handlers run in registration order.
func (b *Bus) On(event string, handler Handler) *Subscription {
	return b.add(event, handler, false)
}

// Once registers a handler that is removed after its first invocation.
func (b *Bus) Once(event string, handler Handler) *Subscription {
	return b.add(event, handler, true)
}

func (b *Bus) add(event string, handler Handler, once bool) *Subscription {
	id := b.nextID.Add(1)

	b.mu.Lock()
	defer b.mu.Unlock()

	e := entry{id: id, handler: handler}
	if once {
		b.once[event] = append(b.once[event], e)
	} else {
		b.on[event] = append(b.on[event], e)
	}
	return &Subscription{bus: b, event: event, id: id, once: once}
}

// Off removes the given subscriptions from both lists of event. Without
// subscriptions it removes every handler registered for event.
func (b *Bus) Off(event string, subs ...*Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(subs) == 0 {
		delete(b.on, event)
		delete(b.once, event)
		return
	}

	ids := make(map[uint64]struct{}, len(subs))
	for _, s := range subs {
		if s != nil && s.event == event {
			ids[s.id] = struct{}{}
		}
	}
	b.on[event] = without(b.on[event], ids)
	b.once[event] = without(b.once[event], ids)
	b.prune(event)
}

// Emit records the event in history, then runs every persistent handler
// followed by every once handler, in registration order. It returns after
// all handlers ran. Handlers may emit; nested events are delivered before
// Emit returns.
func (b *Bus) Emit(ctx context.Context, event string, data any) {
	if ctx == nil {
		ctx = context.Background()
	}
	ev := Event{Type: event, Data: data, Timestamp: time.Now()}

	b.mu.Lock()
	b.record(ev)
	persistent := append([]entry(nil), b.on[event]...)
	once := append([]entry(nil), b.once[event]...)
	if len(once) > 0 {
		fired := make(map[uint64]struct{}, len(once))
		for _, e := range once {
			fired[e.id] = struct{}{}
		}
		b.once[event] = without(b.once[event], fired)
		b.prune(event)
	}
	b.mu.Unlock()

	for _, e := range persistent {
		b.invoke(ctx, ev, e)
	}
	for _, e := range once {
		b.invoke(ctx, ev, e)
	}
}

func (b *Bus) invoke(ctx context.Context, ev Event, e entry) {
	err := apperrors.Recover(func() error {
		return e.handler(ctx, ev)
	})
	if err != nil {
		b.logger.Error("event handler failed",
			zap.String("event", ev.Type),
			zap.Uint64("subscription", e.id),
			zap.Error(err))
	}
}

// RemoveAllListeners clears the handlers of the named events, or of every
// event when no name is given.
func (b *Bus) RemoveAllListeners(events ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(events) == 0 {
		b.on = make(map[string][]entry)
		b.once = make(map[string][]entry)
		return
	}
	for _, event := range events {
		delete(b.on, event)
		delete(b.once, event)
	}
}

// ListenerCount returns the number of persistent plus once handlers.
func (b *Bus) ListenerCount(event string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.on[event]) + len(b.once[event])
}

// EventNames returns the events that currently have handlers.
func (b *Bus) EventNames() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	seen := make(map[string]struct{}, len(b.on)+len(b.once))
	names := make([]string, 0, len(b.on)+len(b.once))
	for _, m := range []map[string][]entry{b.on, b.once} {
		for name, list := range m {
			if len(list) == 0 {
				continue
			}
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}
	return names
}

// History returns recorded events oldest first. With a positive limit only
// the most recent limit records are returned.
func (b *Bus) History(limit ...int) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := len(b.history)
	out := make([]Event, 0, n)
	if n < b.historySize || b.historySize == 0 {
		out = append(out, b.history...)
	} else {
		out = append(out, b.history[b.historyHead:]...)
		out = append(out, b.history[:b.historyHead]...)
	}
	if len(limit) > 0 && limit[0] > 0 && limit[0] < len(out) {
		out = out[len(out)-limit[0]:]
	}
	return out
}

// ClearHistory drops every recorded event.
func (b *Bus) ClearHistory() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.history = nil
	b.historyHead = 0
}

// record appends ev to the ring, evicting the oldest record when full.
// Callers hold b.mu.
func (b *Bus) record(ev Event) {
	if b.historySize == 0 {
		return
	}
	if len(b.history) < b.historySize {
		b.history = append(b.history, ev)
		return
	}
	b.history[b.historyHead] = ev
	b.historyHead = (b.historyHead + 1) % b.historySize
}

// prune drops empty lists so EventNames stays accurate. Callers hold b.mu.
func (b *Bus) prune(event string) {
	if len(b.on[event]) == 0 {
		delete(b.on, event)
	}
	if len(b.once[event]) == 0 {
		delete(b.once, event)
	}
}

func without(list []entry, ids map[uint64]struct{}) []entry {
	if len(list) == 0 || len(ids) == 0 {
		return list
	}
	out := make([]entry, 0, len(list))
	for _, e := range list {
		if _, drop := ids[e.id]; !drop {
			out = append(out, e)
		}
	}
	return out
}
