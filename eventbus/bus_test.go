package eventbus

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/leeforge/globaltree/logging"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"
)

func TestBus_OrderPersistentThenOnce(t *testing.T) {
	bus := New(nil)
	ctx := context.Background()

	var calls []string
	record := func(name string) Handler {
		return func(ctx context.Context, e Event) error {
			calls = append(calls, name)
			return nil
		}
	}

	bus.Once("evt", record("once-1"))
	bus.On("evt", record("on-1"))
	bus.Once("evt", record("once-2"))
	bus.On("evt", record("on-2"))

	if got := bus.ListenerCount("evt"); got != 4 {
		t.Fatalf("expected 4 listeners, got %d", got)
	}

	bus.Emit(ctx, "evt", nil)

	want := []string{"on-1", "on-2", "once-1", "once-2"}
	if fmt.Sprint(calls) != fmt.Sprint(want) {
		t.Fatalf("expected order %v, got %v", want, calls)
	}
	if got := bus.ListenerCount("evt"); got != 2 {
		t.Fatalf("expected once handlers gone, listener count %d", got)
	}

	calls = nil
	bus.Emit(ctx, "evt", nil)
	if fmt.Sprint(calls) != fmt.Sprint([]string{"on-1", "on-2"}) {
		t.Fatalf("second emit ran %v", calls)
	}
}

func TestBus_HandlerReceivesData(t *testing.T) {
	bus := New(nil)
	var got Event
	bus.On("plugin:installed", func(ctx context.Context, e Event) error {
		got = e
		return nil
	})

	bus.Emit(context.Background(), "plugin:installed", map[string]string{"id": "svg"})

	if got.Type != "plugin:installed" || got.Timestamp.IsZero() {
		t.Fatalf("unexpected event %+v", got)
	}
	if got.Data.(map[string]string)["id"] != "svg" {
		t.Fatalf("unexpected data %#v", got.Data)
	}
}

func TestBus_OffBySubscription(t *testing.T) {
	bus := New(nil)
	var a, b int
	subA := bus.On("evt", func(ctx context.Context, e Event) error { a++; return nil })
	bus.On("evt", func(ctx context.Context, e Event) error { b++; return nil })
	onceSub := bus.Once("evt", func(ctx context.Context, e Event) error { a += 100; return nil })

	bus.Off("evt", subA, onceSub)
	bus.Emit(context.Background(), "evt", nil)

	if a != 0 || b != 1 {
		t.Fatalf("expected only second handler, a=%d b=%d", a, b)
	}

	// Unsubscribe twice is harmless.
	subA.Unsubscribe()
	subA.Unsubscribe()
	if got := bus.ListenerCount("evt"); got != 1 {
		t.Fatalf("expected 1 listener, got %d", got)
	}
}

func TestBus_OffWithoutSubscriptionClearsEvent(t *testing.T) {
	bus := New(nil)
	bus.On("evt", func(ctx context.Context, e Event) error { return nil })
	bus.Once("evt", func(ctx context.Context, e Event) error { return nil })
	bus.On("other", func(ctx context.Context, e Event) error { return nil })

	bus.Off("evt")

	if got := bus.ListenerCount("evt"); got != 0 {
		t.Fatalf("expected 0 listeners, got %d", got)
	}
	names := bus.EventNames()
	if len(names) != 1 || names[0] != "other" {
		t.Fatalf("unexpected event names %v", names)
	}
}

func TestBus_RemoveAllListeners(t *testing.T) {
	bus := New(nil)
	for _, name := range []string{"a", "b", "c"} {
		bus.On(name, func(ctx context.Context, e Event) error { return nil })
	}

	bus.RemoveAllListeners("a")
	if bus.ListenerCount("a") != 0 || bus.ListenerCount("b") != 1 {
		t.Fatal("RemoveAllListeners(a) removed the wrong handlers")
	}

	bus.RemoveAllListeners()
	if len(bus.EventNames()) != 0 {
		t.Fatalf("expected no events, got %v", bus.EventNames())
	}
}

func TestBus_HandlerFailureIsolated(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	bus := New(logging.FromZap(zap.New(core)))

	var ran []string
	bus.On("evt", func(ctx context.Context, e Event) error {
		panic("boom")
	})
	bus.On("evt", func(ctx context.Context, e Event) error {
		ran = append(ran, "second")
		return errors.New("soft failure")
	})
	bus.Once("evt", func(ctx context.Context, e Event) error {
		ran = append(ran, "once")
		return nil
	})

	bus.Emit(context.Background(), "evt", nil)

	if fmt.Sprint(ran) != "[second once]" {
		t.Fatalf("siblings did not run: %v", ran)
	}
	if got := logs.FilterMessage("event handler failed").Len(); got != 2 {
		t.Fatalf("expected 2 logged failures, got %d", got)
	}
}

func TestBus_ReentrantEmitIsDepthFirst(t *testing.T) {
	bus := New(nil)
	var order []string

	bus.On("outer", func(ctx context.Context, e Event) error {
		order = append(order, "outer:start")
		bus.Emit(ctx, "inner", nil)
		order = append(order, "outer:end")
		return nil
	})
	bus.On("inner", func(ctx context.Context, e Event) error {
		order = append(order, "inner")
		return nil
	})

	bus.Emit(context.Background(), "outer", nil)

	want := "[outer:start inner outer:end]"
	if fmt.Sprint(order) != want {
		t.Fatalf("expected %s, got %v", want, order)
	}
}

func TestBus_HistoryCap(t *testing.T) {
	bus := New(nil)
	ctx := context.Background()

	for i := 1; i <= 1500; i++ {
		bus.Emit(ctx, fmt.Sprintf("evt-%d", i), i)
	}

	history := bus.History()
	if len(history) != 1000 {
		t.Fatalf("expected 1000 records, got %d", len(history))
	}
	if history[0].Data != 501 {
		t.Fatalf("expected oldest kept record #501, got %v", history[0].Data)
	}
	if history[len(history)-1].Data != 1500 {
		t.Fatalf("expected newest record #1500, got %v", history[len(history)-1].Data)
	}

	last := bus.History(3)
	if len(last) != 3 || last[0].Data != 1498 {
		t.Fatalf("unexpected limited history %v", last)
	}

	bus.ClearHistory()
	if len(bus.History()) != 0 {
		t.Fatal("history not cleared")
	}
}

func TestBus_HistoryDisabled(t *testing.T) {
	bus := New(nil, WithHistorySize(0))
	bus.Emit(context.Background(), "evt", nil)
	if len(bus.History()) != 0 {
		t.Fatal("history should be disabled")
	}
}

func TestBus_HistoryProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		size := rapid.IntRange(1, 50).Draw(t, "size")
		emits := rapid.IntRange(0, 200).Draw(t, "emits")

		bus := New(nil, WithHistorySize(size))
		for i := 1; i <= emits; i++ {
			bus.Emit(context.Background(), "evt", i)
		}

		history := bus.History()
		wantLen := min(size, emits)
		if len(history) != wantLen {
			t.Fatalf("expected %d records, got %d", wantLen, len(history))
		}
		for i, ev := range history {
			want := emits - wantLen + 1 + i
			if ev.Data != want {
				t.Fatalf("record %d: expected emission #%d, got %v", i, want, ev.Data)
			}
		}
	})
}
