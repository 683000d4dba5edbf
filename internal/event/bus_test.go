package event

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/HerbHall/ponplan/pkg/plugin"
	"go.uber.org/zap"
)

func TestPublish_DeliversToTopicAndWildcard(t *testing.T) {
	b := NewBus(zap.NewNop())

	var order []string
	b.Subscribe("inventory.device.created", func(_ context.Context, ev plugin.Event) {
		order = append(order, "topic:"+ev.Source)
	})
	b.SubscribeAll(func(_ context.Context, ev plugin.Event) {
		order = append(order, "all:"+ev.Topic)
	})
	b.Subscribe("inventory.device.deleted", func(context.Context, plugin.Event) {
		order = append(order, "wrong topic")
	})

	err := b.Publish(context.Background(), plugin.Event{Topic: "inventory.device.created", Source: "inventory"})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}

	want := []string{"topic:inventory", "all:inventory.device.created"}
	if len(order) != len(want) {
		t.Fatalf("calls = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("call %d = %q, want %q", i, order[i], want[i])
		}
	}
}

func TestPublish_StampsTimestamp(t *testing.T) {
	b := NewBus(nil)
	var got plugin.Event
	b.Subscribe("t", func(_ context.Context, ev plugin.Event) { got = ev })

	_ = b.Publish(context.Background(), plugin.Event{Topic: "t"})
	if got.Timestamp.IsZero() {
		t.Error("Timestamp not set")
	}
}

func TestUnsubscribe(t *testing.T) {
	b := NewBus(zap.NewNop())
	var calls int
	unsub := b.Subscribe("t", func(context.Context, plugin.Event) { calls++ })
	unsubAll := b.SubscribeAll(func(context.Context, plugin.Event) { calls++ })

	_ = b.Publish(context.Background(), plugin.Event{Topic: "t"})
	unsub()
	unsub()
	unsubAll()
	_ = b.Publish(context.Background(), plugin.Event{Topic: "t"})

	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestPublish_RecoversFromPanic(t *testing.T) {
	b := NewBus(zap.NewNop())
	var reached bool
	b.Subscribe("t", func(context.Context, plugin.Event) { panic("bad handler") })
	b.Subscribe("t", func(context.Context, plugin.Event) { reached = true })

	if err := b.Publish(context.Background(), plugin.Event{Topic: "t"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if !reached {
		t.Error("second handler not called after first panicked")
	}
}

func TestPublishAsync_Wait(t *testing.T) {
	b := NewBus(zap.NewNop())
	var n atomic.Int32
	for i := 0; i < 5; i++ {
		b.Subscribe("t", func(context.Context, plugin.Event) { n.Add(1) })
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.PublishAsync(context.Background(), plugin.Event{Topic: "t"})
		}()
	}
	wg.Wait()
	b.Wait()

	if got := n.Load(); got != 20 {
		t.Errorf("handler calls = %d, want 20", got)
	}
}
