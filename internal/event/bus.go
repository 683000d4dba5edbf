// Package event is the in-process plugin.EventBus used between ponplan
// plugins, e.g. inventory announcing new devices to the planner.
package event

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/HerbHall/ponplan/pkg/plugin"
	"go.uber.org/zap"
)

var _ plugin.EventBus = (*Bus)(nil)

// wildcard is the internal key for SubscribeAll handlers.
const wildcard = "*"

// Bus delivers events to topic subscribers and then to catch-all
// subscribers. Publish runs handlers in the caller's goroutine;
// PublishAsync runs each handler in its own goroutine, and Wait blocks
// until those have returned. A panicking handler is logged and skipped.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string][]subscriber
	nextID uint64

	inflight sync.WaitGroup
	logger   *zap.Logger
}

type subscriber struct {
	id uint64
	fn plugin.EventHandler
}

// NewBus returns an empty bus.
func NewBus(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{subs: make(map[string][]subscriber), logger: logger}
}

func (b *Bus) Publish(ctx context.Context, ev plugin.Event) error {
	ev = stamp(ev)
	for _, s := range b.matching(ev.Topic) {
		b.dispatch(ctx, s.fn, ev)
	}
	return nil
}

func (b *Bus) PublishAsync(ctx context.Context, ev plugin.Event) {
	ev = stamp(ev)
	for _, s := range b.matching(ev.Topic) {
		b.inflight.Add(1)
		go func(fn plugin.EventHandler) {
			defer b.inflight.Done()
			b.dispatch(ctx, fn, ev)
		}(s.fn)
	}
}

// Wait blocks until every handler started by PublishAsync has returned.
func (b *Bus) Wait() {
	b.inflight.Wait()
}

func (b *Bus) Subscribe(topic string, handler plugin.EventHandler) func() {
	return b.subscribe(topic, handler)
}

func (b *Bus) SubscribeAll(handler plugin.EventHandler) func() {
	return b.subscribe(wildcard, handler)
}

func (b *Bus) subscribe(key string, handler plugin.EventHandler) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[key] = append(b.subs[key], subscriber{id: id, fn: handler})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			b.subs[key] = slices.DeleteFunc(b.subs[key], func(s subscriber) bool { return s.id == id })
		})
	}
}

// matching copies the handlers for topic so dispatch runs without the lock.
func (b *Bus) matching(topic string) []subscriber {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]subscriber, 0, len(b.subs[topic])+len(b.subs[wildcard]))
	out = append(out, b.subs[topic]...)
	if topic != wildcard {
		out = append(out, b.subs[wildcard]...)
	}
	return out
}

func (b *Bus) dispatch(ctx context.Context, fn plugin.EventHandler, ev plugin.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				zap.String("topic", ev.Topic),
				zap.String("source", ev.Source),
				zap.Any("panic", r),
			)
		}
	}()
	fn(ctx, ev)
}

func stamp(ev plugin.Event) plugin.Event {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	return ev
}
